package health

import (
	"context"
	"database/sql"
	"time"

	"courier-backend/internal/connectivity"
)

// HealthChecker reports on the two stores the process depends on. The
// local SQLite cache is a hard dependency; the remote backend being
// down only degrades the report, because the whole point of the cache
// is to keep working without it.
type HealthChecker struct {
	local   *sql.DB
	monitor *connectivity.Monitor
}

type HealthStatus struct {
	Status     string        `json:"status"`
	LocalStore StoreHealth   `json:"local_store"`
	Backend    BackendHealth `json:"backend"`
}

type StoreHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type BackendHealth struct {
	Online       bool      `json:"online"`
	LastOnlineAt time.Time `json:"last_online_at"`
}

func NewHealthChecker(local *sql.DB, monitor *connectivity.Monitor) *HealthChecker {
	return &HealthChecker{local: local, monitor: monitor}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	localHealth := h.checkLocal()

	status := "healthy"
	if localHealth.Status != "healthy" {
		status = "unhealthy"
	} else if !h.monitor.IsOnline() {
		status = "degraded"
	}

	return HealthStatus{
		Status:     status,
		LocalStore: localHealth,
		Backend: BackendHealth{
			Online:       h.monitor.IsOnline(),
			LastOnlineAt: h.monitor.LastOnlineAt(),
		},
	}
}

func (h *HealthChecker) checkLocal() StoreHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.local.PingContext(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return StoreHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return StoreHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}
