package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"courier-backend/internal/services"
	"courier-backend/internal/timeutil"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// GetSummary returns the financial rollup for an explicit from/to range,
// defaulting to the current month.
func (h *ReportHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return
	}

	start, end, err := dateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if start == nil || end == nil {
		s, e := timeutil.MonthRange(time.Now())
		if start == nil {
			start = &s
		}
		if end == nil {
			end = &e
		}
	}

	summary, err := h.Service.GetSummary(context.Background(), owner, *start, *end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *ReportHandler) GetClientHistory(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return
	}
	clientID := mux.Vars(r)["client_id"]

	records, total, err := h.Service.GetClientHistory(context.Background(), owner, clientID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"services": records,
		"total":    total,
	})
}
