package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"courier-backend/internal/hybrid"
	"courier-backend/internal/state"
)

type SyncHandler struct {
	Adapter *hybrid.Adapter
	State   *state.Manager
}

func NewSyncHandler(adapter *hybrid.Adapter, st *state.Manager) *SyncHandler {
	return &SyncHandler{Adapter: adapter, State: st}
}

// GetStatus reports connectivity, queue depth and failed items.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Adapter.Status(context.Background())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"online":         status.Online,
		"last_online_at": status.LastOnlineAt,
		"pending_count":  status.PendingCount,
		"failed_items":   status.FailedItems,
		"is_syncing":     h.State.IsSyncing(),
	})
}

// ForceSync drains the queue and rebuilds the cache from the backend.
// It fails with 503 while offline rather than pretending to have synced.
func (h *SyncHandler) ForceSync(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return
	}

	if err := h.State.ForceSync(context.Background(), owner); err != nil {
		if errors.Is(err, hybrid.ErrOffline) {
			http.Error(w, "remote backend unreachable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Drain pushes queued mutations without the full refresh of ForceSync.
func (h *SyncHandler) Drain(w http.ResponseWriter, r *http.Request) {
	res, err := h.Adapter.Drain(context.Background())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// RetryFailed re-arms permanently failed queue items.
func (h *SyncHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	n, err := h.Adapter.RetryFailed(context.Background())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"retried": n})
}
