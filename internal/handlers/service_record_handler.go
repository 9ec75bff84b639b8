package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"courier-backend/internal/models"
	"courier-backend/internal/services"
)

type ServiceRecordHandler struct {
	Service *services.ServiceRecordService
}

func NewServiceRecordHandler(s *services.ServiceRecordService) *ServiceRecordHandler {
	return &ServiceRecordHandler{Service: s}
}

func (h *ServiceRecordHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return
	}

	var req models.CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.Service.CreateService(context.Background(), owner, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

// ListServices supports optional from/to date filters and an optional
// client_id filter.
func (h *ServiceRecordHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return
	}

	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		records, err := h.Service.ListServicesByClient(context.Background(), owner, clientID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
		return
	}

	start, end, err := dateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.Service.ListServices(context.Background(), owner, start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *ServiceRecordHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	var req models.UpdateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.Service.UpdateService(context.Background(), owner, id, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

func (h *ServiceRecordHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.Service.DeleteService(context.Background(), owner, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ServiceRecordHandler) RestoreService(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.Service.RestoreService(context.Background(), owner, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
