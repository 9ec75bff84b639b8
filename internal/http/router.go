package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courier-backend/internal/handlers"
	"courier-backend/internal/monitoring"
)

func NewRouter(
	clientHandler *handlers.ClientHandler,
	serviceHandler *handlers.ServiceRecordHandler,
	expenseHandler *handlers.ExpenseHandler,
	reportHandler *handlers.ReportHandler,
	syncHandler *handlers.SyncHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
	statusBroadcaster *monitoring.StatusBroadcaster,
) *mux.Router {
	r := mux.NewRouter()

	// API routes - Clients
	clientsAPI := r.PathPrefix("/api/clients").Subrouter()
	clientsAPI.HandleFunc("", clientHandler.ListClients).Methods("GET")
	clientsAPI.HandleFunc("", clientHandler.CreateClient).Methods("POST")
	clientsAPI.HandleFunc("/{id}", clientHandler.GetClient).Methods("GET")
	clientsAPI.HandleFunc("/{id}", clientHandler.UpdateClient).Methods("PUT")
	clientsAPI.HandleFunc("/{id}", clientHandler.DeleteClient).Methods("DELETE")
	clientsAPI.HandleFunc("/{id}/restore", clientHandler.RestoreClient).Methods("POST")

	// API routes - Service records
	servicesAPI := r.PathPrefix("/api/services").Subrouter()
	servicesAPI.HandleFunc("", serviceHandler.ListServices).Methods("GET")
	servicesAPI.HandleFunc("", serviceHandler.CreateService).Methods("POST")
	servicesAPI.HandleFunc("/{id}", serviceHandler.UpdateService).Methods("PUT")
	servicesAPI.HandleFunc("/{id}", serviceHandler.DeleteService).Methods("DELETE")
	servicesAPI.HandleFunc("/{id}/restore", serviceHandler.RestoreService).Methods("POST")

	// API routes - Expenses
	expensesAPI := r.PathPrefix("/api/expenses").Subrouter()
	expensesAPI.HandleFunc("", expenseHandler.ListExpenses).Methods("GET")
	expensesAPI.HandleFunc("", expenseHandler.CreateExpense).Methods("POST")
	expensesAPI.HandleFunc("/{id}", expenseHandler.UpdateExpense).Methods("PUT")
	expensesAPI.HandleFunc("/{id}", expenseHandler.DeleteExpense).Methods("DELETE")

	// API routes - Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.HandleFunc("/summary", reportHandler.GetSummary).Methods("GET")
	reportsAPI.HandleFunc("/clients/{client_id}", reportHandler.GetClientHistory).Methods("GET")

	// API routes - Sync control
	syncAPI := r.PathPrefix("/api/sync").Subrouter()
	syncAPI.HandleFunc("/status", syncHandler.GetStatus).Methods("GET")
	syncAPI.HandleFunc("/force", syncHandler.ForceSync).Methods("POST")
	syncAPI.HandleFunc("/drain", syncHandler.Drain).Methods("POST")
	syncAPI.HandleFunc("/retry-failed", syncHandler.RetryFailed).Methods("POST")

	// API routes - Users (backend only, unavailable offline)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.HandleFunc("", userHandler.ListUsers).Methods("GET")
	usersAPI.HandleFunc("", userHandler.CreateUser).Methods("POST")
	usersAPI.HandleFunc("/{id}", userHandler.GetUser).Methods("GET")
	usersAPI.HandleFunc("/{id}", userHandler.UpdateUser).Methods("PUT")
	usersAPI.HandleFunc("/{id}", userHandler.DeleteUser).Methods("DELETE")

	// Live status over WebSocket plus a plain snapshot endpoint
	r.HandleFunc("/ws/status", statusBroadcaster.HandleWebSocket)
	r.HandleFunc("/api/status", statusBroadcaster.GetStatus).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
