package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-backend/internal/config"
	"courier-backend/internal/connectivity"
	"courier-backend/internal/database"
	pgdb "courier-backend/internal/db"
	"courier-backend/internal/handlers"
	"courier-backend/internal/health"
	h "courier-backend/internal/http"
	"courier-backend/internal/hybrid"
	"courier-backend/internal/localdb"
	"courier-backend/internal/localstore"
	"courier-backend/internal/metrics"
	"courier-backend/internal/middleware"
	"courier-backend/internal/monitoring"
	"courier-backend/internal/remote"
	"courier-backend/internal/repositories"
	"courier-backend/internal/services"
	"courier-backend/internal/state"
	"courier-backend/internal/syncqueue"
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	dataDir := flag.String("data-dir", "", "Local cache directory (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.Sync.DataDir = *dataDir
	}

	// The local store must open or the process cannot serve at all.
	// The remote backend being down at boot is fine; the monitor will
	// notice when it comes back.
	db, err := localdb.Open(cfg.Sync.DataDir)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer db.Close()

	store, err := localstore.New(db)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	queue, err := syncqueue.New(db)
	if err != nil {
		log.Fatalf("Failed to initialize sync queue: %v", err)
	}

	// Remote backend: direct Postgres or an upstream REST API.
	var backend remote.Backend
	var prober connectivity.Prober
	var pool *pgxpool.Pool

	switch cfg.Remote.Provider {
	case "rest":
		rest := remote.NewRESTBackend(cfg.Remote.REST.BaseURL, cfg.Remote.REST.APIKey, cfg.Remote.REST.RequestTimeout)
		backend = rest
		probeURL := cfg.Sync.ProbeURL
		if probeURL == "" {
			probeURL = cfg.Remote.REST.BaseURL + "/health"
		}
		prober = &connectivity.HTTPProber{URL: probeURL}
		log.Printf("[Remote] Using REST backend at %s", cfg.Remote.REST.BaseURL)

	default:
		// pgxpool connects lazily; an unreachable database does not
		// stop the process from booting offline.
		pool, err = pgdb.Connect(cfg)
		if err != nil {
			log.Fatalf("Invalid database configuration: %v", err)
		}
		defer pool.Close()
		backend = remote.NewPostgresBackend(pool)
		prober = &connectivity.PoolProber{Pool: pool}
		log.Printf("[Remote] Using Postgres backend at %s:%d", cfg.Remote.Database.Host, cfg.Remote.Database.Port)

		// Best effort: the backend may legitimately be down at boot.
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.NewMigrator(pool).RunMigrations(migrateCtx); err != nil {
			log.Printf("[Migrator] Skipping migrations, backend unreachable: %v", err)
		}
		cancel()
	}

	monitor := connectivity.NewMonitor(prober, cfg.Sync.ProbeInterval, cfg.Sync.ProbeTimeout)
	monitor.Subscribe(func(online bool) {
		if online {
			metrics.BackendOnline.Set(1)
		} else {
			metrics.BackendOnline.Set(0)
		}
	})
	adapter := hybrid.New(store, queue, backend, monitor)
	stateManager := state.NewManager(adapter)
	monitor.Start()
	defer monitor.Stop()

	// Live status broadcasting
	statusBroadcaster := monitoring.NewStatusBroadcaster(queue, monitor, stateManager)
	statusBroadcaster.Start()
	defer statusBroadcaster.Stop()

	// Initialize services
	clientService := services.NewClientService(stateManager)
	serviceRecordService := services.NewServiceRecordService(stateManager)
	expenseService := services.NewExpenseService(stateManager)
	reportService := services.NewReportService(stateManager)

	// User administration talks to Postgres directly and is only
	// available with the postgres provider while online.
	var userHandler *handlers.UserHandler
	if pool != nil {
		userRepo := repositories.NewUserRepository(pool)
		userService := services.NewUserService(userRepo)
		userHandler = handlers.NewUserHandler(userService)
	} else {
		userHandler = handlers.NewUserHandler(nil)
	}

	healthChecker := health.NewHealthChecker(db, monitor)

	// Initialize handlers
	clientHandler := handlers.NewClientHandler(clientService)
	serviceHandler := handlers.NewServiceRecordHandler(serviceRecordService)
	expenseHandler := handlers.NewExpenseHandler(expenseService)
	reportHandler := handlers.NewReportHandler(reportService)
	syncHandler := handlers.NewSyncHandler(adapter, stateManager)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	corsMiddleware := middleware.NewCORS(cfg)
	router := h.NewRouter(clientHandler, serviceHandler, expenseHandler, reportHandler,
		syncHandler, userHandler, healthHandler, statusBroadcaster)

	accessLog := middleware.NewAccessLogMiddleware()
	defer accessLog.Close()

	// Wrap with panic recovery, access logging and metrics middleware
	handler := middleware.PanicRecovery(accessLog.Handler(middleware.MetricsMiddleware(corsMiddleware(router))))

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
