package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/vitalsync/server/internal/config"
	"github.com/vitalsync/server/internal/handlers"
	custommw "github.com/vitalsync/server/internal/middleware"
	"github.com/vitalsync/server/internal/observability"
	"github.com/vitalsync/server/internal/repository"
	"github.com/vitalsync/server/internal/services"
)

// @title VitalSync Server API
// @version 1.0
// @description Local-first sync server for time-series health records from wearable and phone clients.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("vitalsync-server", "production", zerolog.InfoLevel).
			Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := observability.NewLogger("vitalsync-server", cfg.Environment,
		observability.ParseLevel(os.Getenv("LOG_LEVEL")))

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment, handlers.Version); err != nil {
		log.Warn().Err(err).Msg("Sentry init failed, continuing without error reporting")
	}

	telemetry, err := observability.Initialize(context.Background(),
		observability.NewConfig("vitalsync-server", handlers.Version))
	if err != nil {
		log.Warn().Err(err).Msg("Telemetry init failed, continuing without tracing")
	}

	// Initialize database
	var db *sql.DB
	if cfg.UsePostgres() {
		log.Info().Msg("Using PostgreSQL database")
		db, err = repository.NewPostgresDB(cfg.DatabaseURL)
	} else {
		log.Info().Str("path", cfg.DatabasePath).Msg("Using SQLite database")
		db, err = repository.NewSQLiteDB(cfg.DatabasePath)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	deviceRepo := repository.NewDeviceRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Shared state
	var syncMetrics *observability.SyncMetrics
	if cfg.Metrics.PrometheusEnabled {
		syncMetrics = observability.NewSyncMetrics()
	}
	presence := services.NewPresenceRegistry(cfg.PresenceTTL())
	counters := services.NewDailyCounters()

	var hub *services.WebSocketHub
	if cfg.Websocket.Enabled {
		hub = services.NewWebSocketHub(log)
		go hub.Run()
	}

	activity := services.NewActivityLog(log, hub, counters)

	// Initialize services
	registry := services.NewRegistryService(deviceRepo, recordRepo, sessionRepo, settingRepo, presence, activity)
	ingestion := services.NewIngestionService(log, cfg, registry, recordRepo, activity, syncMetrics)
	syncService := services.NewSyncService(log, cfg, registry, recordRepo, activity, syncMetrics)
	sessionService := services.NewSessionService(log, registry, sessionRepo, activity, syncMetrics, hub)
	analyticsService := services.NewAnalyticsService(log, recordRepo, deviceRepo, presence, counters)
	adminService := services.NewAdminService(log, recordRepo, activity, cfg.Development())

	maintenance := services.NewMaintenanceService(log, presence, counters, syncMetrics, cfg.PresenceSweep())
	maintenance.Start()

	transports := services.NewTransportManager(log,
		services.NewWifiTransport(),
		services.NewBluetoothTransport(),
	)
	transports.StartAll(context.Background())

	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize HTTP metrics")
	}

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(log, ingestion, syncService, sessionService, transports)
	deviceHandler := handlers.NewDeviceHandler(log, registry)
	analyticsHandler := handlers.NewAnalyticsHandler(log, analyticsService)
	adminHandler := handlers.NewAdminHandler(log, adminService, maintenance)
	healthHandler := handlers.NewHealthHandler()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request served")
	}))
	r.Use(chimw.Recoverer)
	r.Use(custommw.CORS)
	r.Use(custommw.SecurityHeaders)
	r.Use(observability.Middleware(httpMetrics))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/version", handlers.VersionHandler)

	r.Route("/api/sync", func(r chi.Router) {
		r.Post("/data", syncHandler.Ingest)
		r.Get("/data/{deviceId}", syncHandler.ReadData)
		r.Post("/cursor/{deviceId}", syncHandler.AckCursor)
		r.Post("/sessions", syncHandler.StartSession)
		r.Get("/sessions/{id}", syncHandler.GetSession)
		r.Post("/sessions/{id}/complete", syncHandler.CompleteSession)
		r.Get("/transports", syncHandler.ListTransports)
	})

	r.Route("/api/devices", func(r chi.Router) {
		r.Post("/register", deviceHandler.RegisterDevice)
		r.Get("/", deviceHandler.ListDevices)
		r.Get("/{id}/status", deviceHandler.GetDeviceStatus)
		r.Post("/{id}/deactivate", deviceHandler.DeactivateDevice)
		r.Get("/{id}/settings", deviceHandler.ListSettings)
		r.Put("/{id}/settings/{key}", deviceHandler.PutSetting)
	})

	r.Route("/api/analytics", func(r chi.Router) {
		r.Get("/summary", analyticsHandler.GetSummary)
		r.Get("/overview", analyticsHandler.GetOverview)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Delete("/records", adminHandler.PurgeRecords)
		r.Get("/maintenance", adminHandler.GetMaintenanceStatus)
		r.Post("/maintenance/run", adminHandler.RunMaintenance)
	})

	if cfg.Websocket.Enabled {
		wsHandler := handlers.NewWebSocketHandler(log, hub, presence)
		r.Get("/ws", wsHandler.HandleConnection)
	}

	if cfg.Metrics.PrometheusEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", cfg.ServerAddress).
			Str("environment", cfg.Environment).
			Int("max_batch_size", cfg.Sync.MaxBatchSize).
			Int("sync_timeout_seconds", cfg.Sync.TimeoutSeconds).
			Msg("VitalSync server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	transports.StopAll(ctx)
	maintenance.Stop()
	if hub != nil {
		hub.Stop()
	}
	if telemetry != nil {
		if err := telemetry.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}
	observability.FlushSentry(2 * time.Second)

	log.Info().Msg("Server stopped")
}
