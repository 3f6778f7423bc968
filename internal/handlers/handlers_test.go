package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/server/internal/config"
	"github.com/vitalsync/server/internal/repository"
	"github.com/vitalsync/server/internal/services"
)

// testServer hosts the API against a throwaway SQLite database with the
// routes mounted exactly as main registers them.
type testServer struct {
	router      http.Handler
	maintenance *services.MaintenanceService
}

func setupTestServer(t *testing.T) *testServer {
	return setupTestServerEnv(t, "development")
}

func setupTestServerEnv(t *testing.T, environment string) *testServer {
	t.Helper()

	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Small limits so the tests can hit the batch and page ceilings.
	cfg := &config.Config{
		Environment: environment,
		Sync: config.Sync{
			MaxBatchSize:       5,
			DefaultPageSize:    2,
			MaxRecordAgeDays:   30,
			FutureGraceMinutes: 5,
			SupportedDataTypes: []string{"heart_rate", "steps", "sleep"},
		},
		Sanitize: config.Sanitize{
			MaxMetadataDepth: 3,
			MaxStringLength:  64,
			MaxMapKeys:       8,
			MaxListLength:    8,
		},
		Presence: config.Presence{TTLMinutes: 5, SweepMinutes: 1},
	}
	log := zerolog.Nop()

	devices := repository.NewDeviceRepository(db)
	records := repository.NewRecordRepository(db)
	sessions := repository.NewSessionRepository(db)
	settings := repository.NewSettingRepository(db)

	presence := services.NewPresenceRegistry(cfg.PresenceTTL())
	counters := services.NewDailyCounters()
	activity := services.NewActivityLog(log, nil, counters)

	registry := services.NewRegistryService(devices, records, sessions, settings, presence, activity)
	ingestion := services.NewIngestionService(log, cfg, registry, records, activity, nil)
	syncService := services.NewSyncService(log, cfg, registry, records, activity, nil)
	sessionService := services.NewSessionService(log, registry, sessions, activity, nil, nil)
	analyticsService := services.NewAnalyticsService(log, records, devices, presence, counters)
	adminService := services.NewAdminService(log, records, activity, cfg.Development())
	maintenance := services.NewMaintenanceService(log, presence, counters, nil, time.Hour)

	transports := services.NewTransportManager(log,
		services.NewWifiTransport(),
		services.NewBluetoothTransport(),
	)
	transports.StartAll(context.Background())

	syncHandler := NewSyncHandler(log, ingestion, syncService, sessionService, transports)
	deviceHandler := NewDeviceHandler(log, registry)
	analyticsHandler := NewAnalyticsHandler(log, analyticsService)
	adminHandler := NewAdminHandler(log, adminService, maintenance)

	r := chi.NewRouter()
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

	return &testServer{router: r, maintenance: maintenance}
}

// do issues one JSON request against the in-memory router.
func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// doRaw sends the body verbatim, for malformed payloads.
func (ts *testServer) doRaw(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// ingestBatch pushes records through the API the way a device would.
func (ts *testServer) ingestBatch(t *testing.T, deviceID, dataType string, records []map[string]any) {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/sync/data", map[string]any{
		"deviceId": deviceID,
		"dataType": dataType,
		"records":  records,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
