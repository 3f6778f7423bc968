package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/services"
)

// SyncHandler handles record ingestion, incremental reads, cursor
// acknowledgements and sync session tracking.
type SyncHandler struct {
	log        zerolog.Logger
	ingestion  *services.IngestionService
	sync       *services.SyncService
	sessions   *services.SessionService
	transports *services.TransportManager
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(
	log zerolog.Logger,
	ingestion *services.IngestionService,
	sync *services.SyncService,
	sessions *services.SessionService,
	transports *services.TransportManager,
) *SyncHandler {
	return &SyncHandler{
		log:        log.With().Str("component", "sync_handler").Logger(),
		ingestion:  ingestion,
		sync:       sync,
		sessions:   sessions,
		transports: transports,
	}
}

// Ingest accepts a batch of health records from a device
// @Summary Ingest records
// @Description Validate, sanitize and store a batch of records; each record succeeds or fails independently
// @Tags sync
// @Accept json
// @Produce json
// @Param request body models.IngestRequest true "Record batch"
// @Success 200 {object} models.IngestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sync/data [post]
func (h *SyncHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	resp, err := h.ingestion.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ReadData serves records from other devices newer than a watermark
// @Summary Read records for sync
// @Description Get records from other devices with timestamp greater than since (or the device's stored cursor)
// @Tags sync
// @Produce json
// @Param deviceId path string true "Requesting device ID"
// @Param since query int false "Watermark timestamp in unix ms; defaults to the stored cursor"
// @Param until query int false "Upper timestamp bound in unix ms"
// @Param dataType query string false "Restrict to one data type"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.SyncDataResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/sync/data/{deviceId} [get]
func (h *SyncHandler) ReadData(w http.ResponseWriter, r *http.Request) {
	params := services.ReadParams{
		DeviceID: chi.URLParam(r, "deviceId"),
		DataType: r.URL.Query().Get("dataType"),
	}

	query := r.URL.Query()
	if raw := query.Get("since"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, h.log, models.NewValidationError("since", "must be an integer millisecond timestamp"))
			return
		}
		params.Since = &since
	}
	if raw := query.Get("until"); raw != "" {
		until, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, h.log, models.NewValidationError("until", "must be an integer millisecond timestamp"))
			return
		}
		params.Until = until
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.log, models.NewValidationError("limit", "must be an integer"))
			return
		}
		params.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.log, models.NewValidationError("offset", "must be an integer"))
			return
		}
		params.Offset = offset
	}

	resp, err := h.sync.Read(r.Context(), params)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// AckCursor acknowledges processed records by advancing the stored cursor
// @Summary Acknowledge sync progress
// @Description Advance the device's sync cursor; the cursor never moves backward
// @Tags sync
// @Accept json
// @Produce json
// @Param deviceId path string true "Device ID"
// @Param request body models.CursorAckRequest true "Cursor watermark"
// @Success 200 {object} models.CursorResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/sync/cursor/{deviceId} [post]
func (h *SyncHandler) AckCursor(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")

	var req models.CursorAckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	resp, err := h.sync.AckCursor(r.Context(), deviceID, req.Cursor)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// StartSession opens a sync session
// @Summary Start sync session
// @Description Open a tracked sync session for a device over wifi or bluetooth
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body models.StartSessionRequest true "Session info"
// @Success 201 {object} models.SyncSession
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sync/sessions [post]
func (h *SyncHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	session, err := h.sessions.Start(r.Context(), req.DeviceID, req.Kind)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// CompleteSession closes a sync session exactly once
// @Summary Complete sync session
// @Description Mark a session completed, or failed when an error message is present
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body models.CompleteSessionRequest true "Completion info"
// @Success 200 {object} models.SyncSession
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sync/sessions/{id}/complete [post]
func (h *SyncHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req models.CompleteSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	session, err := h.sessions.Complete(r.Context(), sessionID, req.RecordsSynced, req.Error)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GetSession returns one sync session
// @Summary Get sync session
// @Description Get a sync session by id
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SyncSession
// @Failure 404 {object} models.ErrorResponse
// @Router /api/sync/sessions/{id} [get]
func (h *SyncHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// ListTransports reports the availability of each sync transport
// @Summary List sync transports
// @Description Probe each registered transport and report whether it can accept connections
// @Tags sync
// @Produce json
// @Success 200 {object} models.TransportsResponse
// @Router /api/sync/transports [get]
func (h *SyncHandler) ListTransports(w http.ResponseWriter, r *http.Request) {
	statuses := h.transports.Statuses(r.Context())
	writeJSON(w, http.StatusOK, models.TransportsResponse{Transports: statuses})
}
