package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/services"
)

// AnalyticsHandler handles aggregate statistics endpoints
type AnalyticsHandler struct {
	log       zerolog.Logger
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(log zerolog.Logger, analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		log:       log.With().Str("component", "analytics_handler").Logger(),
		analytics: analytics,
	}
}

// GetSummary aggregates one data type over a time window
// @Summary Aggregate statistics
// @Description Get count, min, max and average for one data type, optionally bounded by device and time range
// @Tags analytics
// @Produce json
// @Param dataType query string true "Data type to aggregate"
// @Param deviceId query string false "Restrict to one device"
// @Param from query int false "Lower timestamp bound in unix ms"
// @Param to query int false "Upper timestamp bound in unix ms"
// @Success 200 {object} models.AnalyticsSummary
// @Failure 400 {object} models.ErrorResponse
// @Router /api/analytics/summary [get]
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var from, to int64
	if raw := query.Get("from"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, h.log, models.NewValidationError("from", "must be an integer millisecond timestamp"))
			return
		}
		from = n
	}
	if raw := query.Get("to"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, h.log, models.NewValidationError("to", "must be an integer millisecond timestamp"))
			return
		}
		to = n
	}

	summary, err := h.analytics.Summary(r.Context(), query.Get("dataType"), query.Get("deviceId"), from, to)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetOverview reports store-wide totals and liveness
// @Summary Store overview
// @Description Get total record count, device liveness and today's activity counters
// @Tags analytics
// @Produce json
// @Success 200 {object} models.OverviewResponse
// @Router /api/analytics/overview [get]
func (h *AnalyticsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analytics.Overview(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}
