package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/services"
)

// AdminHandler handles admin API endpoints
type AdminHandler struct {
	log         zerolog.Logger
	admin       *services.AdminService
	maintenance *services.MaintenanceService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(log zerolog.Logger, admin *services.AdminService, maintenance *services.MaintenanceService) *AdminHandler {
	return &AdminHandler{
		log:         log.With().Str("component", "admin_handler").Logger(),
		admin:       admin,
		maintenance: maintenance,
	}
}

// PurgeRecords deletes every stored health record
// @Summary Purge all records
// @Description Delete every stored record; refused outside development
// @Tags admin
// @Produce json
// @Success 200 {object} models.PurgeResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/admin/records [delete]
func (h *AdminHandler) PurgeRecords(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.admin.PurgeRecords(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, models.PurgeResponse{
		Success: true,
		Deleted: deleted,
	})
}

// GetMaintenanceStatus reports the state of the background sweeps
// @Summary Maintenance status
// @Description Get the status of the background maintenance loop
// @Tags admin
// @Produce json
// @Success 200 {object} services.MaintenanceStatus
// @Router /api/admin/maintenance [get]
func (h *AdminHandler) GetMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.maintenance.GetStatus())
}

// RunMaintenance triggers an immediate maintenance sweep
// @Summary Run maintenance
// @Description Trigger a maintenance sweep outside its schedule
// @Tags admin
// @Success 202 "Accepted"
// @Router /api/admin/maintenance/run [post]
func (h *AdminHandler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	h.maintenance.RunNow()
	w.WriteHeader(http.StatusAccepted)
}
