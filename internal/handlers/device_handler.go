package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/services"
)

// DeviceHandler handles device registry endpoints
type DeviceHandler struct {
	log      zerolog.Logger
	registry *services.RegistryService
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(log zerolog.Logger, registry *services.RegistryService) *DeviceHandler {
	return &DeviceHandler{
		log:      log.With().Str("component", "device_handler").Logger(),
		registry: registry,
	}
}

// RegisterDevice explicitly registers a device
// @Summary Register device
// @Description Register a device with explicit name and type, reactivating it if deactivated
// @Tags devices
// @Accept json
// @Produce json
// @Param request body models.RegisterDeviceRequest true "Device info"
// @Success 200 {object} models.DeviceResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/devices/register [post]
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	device, err := h.registry.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, device.ToResponse(h.registry.Online(device.ID)))
}

// ListDevices returns every known device
// @Summary List devices
// @Description List all registered devices with live presence
// @Tags devices
// @Produce json
// @Success 200 {object} models.DeviceListResponse
// @Router /api/devices [get]
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	responses := make([]models.DeviceResponse, len(devices))
	for i, device := range devices {
		responses[i] = device.ToResponse(h.registry.Online(device.ID))
	}

	writeJSON(w, http.StatusOK, models.DeviceListResponse{
		Devices: responses,
		Count:   len(responses),
	})
}

// GetDeviceStatus assembles the full status of one device
// @Summary Get device status
// @Description Get registry fields, the latest session and per-type record statistics for a device
// @Tags devices
// @Produce json
// @Param id path string true "Device ID"
// @Success 200 {object} models.DeviceStatusResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/devices/{id}/status [get]
func (h *DeviceHandler) GetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.registry.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// DeactivateDevice soft-deactivates a device
// @Summary Deactivate device
// @Description Mark a device inactive; its records are kept
// @Tags devices
// @Param id path string true "Device ID"
// @Success 204 "No Content"
// @Failure 404 {object} models.ErrorResponse
// @Router /api/devices/{id}/deactivate [post]
func (h *DeviceHandler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSettings returns all settings stored for a device
// @Summary List device settings
// @Description List the per-device settings key/value pairs
// @Tags devices
// @Produce json
// @Param id path string true "Device ID"
// @Success 200 {object} models.SettingsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/devices/{id}/settings [get]
func (h *DeviceHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	settings, err := h.registry.Settings(r.Context(), deviceID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SettingsResponse{
		DeviceID: deviceID,
		Settings: settings,
	})
}

// PutSetting stores one setting value for a device
// @Summary Put device setting
// @Description Create or replace one setting value for a device
// @Tags devices
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Param key path string true "Setting key"
// @Param request body models.PutSettingRequest true "Setting value"
// @Success 200 {object} models.DeviceSetting
// @Failure 400 {object} models.ErrorResponse
// @Router /api/devices/{id}/settings/{key} [put]
func (h *DeviceHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	key := chi.URLParam(r, "key")

	var req models.PutSettingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	setting, err := h.registry.PutSetting(r.Context(), deviceID, key, req.Value)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, setting)
}
