package services

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/observability"
	"github.com/vitalsync/server/internal/repository"
)

// RegistryService owns device identity, liveness and sync progress. Every
// sync operation funnels its device bookkeeping through here, so the
// "create row if missing, refresh last seen" behavior exists exactly once.
type RegistryService struct {
	devices  repository.DeviceRepo
	records  repository.RecordRepo
	sessions repository.SessionRepo
	settings repository.SettingRepo
	presence *PresenceRegistry
	activity *ActivityLog
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(
	devices repository.DeviceRepo,
	records repository.RecordRepo,
	sessions repository.SessionRepo,
	settings repository.SettingRepo,
	presence *PresenceRegistry,
	activity *ActivityLog,
) *RegistryService {
	return &RegistryService{
		devices:  devices,
		records:  records,
		sessions: sessions,
		settings: settings,
		presence: presence,
		activity: activity,
	}
}

// Touch records device activity, creating a placeholder row on first
// contact. It returns the stored device.
func (s *RegistryService) Touch(ctx context.Context, deviceID string) (*models.Device, error) {
	return s.TouchWith(ctx, deviceID, "", "")
}

// TouchWith is Touch with identity hints. The hints only matter when the
// row is being created; an existing device keeps its stored name and type
// and just gets a fresh last seen time.
func (s *RegistryService) TouchWith(ctx context.Context, deviceID, name, deviceType string) (*models.Device, error) {
	ctx, span := observability.StartServiceSpan(ctx, "registry", "touch")
	defer span.End()
	span.SetAttributes(observability.DeviceID(deviceID))

	if deviceID == "" {
		return nil, models.NewValidationError("deviceId", "is required")
	}

	seen := models.TouchedDevice(deviceID)
	if name != "" {
		seen.Name = name
	}
	if deviceType == models.DeviceTypeWearOS || deviceType == models.DeviceTypeIOS {
		seen.Type = deviceType
	}

	if err := s.devices.Touch(ctx, seen); err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("touch_device", err)
	}
	s.presence.MarkSeen(deviceID)

	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("get_device", err)
	}
	return device, nil
}

// Register creates or re-registers a device with explicit identity. An
// existing row keeps its registration time and cursor but takes the new
// name and type and becomes active again. Metadata entries are persisted
// as per-device settings.
func (s *RegistryService) Register(ctx context.Context, req models.RegisterDeviceRequest) (*models.Device, error) {
	ctx, span := observability.StartServiceSpan(ctx, "registry", "register")
	defer span.End()
	span.SetAttributes(observability.DeviceID(req.DeviceID))

	device, err := models.NewDevice(req.DeviceID, req.Name, req.Type)
	if err != nil {
		return nil, &models.ValidationError{Field: "device", Reason: err.Error()}
	}

	if err := s.devices.Register(ctx, device); err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("register_device", err)
	}
	s.presence.MarkSeen(device.ID)

	for key, value := range req.Metadata {
		setting, err := models.NewDeviceSetting(device.ID, key, value)
		if err != nil {
			return nil, &models.ValidationError{Field: "metadata", Reason: err.Error()}
		}
		if err := s.settings.Upsert(ctx, setting); err != nil {
			observability.RecordError(span, err)
			return nil, models.NewStorageError("upsert_setting", err)
		}
	}

	stored, err := s.devices.GetByID(ctx, device.ID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("get_device", err)
	}

	s.activity.Record(ctx, ActionRegister, device.ID, "", 0)
	return stored, nil
}

// List returns every known device, most recently seen first.
func (s *RegistryService) List(ctx context.Context) ([]*models.Device, error) {
	devices, err := s.devices.GetAll(ctx)
	if err != nil {
		return nil, models.NewStorageError("list_devices", err)
	}
	return devices, nil
}

// Status assembles the full picture for one device. The registry row, the
// latest session and the per-type record tallies come from independent
// reads issued concurrently; they are not a snapshot of a single instant.
func (s *RegistryService) Status(ctx context.Context, deviceID string) (*models.DeviceStatusResponse, error) {
	ctx, span := observability.StartServiceSpan(ctx, "registry", "status")
	defer span.End()
	span.SetAttributes(observability.DeviceID(deviceID))

	var (
		device  *models.Device
		session *models.SyncSession
		stats   []models.TypeStat
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		device, err = s.devices.GetByID(egCtx, deviceID)
		return err
	})
	eg.Go(func() error {
		var err error
		session, err = s.sessions.LatestForDevice(egCtx, deviceID)
		return err
	})
	eg.Go(func() error {
		var err error
		stats, err = s.records.StatsByDevice(egCtx, deviceID)
		return err
	})
	if err := eg.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("device_status", err)
	}

	if device == nil {
		return nil, models.NewNotFoundError("device", deviceID)
	}
	if stats == nil {
		stats = []models.TypeStat{}
	}

	return &models.DeviceStatusResponse{
		Device:        device.ToResponse(s.presence.Online(deviceID)),
		LatestSession: session,
		RecordStats:   stats,
	}, nil
}

// Deactivate retires a device from the registry. Its records stay.
func (s *RegistryService) Deactivate(ctx context.Context, deviceID string) error {
	ok, err := s.devices.Deactivate(ctx, deviceID)
	if err != nil {
		return models.NewStorageError("deactivate_device", err)
	}
	if !ok {
		return models.NewNotFoundError("device", deviceID)
	}
	s.activity.Record(ctx, ActionDeactivate, deviceID, "", 0)
	return nil
}

// RatchetCursor moves the device's sync watermark forward if the given
// value is ahead of the stored one. A lower value leaves the cursor
// untouched; either way liveness is refreshed.
func (s *RegistryService) RatchetCursor(ctx context.Context, deviceID string, cursor int64) error {
	if err := s.devices.AdvanceCursor(ctx, deviceID, cursor, time.Now().UTC()); err != nil {
		return models.NewStorageError("advance_cursor", err)
	}
	return nil
}

// AdvanceCursor is the explicit acknowledgement operation: it ratchets the
// watermark and returns the stored device with the post-update cursor.
func (s *RegistryService) AdvanceCursor(ctx context.Context, deviceID string, cursor int64) (*models.Device, error) {
	if cursor < 0 {
		return nil, models.NewValidationError("cursor", "cannot be negative")
	}

	// Ensure the row exists so an acknowledgement can never 404 a device
	// that has been submitting data.
	if _, err := s.Touch(ctx, deviceID); err != nil {
		return nil, err
	}

	if err := s.RatchetCursor(ctx, deviceID, cursor); err != nil {
		return nil, err
	}

	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, models.NewStorageError("get_device", err)
	}
	return device, nil
}

// Settings returns all settings stored for a device.
func (s *RegistryService) Settings(ctx context.Context, deviceID string) ([]models.DeviceSetting, error) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, models.NewStorageError("get_device", err)
	}
	if device == nil {
		return nil, models.NewNotFoundError("device", deviceID)
	}

	settings, err := s.settings.ListForDevice(ctx, deviceID)
	if err != nil {
		return nil, models.NewStorageError("list_settings", err)
	}
	if settings == nil {
		settings = []models.DeviceSetting{}
	}
	return settings, nil
}

// PutSetting stores one setting value for a device, creating the device row
// if this is its first contact.
func (s *RegistryService) PutSetting(ctx context.Context, deviceID, key string, value json.RawMessage) (*models.DeviceSetting, error) {
	if _, err := s.Touch(ctx, deviceID); err != nil {
		return nil, err
	}

	setting, err := models.NewDeviceSetting(deviceID, key, value)
	if err != nil {
		return nil, &models.ValidationError{Field: "setting", Reason: err.Error()}
	}
	if err := s.settings.Upsert(ctx, setting); err != nil {
		return nil, models.NewStorageError("upsert_setting", err)
	}
	return setting, nil
}

// Online reports live presence for a device.
func (s *RegistryService) Online(deviceID string) bool {
	return s.presence.Online(deviceID)
}

// Presence exposes the underlying registry for services that only need
// liveness.
func (s *RegistryService) Presence() *PresenceRegistry {
	return s.presence
}
