package models

import (
	"strings"
	"time"
)

// Device types accepted by explicit registration.
const (
	DeviceTypeWearOS  = "wearos"
	DeviceTypeIOS     = "ios"
	DeviceTypeUnknown = "unknown"
)

// Device represents a wearable or phone known to the sync server. Devices
// are created either explicitly through registration or implicitly the
// first time they submit or read data. LastSyncCursor is the acknowledged
// sync watermark in Unix milliseconds; it only ever moves forward.
type Device struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"` // "wearos", "ios" or "unknown"
	RegisteredAt   time.Time `json:"registeredAt"`
	LastSeenAt     time.Time `json:"lastSeenAt"`
	LastSyncCursor int64     `json:"lastSyncCursor"`
	IsActive       bool      `json:"isActive"`
}

// DeviceResponse is the API shape of a device, decorated with live
// connection state.
type DeviceResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	RegisteredAt   time.Time `json:"registeredAt"`
	LastSeenAt     time.Time `json:"lastSeenAt"`
	LastSyncCursor int64     `json:"lastSyncCursor"`
	IsActive       bool      `json:"isActive"`
	Online         bool      `json:"online"`
}

// NewDevice creates an explicitly registered device. The caller supplies
// the device identifier; wearables reuse their platform hardware id.
func NewDevice(id, name, deviceType string) (*Device, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	deviceType = strings.TrimSpace(strings.ToLower(deviceType))

	if id == "" {
		return nil, ErrEmptyDeviceID
	}
	if name == "" {
		name = id
	}
	if deviceType != DeviceTypeWearOS && deviceType != DeviceTypeIOS {
		return nil, ErrInvalidDeviceType
	}

	now := time.Now().UTC()
	return &Device{
		ID:           id,
		Name:         name,
		Type:         deviceType,
		RegisteredAt: now,
		LastSeenAt:   now,
		IsActive:     true,
	}, nil
}

// TouchedDevice creates the placeholder row for a device first seen through
// an implicit touch (a data submission or read before any registration).
func TouchedDevice(id string) *Device {
	now := time.Now().UTC()
	return &Device{
		ID:           id,
		Name:         id,
		Type:         DeviceTypeUnknown,
		RegisteredAt: now,
		LastSeenAt:   now,
		IsActive:     true,
	}
}

// ToResponse converts Device to DeviceResponse. Connection state comes from
// the presence registry, not storage.
func (d *Device) ToResponse(online bool) DeviceResponse {
	return DeviceResponse{
		ID:             d.ID,
		Name:           d.Name,
		Type:           d.Type,
		RegisteredAt:   d.RegisteredAt,
		LastSeenAt:     d.LastSeenAt,
		LastSyncCursor: d.LastSyncCursor,
		IsActive:       d.IsActive,
		Online:         online,
	}
}

// Device errors
var (
	ErrEmptyDeviceID     = DeviceError{"device id cannot be empty"}
	ErrInvalidDeviceType = DeviceError{"device type must be 'wearos' or 'ios'"}
)

type DeviceError struct {
	Message string
}

func (e DeviceError) Error() string {
	return e.Message
}
