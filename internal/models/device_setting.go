package models

import (
	"encoding/json"
	"strings"
	"time"
)

// DeviceSetting is one per-device key/value preference. Values are stored
// as raw JSON so clients can keep structured settings without a schema
// change on the server.
type DeviceSetting struct {
	DeviceID  string          `json:"deviceId"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewDeviceSetting creates a setting stamped with the current time.
func NewDeviceSetting(deviceID, key string, value json.RawMessage) (*DeviceSetting, error) {
	deviceID = strings.TrimSpace(deviceID)
	key = strings.TrimSpace(key)

	if deviceID == "" {
		return nil, ErrEmptySettingDevice
	}
	if key == "" {
		return nil, ErrEmptySettingKey
	}
	if len(value) == 0 {
		value = json.RawMessage("null")
	}

	return &DeviceSetting{
		DeviceID:  deviceID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Setting errors
var (
	ErrEmptySettingDevice = SettingError{"setting device id cannot be empty"}
	ErrEmptySettingKey    = SettingError{"setting key cannot be empty"}
)

type SettingError struct {
	Message string
}

func (e SettingError) Error() string {
	return e.Message
}
