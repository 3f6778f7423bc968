package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDevice(t *testing.T) {
	t.Run("creates device with valid parameters", func(t *testing.T) {
		device, err := NewDevice("watch-1", "Pixel Watch", "wearos")

		require.NoError(t, err)
		assert.Equal(t, "watch-1", device.ID)
		assert.Equal(t, "Pixel Watch", device.Name)
		assert.Equal(t, DeviceTypeWearOS, device.Type)
		assert.True(t, device.IsActive)
		assert.Zero(t, device.LastSyncCursor)
		assert.WithinDuration(t, time.Now().UTC(), device.RegisteredAt, time.Second*5)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := NewDevice("", "name", "ios")
		assert.ErrorIs(t, err, ErrEmptyDeviceID)
	})

	t.Run("rejects unknown device type", func(t *testing.T) {
		_, err := NewDevice("d1", "name", "tizen")
		assert.ErrorIs(t, err, ErrInvalidDeviceType)
	})

	t.Run("normalizes device type case", func(t *testing.T) {
		device, err := NewDevice("d1", "name", "iOS")

		require.NoError(t, err)
		assert.Equal(t, DeviceTypeIOS, device.Type)
	})

	t.Run("defaults empty name to the id", func(t *testing.T) {
		device, err := NewDevice("d1", "  ", "wearos")

		require.NoError(t, err)
		assert.Equal(t, "d1", device.Name)
	})
}

func TestTouchedDevice(t *testing.T) {
	t.Run("uses id as name and unknown type", func(t *testing.T) {
		device := TouchedDevice("phone-2")

		assert.Equal(t, "phone-2", device.ID)
		assert.Equal(t, "phone-2", device.Name)
		assert.Equal(t, DeviceTypeUnknown, device.Type)
		assert.True(t, device.IsActive)
	})
}

func TestDevice_ToResponse(t *testing.T) {
	t.Run("carries the presence flag", func(t *testing.T) {
		device, err := NewDevice("d1", "Watch", "wearos")
		require.NoError(t, err)
		device.LastSyncCursor = 1700000000000

		resp := device.ToResponse(true)

		assert.Equal(t, device.ID, resp.ID)
		assert.Equal(t, int64(1700000000000), resp.LastSyncCursor)
		assert.True(t, resp.Online)

		resp = device.ToResponse(false)
		assert.False(t, resp.Online)
	})
}
