package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/server/internal/models"
)

func TestDeviceRepository_Touch(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a placeholder for an unknown device", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)

		require.NoError(t, repo.Touch(ctx, models.TouchedDevice("watch-1")))

		device, err := repo.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		require.NotNil(t, device)
		assert.Equal(t, "watch-1", device.Name)
		assert.Equal(t, models.DeviceTypeUnknown, device.Type)
		assert.True(t, device.IsActive)
		assert.Zero(t, device.LastSyncCursor)
	})

	t.Run("only refreshes last_seen_at for a known device", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)

		registered, err := models.NewDevice("watch-1", "Pixel Watch", models.DeviceTypeWearOS)
		require.NoError(t, err)
		require.NoError(t, repo.Register(ctx, registered))
		require.NoError(t, repo.AdvanceCursor(ctx, "watch-1", 5000, time.Now().UTC()))

		seen := models.TouchedDevice("watch-1")
		seen.LastSeenAt = time.Now().UTC().Add(time.Hour)
		require.NoError(t, repo.Touch(ctx, seen))

		device, err := repo.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		require.NotNil(t, device)
		assert.Equal(t, "Pixel Watch", device.Name)
		assert.Equal(t, models.DeviceTypeWearOS, device.Type)
		assert.Equal(t, int64(5000), device.LastSyncCursor)
		assert.WithinDuration(t, seen.LastSeenAt, device.LastSeenAt, time.Second)
	})
}

func TestDeviceRepository_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active device", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)

		device, err := models.NewDevice("phone-1", "iPhone", models.DeviceTypeIOS)
		require.NoError(t, err)
		require.NoError(t, repo.Register(ctx, device))

		stored, err := repo.GetByID(ctx, "phone-1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "iPhone", stored.Name)
		assert.Equal(t, models.DeviceTypeIOS, stored.Type)
		assert.True(t, stored.IsActive)
	})

	t.Run("overwrites identity and reactivates without losing the cursor", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)

		placeholder := models.TouchedDevice("watch-1")
		placeholder.RegisteredAt = time.Now().UTC().Add(-24 * time.Hour)
		require.NoError(t, repo.Touch(ctx, placeholder))
		require.NoError(t, repo.AdvanceCursor(ctx, "watch-1", 7000, time.Now().UTC()))

		deactivated, err := repo.Deactivate(ctx, "watch-1")
		require.NoError(t, err)
		require.True(t, deactivated)

		registered, err := models.NewDevice("watch-1", "Galaxy Watch", models.DeviceTypeWearOS)
		require.NoError(t, err)
		require.NoError(t, repo.Register(ctx, registered))

		device, err := repo.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		require.NotNil(t, device)
		assert.Equal(t, "Galaxy Watch", device.Name)
		assert.Equal(t, models.DeviceTypeWearOS, device.Type)
		assert.True(t, device.IsActive)
		assert.Equal(t, int64(7000), device.LastSyncCursor)
		// Registration time belongs to the first row.
		assert.WithinDuration(t, placeholder.RegisteredAt, device.RegisteredAt, time.Second)
	})
}

func TestDeviceRepository_AdvanceCursor(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the watermark forward", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)
		seedDevice(t, db, "watch-1")

		seenAt := time.Now().UTC().Add(time.Hour)
		require.NoError(t, repo.AdvanceCursor(ctx, "watch-1", 2000, seenAt))

		device, err := repo.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2000), device.LastSyncCursor)
		assert.WithinDuration(t, seenAt, device.LastSeenAt, time.Second)
	})

	t.Run("ignores a stale acknowledgement", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)
		seedDevice(t, db, "watch-1")

		require.NoError(t, repo.AdvanceCursor(ctx, "watch-1", 2000, time.Now().UTC()))
		require.NoError(t, repo.AdvanceCursor(ctx, "watch-1", 1000, time.Now().UTC()))

		device, err := repo.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2000), device.LastSyncCursor)
	})
}

func TestDeviceRepository_Deactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("reports whether a row was updated", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)
		seedDevice(t, db, "watch-1")

		ok, err := repo.Deactivate(ctx, "watch-1")
		require.NoError(t, err)
		assert.True(t, ok)

		device, err := repo.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		assert.False(t, device.IsActive)

		ok, err = repo.Deactivate(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDeviceRepository_GetByID(t *testing.T) {
	t.Run("returns nil for an unknown device", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)

		device, err := repo.GetByID(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Nil(t, device)
	})
}

func TestDeviceRepository_GetAll(t *testing.T) {
	t.Run("lists devices most recently seen first", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviceRepository(db)
		ctx := context.Background()

		base := time.Now().UTC()

		older := models.TouchedDevice("watch-1")
		older.LastSeenAt = base
		require.NoError(t, repo.Touch(ctx, older))

		newer := models.TouchedDevice("phone-1")
		newer.LastSeenAt = base.Add(time.Minute)
		require.NoError(t, repo.Touch(ctx, newer))

		devices, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, devices, 2)
		assert.Equal(t, "phone-1", devices[0].ID)
		assert.Equal(t, "watch-1", devices[1].ID)
	})
}
