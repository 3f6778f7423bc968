package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/server/internal/models"
)

func TestSettingRepository_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a new setting", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSettingRepository(db)
		seedDevice(t, db, "watch-1")

		setting, err := models.NewDeviceSetting("watch-1", "syncInterval", json.RawMessage(`300`))
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, setting))

		stored, err := repo.Get(ctx, "watch-1", "syncInterval")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.JSONEq(t, `300`, string(stored.Value))
	})

	t.Run("replaces the value for an existing key", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSettingRepository(db)
		seedDevice(t, db, "watch-1")

		first, err := models.NewDeviceSetting("watch-1", "units", json.RawMessage(`"metric"`))
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, first))

		second, err := models.NewDeviceSetting("watch-1", "units", json.RawMessage(`"imperial"`))
		require.NoError(t, err)
		second.UpdatedAt = first.UpdatedAt.Add(time.Hour)
		require.NoError(t, repo.Upsert(ctx, second))

		stored, err := repo.Get(ctx, "watch-1", "units")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.JSONEq(t, `"imperial"`, string(stored.Value))
		assert.WithinDuration(t, second.UpdatedAt, stored.UpdatedAt, time.Second)

		settings, err := repo.ListForDevice(ctx, "watch-1")
		require.NoError(t, err)
		assert.Len(t, settings, 1)
	})
}

func TestSettingRepository_Get(t *testing.T) {
	t.Run("returns nil for an unknown key", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSettingRepository(db)
		seedDevice(t, db, "watch-1")

		setting, err := repo.Get(context.Background(), "watch-1", "ghost")
		require.NoError(t, err)
		assert.Nil(t, setting)
	})
}

func TestSettingRepository_ListForDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("lists only the device's settings ordered by key", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSettingRepository(db)
		seedDevice(t, db, "watch-1")
		seedDevice(t, db, "phone-1")

		for key, value := range map[string]string{
			"units":        `"metric"`,
			"autoSync":     `true`,
			"syncInterval": `600`,
		} {
			setting, err := models.NewDeviceSetting("watch-1", key, json.RawMessage(value))
			require.NoError(t, err)
			require.NoError(t, repo.Upsert(ctx, setting))
		}

		other, err := models.NewDeviceSetting("phone-1", "units", json.RawMessage(`"imperial"`))
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, other))

		settings, err := repo.ListForDevice(ctx, "watch-1")
		require.NoError(t, err)
		require.Len(t, settings, 3)
		assert.Equal(t, "autoSync", settings[0].Key)
		assert.Equal(t, "syncInterval", settings[1].Key)
		assert.Equal(t, "units", settings[2].Key)
	})

	t.Run("returns nothing for a device without settings", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSettingRepository(db)

		settings, err := repo.ListForDevice(ctx, "ghost")
		require.NoError(t, err)
		assert.Empty(t, settings)
	})
}
