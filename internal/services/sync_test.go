package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/server/internal/models"
)

func newSyncService(env *testEnv) *SyncService {
	return NewSyncService(zerolog.Nop(), env.cfg, env.registry, env.records, env.activity, nil)
}

// seedSyncRecords stores three heart rate records for watch-1 and one for
// phone-1, so reads from phone-1 see exactly the watch's three.
func seedSyncRecords(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()

	for _, id := range []string{"watch-1", "phone-1"} {
		_, err := env.registry.Touch(ctx, id)
		require.NoError(t, err)
	}

	for _, r := range []struct {
		device string
		ts     int64
		value  float64
	}{
		{"watch-1", 1000, 70},
		{"watch-1", 2000, 72},
		{"watch-1", 3000, 74},
		{"phone-1", 2500, 99},
	} {
		record, err := models.NewHealthRecord(r.device, models.DataTypeHeartRate, r.ts, r.value)
		require.NoError(t, err)
		require.NoError(t, env.records.Insert(ctx, record))
	}
}

func TestSyncService_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("serves other devices' records newest first", func(t *testing.T) {
		env := setupTestEnv(t)
		seedSyncRecords(t, env)
		svc := newSyncService(env)

		resp, err := svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(0), Limit: 10})
		require.NoError(t, err)

		assert.True(t, resp.Success)
		require.Len(t, resp.Data, 3)
		assert.Equal(t, int64(3000), resp.Data[0].Timestamp)
		assert.Equal(t, int64(1000), resp.Data[2].Timestamp)
		for _, record := range resp.Data {
			assert.Equal(t, "watch-1", record.DeviceID)
		}

		assert.Equal(t, 3, resp.Pagination.Total)
		assert.False(t, resp.Pagination.HasMore)
		assert.InDelta(t, time.Now().UnixMilli(), resp.LastSyncTimestamp, 5000)
	})

	t.Run("applies the since watermark strictly", func(t *testing.T) {
		env := setupTestEnv(t)
		seedSyncRecords(t, env)
		svc := newSyncService(env)

		resp, err := svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(2000), Limit: 10})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, int64(3000), resp.Data[0].Timestamp)
	})

	t.Run("uses the stored cursor when since is omitted", func(t *testing.T) {
		env := setupTestEnv(t)
		seedSyncRecords(t, env)
		svc := newSyncService(env)

		_, err := svc.AckCursor(ctx, "phone-1", 2000)
		require.NoError(t, err)

		resp, err := svc.Read(ctx, ReadParams{DeviceID: "phone-1", Limit: 10})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, int64(3000), resp.Data[0].Timestamp)
	})

	t.Run("bounds the window with until", func(t *testing.T) {
		env := setupTestEnv(t)
		seedSyncRecords(t, env)
		svc := newSyncService(env)

		resp, err := svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(0), Until: 2000, Limit: 10})
		require.NoError(t, err)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, int64(2000), resp.Data[0].Timestamp)
		assert.Equal(t, int64(1000), resp.Data[1].Timestamp)
	})

	t.Run("filters by data type", func(t *testing.T) {
		env := setupTestEnv(t)
		seedSyncRecords(t, env)
		svc := newSyncService(env)

		steps, err := models.NewHealthRecord("watch-1", models.DataTypeSteps, 4000, 8000)
		require.NoError(t, err)
		require.NoError(t, env.records.Insert(ctx, steps))

		resp, err := svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(0), DataType: models.DataTypeSteps, Limit: 10})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, models.DataTypeSteps, resp.Data[0].DataType)
		assert.Equal(t, 1, resp.Pagination.Total)
	})

	t.Run("defaults and clamps the page size", func(t *testing.T) {
		env := setupTestEnv(t)
		seedSyncRecords(t, env)
		svc := newSyncService(env)

		resp, err := svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(0)})
		require.NoError(t, err)
		assert.Equal(t, env.cfg.Sync.DefaultPageSize, resp.Pagination.Limit)
		assert.Len(t, resp.Data, 2)
		assert.True(t, resp.Pagination.HasMore)

		resp, err = svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(0), Limit: 9999})
		require.NoError(t, err)
		assert.Equal(t, env.cfg.Sync.MaxBatchSize, resp.Pagination.Limit)
	})

	t.Run("pages against a total from the same filter", func(t *testing.T) {
		env := setupTestEnv(t)
		seedSyncRecords(t, env)
		svc := newSyncService(env)

		resp, err := svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(0), Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, 3, resp.Pagination.Total)
		assert.Equal(t, 2, resp.Pagination.Offset)
		assert.False(t, resp.Pagination.HasMore)
	})

	t.Run("reading never advances the cursor", func(t *testing.T) {
		env := setupTestEnv(t)
		seedSyncRecords(t, env)
		svc := newSyncService(env)

		_, err := svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(0), Limit: 10})
		require.NoError(t, err)
		_, err = svc.Read(ctx, ReadParams{DeviceID: "phone-1", Since: int64Ptr(0), Limit: 10})
		require.NoError(t, err)

		device, err := env.devices.GetByID(ctx, "phone-1")
		require.NoError(t, err)
		assert.Zero(t, device.LastSyncCursor)
	})

	t.Run("touches an unknown reader into existence", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newSyncService(env)

		resp, err := svc.Read(ctx, ReadParams{DeviceID: "fresh", Limit: 10})
		require.NoError(t, err)
		assert.NotNil(t, resp.Data)
		assert.Empty(t, resp.Data)

		device, err := env.devices.GetByID(ctx, "fresh")
		require.NoError(t, err)
		require.NotNil(t, device)
		assert.True(t, env.presence.Online("fresh"))
	})
}

func TestSyncService_AckCursor(t *testing.T) {
	ctx := context.Background()

	t.Run("advances and reports the stored watermark", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newSyncService(env)

		resp, err := svc.AckCursor(ctx, "phone-1", 1500)
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "phone-1", resp.DeviceID)
		assert.Equal(t, int64(1500), resp.LastSyncCursor)
	})

	t.Run("never moves the watermark backwards", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newSyncService(env)

		_, err := svc.AckCursor(ctx, "phone-1", 2000)
		require.NoError(t, err)

		resp, err := svc.AckCursor(ctx, "phone-1", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(2000), resp.LastSyncCursor)
	})

	t.Run("rejects a negative cursor", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newSyncService(env)

		_, err := svc.AckCursor(ctx, "phone-1", -1)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "cursor", verr.Field)
	})

	t.Run("creates the device on first contact", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newSyncService(env)

		_, err := svc.AckCursor(ctx, "brand-new", 42)
		require.NoError(t, err)

		device, err := env.devices.GetByID(ctx, "brand-new")
		require.NoError(t, err)
		require.NotNil(t, device)
		assert.Equal(t, int64(42), device.LastSyncCursor)
	})
}
