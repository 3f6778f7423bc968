package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/repository"
)

func TestIngestionService_Ingest(t *testing.T) {
	ctx := context.Background()

	newService := func(env *testEnv) *IngestionService {
		return NewIngestionService(zerolog.Nop(), env.cfg, env.registry, env.records, env.activity, nil)
	}

	t.Run("accepts a batch and reports failures per record", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		base := time.Now().UTC().Add(-time.Hour).UnixMilli()
		resp, err := svc.Ingest(ctx, models.IngestRequest{
			DeviceID: "watch-1",
			DataType: models.DataTypeHeartRate,
			Records: []models.RawRecord{
				rawRecord(base, 72),
				rawRecord(base+1000, 75),
				rawRecord(base+2000, 1000),
			},
		})
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, 3, resp.Processed.Total)
		assert.Equal(t, 2, resp.Processed.Inserted)
		assert.Equal(t, 1, resp.Processed.Errors)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, 2, resp.Errors[0].Index)
		assert.Contains(t, resp.Errors[0].Error, "must be between")

		// The watermark lands on the newest accepted capture time.
		device, err := env.devices.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		assert.Equal(t, base+1000, device.LastSyncCursor)

		assert.Equal(t, int64(2), env.counters.Snapshot().RecordsIngested)
	})

	t.Run("moves the cursor to the wall clock when nothing is accepted", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		before := time.Now().UnixMilli()
		resp, err := svc.Ingest(ctx, models.IngestRequest{
			DeviceID: "watch-1",
			DataType: models.DataTypeHeartRate,
			Records:  []models.RawRecord{rawRecord(time.Now().UnixMilli(), 500)},
		})
		require.NoError(t, err)
		assert.Zero(t, resp.Processed.Inserted)
		require.Len(t, resp.Errors, 1)

		device, err := env.devices.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, device.LastSyncCursor, before)
		assert.LessOrEqual(t, device.LastSyncCursor, time.Now().UnixMilli())
	})

	t.Run("rejects an unsupported data type before any write", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		_, err := svc.Ingest(ctx, models.IngestRequest{
			DeviceID: "watch-1",
			DataType: "mood",
			Records:  []models.RawRecord{rawRecord(time.Now().UnixMilli(), 1)},
		})

		var stateErr *models.StateError
		require.ErrorAs(t, err, &stateErr)

		// The gate fires before the device row is created.
		device, err := env.devices.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		assert.Nil(t, device)
	})

	t.Run("rejects a batch over the configured maximum", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		ts := time.Now().UTC().Add(-time.Minute).UnixMilli()
		records := make([]models.RawRecord, env.cfg.Sync.MaxBatchSize+1)
		for i := range records {
			records[i] = rawRecord(ts, 72)
		}

		_, err := svc.Ingest(ctx, models.IngestRequest{
			DeviceID: "watch-1",
			DataType: models.DataTypeHeartRate,
			Records:  records,
		})

		var stateErr *models.StateError
		require.ErrorAs(t, err, &stateErr)

		total, err := env.records.CountAll(ctx)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("rejects an empty batch", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		_, err := svc.Ingest(ctx, models.IngestRequest{
			DeviceID: "watch-1",
			DataType: models.DataTypeHeartRate,
		})

		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "records", verr.Field)
	})

	t.Run("requires a device id", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		_, err := svc.Ingest(ctx, models.IngestRequest{
			DataType: models.DataTypeHeartRate,
			Records:  []models.RawRecord{rawRecord(time.Now().UnixMilli(), 72)},
		})

		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "deviceId", verr.Field)
	})

	t.Run("applies identity hints only when creating the device", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		ts := time.Now().UTC().Add(-time.Minute).UnixMilli()
		_, err := svc.Ingest(ctx, models.IngestRequest{
			DeviceID:   "watch-1",
			DataType:   models.DataTypeHeartRate,
			DeviceName: "Pixel Watch",
			DeviceType: models.DeviceTypeWearOS,
			Records:    []models.RawRecord{rawRecord(ts, 72)},
		})
		require.NoError(t, err)

		_, err = svc.Ingest(ctx, models.IngestRequest{
			DeviceID:   "watch-1",
			DataType:   models.DataTypeHeartRate,
			DeviceName: "Renamed",
			DeviceType: models.DeviceTypeIOS,
			Records:    []models.RawRecord{rawRecord(ts+1000, 73)},
		})
		require.NoError(t, err)

		device, err := env.devices.GetByID(ctx, "watch-1")
		require.NoError(t, err)
		assert.Equal(t, "Pixel Watch", device.Name)
		assert.Equal(t, models.DeviceTypeWearOS, device.Type)
	})

	t.Run("sanitizes text and metadata before storage", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		record := rawRecord(time.Now().UTC().Add(-time.Minute).UnixMilli(), 72)
		record.Unit = " <bpm> "
		record.SourceApp = `fit"app`
		record.Metadata = json.RawMessage(`{"note":"<script>hi</script>"}`)

		resp, err := svc.Ingest(ctx, models.IngestRequest{
			DeviceID: "watch-1",
			DataType: models.DataTypeHeartRate,
			Records:  []models.RawRecord{record},
		})
		require.NoError(t, err)
		require.Equal(t, 1, resp.Processed.Inserted)

		stored, err := env.records.List(ctx, repository.RecordQuery{ExcludeDeviceID: "phone-1", Limit: 10})
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "bpm", stored[0].Unit)
		assert.Equal(t, "fitapp", stored[0].SourceApp)
		assert.JSONEq(t, `{"note":"scripthi/script"}`, string(stored[0].Metadata))
	})

	t.Run("validates blood pressure component readings", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := newService(env)

		ts := time.Now().UTC().Add(-time.Minute).UnixMilli()
		good := rawRecord(ts, 120)
		good.Metadata = json.RawMessage(`{"systolic":120,"diastolic":80}`)
		bad := rawRecord(ts+1000, 120)
		bad.Metadata = json.RawMessage(`{"systolic":80,"diastolic":120}`)

		resp, err := svc.Ingest(ctx, models.IngestRequest{
			DeviceID: "watch-1",
			DataType: models.DataTypeBloodPressure,
			Records:  []models.RawRecord{good, bad},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Processed.Inserted)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, 1, resp.Errors[0].Index)
		assert.Contains(t, resp.Errors[0].Error, "systolic must exceed diastolic")
	})
}
