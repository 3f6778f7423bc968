package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHealthRecord(t *testing.T) {
	t.Run("creates record with valid parameters", func(t *testing.T) {
		ts := time.Now().UnixMilli()

		record, err := NewHealthRecord("watch-1", DataTypeHeartRate, ts, 72)

		require.NoError(t, err)
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, "watch-1", record.DeviceID)
		assert.Equal(t, DataTypeHeartRate, record.DataType)
		assert.Equal(t, ts, record.Timestamp)
		assert.Equal(t, 72.0, record.Value)
		assert.WithinDuration(t, time.Now().UTC(), record.CreatedAt, time.Second*5)
	})

	t.Run("rejects empty device id", func(t *testing.T) {
		_, err := NewHealthRecord("", DataTypeSteps, 1, 100)
		assert.ErrorIs(t, err, ErrEmptyRecordDevice)
	})

	t.Run("rejects empty data type", func(t *testing.T) {
		_, err := NewHealthRecord("d1", "  ", 1, 100)
		assert.ErrorIs(t, err, ErrEmptyDataType)
	})

	t.Run("generates unique IDs", func(t *testing.T) {
		r1, err := NewHealthRecord("d1", DataTypeSteps, 1, 100)
		require.NoError(t, err)

		r2, err := NewHealthRecord("d1", DataTypeSteps, 1, 100)
		require.NoError(t, err)

		assert.NotEqual(t, r1.ID, r2.ID)
	})
}
