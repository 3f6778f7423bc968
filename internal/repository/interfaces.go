package repository

import (
	"context"
	"time"

	"github.com/vitalsync/server/internal/models"
)

// RecordQuery is the shared filter for incremental reads. List and Count
// must build their WHERE clause from the same query so page totals match
// page contents.
type RecordQuery struct {
	ExcludeDeviceID string
	DataType        string
	Since           int64
	Until           int64 // 0 means unbounded
	Limit           int
	Offset          int
}

// AggregateQuery selects records for a statistics rollup.
type AggregateQuery struct {
	DataType string
	DeviceID string
	From     int64
	To       int64 // 0 means unbounded
}

// AggregateRow is the result of one statistics rollup.
type AggregateRow struct {
	Count           int
	Min             float64
	Max             float64
	Avg             float64
	LatestTimestamp int64
}

// DeviceRepo defines persistence for the device registry. Lookups return
// (nil, nil) when the device does not exist.
type DeviceRepo interface {
	GetByID(ctx context.Context, id string) (*models.Device, error)
	GetAll(ctx context.Context) ([]*models.Device, error)
	// Touch inserts the device if absent; an existing row only has its
	// last_seen_at refreshed.
	Touch(ctx context.Context, device *models.Device) error
	// Register inserts the device if absent, otherwise overwrites name and
	// type and reactivates it. Registration timestamps and the sync cursor
	// survive re-registration.
	Register(ctx context.Context, device *models.Device) error
	// AdvanceCursor moves the sync watermark forward. A cursor at or below
	// the stored one leaves it unchanged.
	AdvanceCursor(ctx context.Context, id string, cursor int64, seenAt time.Time) error
	Deactivate(ctx context.Context, id string) (bool, error)
}

// RecordRepo defines persistence for health records. Each Insert is an
// independent statement; batches are never wrapped in a transaction so one
// bad record cannot roll back its siblings.
type RecordRepo interface {
	Insert(ctx context.Context, record *models.HealthRecord) error
	List(ctx context.Context, q RecordQuery) ([]*models.HealthRecord, error)
	Count(ctx context.Context, q RecordQuery) (int, error)
	StatsByDevice(ctx context.Context, deviceID string) ([]models.TypeStat, error)
	Aggregate(ctx context.Context, q AggregateQuery) (*AggregateRow, error)
	CountAll(ctx context.Context) (int64, error)
	PurgeAll(ctx context.Context) (int64, error)
}

// SessionRepo defines persistence for sync sessions.
type SessionRepo interface {
	Insert(ctx context.Context, session *models.SyncSession) error
	GetByID(ctx context.Context, id string) (*models.SyncSession, error)
	// Close finalizes a started session. It reports false when the session
	// was not in the started state, leaving the row untouched.
	Close(ctx context.Context, id, status string, recordsSynced int, endTime time.Time, errorMessage string) (bool, error)
	LatestForDevice(ctx context.Context, deviceID string) (*models.SyncSession, error)
}

// SettingRepo defines persistence for per-device settings.
type SettingRepo interface {
	Upsert(ctx context.Context, setting *models.DeviceSetting) error
	Get(ctx context.Context, deviceID, key string) (*models.DeviceSetting, error)
	ListForDevice(ctx context.Context, deviceID string) ([]models.DeviceSetting, error)
}
