package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vitalsync/server/internal/models"
)

// DeviceRepository implements DeviceRepo for PostgreSQL/SQLite
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	query := `SELECT id, name, type, registered_at, last_seen_at, last_sync_cursor, is_active
			  FROM devices WHERE id = $1`

	var device models.Device
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&device.ID, &device.Name, &device.Type,
		&device.RegisteredAt, &device.LastSeenAt, &device.LastSyncCursor, &device.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) GetAll(ctx context.Context) ([]*models.Device, error) {
	query := `SELECT id, name, type, registered_at, last_seen_at, last_sync_cursor, is_active
			  FROM devices ORDER BY last_seen_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		var device models.Device
		if err := rows.Scan(&device.ID, &device.Name, &device.Type,
			&device.RegisteredAt, &device.LastSeenAt, &device.LastSyncCursor, &device.IsActive); err != nil {
			return nil, err
		}
		devices = append(devices, &device)
	}
	return devices, rows.Err()
}

// Touch is the implicit-creation path: unknown devices get a row, known
// devices only have their last_seen_at refreshed.
func (r *DeviceRepository) Touch(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (id, name, type, registered_at, last_seen_at, last_sync_cursor, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (id) DO UPDATE SET last_seen_at = excluded.last_seen_at`

	_, err := r.db.ExecContext(ctx, query,
		device.ID, device.Name, device.Type,
		device.RegisteredAt, device.LastSeenAt, device.LastSyncCursor, device.IsActive,
	)
	return err
}

// Register overwrites identity fields and reactivates the device, keeping
// the original registration time and cursor when the row already exists.
func (r *DeviceRepository) Register(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (id, name, type, registered_at, last_seen_at, last_sync_cursor, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (id) DO UPDATE SET
				  name = excluded.name,
				  type = excluded.type,
				  last_seen_at = excluded.last_seen_at,
				  is_active = true`

	_, err := r.db.ExecContext(ctx, query,
		device.ID, device.Name, device.Type,
		device.RegisteredAt, device.LastSeenAt, device.LastSyncCursor, device.IsActive,
	)
	return err
}

// AdvanceCursor ratchets the watermark: a stale or duplicate
// acknowledgement can never move it backwards. Parameters are numbered in
// order of appearance so the query binds identically on both backends.
func (r *DeviceRepository) AdvanceCursor(ctx context.Context, id string, cursor int64, seenAt time.Time) error {
	query := `UPDATE devices
			  SET last_sync_cursor = CASE WHEN last_sync_cursor < $1 THEN $1 ELSE last_sync_cursor END,
				  last_seen_at = $2
			  WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, cursor, seenAt, id)
	return err
}

func (r *DeviceRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE devices SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}
