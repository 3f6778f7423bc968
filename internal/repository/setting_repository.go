package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/vitalsync/server/internal/models"
)

// SettingRepository implements SettingRepo for PostgreSQL/SQLite
type SettingRepository struct {
	db *sql.DB
}

// NewSettingRepository creates a new SettingRepository
func NewSettingRepository(db *sql.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) Upsert(ctx context.Context, setting *models.DeviceSetting) error {
	query := `INSERT INTO device_settings (device_id, setting_key, setting_value, updated_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (device_id, setting_key) DO UPDATE SET
				  setting_value = excluded.setting_value,
				  updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		setting.DeviceID, setting.Key, string(setting.Value), setting.UpdatedAt,
	)
	return err
}

func (r *SettingRepository) Get(ctx context.Context, deviceID, key string) (*models.DeviceSetting, error) {
	query := `SELECT device_id, setting_key, setting_value, updated_at
			  FROM device_settings WHERE device_id = $1 AND setting_key = $2`

	var setting models.DeviceSetting
	var value string
	err := r.db.QueryRowContext(ctx, query, deviceID, key).Scan(
		&setting.DeviceID, &setting.Key, &value, &setting.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	setting.Value = json.RawMessage(value)
	return &setting, nil
}

func (r *SettingRepository) ListForDevice(ctx context.Context, deviceID string) ([]models.DeviceSetting, error) {
	query := `SELECT device_id, setting_key, setting_value, updated_at
			  FROM device_settings WHERE device_id = $1 ORDER BY setting_key`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []models.DeviceSetting
	for rows.Next() {
		var setting models.DeviceSetting
		var value string
		if err := rows.Scan(&setting.DeviceID, &setting.Key, &value, &setting.UpdatedAt); err != nil {
			return nil, err
		}
		setting.Value = json.RawMessage(value)
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}
