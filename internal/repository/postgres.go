package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'unknown',
		registered_at TIMESTAMP NOT NULL DEFAULT NOW(),
		last_seen_at TIMESTAMP NOT NULL DEFAULT NOW(),
		last_sync_cursor BIGINT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS health_records (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		data_type TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '',
		source_app TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_records_device_id ON health_records(device_id);
	CREATE INDEX IF NOT EXISTS idx_records_timestamp ON health_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_records_type_timestamp ON health_records(data_type, timestamp);

	CREATE TABLE IF NOT EXISTS sync_sessions (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'started',
		records_synced INTEGER NOT NULL DEFAULT 0,
		start_time TIMESTAMP NOT NULL DEFAULT NOW(),
		end_time TIMESTAMP,
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_device_id ON sync_sessions(device_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sync_sessions(start_time);

	CREATE TABLE IF NOT EXISTS device_settings (
		device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		setting_key TEXT NOT NULL,
		setting_value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (device_id, setting_key)
	);
	`

	_, err := db.Exec(schema)
	return err
}
