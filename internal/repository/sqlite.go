package repository

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteOptions serialize writers behind a busy-wait instead of failing
// fast, and keep readers concurrent via WAL.
const sqliteOptions = "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	dsn := dbPath
	if strings.Contains(dsn, "?") {
		dsn += "&" + sqliteOptions
	} else {
		dsn += "?" + sqliteOptions
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer at a time; a single pooled connection keeps
	// every statement behind the same busy-wait queue.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Devices table (registry + sync watermark)
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'unknown',
		registered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_sync_cursor INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	-- Health records. Duplicate (device_id, data_type, timestamp) rows are
	-- allowed; readers dedupe if they care.
	CREATE TABLE IF NOT EXISTS health_records (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		data_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		value REAL NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '',
		source_app TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_device_id ON health_records(device_id);
	CREATE INDEX IF NOT EXISTS idx_records_timestamp ON health_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_records_type_timestamp ON health_records(data_type, timestamp);

	-- Sync sessions (diagnostic bookkeeping per sync attempt)
	CREATE TABLE IF NOT EXISTS sync_sessions (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'started',
		records_synced INTEGER NOT NULL DEFAULT 0,
		start_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		end_time DATETIME,
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_device_id ON sync_sessions(device_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sync_sessions(start_time);

	-- Device settings (per-device key/value preferences)
	CREATE TABLE IF NOT EXISTS device_settings (
		device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		setting_key TEXT NOT NULL,
		setting_value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (device_id, setting_key)
	);
	`

	_, err := db.Exec(schema)
	return err
}
