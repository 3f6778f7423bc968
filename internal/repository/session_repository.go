package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vitalsync/server/internal/models"
)

// SessionRepository implements SessionRepo for PostgreSQL/SQLite
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, session *models.SyncSession) error {
	query := `INSERT INTO sync_sessions (id, device_id, kind, status, records_synced, start_time, end_time, error_message)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.DeviceID, session.Kind, session.Status,
		session.RecordsSynced, session.StartTime, session.EndTime, session.ErrorMessage,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.SyncSession, error) {
	query := `SELECT id, device_id, kind, status, records_synced, start_time, end_time, error_message
			  FROM sync_sessions WHERE id = $1`

	var session models.SyncSession
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.DeviceID, &session.Kind, &session.Status,
		&session.RecordsSynced, &session.StartTime, &session.EndTime, &session.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Close finalizes a session in one guarded statement. The status predicate
// makes the started -> terminal transition atomic: a session already closed
// reports false and keeps its original outcome.
func (r *SessionRepository) Close(ctx context.Context, id, status string, recordsSynced int, endTime time.Time, errorMessage string) (bool, error) {
	query := `UPDATE sync_sessions
			  SET status = $1, records_synced = $2, end_time = $3, error_message = $4
			  WHERE id = $5 AND status = $6`

	result, err := r.db.ExecContext(ctx, query, status, recordsSynced, endTime, errorMessage, id, models.SessionStarted)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (r *SessionRepository) LatestForDevice(ctx context.Context, deviceID string) (*models.SyncSession, error) {
	query := `SELECT id, device_id, kind, status, records_synced, start_time, end_time, error_message
			  FROM sync_sessions WHERE device_id = $1
			  ORDER BY start_time DESC LIMIT 1`

	var session models.SyncSession
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&session.ID, &session.DeviceID, &session.Kind, &session.Status,
		&session.RecordsSynced, &session.StartTime, &session.EndTime, &session.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
