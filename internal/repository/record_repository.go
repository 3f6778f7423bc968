package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vitalsync/server/internal/models"
)

// RecordRepository implements RecordRepo for PostgreSQL/SQLite
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Insert(ctx context.Context, record *models.HealthRecord) error {
	query := `INSERT INTO health_records (id, device_id, data_type, timestamp, value, unit, metadata, source_app, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	metadata := ""
	if len(record.Metadata) > 0 {
		metadata = string(record.Metadata)
	}

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.DeviceID, record.DataType, record.Timestamp,
		record.Value, record.Unit, metadata, record.SourceApp, record.CreatedAt,
	)
	return err
}

// whereClause builds the filter shared by List and Count. Keeping a single
// builder guarantees the reported total matches the paged rows.
func whereClause(q RecordQuery) (string, []any) {
	clauses := []string{"device_id != $1", "timestamp > $2"}
	args := []any{q.ExcludeDeviceID, q.Since}

	if q.DataType != "" {
		args = append(args, q.DataType)
		clauses = append(clauses, fmt.Sprintf("data_type = $%d", len(args)))
	}
	if q.Until > 0 {
		args = append(args, q.Until)
		clauses = append(clauses, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

func (r *RecordRepository) List(ctx context.Context, q RecordQuery) ([]*models.HealthRecord, error) {
	where, args := whereClause(q)

	args = append(args, q.Limit)
	limitParam := len(args)
	args = append(args, q.Offset)
	offsetParam := len(args)

	query := fmt.Sprintf(`SELECT id, device_id, data_type, timestamp, value, unit, metadata, source_app, created_at
			  FROM health_records WHERE %s
			  ORDER BY timestamp DESC, id DESC
			  LIMIT $%d OFFSET $%d`, where, limitParam, offsetParam)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HealthRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *RecordRepository) Count(ctx context.Context, q RecordQuery) (int, error) {
	where, args := whereClause(q)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM health_records WHERE %s`, where)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RecordRepository) StatsByDevice(ctx context.Context, deviceID string) ([]models.TypeStat, error) {
	query := `SELECT data_type, COUNT(*), MAX(timestamp)
			  FROM health_records WHERE device_id = $1
			  GROUP BY data_type ORDER BY data_type`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.TypeStat
	for rows.Next() {
		var s models.TypeStat
		if err := rows.Scan(&s.DataType, &s.Count, &s.LatestTimestamp); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *RecordRepository) Aggregate(ctx context.Context, q AggregateQuery) (*AggregateRow, error) {
	clauses := []string{"data_type = $1"}
	args := []any{q.DataType}

	if q.DeviceID != "" {
		args = append(args, q.DeviceID)
		clauses = append(clauses, fmt.Sprintf("device_id = $%d", len(args)))
	}
	if q.From > 0 {
		args = append(args, q.From)
		clauses = append(clauses, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if q.To > 0 {
		args = append(args, q.To)
		clauses = append(clauses, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT COUNT(*), COALESCE(MIN(value), 0), COALESCE(MAX(value), 0),
			  COALESCE(AVG(value), 0), COALESCE(MAX(timestamp), 0)
			  FROM health_records WHERE %s`, strings.Join(clauses, " AND "))

	var row AggregateRow
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&row.Count, &row.Min, &row.Max, &row.Avg, &row.LatestTimestamp,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *RecordRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM health_records`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RecordRepository) PurgeAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM health_records`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanRecord(rows *sql.Rows) (*models.HealthRecord, error) {
	var record models.HealthRecord
	var metadata string
	if err := rows.Scan(&record.ID, &record.DeviceID, &record.DataType, &record.Timestamp,
		&record.Value, &record.Unit, &metadata, &record.SourceApp, &record.CreatedAt); err != nil {
		return nil, err
	}
	if metadata != "" {
		record.Metadata = json.RawMessage(metadata)
	}
	return &record, nil
}
