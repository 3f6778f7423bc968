package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/config"
	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/observability"
	"github.com/vitalsync/server/internal/repository"
)

// ReadParams are the parsed query parameters of an incremental read.
// A nil Since means "use the device's stored cursor"; zero Until means
// unbounded; zero Limit means the configured default page size.
type ReadParams struct {
	DeviceID string
	Since    *int64
	Until    int64
	DataType string
	Limit    int
	Offset   int
}

// SyncService serves incremental reads of other devices' records and the
// explicit cursor acknowledgement. Reads are idempotent: repeating one
// never changes what the next read returns.
type SyncService struct {
	log         zerolog.Logger
	registry    *RegistryService
	records     repository.RecordRepo
	activity    *ActivityLog
	metrics     *observability.SyncMetrics
	defaultPage int
	maxPage     int
}

// NewSyncService creates a new SyncService
func NewSyncService(
	log zerolog.Logger,
	cfg *config.Config,
	registry *RegistryService,
	records repository.RecordRepo,
	activity *ActivityLog,
	metrics *observability.SyncMetrics,
) *SyncService {
	return &SyncService{
		log:         log.With().Str("component", "sync").Logger(),
		registry:    registry,
		records:     records,
		activity:    activity,
		metrics:     metrics,
		defaultPage: cfg.Sync.DefaultPageSize,
		maxPage:     cfg.Sync.MaxBatchSize,
	}
}

// Read returns records from other devices newer than the watermark,
// newest first. The watermark is the explicit since parameter when given,
// otherwise the requesting device's stored cursor. The device row is
// touched but its cursor never moves here; acknowledgement is AckCursor.
func (s *SyncService) Read(ctx context.Context, params ReadParams) (*models.SyncDataResponse, error) {
	ctx, span := observability.StartServiceSpan(ctx, "sync", "read")
	defer span.End()
	span.SetAttributes(observability.DeviceID(params.DeviceID))

	device, err := s.registry.Touch(ctx, params.DeviceID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	since := device.LastSyncCursor
	if params.Since != nil {
		since = *params.Since
	}

	limit := params.Limit
	if limit <= 0 {
		limit = s.defaultPage
	}
	if limit > s.maxPage {
		limit = s.maxPage
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	// List and Count share the exact same predicate so the total always
	// describes the page's result set.
	query := repository.RecordQuery{
		ExcludeDeviceID: params.DeviceID,
		DataType:        params.DataType,
		Since:           since,
		Until:           params.Until,
		Limit:           limit,
		Offset:          offset,
	}

	data, err := s.records.List(ctx, query)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("list_records", err)
	}
	total, err := s.records.Count(ctx, query)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("count_records", err)
	}
	if data == nil {
		data = []*models.HealthRecord{}
	}

	s.metrics.AddServed(len(data))
	s.activity.Record(ctx, ActionRead, params.DeviceID, params.DataType, len(data))

	return &models.SyncDataResponse{
		Success: true,
		Data:    data,
		Pagination: models.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(data) < total,
		},
		LastSyncTimestamp: time.Now().UnixMilli(),
	}, nil
}

// AckCursor records that the device has processed everything up to the
// given watermark. The stored cursor only ever moves forward.
func (s *SyncService) AckCursor(ctx context.Context, deviceID string, cursor int64) (*models.CursorResponse, error) {
	ctx, span := observability.StartServiceSpan(ctx, "sync", "ack_cursor")
	defer span.End()
	span.SetAttributes(observability.DeviceID(deviceID))

	device, err := s.registry.AdvanceCursor(ctx, deviceID, cursor)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.activity.Record(ctx, ActionCursorAck, deviceID, "", 0)

	return &models.CursorResponse{
		Success:        true,
		DeviceID:       device.ID,
		LastSyncCursor: device.LastSyncCursor,
	}, nil
}
