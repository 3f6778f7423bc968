package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/config"
	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/observability"
	"github.com/vitalsync/server/internal/repository"
)

// IngestionService validates, sanitizes and persists record batches. Every
// record in a batch succeeds or fails on its own; the only whole-request
// rejections happen up front, before anything is persisted.
type IngestionService struct {
	log       zerolog.Logger
	registry  *RegistryService
	records   repository.RecordRepo
	validator *Validator
	sanitizer *Sanitizer
	activity  *ActivityLog
	metrics   *observability.SyncMetrics
	supported map[string]struct{}
	maxBatch  int
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	log zerolog.Logger,
	cfg *config.Config,
	registry *RegistryService,
	records repository.RecordRepo,
	activity *ActivityLog,
	metrics *observability.SyncMetrics,
) *IngestionService {
	supported := make(map[string]struct{}, len(cfg.Sync.SupportedDataTypes))
	for _, dataType := range cfg.Sync.SupportedDataTypes {
		supported[dataType] = struct{}{}
	}
	return &IngestionService{
		log:      log.With().Str("component", "ingestion").Logger(),
		registry: registry,
		records:  records,
		validator: NewValidator(
			cfg.MaxRecordAge(),
			cfg.FutureGrace(),
		),
		sanitizer: NewSanitizer(
			cfg.Sanitize.MaxMetadataDepth,
			cfg.Sanitize.MaxStringLength,
			cfg.Sanitize.MaxMapKeys,
			cfg.Sanitize.MaxListLength,
		),
		activity:  activity,
		metrics:   metrics,
		supported: supported,
		maxBatch:  cfg.Sync.MaxBatchSize,
	}
}

// Ingest persists one batch of records for a device. Records are inserted
// one by one with no surrounding transaction; a failing record is reported
// with its batch index and never aborts its siblings. The device row is
// created or touched before any record is examined, and the sync cursor is
// ratcheted afterward regardless of how many records were accepted.
func (s *IngestionService) Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ingestion", "ingest")
	defer span.End()
	span.SetAttributes(
		observability.DeviceID(req.DeviceID),
		observability.DataType(req.DataType),
		observability.RecordCount(len(req.Records)),
	)

	if req.DeviceID == "" {
		return nil, models.NewValidationError("deviceId", "is required")
	}
	if _, ok := s.supported[req.DataType]; !ok {
		return nil, models.NewStateError("ingest", fmt.Sprintf("unsupported data type %q", req.DataType))
	}
	if len(req.Records) == 0 {
		return nil, models.NewValidationError("records", "must not be empty")
	}
	if len(req.Records) > s.maxBatch {
		return nil, models.NewStateError("ingest",
			fmt.Sprintf("batch of %d records exceeds the maximum of %d", len(req.Records), s.maxBatch))
	}

	if _, err := s.registry.TouchWith(ctx, req.DeviceID, req.DeviceName, req.DeviceType); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	now := time.Now().UTC()
	issues := make([]models.RecordIssue, 0)
	inserted := 0
	var maxAccepted int64

	for i, raw := range req.Records {
		if verr := s.validator.ValidateRecord(req.DataType, raw, now); verr != nil {
			issues = append(issues, models.RecordIssue{Index: i, Error: verr.Error()})
			s.metrics.IncRejected(verr.Field)
			continue
		}

		metadata, err := s.sanitizer.SanitizeMetadata(raw.Metadata)
		if err != nil {
			issues = append(issues, models.RecordIssue{Index: i, Error: err.Error()})
			s.metrics.IncRejected("metadata")
			continue
		}

		record, err := models.NewHealthRecord(req.DeviceID, req.DataType, *raw.Timestamp, *raw.Value)
		if err != nil {
			issues = append(issues, models.RecordIssue{Index: i, Error: err.Error()})
			continue
		}
		record.Unit = s.sanitizer.CleanString(raw.Unit)
		record.SourceApp = s.sanitizer.CleanString(raw.SourceApp)
		record.Metadata = metadata

		if err := s.records.Insert(ctx, record); err != nil {
			s.log.Error().Err(err).
				Str("device_id", req.DeviceID).
				Str("data_type", req.DataType).
				Int("index", i).
				Msg("Failed to insert record")
			observability.CaptureError(err)
			issues = append(issues, models.RecordIssue{Index: i, Error: "failed to store record"})
			s.metrics.IncRejected("storage")
			continue
		}

		inserted++
		if record.Timestamp > maxAccepted {
			maxAccepted = record.Timestamp
		}
	}

	// The watermark moves to the newest accepted timestamp, or to the wall
	// clock when the whole batch was rejected. The ratchet keeps it
	// monotonic either way.
	cursor := maxAccepted
	if inserted == 0 {
		cursor = now.UnixMilli()
	}
	if err := s.registry.RatchetCursor(ctx, req.DeviceID, cursor); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.metrics.AddIngested(req.DataType, inserted)
	s.activity.Record(ctx, ActionIngest, req.DeviceID, req.DataType, inserted)

	resp := &models.IngestResponse{
		Success: true,
		Processed: models.IngestSummary{
			Total:    len(req.Records),
			Inserted: inserted,
			Errors:   len(issues),
		},
	}
	if len(issues) > 0 {
		resp.Errors = issues
	}
	return resp, nil
}
