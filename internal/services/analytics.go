package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/observability"
	"github.com/vitalsync/server/internal/repository"
)

// AnalyticsService computes aggregate statistics over stored records. It
// only reads; nothing in the sync core depends on its output.
type AnalyticsService struct {
	log      zerolog.Logger
	records  repository.RecordRepo
	devices  repository.DeviceRepo
	presence *PresenceRegistry
	counters *DailyCounters
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(
	log zerolog.Logger,
	records repository.RecordRepo,
	devices repository.DeviceRepo,
	presence *PresenceRegistry,
	counters *DailyCounters,
) *AnalyticsService {
	return &AnalyticsService{
		log:      log.With().Str("component", "analytics").Logger(),
		records:  records,
		devices:  devices,
		presence: presence,
		counters: counters,
	}
}

// Summary aggregates one data type over an optional device and time range.
func (s *AnalyticsService) Summary(ctx context.Context, dataType, deviceID string, from, to int64) (*models.AnalyticsSummary, error) {
	ctx, span := observability.StartServiceSpan(ctx, "analytics", "summary")
	defer span.End()
	span.SetAttributes(observability.DataType(dataType))

	if dataType == "" {
		return nil, models.NewValidationError("dataType", "is required")
	}

	row, err := s.records.Aggregate(ctx, repository.AggregateQuery{
		DataType: dataType,
		DeviceID: deviceID,
		From:     from,
		To:       to,
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("aggregate_records", err)
	}

	return &models.AnalyticsSummary{
		DataType:        dataType,
		DeviceID:        deviceID,
		From:            from,
		To:              to,
		Count:           row.Count,
		Min:             row.Min,
		Max:             row.Max,
		Avg:             row.Avg,
		LatestTimestamp: row.LatestTimestamp,
	}, nil
}

// Overview reports store-wide totals, device liveness and today's
// activity counters.
func (s *AnalyticsService) Overview(ctx context.Context) (*models.OverviewResponse, error) {
	ctx, span := observability.StartServiceSpan(ctx, "analytics", "overview")
	defer span.End()

	totalRecords, err := s.records.CountAll(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("count_records", err)
	}

	devices, err := s.devices.GetAll(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("list_devices", err)
	}
	active := 0
	for _, device := range devices {
		if device.IsActive {
			active++
		}
	}

	return &models.OverviewResponse{
		TotalRecords:     totalRecords,
		ActiveDevices:    active,
		ConnectedDevices: s.presence.OnlineCount(),
		Today:            s.counters.Snapshot(),
	}, nil
}
