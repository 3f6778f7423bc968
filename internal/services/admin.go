package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/repository"
)

// AdminService holds destructive operations that only make sense against
// disposable data.
type AdminService struct {
	log         zerolog.Logger
	records     repository.RecordRepo
	activity    *ActivityLog
	development bool
}

// NewAdminService creates a new AdminService
func NewAdminService(log zerolog.Logger, records repository.RecordRepo, activity *ActivityLog, development bool) *AdminService {
	return &AdminService{
		log:         log.With().Str("component", "admin").Logger(),
		records:     records,
		activity:    activity,
		development: development,
	}
}

// PurgeRecords deletes every stored record. Refused outside development.
func (s *AdminService) PurgeRecords(ctx context.Context) (int64, error) {
	if !s.development {
		return 0, models.NewConfigurationError("record purge is only available in development")
	}

	deleted, err := s.records.PurgeAll(ctx)
	if err != nil {
		return 0, models.NewStorageError("purge_records", err)
	}

	s.log.Warn().Int64("deleted", deleted).Msg("Purged all health records")
	s.activity.Record(ctx, ActionPurge, "", "", int(deleted))
	return deleted, nil
}
