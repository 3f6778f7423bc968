package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/observability"
	"github.com/vitalsync/server/internal/repository"
)

// SessionService tracks sync attempts for auditing. Sessions carry no
// control-flow weight: nothing consults them to gate or retry future
// syncs, and nothing stops two sessions for the same device overlapping.
type SessionService struct {
	log      zerolog.Logger
	registry *RegistryService
	sessions repository.SessionRepo
	activity *ActivityLog
	metrics  *observability.SyncMetrics
	hub      *WebSocketHub
}

// NewSessionService creates a new SessionService
func NewSessionService(
	log zerolog.Logger,
	registry *RegistryService,
	sessions repository.SessionRepo,
	activity *ActivityLog,
	metrics *observability.SyncMetrics,
	hub *WebSocketHub,
) *SessionService {
	return &SessionService{
		log:      log.With().Str("component", "sessions").Logger(),
		registry: registry,
		sessions: sessions,
		activity: activity,
		metrics:  metrics,
		hub:      hub,
	}
}

// Start opens a session for a device over the given transport kind.
func (s *SessionService) Start(ctx context.Context, deviceID, kind string) (*models.SyncSession, error) {
	ctx, span := observability.StartServiceSpan(ctx, "sessions", "start")
	defer span.End()
	span.SetAttributes(observability.DeviceID(deviceID))

	session, err := models.NewSyncSession(deviceID, kind)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSyncKind) {
			return nil, models.NewStateError("start_session", err.Error())
		}
		return nil, models.NewValidationError("deviceId", "is required")
	}

	if _, err := s.registry.Touch(ctx, deviceID); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if err := s.sessions.Insert(ctx, session); err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("insert_session", err)
	}

	s.metrics.IncSessionStarted(kind)
	s.activity.Record(ctx, ActionSessionStart, deviceID, "", 0)
	s.notify(session)

	return session, nil
}

// Complete closes a started session exactly once. A non-empty error
// message marks the session failed, otherwise completed. Completing a
// session that is already terminal reports an invalid transition and
// leaves the first outcome untouched.
func (s *SessionService) Complete(ctx context.Context, sessionID string, recordsSynced int, errorMessage string) (*models.SyncSession, error) {
	ctx, span := observability.StartServiceSpan(ctx, "sessions", "complete")
	defer span.End()
	span.SetAttributes(observability.SessionID(sessionID))

	if recordsSynced < 0 {
		return nil, models.NewValidationError("recordsSynced", "cannot be negative")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("get_session", err)
	}
	if session == nil {
		return nil, models.NewNotFoundError("session", sessionID)
	}

	status := models.SessionCompleted
	if errorMessage != "" {
		status = models.SessionFailed
	}

	endTime := time.Now().UTC()
	ok, err := s.sessions.Close(ctx, sessionID, status, recordsSynced, endTime, errorMessage)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("close_session", err)
	}
	if !ok {
		return nil, models.NewStateError("complete_session",
			"session has already been closed")
	}

	closed, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, models.NewStorageError("get_session", err)
	}

	s.activity.Record(ctx, ActionSessionClose, session.DeviceID, "", recordsSynced)
	s.notify(closed)

	return closed, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.SyncSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, models.NewStorageError("get_session", err)
	}
	if session == nil {
		return nil, models.NewNotFoundError("session", sessionID)
	}
	return session, nil
}

func (s *SessionService) notify(session *models.SyncSession) {
	if s.hub == nil || session == nil {
		return
	}
	s.hub.BroadcastToTopic(TopicSessions, WSMessage{
		Type:    WSTypeSessionUpdate,
		Payload: session,
	})
}
