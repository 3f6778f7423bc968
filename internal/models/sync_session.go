package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle states. A session starts in SessionStarted and moves
// exactly once to SessionCompleted or SessionFailed.
const (
	SessionStarted   = "started"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

// Sync carrier kinds.
const (
	SyncKindWifi      = "wifi"
	SyncKindBluetooth = "bluetooth"
)

// SyncSession is the bookkeeping record for one client-driven sync attempt.
// Sessions are diagnostic: record ingestion does not require one.
type SyncSession struct {
	ID            string     `json:"id"`
	DeviceID      string     `json:"deviceId"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	RecordsSynced int        `json:"recordsSynced"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
}

// NewSyncSession creates a session in the started state.
func NewSyncSession(deviceID, kind string) (*SyncSession, error) {
	deviceID = strings.TrimSpace(deviceID)
	kind = strings.TrimSpace(strings.ToLower(kind))

	if deviceID == "" {
		return nil, ErrEmptySessionDevice
	}
	if kind != SyncKindWifi && kind != SyncKindBluetooth {
		return nil, ErrInvalidSyncKind
	}

	return &SyncSession{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Kind:      kind,
		Status:    SessionStarted,
		StartTime: time.Now().UTC(),
	}, nil
}

// Terminal reports whether the session has already been closed.
func (s *SyncSession) Terminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionFailed
}

// Session errors
var (
	ErrEmptySessionDevice = SessionError{"session device id cannot be empty"}
	ErrInvalidSyncKind    = SessionError{"sync kind must be 'wifi' or 'bluetooth'"}
)

type SessionError struct {
	Message string
}

func (e SessionError) Error() string {
	return e.Message
}
