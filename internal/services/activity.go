package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/observability"
)

// Activity actions recorded by the sync operations.
const (
	ActionIngest       = "ingest"
	ActionRead         = "sync_read"
	ActionCursorAck    = "cursor_ack"
	ActionSessionStart = "session_start"
	ActionSessionClose = "session_close"
	ActionRegister     = "register"
	ActionDeactivate   = "deactivate"
	ActionPurge        = "purge"
)

// DailyCounters keeps the since-midnight activity tallies. The counters
// roll over automatically at each UTC day boundary.
type DailyCounters struct {
	mu              sync.Mutex
	day             string
	recordsIngested int64
	recordsServed   int64
	sessionsStarted int64
}

// NewDailyCounters creates counters anchored to the current UTC day.
func NewDailyCounters() *DailyCounters {
	return &DailyCounters{day: utcDay(time.Now())}
}

func utcDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// roll resets the tallies when the UTC day has changed. Callers hold mu.
func (c *DailyCounters) roll(now time.Time) {
	if day := utcDay(now); day != c.day {
		c.day = day
		c.recordsIngested = 0
		c.recordsServed = 0
		c.sessionsStarted = 0
	}
}

// Roll forces a day-boundary check. The maintenance loop calls this so the
// tallies reset even when no traffic arrives after midnight.
func (c *DailyCounters) Roll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(time.Now())
}

func (c *DailyCounters) AddIngested(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(time.Now())
	c.recordsIngested += int64(n)
}

func (c *DailyCounters) AddServed(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(time.Now())
	c.recordsServed += int64(n)
}

func (c *DailyCounters) IncSessions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(time.Now())
	c.sessionsStarted++
}

// Snapshot returns the current tallies.
func (c *DailyCounters) Snapshot() models.TodayCounters {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roll(time.Now())
	return models.TodayCounters{
		RecordsIngested: c.recordsIngested,
		RecordsServed:   c.recordsServed,
		SessionsStarted: c.sessionsStarted,
	}
}

// ActivityLog emits structured sync events to the log and fans them out to
// websocket subscribers. Recording is fire and forget: a dropped event never
// fails the operation that produced it.
type ActivityLog struct {
	log      zerolog.Logger
	hub      *WebSocketHub
	counters *DailyCounters
}

// NewActivityLog creates an activity sink. The hub may be nil when the
// websocket surface is disabled.
func NewActivityLog(log zerolog.Logger, hub *WebSocketHub, counters *DailyCounters) *ActivityLog {
	return &ActivityLog{
		log:      log.With().Str("component", "activity").Logger(),
		hub:      hub,
		counters: counters,
	}
}

// Record logs one sync event and publishes it to activity subscribers.
func (a *ActivityLog) Record(ctx context.Context, action, deviceID, dataType string, recordCount int) {
	evt := observability.WithTrace(ctx, a.log).Info().
		Str("action", action).
		Str("deviceId", deviceID).
		Int("recordCount", recordCount)
	if dataType != "" {
		evt = evt.Str("dataType", dataType)
	}
	evt.Msg("sync activity")

	switch action {
	case ActionIngest:
		a.counters.AddIngested(recordCount)
	case ActionRead:
		a.counters.AddServed(recordCount)
	case ActionSessionStart:
		a.counters.IncSessions()
	}

	if a.hub != nil {
		a.hub.BroadcastToTopic(TopicActivity, WSMessage{
			Type: WSTypeActivity,
			Payload: ActivityPayload{
				Action:      action,
				DeviceID:    deviceID,
				DataType:    dataType,
				RecordCount: recordCount,
				At:          time.Now().UnixMilli(),
			},
		})
	}
}

// Counters exposes the daily tallies for the analytics overview.
func (a *ActivityLog) Counters() *DailyCounters {
	return a.counters
}
