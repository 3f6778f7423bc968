package services

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/observability"
)

// MaintenanceStatus represents the current status of maintenance tasks
type MaintenanceStatus struct {
	Running          bool      `json:"running"`
	Enabled          bool      `json:"enabled"`
	LastRun          time.Time `json:"lastRun,omitempty"`
	LastRunDuration  string    `json:"lastRunDuration,omitempty"`
	DevicesOnline    int       `json:"devicesOnline"`
	EvictionsTotal   int64     `json:"evictionsTotal"`
	NextScheduledRun time.Time `json:"nextScheduledRun,omitempty"`
}

// MaintenanceService runs the background sweeps that keep advisory state
// honest: expiring stale presence entries, rolling the daily activity
// counters past midnight, and refreshing the connected-devices gauge.
// Everything here is timer-driven and independent of request handling.
type MaintenanceService struct {
	log      zerolog.Logger
	presence *PresenceRegistry
	counters *DailyCounters
	metrics  *observability.SyncMetrics
	interval time.Duration

	mu       sync.RWMutex
	enabled  bool
	running  bool
	stopChan chan struct{}
	status   MaintenanceStatus
	ticker   *time.Ticker
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(
	log zerolog.Logger,
	presence *PresenceRegistry,
	counters *DailyCounters,
	metrics *observability.SyncMetrics,
	interval time.Duration,
) *MaintenanceService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MaintenanceService{
		log:      log.With().Str("component", "maintenance").Logger(),
		presence: presence,
		counters: counters,
		metrics:  metrics,
		interval: interval,
		stopChan: make(chan struct{}),
		enabled:  true,
		status: MaintenanceStatus{
			Enabled: true,
		},
	}
}

// Start begins the background maintenance loop
func (s *MaintenanceService) Start() {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return // Already started
	}
	s.enabled = true
	s.status.Enabled = true
	s.stopChan = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)
	s.status.NextScheduledRun = time.Now().Add(s.interval)
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.interval).Msg("Maintenance service started")

	// Run immediately on startup
	go s.runMaintenance()

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				s.status.NextScheduledRun = time.Now().Add(s.interval)
				s.mu.Unlock()
				s.runMaintenance()
			case <-s.stopChan:
				s.mu.Lock()
				s.ticker.Stop()
				s.ticker = nil
				s.mu.Unlock()
				s.log.Info().Msg("Maintenance service stopped")
				return
			}
		}
	}()
}

// Stop stops the maintenance service
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return // Already stopped
	}

	s.enabled = false
	s.status.Enabled = false
	close(s.stopChan)
}

// IsEnabled returns whether the maintenance service is enabled
func (s *MaintenanceService) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// GetStatus returns the current maintenance status
func (s *MaintenanceService) GetStatus() MaintenanceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RunNow triggers an immediate maintenance run
func (s *MaintenanceService) RunNow() {
	go s.runMaintenance()
}

// runMaintenance performs all maintenance tasks
func (s *MaintenanceService) runMaintenance() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Debug().Msg("Maintenance already running, skipping")
		return
	}
	s.running = true
	s.status.Running = true
	s.mu.Unlock()

	startTime := time.Now()

	s.presence.EvictExpired()
	s.counters.Roll()

	online := s.presence.OnlineCount()
	s.metrics.SetConnectedDevices(online)

	duration := time.Since(startTime)

	s.mu.Lock()
	s.running = false
	s.status.Running = false
	s.status.LastRun = startTime
	s.status.LastRunDuration = duration.Round(time.Millisecond).String()
	s.status.DevicesOnline = online
	s.status.EvictionsTotal = s.presence.EvictedTotal()
	s.mu.Unlock()

	s.log.Debug().
		Int("devices_online", online).
		Dur("duration", duration).
		Msg("Maintenance sweep completed")
}
