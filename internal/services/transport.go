package services

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
)

// ErrNotImplemented reports a transport whose hardware path has no server
// side implementation yet.
var ErrNotImplemented = errors.New("transport not implemented")

// SyncTransport is one channel a device can sync over. The HTTP/websocket
// path is always on; additional transports register here and report their
// own lifecycle.
type SyncTransport interface {
	Kind() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Test probes whether the transport could accept a connection right
	// now without side effects.
	Test(ctx context.Context) error
}

// WifiTransport represents the direct HTTP ingestion path. It carries no
// resources of its own; Start and Stop just track state so the transport
// listing reflects reality.
type WifiTransport struct {
	mu      sync.Mutex
	running bool
}

func NewWifiTransport() *WifiTransport {
	return &WifiTransport{}
}

func (t *WifiTransport) Kind() string { return models.SyncKindWifi }

func (t *WifiTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	return nil
}

func (t *WifiTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	return nil
}

func (t *WifiTransport) Test(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return errors.New("wifi transport is not running")
	}
	return nil
}

// BluetoothTransport is a placeholder for a future BLE relay. Every method
// reports ErrNotImplemented so callers and the transport listing can show
// it as unavailable without special casing.
type BluetoothTransport struct{}

func NewBluetoothTransport() *BluetoothTransport {
	return &BluetoothTransport{}
}

func (t *BluetoothTransport) Kind() string { return models.SyncKindBluetooth }

func (t *BluetoothTransport) Start(ctx context.Context) error { return ErrNotImplemented }

func (t *BluetoothTransport) Stop(ctx context.Context) error { return ErrNotImplemented }

func (t *BluetoothTransport) Test(ctx context.Context) error { return ErrNotImplemented }

// TransportManager starts and stops the registered transports together and
// answers status queries.
type TransportManager struct {
	log        zerolog.Logger
	transports []SyncTransport
}

func NewTransportManager(log zerolog.Logger, transports ...SyncTransport) *TransportManager {
	return &TransportManager{
		log:        log.With().Str("component", "transports").Logger(),
		transports: transports,
	}
}

// StartAll brings up every transport that can start. Transports that are
// not implemented are logged and skipped, not treated as failures.
func (m *TransportManager) StartAll(ctx context.Context) {
	for _, t := range m.transports {
		if err := t.Start(ctx); err != nil {
			if errors.Is(err, ErrNotImplemented) {
				m.log.Info().Str("kind", t.Kind()).Msg("Transport not implemented, skipping")
				continue
			}
			m.log.Error().Err(err).Str("kind", t.Kind()).Msg("Failed to start transport")
			continue
		}
		m.log.Info().Str("kind", t.Kind()).Msg("Transport started")
	}
}

// StopAll shuts down every transport, logging failures without aborting.
func (m *TransportManager) StopAll(ctx context.Context) {
	for _, t := range m.transports {
		if err := t.Stop(ctx); err != nil && !errors.Is(err, ErrNotImplemented) {
			m.log.Error().Err(err).Str("kind", t.Kind()).Msg("Failed to stop transport")
		}
	}
}

// Statuses probes every transport and reports its current availability.
func (m *TransportManager) Statuses(ctx context.Context) []models.TransportStatus {
	statuses := make([]models.TransportStatus, 0, len(m.transports))
	for _, t := range m.transports {
		status := models.TransportStatus{Kind: t.Kind()}
		if err := t.Test(ctx); err != nil {
			status.Running = false
			status.Detail = err.Error()
		} else {
			status.Running = true
		}
		statuses = append(statuses, status)
	}
	return statuses
}
