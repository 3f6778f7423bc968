package services

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenanceService(t *testing.T) {
	// The interval keeps the ticker out of the way; the sweeps under test
	// are triggered explicitly.
	newService := func(presence *PresenceRegistry) *MaintenanceService {
		return NewMaintenanceService(zerolog.Nop(), presence, NewDailyCounters(), nil, time.Hour)
	}

	swept := func(svc *MaintenanceService) func() bool {
		return func() bool {
			status := svc.GetStatus()
			return !status.Running && !status.LastRun.IsZero()
		}
	}

	t.Run("run now refreshes the status snapshot", func(t *testing.T) {
		presence := NewPresenceRegistry(time.Minute)
		presence.MarkSeen("watch-1")
		svc := newService(presence)

		svc.RunNow()
		require.Eventually(t, swept(svc), time.Second, 10*time.Millisecond)

		status := svc.GetStatus()
		assert.Equal(t, 1, status.DevicesOnline)
		assert.Equal(t, int64(0), status.EvictionsTotal)
		assert.NotEmpty(t, status.LastRunDuration)
	})

	t.Run("sweeps expired presence entries", func(t *testing.T) {
		presence := NewPresenceRegistry(20 * time.Millisecond)
		presence.MarkSeen("watch-1")
		presence.MarkSeen("phone-1")
		svc := newService(presence)

		time.Sleep(60 * time.Millisecond)
		svc.RunNow()
		require.Eventually(t, swept(svc), time.Second, 10*time.Millisecond)

		status := svc.GetStatus()
		assert.Equal(t, int64(2), status.EvictionsTotal)
		assert.Equal(t, 0, status.DevicesOnline)
	})

	t.Run("start and stop are idempotent", func(t *testing.T) {
		svc := newService(NewPresenceRegistry(time.Minute))

		svc.Start()
		svc.Start()
		assert.True(t, svc.IsEnabled())

		// Wait for the startup sweep so no goroutine outlives the test.
		require.Eventually(t, swept(svc), time.Second, 10*time.Millisecond)

		svc.Stop()
		svc.Stop()
		assert.False(t, svc.IsEnabled())
	})
}
