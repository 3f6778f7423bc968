package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/server/internal/models"
)

func TestWifiTransport(t *testing.T) {
	ctx := context.Background()
	transport := NewWifiTransport()

	assert.Equal(t, models.SyncKindWifi, transport.Kind())
	assert.Error(t, transport.Test(ctx))

	require.NoError(t, transport.Start(ctx))
	assert.NoError(t, transport.Test(ctx))

	require.NoError(t, transport.Stop(ctx))
	assert.Error(t, transport.Test(ctx))
}

func TestBluetoothTransport(t *testing.T) {
	ctx := context.Background()
	transport := NewBluetoothTransport()

	assert.Equal(t, models.SyncKindBluetooth, transport.Kind())
	assert.ErrorIs(t, transport.Start(ctx), ErrNotImplemented)
	assert.ErrorIs(t, transport.Stop(ctx), ErrNotImplemented)
	assert.ErrorIs(t, transport.Test(ctx), ErrNotImplemented)
}

func TestTransportManager_Statuses(t *testing.T) {
	ctx := context.Background()
	manager := NewTransportManager(zerolog.Nop(), NewWifiTransport(), NewBluetoothTransport())

	manager.StartAll(ctx)

	byKind := map[string]models.TransportStatus{}
	for _, status := range manager.Statuses(ctx) {
		byKind[status.Kind] = status
	}
	require.Len(t, byKind, 2)

	assert.True(t, byKind[models.SyncKindWifi].Running)
	assert.Empty(t, byKind[models.SyncKindWifi].Detail)
	assert.False(t, byKind[models.SyncKindBluetooth].Running)
	assert.Equal(t, ErrNotImplemented.Error(), byKind[models.SyncKindBluetooth].Detail)

	manager.StopAll(ctx)
	for _, status := range manager.Statuses(ctx) {
		assert.False(t, status.Running, status.Kind)
	}
}
