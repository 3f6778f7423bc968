package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// PresenceRegistry tracks which devices count as connected. Every API touch
// refreshes a TTL entry; entries that outlive the TTL are evicted by the
// maintenance sweep, so a silent device drops offline without an explicit
// disconnect.
type PresenceRegistry struct {
	cache   *ttlcache.Cache[string, time.Time]
	evicted atomic.Int64
}

// NewPresenceRegistry creates a registry whose entries live for ttl after
// the device's last touch.
func NewPresenceRegistry(ttl time.Duration) *PresenceRegistry {
	p := &PresenceRegistry{
		cache: ttlcache.New[string, time.Time](
			ttlcache.WithTTL[string, time.Time](ttl),
		),
	}
	p.cache.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, _ *ttlcache.Item[string, time.Time]) {
		p.evicted.Add(1)
	})
	return p
}

// MarkSeen refreshes the device's presence window.
func (p *PresenceRegistry) MarkSeen(deviceID string) {
	if deviceID == "" {
		return
	}
	p.cache.Set(deviceID, time.Now().UTC(), ttlcache.DefaultTTL)
}

// Online reports whether the device touched the server within the TTL.
// Checking presence does not refresh it.
func (p *PresenceRegistry) Online(deviceID string) bool {
	item := p.cache.Get(deviceID, ttlcache.WithDisableTouchOnHit[string, time.Time]())
	return item != nil && !item.IsExpired()
}

// OnlineCount counts devices currently inside their presence window.
func (p *PresenceRegistry) OnlineCount() int {
	count := 0
	for _, item := range p.cache.Items() {
		if !item.IsExpired() {
			count++
		}
	}
	return count
}

// EvictExpired drops entries past their TTL. Called by the maintenance
// sweep.
func (p *PresenceRegistry) EvictExpired() {
	p.cache.DeleteExpired()
}

// EvictedTotal reports how many entries have been evicted since startup.
func (p *PresenceRegistry) EvictedTotal() int64 {
	return p.evicted.Load()
}
