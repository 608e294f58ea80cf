package cachemem

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/programme-lv/scoreboard/scoreboard"
)

// MemCache keeps scoreboard snapshots in process memory.
type MemCache struct {
	cache *cache.Cache
}

// NewMemCache creates a cache whose expired snapshots are purged every cleanupInterval.
func NewMemCache(cleanupInterval time.Duration) *MemCache {
	return &MemCache{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

// Get returns a copy of the stored snapshot.
func (m *MemCache) Get(ctx context.Context, key string) (scoreboard.Snapshot, bool, error) {
	cached, found := m.cache.Get(key)
	if !found {
		return scoreboard.Snapshot{}, false, nil
	}
	snap, ok := cached.(scoreboard.Snapshot)
	if !ok {
		m.cache.Delete(key)
		return scoreboard.Snapshot{}, false, nil
	}
	return snap.Clone(), true, nil
}

// Set stores snap under key. A non-positive ttl keeps it until the process exits.
func (m *MemCache) Set(ctx context.Context, key string, snap scoreboard.Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	m.cache.Set(key, snap.Clone(), ttl)
	return nil
}
