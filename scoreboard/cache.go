package scoreboard

import (
	"context"
	"fmt"
	"time"

	"github.com/programme-lv/scoreboard/logger"
)

type CacheMode int

const (
	ModeContestant CacheMode = iota
	ModeAdmin
	ModeEvents
)

func (m CacheMode) String() string {
	switch m {
	case ModeContestant:
		return "contestant"
	case ModeAdmin:
		return "admin"
	case ModeEvents:
		return "events"
	}
	return "unknown"
}

func (m CacheMode) key(contestID int64) string {
	switch m {
	case ModeAdmin:
		return fmt.Sprintf("scoreboard-admin-%d", contestID)
	case ModeEvents:
		return fmt.Sprintf("scoreboard_events-%d", contestID)
	}
	return fmt.Sprintf("scoreboard-%d", contestID)
}

type CacheConfig struct {
	Enabled bool

	Scoreboard    bool
	ScoreboardTTL time.Duration

	AdminScoreboard    bool
	AdminScoreboardTTL time.Duration

	Events    bool
	EventsTTL time.Duration
}

// Cache stores finished scoreboards per contest. Contestant tables, admin
// tables and event feeds live in separate key namespaces.
type Cache struct {
	backend CacheBackend
	conf    CacheConfig
}

func NewCache(backend CacheBackend, conf CacheConfig) *Cache {
	return &Cache{backend: backend, conf: conf}
}

// Enabled reports whether mode may be served from and written to the cache.
func (c *Cache) Enabled(mode CacheMode) bool {
	if c == nil || c.backend == nil || !c.conf.Enabled {
		return false
	}
	switch mode {
	case ModeContestant:
		return c.conf.Scoreboard
	case ModeAdmin:
		return c.conf.AdminScoreboard
	case ModeEvents:
		return c.conf.Events
	}
	return false
}

func (c *Cache) TTL(mode CacheMode) time.Duration {
	switch mode {
	case ModeAdmin:
		return c.conf.AdminScoreboardTTL
	case ModeEvents:
		return c.conf.EventsTTL
	}
	return c.conf.ScoreboardTTL
}

// Get never fails: a backend error is logged and treated as a miss.
func (c *Cache) Get(ctx context.Context, mode CacheMode, contestID int64) (Snapshot, bool) {
	log := logger.FromContext(ctx)
	key := mode.key(contestID)

	snap, found, err := c.backend.Get(ctx, key)
	if err != nil {
		log.Warn("cache read failed", "key", key, "error", err)
		cacheLookups.WithLabelValues(mode.String(), "error").Inc()
		return Snapshot{}, false
	}
	if !found {
		log.Debug("cache miss", "key", key)
		cacheLookups.WithLabelValues(mode.String(), "miss").Inc()
		return Snapshot{}, false
	}
	cacheLookups.WithLabelValues(mode.String(), "hit").Inc()
	return snap, true
}

func (c *Cache) Put(ctx context.Context, mode CacheMode, contestID int64, snap Snapshot, ttl time.Duration) error {
	key := mode.key(contestID)
	if err := c.backend.Set(ctx, key, snap, ttl); err != nil {
		cacheStoreFailures.WithLabelValues(mode.String()).Inc()
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}
