package cacheredis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/programme-lv/scoreboard/scoreboard"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares scoreboard snapshots between server replicas.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache prefixes every key with prefix, which may be empty.
func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

// Connect dials addr and pings it once.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 100,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (scoreboard.Snapshot, bool, error) {
	val, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return scoreboard.Snapshot{}, false, nil
	}
	if err != nil {
		return scoreboard.Snapshot{}, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var snap scoreboard.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return scoreboard.Snapshot{}, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return snap, true, nil
}

// Set stores snap under key. A non-positive ttl keeps it until evicted.
func (r *RedisCache) Set(ctx context.Context, key string, snap scoreboard.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rdb.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Purge drops every cached snapshot under the prefix.
func (r *RedisCache) Purge(ctx context.Context) (int, error) {
	keys, err := r.rdb.Keys(ctx, r.prefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}
	return len(keys), nil
}
