package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/solvios/flashpool/internal/domain"
)

// defaultSnapshotTTL applies when the configured cache TTL is zero.
const defaultSnapshotTTL = 5 * time.Minute

// PoolCache implements domain.PoolCache using JSON-serialized snapshots.
//
// Key schema:
//
//	pool:snapshot:{poolID} - string value containing JSON
type PoolCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPoolCache creates a PoolCache backed by the given Client. Snapshots
// expire after ttl; pass zero to use the default.
func NewPoolCache(c *Client, ttl time.Duration) *PoolCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &PoolCache{rdb: c.Underlying(), ttl: ttl}
}

func snapshotKey(poolID string) string { return "pool:snapshot:" + poolID }

// SetSnapshot stores the latest snapshot for a pool.
func (pc *PoolCache) SetSnapshot(ctx context.Context, snap domain.PoolSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", snap.PoolID, err)
	}
	if err := pc.rdb.Set(ctx, snapshotKey(snap.PoolID), data, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", snap.PoolID, err)
	}
	return nil
}

// GetSnapshot retrieves the cached snapshot for a pool.
// It returns domain.ErrNotFound when the key does not exist.
func (pc *PoolCache) GetSnapshot(ctx context.Context, poolID string) (domain.PoolSnapshot, error) {
	data, err := pc.rdb.Get(ctx, snapshotKey(poolID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PoolSnapshot{}, domain.ErrNotFound
		}
		return domain.PoolSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", poolID, err)
	}

	var snap domain.PoolSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", poolID, err)
	}
	return snap, nil
}

// Invalidate removes a pool's cached snapshot.
func (pc *PoolCache) Invalidate(ctx context.Context, poolID string) error {
	if err := pc.rdb.Del(ctx, snapshotKey(poolID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot %s: %w", poolID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PoolCache = (*PoolCache)(nil)
