package domain

import (
	"context"
	"time"
)

// PoolCache provides fast access to the latest pool snapshots.
type PoolCache interface {
	SetSnapshot(ctx context.Context, snap PoolSnapshot) error
	GetSnapshot(ctx context.Context, poolID string) (PoolSnapshot, error)
	Invalidate(ctx context.Context, poolID string) error
}

// RouteCache caches registry route lists per asset pair.
type RouteCache interface {
	SetRoutes(ctx context.Context, pair AssetPair, routes []Route) error
	GetRoutes(ctx context.Context, pair AssetPair) ([]Route, error)
	Invalidate(ctx context.Context, pair AssetPair) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking; submissions against one pool
// serialize through it.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventBus relays emitted events to external consumers over pub/sub and
// durable streams.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
