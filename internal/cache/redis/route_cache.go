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

// RouteCache implements domain.RouteCache using JSON-serialized route lists
// keyed by directed pair.
//
// Key schema:
//
//	routes:{TOKEN_A}/{TOKEN_B} - string value containing a JSON array
type RouteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRouteCache creates a RouteCache backed by the given Client. Route lists
// expire after ttl; pass zero to use the default.
func NewRouteCache(c *Client, ttl time.Duration) *RouteCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &RouteCache{rdb: c.Underlying(), ttl: ttl}
}

func routeKey(pair domain.AssetPair) string { return "routes:" + pair.Key() }

// SetRoutes stores the route list for a directed pair. An empty list is
// stored as well, so negative lookups are also cached.
func (rc *RouteCache) SetRoutes(ctx context.Context, pair domain.AssetPair, routes []domain.Route) error {
	data, err := json.Marshal(routes)
	if err != nil {
		return fmt.Errorf("redis: marshal routes %s: %w", pair, err)
	}
	if err := rc.rdb.Set(ctx, routeKey(pair), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set routes %s: %w", pair, err)
	}
	return nil
}

// GetRoutes retrieves the cached route list for a directed pair.
// It returns domain.ErrNotFound when the pair has not been cached.
func (rc *RouteCache) GetRoutes(ctx context.Context, pair domain.AssetPair) ([]domain.Route, error) {
	data, err := rc.rdb.Get(ctx, routeKey(pair)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get routes %s: %w", pair, err)
	}

	var routes []domain.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("redis: unmarshal routes %s: %w", pair, err)
	}
	return routes, nil
}

// Invalidate removes the cached route list for a directed pair.
func (rc *RouteCache) Invalidate(ctx context.Context, pair domain.AssetPair) error {
	if err := rc.rdb.Del(ctx, routeKey(pair)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate routes %s: %w", pair, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RouteCache = (*RouteCache)(nil)
