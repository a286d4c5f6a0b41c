package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/engine"
	"github.com/solvios/flashpool/internal/notify"
)

// PoolSnapshotter captures a point-in-time snapshot of every registered pool.
type PoolSnapshotter interface {
	SnapshotAll(ctx context.Context) []domain.PoolSnapshot
}

// Alerter fans a titled message out to the configured notification channels.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// HealthChecker polls pool health on an interval and alerts on transitions.
// A pool alerts once when it turns unhealthy and once again when it recovers;
// steady states stay quiet. Snapshots taken during the pass are persisted by
// the pool service, so the health loop doubles as the history recorder.
type HealthChecker struct {
	pools   PoolSnapshotter
	alerter Alerter
	logger  *slog.Logger

	lastHealthy map[string]bool
}

// NewHealthChecker creates a new HealthChecker. alerter may be nil, in which
// case transitions are only logged.
func NewHealthChecker(pools PoolSnapshotter, alerter Alerter, logger *slog.Logger) *HealthChecker {
	return &HealthChecker{
		pools:       pools,
		alerter:     alerter,
		logger:      logger,
		lastHealthy: make(map[string]bool),
	}
}

// Run executes a single health pass over every pool.
func (c *HealthChecker) Run(ctx context.Context) {
	for _, snap := range c.pools.SnapshotAll(ctx) {
		health := engine.HealthFromSnapshot(snap)
		was, seen := c.lastHealthy[health.PoolID]
		c.lastHealthy[health.PoolID] = health.Healthy

		if !health.Healthy {
			c.logger.Warn("pool unhealthy",
				slog.String("pool", health.PoolID),
				slog.Uint64("utilization_pct", health.UtilizationPct),
				slog.Uint64("recovery_pct", health.RecoveryPct),
			)
			if seen && !was {
				continue // already alerted
			}
			c.alert(ctx, fmt.Sprintf("Pool %s unhealthy", health.PoolID), health)
			continue
		}

		if seen && !was {
			c.logger.Info("pool recovered", slog.String("pool", health.PoolID))
			c.alert(ctx, fmt.Sprintf("Pool %s recovered", health.PoolID), health)
		}
	}
}

func (c *HealthChecker) alert(ctx context.Context, title string, health domain.PoolHealth) {
	if c.alerter == nil {
		return
	}
	message := fmt.Sprintf("utilization: %d%%\nrecovery: %d%%", health.UtilizationPct, health.RecoveryPct)
	if err := c.alerter.Notify(ctx, notify.EventPoolUnhealthy, title, message); err != nil {
		c.logger.Warn("health alert failed",
			slog.String("pool", health.PoolID),
			slog.String("error", err.Error()),
		)
	}
}

// RunLoop runs the health checker on a repeating interval until the context
// is cancelled.
func (c *HealthChecker) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	c.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("health check loop stopped")
			return ctx.Err()
		case <-ticker.C:
			c.Run(ctx)
		}
	}
}
