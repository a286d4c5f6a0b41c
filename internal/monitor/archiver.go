package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

// ArchiveRunner periodically copies recent executions and events to cold
// storage. Each run covers a trailing lookback window; overlapping windows
// are safe because archive objects are keyed by capture date.
type ArchiveRunner struct {
	archiver domain.Archiver
	lookback time.Duration
	logger   *slog.Logger
}

// NewArchiveRunner creates a new ArchiveRunner. A non-positive lookback
// defaults to 24 hours.
func NewArchiveRunner(archiver domain.Archiver, lookback time.Duration, logger *slog.Logger) *ArchiveRunner {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &ArchiveRunner{
		archiver: archiver,
		lookback: lookback,
		logger:   logger,
	}
}

// Run executes a single archive pass over the trailing lookback window.
func (a *ArchiveRunner) Run(ctx context.Context) error {
	since := time.Now().UTC().Add(-a.lookback)

	execs, err := a.archiver.ArchiveExecutions(ctx, since)
	if err != nil {
		return fmt.Errorf("archiving executions since %s: %w", since.Format(time.RFC3339), err)
	}

	events, err := a.archiver.ArchiveEvents(ctx, since)
	if err != nil {
		return fmt.Errorf("archiving events since %s: %w", since.Format(time.RFC3339), err)
	}

	a.logger.Info("archive pass complete",
		slog.Time("since", since),
		slog.Int64("executions", execs),
		slog.Int64("events", events),
	)
	return nil
}

// RunLoop runs the archiver on a repeating interval until the context is
// cancelled.
func (a *ArchiveRunner) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := a.Run(ctx); err != nil {
		a.logger.Error("archive pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archive loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
