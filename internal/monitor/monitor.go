package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages the background goroutines: the event relay, health
// checking, opportunity scanning, and cold-storage archival.
type Orchestrator struct {
	relay           *EventRelay
	health          *HealthChecker
	scanner         *OpportunityScanner
	archiver        *ArchiveRunner
	healthInterval  time.Duration
	scanInterval    time.Duration
	archiveInterval time.Duration
	logger          *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. Any component may be nil and
// any interval non-positive; such loops are skipped, so one constructor
// serves every run mode.
func NewOrchestrator(
	relay *EventRelay,
	health *HealthChecker,
	scanner *OpportunityScanner,
	archiver *ArchiveRunner,
	healthInterval time.Duration,
	scanInterval time.Duration,
	archiveInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		relay:           relay,
		health:          health,
		scanner:         scanner,
		archiver:        archiver,
		healthInterval:  healthInterval,
		scanInterval:    scanInterval,
		archiveInterval: archiveInterval,
		logger:          logger,
	}
}

// Run starts the configured loops as concurrent goroutines using an
// errgroup. Each goroutine respects ctx cancellation. If any goroutine
// returns a non-context error, the errgroup cancels the shared context and
// Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("monitor starting",
		slog.Duration("health_interval", o.healthInterval),
		slog.Duration("scan_interval", o.scanInterval),
		slog.Duration("archive_interval", o.archiveInterval),
	)

	g, ctx := errgroup.WithContext(ctx)
	loops := 0

	if o.relay != nil {
		loops++
		g.Go(func() error {
			o.logger.Info("starting event relay")
			// A closed feed returns nil; only real failures stop the group.
			err := o.relay.Run(ctx)
			if ctx.Err() != nil || err == nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("event relay: %w", err)
		})
	}

	if o.health != nil && o.healthInterval > 0 {
		loops++
		g.Go(func() error {
			o.logger.Info("starting health check loop")
			err := o.health.RunLoop(ctx, o.healthInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("health checker: %w", err)
		})
	}

	if o.scanner != nil && o.scanInterval > 0 {
		loops++
		g.Go(func() error {
			o.logger.Info("starting opportunity scan loop")
			err := o.scanner.RunLoop(ctx, o.scanInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("opportunity scanner: %w", err)
		})
	}

	if o.archiver != nil && o.archiveInterval > 0 {
		loops++
		g.Go(func() error {
			o.logger.Info("starting archive loop")
			err := o.archiver.RunLoop(ctx, o.archiveInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if loops == 0 {
		o.logger.Warn("monitor has no loops configured")
		return nil
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("monitor stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("monitor stopped cleanly")
	return nil
}
