package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/service"
)

// OpportunityFinder searches the registered routes of a pair for the best
// profitable two-leg cycle.
type OpportunityFinder interface {
	FindOpportunity(ctx context.Context, pair domain.AssetPair, maxAmount, minProfit uint64) (domain.Opportunity, bool, error)
}

// Submitter runs a found opportunity through the full borrow, swap, repay
// cycle.
type Submitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (domain.ArbExecution, error)
}

// PoolPicker resolves which pool funds a borrow of the given asset.
type PoolPicker interface {
	PoolForAsset(asset string) (string, bool)
}

// OpportunityScanner sweeps the configured pairs for profitable cycles and,
// when auto-execution is enabled, submits them immediately. Found
// opportunities are always logged so operators can act on them even when
// auto-execution is off.
type OpportunityScanner struct {
	finder      OpportunityFinder
	submitter   Submitter
	pools       PoolPicker
	pairs       []domain.AssetPair
	autoExecute bool
	logger      *slog.Logger
}

// NewOpportunityScanner creates a new OpportunityScanner. submitter and pools
// may be nil when auto-execution is disabled.
func NewOpportunityScanner(
	finder OpportunityFinder,
	submitter Submitter,
	pools PoolPicker,
	pairs []domain.AssetPair,
	autoExecute bool,
	logger *slog.Logger,
) *OpportunityScanner {
	return &OpportunityScanner{
		finder:      finder,
		submitter:   submitter,
		pools:       pools,
		pairs:       pairs,
		autoExecute: autoExecute,
		logger:      logger,
	}
}

// Run executes a single sweep over every configured pair. A failing pair is
// logged and skipped so one bad venue cannot starve the rest of the sweep.
func (s *OpportunityScanner) Run(ctx context.Context) {
	for _, pair := range s.pairs {
		if ctx.Err() != nil {
			return
		}

		// Zero limits inherit the configured arbitrage parameters.
		opp, found, err := s.finder.FindOpportunity(ctx, pair, 0, 0)
		if err != nil {
			s.logger.Warn("opportunity scan failed",
				slog.String("pair", pair.Key()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !found {
			continue
		}

		s.logger.Info("opportunity found",
			slog.String("pair", pair.Key()),
			slog.Uint64("amount", opp.Amount),
			slog.Uint64("expected_profit", opp.ExpectedProfit),
			slog.String("venue_a", string(opp.RouteA.Venue)),
			slog.String("venue_b", string(opp.RouteB.Venue)),
		)

		if !s.autoExecute || s.submitter == nil {
			continue
		}
		s.execute(ctx, opp)
	}
}

func (s *OpportunityScanner) execute(ctx context.Context, opp domain.Opportunity) {
	poolID, ok := s.pools.PoolForAsset(opp.RouteA.TokenA)
	if !ok {
		s.logger.Warn("no active pool for asset", slog.String("asset", opp.RouteA.TokenA))
		return
	}

	// Zero MinProfit and Deadline inherit the configured defaults.
	exec, err := s.submitter.Submit(ctx, service.SubmitRequest{
		Pool:   poolID,
		RouteA: opp.RouteA,
		RouteB: opp.RouteB,
		Amount: opp.Amount,
	})
	if err != nil && exec.ID == "" {
		s.logger.Warn("auto-execute failed",
			slog.String("pool", poolID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("auto-executed opportunity",
		slog.String("pool", poolID),
		slog.String("execution_id", exec.ID),
		slog.String("status", string(exec.Status)),
		slog.Uint64("profit", exec.Profit),
	)
}

// RunLoop runs the scanner on a repeating interval until the context is
// cancelled.
func (s *OpportunityScanner) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	s.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("opportunity scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}
