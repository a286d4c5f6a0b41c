package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solvios/flashpool/internal/crypto"
	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/engine"
	"github.com/solvios/flashpool/internal/venue"
)

// ArbParams holds the tunable limits for arbitrage submission. Zero
// MinProfit and Deadline on a request inherit these values; MaxLoanAmount
// caps every loan when non-zero.
type ArbParams struct {
	MaxLoanAmount uint64
	MinProfit     uint64
	Deadline      time.Duration
	LockTTL       time.Duration
}

// SubmitRequest describes one arbitrage submission.
type SubmitRequest struct {
	Pool      string
	RouteA    domain.Route
	RouteB    domain.Route
	Amount    uint64
	MinProfit uint64
	Deadline  time.Time
}

// ArbService runs arbitrage through the engine and keeps the persisted
// execution ledger. Submissions against one pool serialize through a
// distributed lock, and every persisted row carries the operator signature
// over its terminal fields.
type ArbService struct {
	pools      *PoolService
	engine     *engine.Engine
	routes     *venue.Registry
	routeCache domain.RouteCache
	executions domain.ExecutionStore
	locks      domain.LockManager
	signer     *crypto.Signer
	params     ArbParams
	logger     *slog.Logger
}

// NewArbService creates an ArbService with all required dependencies.
// signer may be nil when no operator key is loaded; Submit then rejects
// but the read paths still work.
func NewArbService(
	pools *PoolService,
	eng *engine.Engine,
	routes *venue.Registry,
	routeCache domain.RouteCache,
	executions domain.ExecutionStore,
	locks domain.LockManager,
	signer *crypto.Signer,
	params ArbParams,
	logger *slog.Logger,
) *ArbService {
	return &ArbService{
		pools:      pools,
		engine:     eng,
		routes:     routes,
		routeCache: routeCache,
		executions: executions,
		locks:      locks,
		signer:     signer,
		params:     params,
		logger:     logger,
	}
}

// Submit runs one arbitrage against the pool named in req and persists the
// outcome. Every terminal outcome becomes a ledger row: settled and
// below-target trades from the engine result, rejections with the cause and
// no pool state change. A rejected submission returns the persisted record
// together with the rejection cause so callers can tell the two apart.
func (s *ArbService) Submit(ctx context.Context, req SubmitRequest) (domain.ArbExecution, error) {
	if s.signer == nil {
		return domain.ArbExecution{}, fmt.Errorf("arb_service: no operator key loaded: %w", domain.ErrSigningFailed)
	}
	p, err := s.pools.Get(req.Pool)
	if err != nil {
		return domain.ArbExecution{}, err
	}
	if req.Amount == 0 {
		return domain.ArbExecution{}, fmt.Errorf("arb_service: zero loan amount: %w", domain.ErrInvalidAmount)
	}
	if s.params.MaxLoanAmount > 0 && req.Amount > s.params.MaxLoanAmount {
		return domain.ArbExecution{}, fmt.Errorf("arb_service: loan %d over limit %d: %w",
			req.Amount, s.params.MaxLoanAmount, domain.ErrInvalidAmount)
	}
	if err := s.pools.CheckLoan(p.Asset(), req.Amount); err != nil {
		return domain.ArbExecution{}, fmt.Errorf("arb_service: submit: %w", err)
	}

	minProfit := req.MinProfit
	if minProfit == 0 {
		minProfit = s.params.MinProfit
	}
	deadline := req.Deadline
	if deadline.IsZero() && s.params.Deadline > 0 {
		deadline = time.Now().Add(s.params.Deadline)
	}

	unlock, err := s.locks.Acquire(ctx, poolLockKey(req.Pool), s.params.LockTTL)
	if err != nil {
		return domain.ArbExecution{}, fmt.Errorf("arb_service: lock pool %q: %w", req.Pool, err)
	}
	defer unlock()

	res, execErr := s.engine.ExecuteArbitrage(ctx, p, req.RouteA, req.RouteB, req.Amount, minProfit, deadline)

	var exec domain.ArbExecution
	if execErr != nil {
		exec = s.buildExecution(req.Pool, req.RouteA, req.RouteB, req.Amount, nil, execErr.Error())
		s.logger.WarnContext(ctx, "arb_service: submission rejected",
			slog.String("pool", req.Pool),
			slog.String("execution", exec.ID),
			slog.String("reason", exec.Reason),
		)
	} else {
		exec = s.buildExecution(req.Pool, req.RouteA, req.RouteB, req.Amount, &res, "")
		s.logger.InfoContext(ctx, "arb_service: submission settled",
			slog.String("pool", req.Pool),
			slog.String("execution", exec.ID),
			slog.String("status", string(exec.Status)),
			slog.Uint64("profit", exec.Profit),
		)
	}
	s.signExecution(ctx, &exec)
	if err := s.executions.Insert(ctx, exec); err != nil {
		return domain.ArbExecution{}, fmt.Errorf("arb_service: insert execution: %w", err)
	}

	if execErr != nil {
		return exec, fmt.Errorf("arb_service: execute: %w", execErr)
	}
	return exec, nil
}

// SubmitBatch settles opportunities sequentially against one pool under a
// single lock, persisting one ledger row per entry. MinTotalProfit zero
// inherits the configured MinProfit.
func (s *ArbService) SubmitBatch(ctx context.Context, poolID string, opps []domain.Opportunity, minTotalProfit uint64) (domain.BatchResult, error) {
	if s.signer == nil {
		return domain.BatchResult{}, fmt.Errorf("arb_service: no operator key loaded: %w", domain.ErrSigningFailed)
	}
	p, err := s.pools.Get(poolID)
	if err != nil {
		return domain.BatchResult{}, err
	}
	if minTotalProfit == 0 {
		minTotalProfit = s.params.MinProfit
	}

	unlock, err := s.locks.Acquire(ctx, poolLockKey(poolID), s.params.LockTTL)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("arb_service: lock pool %q: %w", poolID, err)
	}
	defer unlock()

	batch := s.engine.ExecuteBatch(ctx, p, opps, minTotalProfit)
	for _, entry := range batch.Entries {
		exec := s.buildExecution(poolID, entry.Opportunity.RouteA, entry.Opportunity.RouteB,
			entry.Opportunity.Amount, entry.Result, entry.Err)
		s.signExecution(ctx, &exec)
		if err := s.executions.Insert(ctx, exec); err != nil {
			return batch, fmt.Errorf("arb_service: insert batch execution: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "arb_service: batch recorded",
		slog.String("pool", poolID),
		slog.Int("trades", len(batch.Entries)),
		slog.Uint64("total_profit", batch.TotalProfit),
		slog.Bool("met_target", batch.MetTarget),
	)
	return batch, nil
}

// FindOpportunity scans the known routes for pair in both directions and
// returns the best quoted two-leg cycle. Zero maxAmount and minProfit
// inherit the configured limits.
func (s *ArbService) FindOpportunity(ctx context.Context, pair domain.AssetPair, maxAmount, minProfit uint64) (domain.Opportunity, bool, error) {
	if maxAmount == 0 {
		maxAmount = s.params.MaxLoanAmount
	}
	if minProfit == 0 {
		minProfit = s.params.MinProfit
	}

	routes := s.routesFor(ctx, pair)
	routes = append(routes, s.routesFor(ctx, domain.AssetPair{TokenA: pair.TokenB, TokenB: pair.TokenA})...)
	if len(routes) == 0 {
		return domain.Opportunity{}, false, nil
	}

	opp, found, err := s.engine.ScanOpportunity(ctx, routes, maxAmount, minProfit)
	if err != nil {
		return domain.Opportunity{}, false, fmt.Errorf("arb_service: scan %s: %w", pair, err)
	}
	if found {
		s.logger.InfoContext(ctx, "arb_service: opportunity found",
			slog.String("pair", pair.Key()),
			slog.Uint64("amount", opp.Amount),
			slog.Uint64("expected_profit", opp.ExpectedProfit),
		)
	}
	return opp, found, nil
}

// AddRoute registers a venue route and refreshes the cached list for its
// pair.
func (s *ArbService) AddRoute(ctx context.Context, route domain.Route) error {
	if err := route.Validate(); err != nil {
		return fmt.Errorf("arb_service: add route: %w", err)
	}
	pair := route.Pair()
	s.routes.AddRoute(pair, route)
	if err := s.routeCache.SetRoutes(ctx, pair, s.routes.Routes(pair)); err != nil {
		s.logger.WarnContext(ctx, "arb_service: route cache refresh failed",
			slog.String("pair", pair.Key()),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "arb_service: route added",
		slog.String("pair", pair.Key()),
		slog.String("route", route.String()),
	)
	return nil
}

// Routes returns the registry's route list for pair.
func (s *ArbService) Routes(pair domain.AssetPair) []domain.Route {
	return s.routes.Routes(pair)
}

// Pairs returns the known pair keys in sorted order.
func (s *ArbService) Pairs() []string {
	return s.routes.Pairs()
}

// WarmRouteCache pushes the registry's route list for every known pair into
// the Redis cache. The monitor calls this at startup and after registry
// changes.
func (s *ArbService) WarmRouteCache(ctx context.Context) {
	for _, key := range s.routes.Pairs() {
		tokens := strings.SplitN(key, "/", 2)
		if len(tokens) != 2 {
			continue
		}
		pair := domain.AssetPair{TokenA: tokens[0], TokenB: tokens[1]}
		if err := s.routeCache.SetRoutes(ctx, pair, s.routes.Routes(pair)); err != nil {
			s.logger.WarnContext(ctx, "arb_service: route cache warm failed",
				slog.String("pair", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

// GetExecution returns the persisted execution with the given id.
func (s *ArbService) GetExecution(ctx context.Context, id string) (domain.ArbExecution, error) {
	exec, err := s.executions.GetByID(ctx, id)
	if err != nil {
		return domain.ArbExecution{}, fmt.Errorf("arb_service: get execution %q: %w", id, err)
	}
	return exec, nil
}

// ListRecent returns the most recent executions up to limit.
func (s *ArbService) ListRecent(ctx context.Context, limit int) ([]domain.ArbExecution, error) {
	execs, err := s.executions.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("arb_service: list recent: %w", err)
	}
	return execs, nil
}

// ListByPool returns executions against poolID filtered by opts.
func (s *ArbService) ListByPool(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.ArbExecution, error) {
	execs, err := s.executions.ListByPool(ctx, poolID, opts)
	if err != nil {
		return nil, fmt.Errorf("arb_service: list by pool %q: %w", poolID, err)
	}
	return execs, nil
}

// TotalProfit sums realized profit over executions created since the given
// time.
func (s *ArbService) TotalProfit(ctx context.Context, since time.Time) (uint64, error) {
	total, err := s.executions.SumProfit(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("arb_service: total profit: %w", err)
	}
	return total, nil
}

// VerifyExecution reports whether the stored signature over execution id
// recovers to the borrower identity recorded on the row. Unsigned rows and
// malformed signatures verify false without error.
func (s *ArbService) VerifyExecution(ctx context.Context, id string) (bool, error) {
	exec, err := s.executions.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("arb_service: get execution %q: %w", id, err)
	}
	if exec.Signature == "" {
		return false, nil
	}
	addr, err := crypto.RecoverSigner(executionPayload(exec), exec.Signature)
	if err != nil {
		return false, nil
	}
	return strings.EqualFold(addr.Hex(), exec.Borrower.String()), nil
}

// buildExecution maps one engine outcome onto a ledger row. res nil means
// the submission was rejected and reason carries the cause.
func (s *ArbService) buildExecution(poolID string, routeA, routeB domain.Route, amount uint64, res *domain.ArbResult, reason string) domain.ArbExecution {
	exec := domain.ArbExecution{
		ID:        uuid.NewString(),
		Pool:      poolID,
		TokenA:    routeA.TokenA,
		TokenB:    routeA.TokenB,
		RouteA:    routeA.String(),
		RouteB:    routeB.String(),
		AmountIn:  amount,
		Borrower:  s.engine.Operator(),
		CreatedAt: time.Now().UTC(),
	}
	switch {
	case res == nil:
		exec.Status = domain.ExecutionRejected
		exec.Reason = reason
	case res.Profitable:
		exec.Status = domain.ExecutionSettled
		exec.Fee = res.Fee
		exec.Expected = res.Expected
		exec.Profit = res.Profit
	default:
		exec.Status = domain.ExecutionBelowTarget
		exec.Fee = res.Fee
		exec.Expected = res.Expected
		exec.Reason = res.Reason
	}
	return exec
}

// signExecution attaches the operator signature. The trade is already
// settled when signing runs, so a failure downgrades to a warning and the
// row persists unsigned.
func (s *ArbService) signExecution(ctx context.Context, exec *domain.ArbExecution) {
	if s.signer == nil {
		return
	}
	sig, err := s.signer.SignExecution(executionPayload(*exec))
	if err != nil {
		s.logger.WarnContext(ctx, "arb_service: execution signing failed",
			slog.String("execution", exec.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	exec.Signature = sig
}

// routesFor reads the route list for pair cache-first, falling back to the
// registry and backfilling the cache. Empty lists are cached too so missing
// pairs do not hit the registry every scan.
func (s *ArbService) routesFor(ctx context.Context, pair domain.AssetPair) []domain.Route {
	routes, err := s.routeCache.GetRoutes(ctx, pair)
	if err == nil {
		return routes
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "arb_service: route cache read failed",
			slog.String("pair", pair.Key()),
			slog.String("error", err.Error()),
		)
	}
	routes = s.routes.Routes(pair)
	if cacheErr := s.routeCache.SetRoutes(ctx, pair, routes); cacheErr != nil {
		s.logger.WarnContext(ctx, "arb_service: route cache set failed",
			slog.String("pair", pair.Key()),
			slog.String("error", cacheErr.Error()),
		)
	}
	return routes
}

// executionPayload maps a ledger row onto the signed field set.
func executionPayload(exec domain.ArbExecution) crypto.ExecutionPayload {
	return crypto.ExecutionPayload{
		ID:        exec.ID,
		Pool:      exec.Pool,
		RouteA:    exec.RouteA,
		RouteB:    exec.RouteB,
		AmountIn:  exec.AmountIn,
		Fee:       exec.Fee,
		Profit:    exec.Profit,
		CreatedAt: exec.CreatedAt.Unix(),
	}
}

func poolLockKey(poolID string) string { return "pool:" + poolID }
