package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/pool"
	"github.com/solvios/flashpool/internal/venue"
)

// ReasonProfitTooLow is the failure-event reason emitted when a settled
// trade misses its profit threshold.
const ReasonProfitTooLow = "profit too low"

// Engine runs two-leg flash-loan arbitrage: borrow from a pool, swap out
// and back through two venue routes, repay principal plus fee in the same
// unit. Once the loan is taken the engine always settles; profit versus
// threshold only decides which event the unit emits.
type Engine struct {
	swapper  venue.Swapper
	operator domain.Identity
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Engine trading as operator through swapper.
func New(swapper venue.Swapper, operator domain.Identity, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		swapper:  swapper,
		operator: operator,
		logger:   logger.With(slog.String("component", "arb_engine")),
		now:      time.Now,
	}
}

// Operator returns the identity the engine borrows and repays as.
func (e *Engine) Operator() domain.Identity { return e.operator }

// ExecuteArbitrage runs one borrow/swap/swap/repay unit against p. A zero
// deadline disables the deadline check. The expected profit is priced
// through the swapper's quotes, so it can diverge from what the swaps
// then realize.
//
// Failures before the borrow return an error and touch nothing:
// ErrDeadlineExceeded when now is past deadline, ErrInvalidRoute when the
// legs don't form a cycle on the pool asset, ErrNoProfit when the expected
// profit is below minProfit. After the borrow the unit either settles in
// full or aborts with no state change and no events (ErrLoanNotRepaid when
// the proceeds cannot cover principal plus fee). A settled trade whose
// realized profit misses minProfit commits with an ArbitrageFailed event
// and reports zero profit; the pool keeps its fee either way.
func (e *Engine) ExecuteArbitrage(ctx context.Context, p *pool.Pool, routeA, routeB domain.Route, loanAmount, minProfit uint64, deadline time.Time) (domain.ArbResult, error) {
	if !deadline.IsZero() && e.now().After(deadline) {
		return domain.ArbResult{}, fmt.Errorf("engine: deadline %s passed: %w", deadline.Format(time.RFC3339), domain.ErrDeadlineExceeded)
	}
	if err := routeA.Validate(); err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: leg A: %w", err)
	}
	if err := routeB.Validate(); err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: leg B: %w", err)
	}
	if err := validateCycle(p.Asset(), routeA, routeB); err != nil {
		return domain.ArbResult{}, err
	}
	expected, err := e.quotedProfit(ctx, routeA, routeB, loanAmount)
	if err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: precheck quote: %w", err)
	}
	if expected < minProfit {
		return domain.ArbResult{}, fmt.Errorf("engine: expected profit %d below %d: %w", expected, minProfit, domain.ErrNoProfit)
	}

	unit := p.Begin()
	defer unit.Rollback()

	principal, ob, err := unit.Borrow(e.operator, loanAmount)
	if err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: borrow: %w", err)
	}
	due := ob.Due()

	outA, receiptA, err := e.swapper.Swap(ctx, routeA, principal)
	if err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: leg A swap: %w", err)
	}
	proceeds, receiptB, err := e.swapper.Swap(ctx, routeB, outA)
	if err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: leg B swap: %w", err)
	}
	if proceeds.Value() < due {
		return domain.ArbResult{}, fmt.Errorf("engine: proceeds %d short of %d due: %w", proceeds.Value(), due, domain.ErrLoanNotRepaid)
	}
	repayment, leftover, err := proceeds.Split(due)
	if err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: split repayment: %w", err)
	}
	if err := unit.Repay(e.operator, repayment, ob); err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: repay: %w", err)
	}

	realized := leftover.Value()
	now := e.now()
	res := domain.ArbResult{
		Pool:       p.ID(),
		LoanID:     ob.LoanID(),
		AmountIn:   loanAmount,
		Fee:        ob.Fee(),
		Expected:   expected,
		RouteA:     routeA,
		RouteB:     routeB,
		ReceiptA:   receiptA,
		ReceiptB:   receiptB,
		ExecutedAt: now,
	}
	var ev domain.Event
	if realized >= minProfit {
		res.Profit = realized
		res.Profitable = true
		ev = domain.NewArbitrageExecuted(p.ID(), routeA.TokenA, routeA.TokenB, loanAmount, realized, routeA, routeB, now)
	} else {
		res.Reason = ReasonProfitTooLow
		ev = domain.NewArbitrageFailed(p.ID(), ReasonProfitTooLow, now)
	}
	if err := unit.Emit(ev); err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: emit: %w", err)
	}
	if err := unit.Commit(); err != nil {
		return domain.ArbResult{}, fmt.Errorf("engine: commit: %w", err)
	}

	if res.Profitable {
		e.logger.Info("arbitrage settled",
			slog.String("pool", p.ID()),
			slog.String("loan_id", res.LoanID),
			slog.Uint64("amount_in", loanAmount),
			slog.Uint64("profit", realized))
	} else {
		e.logger.Warn("arbitrage settled below target",
			slog.String("pool", p.ID()),
			slog.String("loan_id", res.LoanID),
			slog.Uint64("realized", realized),
			slog.Uint64("min_profit", minProfit))
	}
	return res, nil
}

// ExecuteBatch settles opportunities sequentially against p, each as its
// own borrow/repay cycle with no per-trade threshold. Settled trades stay
// settled whatever the total: the result records every outcome, the profit
// sum, and whether that sum reached minTotalProfit. A rejected opportunity
// occupies its slot with the rejection cause and the batch continues.
func (e *Engine) ExecuteBatch(ctx context.Context, p *pool.Pool, opportunities []domain.Opportunity, minTotalProfit uint64) domain.BatchResult {
	entries := make([]domain.BatchEntry, len(opportunities))
	total := uint64(0)
	for i, opp := range opportunities {
		entries[i].Opportunity = opp
		if err := ctx.Err(); err != nil {
			entries[i].Err = err.Error()
			continue
		}
		res, err := e.ExecuteArbitrage(ctx, p, opp.RouteA, opp.RouteB, opp.Amount, 0, time.Time{})
		if err != nil {
			entries[i].Err = err.Error()
			continue
		}
		entries[i].Result = &res
		total += res.Profit
	}
	met := total >= minTotalProfit
	e.logger.Info("batch settled",
		slog.String("pool", p.ID()),
		slog.Int("trades", len(opportunities)),
		slog.Uint64("total_profit", total),
		slog.Bool("met_target", met))
	return domain.BatchResult{Entries: entries, TotalProfit: total, MetTarget: met}
}

// quotedProfit prices the two-leg cycle through the swapper and returns
// the expected gain on amountIn, 0 when the cycle does not gain.
func (e *Engine) quotedProfit(ctx context.Context, routeA, routeB domain.Route, amountIn uint64) (uint64, error) {
	outA, err := e.swapper.Quote(ctx, routeA, amountIn)
	if err != nil {
		return 0, fmt.Errorf("quote leg A: %w", err)
	}
	outB, err := e.swapper.Quote(ctx, routeB, outA)
	if err != nil {
		return 0, fmt.Errorf("quote leg B: %w", err)
	}
	if outB <= amountIn {
		return 0, nil
	}
	return outB - amountIn, nil
}

// ScanOpportunity is FindBestOpportunity priced through the swapper's
// quotes instead of the deterministic fee formula; the monitor scanner and
// the opportunities endpoint use it so rate overrides surface as real
// candidates. Pairs that don't close a cycle are skipped, as is any pair
// whose quote fails, so every returned candidate is executable.
func (e *Engine) ScanOpportunity(ctx context.Context, routes []domain.Route, maxAmount, minProfit uint64) (domain.Opportunity, bool, error) {
	var best domain.Opportunity
	found := false
	for i := range routes {
		for j := range routes {
			if i == j || !chains(routes[i], routes[j]) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return domain.Opportunity{}, false, err
			}
			for amount := AmountStep; amount <= maxAmount; amount += AmountStep {
				profit, err := e.quotedProfit(ctx, routes[i], routes[j], amount)
				if err != nil {
					e.logger.Debug("scan quote failed",
						slog.String("route_a", routes[i].String()),
						slog.String("route_b", routes[j].String()),
						slog.String("error", err.Error()))
					break
				}
				if profit == 0 || profit < minProfit {
					continue
				}
				if !found || profit > best.ExpectedProfit {
					best = domain.Opportunity{
						RouteA:         routes[i],
						RouteB:         routes[j],
						Amount:         amount,
						ExpectedProfit: profit,
					}
					found = true
				}
			}
		}
	}
	return best, found, nil
}

// chains reports whether selling through a and buying back through b
// returns to a's starting token.
func chains(a, b domain.Route) bool {
	return strings.EqualFold(a.TokenB, b.TokenA) && strings.EqualFold(b.TokenB, a.TokenA)
}

func validateCycle(asset string, routeA, routeB domain.Route) error {
	switch {
	case !strings.EqualFold(routeA.TokenA, asset):
		return fmt.Errorf("engine: leg A starts at %s, pool holds %s: %w", routeA.TokenA, asset, domain.ErrInvalidRoute)
	case !strings.EqualFold(routeA.TokenB, routeB.TokenA):
		return fmt.Errorf("engine: legs do not chain %s to %s: %w", routeA.TokenB, routeB.TokenA, domain.ErrInvalidRoute)
	case !strings.EqualFold(routeB.TokenB, asset):
		return fmt.Errorf("engine: leg B ends at %s, pool holds %s: %w", routeB.TokenB, asset, domain.ErrInvalidRoute)
	}
	return nil
}
