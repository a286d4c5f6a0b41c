// Package pool implements the flash-loan pool: a single-asset liquidity
// balance with fee and risk parameters, mutated only inside atomic units.
// Every borrow issues an Obligation that the same unit must settle via
// repay; committing a unit with an open obligation fails and rolls the
// whole unit back, so an unrepaid loan can never reach committed state.
package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

// MaxFeeBps caps the pool fee at 10%.
const MaxFeeBps uint64 = 1000

// EventSink receives the buffered events of committed units.
type EventSink interface {
	Append(evs ...domain.Event)
}

// Pool owns a balance of one asset type and the running loan counters.
// Mutations happen only through a Unit obtained from Begin; the unit holds
// the pool's single-writer lock for its whole lifetime, so no caller ever
// observes a half-applied borrow or repay.
type Pool struct {
	id    string
	asset string
	admin domain.Identity

	feeBps       uint64
	maxLoanRatio uint64

	mu            sync.Mutex
	liquidity     uint64
	totalBorrowed uint64
	totalRepaid   uint64
	activeLoans   uint64
	paused        bool

	sink EventSink
	now  func() time.Time
}

// New creates a pool seeded with initialLiquidity. Fails with ErrInvalidFee
// when feeBps exceeds MaxFeeBps or maxLoanRatio exceeds 10000.
func New(id, asset string, initialLiquidity, feeBps, maxLoanRatio uint64, admin domain.Identity, sink EventSink) (*Pool, error) {
	if feeBps > MaxFeeBps {
		return nil, fmt.Errorf("pool: fee %d bps exceeds %d: %w", feeBps, MaxFeeBps, domain.ErrInvalidFee)
	}
	if maxLoanRatio > domain.BpsDenom {
		return nil, fmt.Errorf("pool: max loan ratio %d bps exceeds %d: %w", maxLoanRatio, domain.BpsDenom, domain.ErrInvalidFee)
	}
	return &Pool{
		id:           id,
		asset:        asset,
		admin:        admin,
		feeBps:       feeBps,
		maxLoanRatio: maxLoanRatio,
		liquidity:    initialLiquidity,
		sink:         sink,
		now:          time.Now,
	}, nil
}

// Begin opens an atomic unit against the pool and takes its lock. The
// caller must finish the unit with Commit or Rollback; until then every
// other unit and accessor blocks.
func (p *Pool) Begin() *Unit {
	p.mu.Lock()
	return &Unit{
		pool: p,
		snap: poolState{
			liquidity:     p.liquidity,
			totalBorrowed: p.totalBorrowed,
			totalRepaid:   p.totalRepaid,
			activeLoans:   p.activeLoans,
			paused:        p.paused,
		},
		open: make(map[string]*Obligation),
	}
}

// ID returns the pool identity.
func (p *Pool) ID() string { return p.id }

// Asset returns the pooled asset symbol.
func (p *Pool) Asset() string { return p.asset }

// Admin returns the identity authorized for withdraw/pause/resume.
func (p *Pool) Admin() domain.Identity { return p.admin }

// FeeBps returns the borrow fee in basis points.
func (p *Pool) FeeBps() uint64 { return p.feeBps }

// MaxLoanRatio returns the largest borrowable share of liquidity, in bps.
func (p *Pool) MaxLoanRatio() uint64 { return p.maxLoanRatio }

// Liquidity returns the current balance.
func (p *Pool) Liquidity() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liquidity
}

// TotalBorrowed returns the lifetime borrowed sum.
func (p *Pool) TotalBorrowed() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalBorrowed
}

// TotalRepaid returns the lifetime repaid principal sum.
func (p *Pool) TotalRepaid() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalRepaid
}

// ActiveLoans returns the number of outstanding obligations.
func (p *Pool) ActiveLoans() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeLoans
}

// IsPaused reports whether borrowing is rejected.
func (p *Pool) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// UtilizationRate returns total_borrowed / (liquidity + outstanding) in
// basis points, 0 when the denominator is 0.
func (p *Pool) UtilizationRate() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return utilizationRate(p.liquidity, p.totalBorrowed, p.totalRepaid)
}

// Snapshot captures all accessors at once.
func (p *Pool) Snapshot() domain.PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PoolSnapshot{
		PoolID:         p.id,
		Asset:          p.asset,
		Liquidity:      p.liquidity,
		FeeBps:         p.feeBps,
		MaxLoanRatio:   p.maxLoanRatio,
		TotalBorrowed:  p.totalBorrowed,
		TotalRepaid:    p.totalRepaid,
		ActiveLoans:    p.activeLoans,
		Admin:          p.admin,
		Paused:         p.paused,
		UtilizationBps: utilizationRate(p.liquidity, p.totalBorrowed, p.totalRepaid),
		CapturedAt:     p.now(),
	}
}

func utilizationRate(liquidity, borrowed, repaid uint64) uint64 {
	denom := liquidity + (borrowed - repaid)
	if denom == 0 {
		return 0
	}
	return domain.MulDiv(borrowed, domain.BpsDenom, denom)
}
