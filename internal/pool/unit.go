package pool

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/solvios/flashpool/internal/domain"
)

// poolState is the scalar state restored on rollback.
type poolState struct {
	liquidity     uint64
	totalBorrowed uint64
	totalRepaid   uint64
	activeLoans   uint64
	paused        bool
}

// Unit is one atomic sequence of pool operations. It holds the pool lock
// from Begin until Commit or Rollback. Operations mutate pool state in
// place; events are buffered and published only on commit; any recorded
// failure or open obligation forces a full rollback, so the unit either
// applies completely or not at all.
type Unit struct {
	pool   *Pool
	snap   poolState
	open   map[string]*Obligation
	events []domain.Event
	failed error
	closed bool
}

// fail records the unit's first failure and returns err unchanged.
func (u *Unit) fail(err error) error {
	if u.failed == nil {
		u.failed = err
	}
	return err
}

// Deposit adds the funds' value to liquidity. Callable by anyone.
func (u *Unit) Deposit(from domain.Identity, funds domain.Funds) error {
	if u.closed {
		return domain.ErrUnitClosed
	}
	if !funds.IsZero() && funds.Asset() != u.pool.asset {
		return u.fail(fmt.Errorf("pool: deposit %s into %s pool: %w", funds.Asset(), u.pool.asset, domain.ErrInvalidAmount))
	}
	if funds.Value() > math.MaxUint64-u.pool.liquidity {
		return u.fail(fmt.Errorf("pool: deposit overflows liquidity: %w", domain.ErrInvalidAmount))
	}
	u.pool.liquidity += funds.Value()
	u.events = append(u.events, domain.NewDepositReceived(u.pool.id, from, funds.Value(), u.pool.now()))
	return nil
}

// Withdraw removes amount from liquidity and returns it as funds.
// Admin only.
func (u *Unit) Withdraw(caller domain.Identity, amount uint64) (domain.Funds, error) {
	if u.closed {
		return domain.Funds{}, domain.ErrUnitClosed
	}
	if caller != u.pool.admin {
		return domain.Funds{}, u.fail(fmt.Errorf("pool: withdraw by %s: %w", caller, domain.ErrUnauthorized))
	}
	if amount > u.pool.liquidity {
		return domain.Funds{}, u.fail(fmt.Errorf("pool: withdraw %d of %d: %w", amount, u.pool.liquidity, domain.ErrInsufficientLiquidity))
	}
	u.pool.liquidity -= amount
	u.events = append(u.events, domain.NewWithdrawalProcessed(u.pool.id, caller, amount, u.pool.now()))
	return domain.NewFunds(u.pool.asset, amount), nil
}

// Pause stops borrowing. Admin only.
func (u *Unit) Pause(caller domain.Identity) error {
	if u.closed {
		return domain.ErrUnitClosed
	}
	if caller != u.pool.admin {
		return u.fail(fmt.Errorf("pool: pause by %s: %w", caller, domain.ErrUnauthorized))
	}
	u.pool.paused = true
	u.events = append(u.events, domain.NewPoolPaused(u.pool.id, caller, u.pool.now()))
	return nil
}

// Resume re-enables borrowing. Admin only.
func (u *Unit) Resume(caller domain.Identity) error {
	if u.closed {
		return domain.ErrUnitClosed
	}
	if caller != u.pool.admin {
		return u.fail(fmt.Errorf("pool: resume by %s: %w", caller, domain.ErrUnauthorized))
	}
	u.pool.paused = false
	u.events = append(u.events, domain.NewPoolResumed(u.pool.id, caller, u.pool.now()))
	return nil
}

// Borrow issues a flash loan: the funds plus the obligation that the same
// unit must settle through Repay. Check order: paused, zero amount,
// liquidity, loan ratio.
func (u *Unit) Borrow(caller domain.Identity, amount uint64) (domain.Funds, *Obligation, error) {
	if u.closed {
		return domain.Funds{}, nil, domain.ErrUnitClosed
	}
	p := u.pool
	if p.paused {
		return domain.Funds{}, nil, u.fail(fmt.Errorf("pool: borrow while paused: %w", domain.ErrPoolPaused))
	}
	if amount == 0 {
		return domain.Funds{}, nil, u.fail(fmt.Errorf("pool: borrow zero: %w", domain.ErrInvalidAmount))
	}
	if amount > p.liquidity {
		return domain.Funds{}, nil, u.fail(fmt.Errorf("pool: borrow %d of %d: %w", amount, p.liquidity, domain.ErrInsufficientLiquidity))
	}
	if maxLoan := domain.MulDiv(p.liquidity, p.maxLoanRatio, domain.BpsDenom); amount > maxLoan {
		return domain.Funds{}, nil, u.fail(fmt.Errorf("pool: borrow %d over cap %d: %w", amount, maxLoan, domain.ErrMaxLoanRatioExceeded))
	}
	fee := domain.MulDiv(amount, p.feeBps, domain.BpsDenom)
	p.liquidity -= amount
	p.totalBorrowed += amount
	p.activeLoans++
	ob := &Obligation{
		poolID:   p.id,
		loanID:   uuid.NewString(),
		amount:   amount,
		fee:      fee,
		borrower: caller,
	}
	u.open[ob.loanID] = ob
	u.events = append(u.events, domain.NewLoanIssued(p.id, caller, amount, fee, ob.loanID, p.now()))
	return domain.NewFunds(p.asset, amount), ob, nil
}

// Repay settles an obligation issued by this unit. The repayment must equal
// amount plus fee exactly, in the pool's asset; the caller must be the
// borrower and the obligation must reference this pool.
func (u *Unit) Repay(caller domain.Identity, repayment domain.Funds, ob *Obligation) error {
	if u.closed {
		return domain.ErrUnitClosed
	}
	p := u.pool
	if ob == nil || ob.settled {
		return u.fail(fmt.Errorf("pool: repay settled or missing obligation: %w", domain.ErrLoanNotRepaid))
	}
	if repayment.Value() != ob.Due() {
		return u.fail(fmt.Errorf("pool: repay %d, due %d: %w", repayment.Value(), ob.Due(), domain.ErrLoanNotRepaid))
	}
	if repayment.Asset() != p.asset {
		return u.fail(fmt.Errorf("pool: repay in %s, want %s: %w", repayment.Asset(), p.asset, domain.ErrLoanNotRepaid))
	}
	if caller != ob.borrower || ob.poolID != p.id {
		return u.fail(fmt.Errorf("pool: repay by %s on pool %s: %w", caller, p.id, domain.ErrUnauthorized))
	}
	if _, ok := u.open[ob.loanID]; !ok {
		return u.fail(fmt.Errorf("pool: obligation %s not issued in this unit: %w", ob.loanID, domain.ErrLoanNotRepaid))
	}
	p.liquidity += repayment.Value()
	p.totalRepaid += ob.amount
	p.activeLoans--
	ob.settled = true
	delete(u.open, ob.loanID)
	u.events = append(u.events, domain.NewLoanRepaid(p.id, caller, ob.amount, ob.fee, ob.loanID, p.now()))
	return nil
}

// Emit buffers an event so it surfaces only if the unit commits.
func (u *Unit) Emit(ev domain.Event) error {
	if u.closed {
		return domain.ErrUnitClosed
	}
	u.events = append(u.events, ev)
	return nil
}

// Commit finishes the unit. If any operation failed or any obligation is
// still open, the unit rolls back instead and the error reports why. On
// success the buffered events reach the sink after the lock is released.
func (u *Unit) Commit() error {
	if u.closed {
		return domain.ErrUnitClosed
	}
	if u.failed != nil {
		err := u.failed
		u.rollback()
		return fmt.Errorf("pool: unit aborted: %w", err)
	}
	if n := len(u.open); n > 0 {
		u.rollback()
		return fmt.Errorf("pool: %d obligation(s) open at commit: %w", n, domain.ErrLoanNotRepaid)
	}
	u.closed = true
	evs := u.events
	u.events = nil
	u.open = nil
	sink := u.pool.sink
	u.pool.mu.Unlock()
	if sink != nil && len(evs) > 0 {
		sink.Append(evs...)
	}
	return nil
}

// Rollback restores the pool to its state at Begin and discards buffered
// events. No-op after Commit or a prior Rollback, so it is safe to defer.
func (u *Unit) Rollback() {
	if u.closed {
		return
	}
	u.rollback()
}

func (u *Unit) rollback() {
	p := u.pool
	p.liquidity = u.snap.liquidity
	p.totalBorrowed = u.snap.totalBorrowed
	p.totalRepaid = u.snap.totalRepaid
	p.activeLoans = u.snap.activeLoans
	p.paused = u.snap.paused
	u.events = nil
	u.open = nil
	u.closed = true
	p.mu.Unlock()
}
