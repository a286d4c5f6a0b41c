package pool

import (
	"fmt"

	"github.com/solvios/flashpool/internal/domain"
)

// WithFlashLoan runs fn inside one atomic unit: borrow amount, hand the
// funds to fn, repay principal plus fee out of fn's proceeds, commit. The
// obligation never escapes to caller code. Any error from fn, a shortfall
// in proceeds, or a commit failure rolls the whole unit back. Returns the
// proceeds left over after repayment.
func WithFlashLoan(p *Pool, caller domain.Identity, amount uint64, fn func(borrowed domain.Funds) (domain.Funds, error)) (domain.Funds, error) {
	u := p.Begin()
	defer u.Rollback()

	borrowed, ob, err := u.Borrow(caller, amount)
	if err != nil {
		return domain.Funds{}, err
	}
	proceeds, err := fn(borrowed)
	if err != nil {
		return domain.Funds{}, fmt.Errorf("pool: flash loan closure: %w", err)
	}
	repayment, leftover, err := proceeds.Split(ob.Due())
	if err != nil {
		return domain.Funds{}, fmt.Errorf("pool: proceeds %d short of due %d: %w", proceeds.Value(), ob.Due(), domain.ErrLoanNotRepaid)
	}
	if err := u.Repay(caller, repayment, ob); err != nil {
		return domain.Funds{}, err
	}
	if err := u.Commit(); err != nil {
		return domain.Funds{}, err
	}
	return leftover, nil
}
