package pool

import "github.com/solvios/flashpool/internal/domain"

// Obligation is the proof of an outstanding flash loan. It is created only
// by Unit.Borrow and consumed only by Unit.Repay, exactly once; the issuing
// unit refuses to commit while it remains open. It must never be stored
// beyond the unit that issued it.
type Obligation struct {
	poolID   string
	loanID   string
	amount   uint64
	fee      uint64
	borrower domain.Identity
	settled  bool
}

// PoolID returns the identity of the issuing pool; repay must target it.
func (o *Obligation) PoolID() string { return o.poolID }

// LoanID returns the unique loan identifier.
func (o *Obligation) LoanID() string { return o.loanID }

// Amount returns the borrowed principal.
func (o *Obligation) Amount() uint64 { return o.amount }

// Fee returns the fee fixed at issuance.
func (o *Obligation) Fee() uint64 { return o.fee }

// Due returns the exact repayment value, principal plus fee.
func (o *Obligation) Due() uint64 { return o.amount + o.fee }

// Borrower returns the identity that must repay.
func (o *Obligation) Borrower() domain.Identity { return o.borrower }

// Settled reports whether the obligation has been consumed.
func (o *Obligation) Settled() bool { return o.settled }
