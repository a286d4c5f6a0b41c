package domain

import (
	"strconv"
	"time"
)

// EventType tags entries in the event log.
type EventType string

const (
	EventLoanIssued          EventType = "loan_issued"
	EventLoanRepaid          EventType = "loan_repaid"
	EventDepositReceived     EventType = "deposit_received"
	EventWithdrawalProcessed EventType = "withdrawal_processed"
	EventPoolPaused          EventType = "pool_paused"
	EventPoolResumed         EventType = "pool_resumed"
	EventArbitrageExecuted   EventType = "arbitrage_executed"
	EventArbitrageFailed     EventType = "arbitrage_failed"
)

// Event is the envelope appended to the event log and relayed to the bus.
// Fields holds the event payload under stable string keys; amounts are
// decimal strings.
type Event struct {
	Type   EventType
	Pool   string
	At     time.Time
	Fields map[string]string
}

func NewLoanIssued(pool string, borrower Identity, amount, fee uint64, loanID string, at time.Time) Event {
	return Event{
		Type: EventLoanIssued,
		Pool: pool,
		At:   at,
		Fields: map[string]string{
			"borrower": borrower.String(),
			"amount":   strconv.FormatUint(amount, 10),
			"fee":      strconv.FormatUint(fee, 10),
			"loan_id":  loanID,
		},
	}
}

func NewLoanRepaid(pool string, borrower Identity, amount, fee uint64, loanID string, at time.Time) Event {
	return Event{
		Type: EventLoanRepaid,
		Pool: pool,
		At:   at,
		Fields: map[string]string{
			"borrower": borrower.String(),
			"amount":   strconv.FormatUint(amount, 10),
			"fee":      strconv.FormatUint(fee, 10),
			"loan_id":  loanID,
		},
	}
}

func NewDepositReceived(pool string, depositor Identity, amount uint64, at time.Time) Event {
	return Event{
		Type: EventDepositReceived,
		Pool: pool,
		At:   at,
		Fields: map[string]string{
			"depositor": depositor.String(),
			"amount":    strconv.FormatUint(amount, 10),
		},
	}
}

func NewWithdrawalProcessed(pool string, withdrawer Identity, amount uint64, at time.Time) Event {
	return Event{
		Type: EventWithdrawalProcessed,
		Pool: pool,
		At:   at,
		Fields: map[string]string{
			"withdrawer": withdrawer.String(),
			"amount":     strconv.FormatUint(amount, 10),
		},
	}
}

func NewPoolPaused(pool string, admin Identity, at time.Time) Event {
	return Event{
		Type: EventPoolPaused,
		Pool: pool,
		At:   at,
		Fields: map[string]string{
			"admin":     admin.String(),
			"timestamp": strconv.FormatInt(at.Unix(), 10),
		},
	}
}

func NewPoolResumed(pool string, admin Identity, at time.Time) Event {
	return Event{
		Type: EventPoolResumed,
		Pool: pool,
		At:   at,
		Fields: map[string]string{
			"admin":     admin.String(),
			"timestamp": strconv.FormatInt(at.Unix(), 10),
		},
	}
}

func NewArbitrageExecuted(pool, tokenA, tokenB string, amountIn, profit uint64, routeA, routeB Route, at time.Time) Event {
	return Event{
		Type: EventArbitrageExecuted,
		Pool: pool,
		At:   at,
		Fields: map[string]string{
			"token_a":   tokenA,
			"token_b":   tokenB,
			"amount_in": strconv.FormatUint(amountIn, 10),
			"profit":    strconv.FormatUint(profit, 10),
			"route_a":   routeA.String(),
			"route_b":   routeB.String(),
			"timestamp": strconv.FormatInt(at.Unix(), 10),
		},
	}
}

func NewArbitrageFailed(pool, reason string, at time.Time) Event {
	return Event{
		Type: EventArbitrageFailed,
		Pool: pool,
		At:   at,
		Fields: map[string]string{
			"reason":    reason,
			"timestamp": strconv.FormatInt(at.Unix(), 10),
		},
	}
}
