package domain

import "time"

// ExecutionStatus is the terminal state of a persisted arbitrage execution.
type ExecutionStatus string

const (
	// ExecutionSettled means the loan was repaid and the profit threshold met.
	ExecutionSettled ExecutionStatus = "settled"
	// ExecutionBelowTarget means the loan was repaid but profit missed the
	// threshold; pool effects are permanent.
	ExecutionBelowTarget ExecutionStatus = "below_target"
	// ExecutionRejected means the unit never settled: precheck failure or
	// mid-unit abort, no pool state was changed.
	ExecutionRejected ExecutionStatus = "rejected"
)

// TradeReceipt is returned by the swap capability for one executed leg.
type TradeReceipt struct {
	Venue       VenueType
	VenuePoolID string
	AmountIn    uint64
	AmountOut   uint64
	ExecutedAt  time.Time
}

// Opportunity is a candidate two-leg arbitrage produced by the detector.
type Opportunity struct {
	RouteA         Route
	RouteB         Route
	Amount         uint64
	ExpectedProfit uint64
}

// ArbResult is the outcome of one settled arbitrage unit. Profitable is
// false when the loan was repaid but realized profit missed the threshold;
// Reason then carries the failure-event reason and Profit reads zero.
type ArbResult struct {
	Pool       string
	LoanID     string
	AmountIn   uint64
	Fee        uint64
	Expected   uint64
	Profit     uint64
	Profitable bool
	Reason     string
	RouteA     Route
	RouteB     Route
	ReceiptA   *TradeReceipt
	ReceiptB   *TradeReceipt
	ExecutedAt time.Time
}

// BatchEntry is the per-opportunity slot of a batch run. Result is nil when
// the opportunity was rejected before its loan was taken; Err carries the
// rejection or abort cause.
type BatchEntry struct {
	Opportunity Opportunity
	Result      *ArbResult
	Err         string
}

// BatchResult aggregates a sequential batch run. Settled trades stay
// settled whether or not the target was met; MetTarget only reports whether
// the profit sum reached the requested minimum.
type BatchResult struct {
	Entries     []BatchEntry
	TotalProfit uint64
	MetTarget   bool
}

// ArbExecution is the persisted record of one arbitrage submission.
type ArbExecution struct {
	ID        string
	Pool      string
	TokenA    string
	TokenB    string
	RouteA    string
	RouteB    string
	AmountIn  uint64
	Fee       uint64
	Expected  uint64
	Profit    uint64
	Status    ExecutionStatus
	Reason    string
	Borrower  Identity
	Signature string
	CreatedAt time.Time
}
