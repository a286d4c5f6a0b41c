package domain

import "errors"

// Unit taxonomy. Every failed pool or engine operation surfaces exactly one
// of these, usually wrapped with package context via fmt.Errorf("...: %w").
var (
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrLoanNotRepaid         = errors.New("loan not repaid")
	ErrInvalidFee            = errors.New("invalid fee or ratio")
	ErrAssetNotWhitelisted   = errors.New("asset not whitelisted")
	ErrMaxLoanRatioExceeded  = errors.New("max loan ratio exceeded")
	ErrPoolPaused            = errors.New("pool paused")
	ErrNoProfit              = errors.New("no profit")
	ErrInvalidRoute          = errors.New("invalid route")
	ErrDeadlineExceeded      = errors.New("deadline exceeded")
	ErrInsufficientBalance   = errors.New("insufficient balance")
)

// Service-level errors, outside the unit taxonomy.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrSigningFailed = errors.New("signing failed")
	ErrLockHeld      = errors.New("lock already held")
	ErrUnitClosed    = errors.New("unit already closed")
)
