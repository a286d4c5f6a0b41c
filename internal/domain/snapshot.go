package domain

import "time"

// PoolSnapshot is a point-in-time dump of one pool's read accessors, used
// for the status API, the Redis cache, and the Postgres history table.
type PoolSnapshot struct {
	PoolID         string
	Asset          string
	Liquidity      uint64
	FeeBps         uint64
	MaxLoanRatio   uint64
	TotalBorrowed  uint64
	TotalRepaid    uint64
	ActiveLoans    uint64
	Admin          Identity
	Paused         bool
	UtilizationBps uint64
	CapturedAt     time.Time
}

// PoolHealth reports the coarse health readout computed over a snapshot:
// utilization and recovery as whole percentages.
type PoolHealth struct {
	PoolID         string
	Healthy        bool
	UtilizationPct uint64
	RecoveryPct    uint64
}
