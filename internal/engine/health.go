package engine

import (
	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/pool"
)

// Health thresholds: a pool is healthy while lifetime borrow pressure stays
// under 80% of current liquidity and at least 95% of all borrowed principal
// has come back.
const (
	MaxHealthyUtilizationPct uint64 = 80
	MinHealthyRecoveryPct    uint64 = 95
)

// CheckPoolHealth computes the health readout from the pool's live state.
func CheckPoolHealth(p *pool.Pool) domain.PoolHealth {
	return HealthFromSnapshot(p.Snapshot())
}

// HealthFromSnapshot computes the health readout from a captured snapshot:
// utilization = total_borrowed * 100 / liquidity (0 when liquidity is 0),
// recovery = total_repaid * 100 / total_borrowed (100 when nothing was
// borrowed).
func HealthFromSnapshot(snap domain.PoolSnapshot) domain.PoolHealth {
	utilization := uint64(0)
	if snap.Liquidity > 0 {
		utilization = domain.MulDiv(snap.TotalBorrowed, 100, snap.Liquidity)
	}
	recovery := uint64(100)
	if snap.TotalBorrowed > 0 {
		recovery = domain.MulDiv(snap.TotalRepaid, 100, snap.TotalBorrowed)
	}
	return domain.PoolHealth{
		PoolID:         snap.PoolID,
		Healthy:        utilization < MaxHealthyUtilizationPct && recovery >= MinHealthyRecoveryPct,
		UtilizationPct: utilization,
		RecoveryPct:    recovery,
	}
}
