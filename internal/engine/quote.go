// Package engine implements the arbitrage engine: deterministic pricing
// math, brute-force opportunity search, and the borrow/swap/swap/repay
// executor that always settles its loan.
package engine

import "github.com/solvios/flashpool/internal/domain"

// ExpectedOutput is the deterministic stand-in for venue pricing on one
// hop: amountIn minus the route's fee tier, truncating.
func ExpectedOutput(route domain.Route, amountIn uint64) uint64 {
	return amountIn - domain.MulDiv(amountIn, route.FeeTier, domain.BpsDenom)
}

// ArbitrageProfit composes ExpectedOutput across both legs and returns the
// gain on amountIn, 0 when the cycle does not gain.
func ArbitrageProfit(routeA, routeB domain.Route, amountIn uint64) uint64 {
	outB := ExpectedOutput(routeB, ExpectedOutput(routeA, amountIn))
	if outB <= amountIn {
		return 0
	}
	return outB - amountIn
}
