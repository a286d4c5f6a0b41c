package engine

import "github.com/solvios/flashpool/internal/domain"

// AmountStep is the loan-size granularity of the opportunity search.
const AmountStep uint64 = 1000

// FindBestOpportunity scans every ordered route pair (i, j), i != j, and
// every amount AmountStep, 2*AmountStep, ... up to maxAmount, keeping the
// candidate with the highest expected profit that reaches minProfit. A
// later candidate replaces the best only on strictly higher profit, so
// ties resolve to the first hit in scan order. Zero-profit cycles never
// qualify. Cost is O(len(routes)² × maxAmount/AmountStep): a brute-force
// sweep over a deterministic price curve, not an order-book optimizer.
func FindBestOpportunity(routes []domain.Route, maxAmount, minProfit uint64) (domain.Opportunity, bool) {
	var best domain.Opportunity
	found := false
	for i := range routes {
		for j := range routes {
			if i == j {
				continue
			}
			for amount := AmountStep; amount <= maxAmount; amount += AmountStep {
				profit := ArbitrageProfit(routes[i], routes[j], amount)
				if profit == 0 || profit < minProfit {
					continue
				}
				if !found || profit > best.ExpectedProfit {
					best = domain.Opportunity{
						RouteA:         routes[i],
						RouteB:         routes[j],
						Amount:         amount,
						ExpectedProfit: profit,
					}
					found = true
				}
			}
		}
	}
	return best, found
}
