package engine

import (
	"context"
	"testing"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/venue"
)

func TestFindBestOpportunityFeeOnlyFindsNothing(t *testing.T) {
	routes := []domain.Route{
		{Venue: domain.VenueCetus, VenuePoolID: "cetus-1", TokenA: "SUI", TokenB: "USDC", FeeTier: 30},
		{Venue: domain.VenueTurbos, VenuePoolID: "turbos-1", TokenA: "USDC", TokenB: "SUI", FeeTier: 30},
		{Venue: domain.VenueAftermath, VenuePoolID: "af-1", TokenA: "SUI", TokenB: "USDC", FeeTier: 0},
	}
	if _, ok := FindBestOpportunity(routes, 100_000, 0); ok {
		t.Fatal("FindBestOpportunity found a candidate under fee-only pricing")
	}
	if _, ok := FindBestOpportunity(routes, 100_000, 1); ok {
		t.Fatal("FindBestOpportunity found a candidate above min profit 1")
	}
}

func TestFindBestOpportunityEmptyAndSingleRoute(t *testing.T) {
	if _, ok := FindBestOpportunity(nil, 10_000, 0); ok {
		t.Fatal("found candidate in empty route list")
	}
	one := []domain.Route{{Venue: domain.VenueCetus, VenuePoolID: "c", TokenA: "SUI", TokenB: "USDC", FeeTier: 0}}
	if _, ok := FindBestOpportunity(one, 10_000, 0); ok {
		t.Fatal("found candidate with a single route; pairs need i != j")
	}
}

func TestScanOpportunityFindsQuotedCycle(t *testing.T) {
	sim := venue.NewSimulator(discardLogger())
	// Both return legs pay out 10% over the fee formula, so every chained
	// pair profits and profit grows with amount.
	sim.SetRate("turbos-b", "USDC", "SUI", venue.Rate{Num: 11, Den: 10})
	sim.SetRate("turbos-d", "USDC", "SUI", venue.Rate{Num: 11, Den: 10})

	r0 := domain.Route{Venue: domain.VenueCetus, VenuePoolID: "cetus-a", TokenA: "SUI", TokenB: "USDC", FeeTier: 30}
	r1 := domain.Route{Venue: domain.VenueTurbos, VenuePoolID: "turbos-b", TokenA: "USDC", TokenB: "SUI", FeeTier: 30}
	r2 := domain.Route{Venue: domain.VenueCetus, VenuePoolID: "cetus-c", TokenA: "SUI", TokenB: "USDC", FeeTier: 30}
	r3 := domain.Route{Venue: domain.VenueTurbos, VenuePoolID: "turbos-d", TokenA: "USDC", TokenB: "SUI", FeeTier: 30}

	e := New(sim, "0xoperator", discardLogger())
	best, found, err := e.ScanOpportunity(context.Background(), []domain.Route{r0, r1, r2, r3}, 5_000, 1)
	if err != nil {
		t.Fatalf("ScanOpportunity: %v", err)
	}
	if !found {
		t.Fatal("ScanOpportunity found nothing with a profitable rate override")
	}
	// 5000 -> 4985 after leg A fee; leg B: 4985-14 = 4971, scaled 11/10 to
	// 5468. Profit 468 at the largest grid amount; (r0, r1) scans before the
	// equally profitable (r0, r3) and (r2, *) pairs so it wins the tie.
	if best.RouteA != r0 || best.RouteB != r1 {
		t.Fatalf("best pair = (%s, %s), want (%s, %s)", best.RouteA, best.RouteB, r0, r1)
	}
	if best.Amount != 5_000 {
		t.Fatalf("best amount = %d, want 5000", best.Amount)
	}
	if best.ExpectedProfit != 468 {
		t.Fatalf("best profit = %d, want 468", best.ExpectedProfit)
	}
}

func TestScanOpportunitySkipsUnchainedPairs(t *testing.T) {
	sim := venue.NewSimulator(discardLogger())
	// A generous rate on a same-direction pair must not surface: selling
	// SUI twice in a row is not a cycle.
	sim.SetRate("cetus-a", "SUI", "USDC", venue.Rate{Num: 2, Den: 1})
	sim.SetRate("cetus-c", "SUI", "USDC", venue.Rate{Num: 2, Den: 1})

	routes := []domain.Route{
		{Venue: domain.VenueCetus, VenuePoolID: "cetus-a", TokenA: "SUI", TokenB: "USDC", FeeTier: 30},
		{Venue: domain.VenueCetus, VenuePoolID: "cetus-c", TokenA: "SUI", TokenB: "USDC", FeeTier: 30},
	}
	e := New(sim, "0xoperator", discardLogger())
	if _, found, err := e.ScanOpportunity(context.Background(), routes, 10_000, 1); err != nil {
		t.Fatalf("ScanOpportunity: %v", err)
	} else if found {
		t.Fatal("ScanOpportunity surfaced a pair that does not close a cycle")
	}
}

func TestScanOpportunityRespectsMinProfit(t *testing.T) {
	sim := venue.NewSimulator(discardLogger())
	sim.SetRate("turbos-b", "USDC", "SUI", venue.Rate{Num: 11, Den: 10})
	routes := []domain.Route{
		{Venue: domain.VenueCetus, VenuePoolID: "cetus-a", TokenA: "SUI", TokenB: "USDC", FeeTier: 30},
		{Venue: domain.VenueTurbos, VenuePoolID: "turbos-b", TokenA: "USDC", TokenB: "SUI", FeeTier: 30},
	}
	e := New(sim, "0xoperator", discardLogger())
	// Max profit on this grid is 468; a higher floor must find nothing.
	if _, found, err := e.ScanOpportunity(context.Background(), routes, 5_000, 469); err != nil {
		t.Fatalf("ScanOpportunity: %v", err)
	} else if found {
		t.Fatal("ScanOpportunity returned a candidate below min profit")
	}
}

func TestScanOpportunityHonorsContext(t *testing.T) {
	sim := venue.NewSimulator(discardLogger())
	routes := []domain.Route{
		{Venue: domain.VenueCetus, VenuePoolID: "cetus-a", TokenA: "SUI", TokenB: "USDC", FeeTier: 30},
		{Venue: domain.VenueTurbos, VenuePoolID: "turbos-b", TokenA: "USDC", TokenB: "SUI", FeeTier: 30},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(sim, "0xoperator", discardLogger())
	if _, _, err := e.ScanOpportunity(ctx, routes, 5_000, 1); err == nil {
		t.Fatal("ScanOpportunity ignored a cancelled context")
	}
}
