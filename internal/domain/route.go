package domain

import (
	"fmt"
	"strings"
)

// VenueType tags one of the supported trading venues. The set is closed:
// routes against an unknown venue are rejected at validation time.
type VenueType string

const (
	VenueCetus     VenueType = "cetus"
	VenueTurbos    VenueType = "turbos"
	VenueAftermath VenueType = "aftermath"
)

// Valid reports whether v is one of the supported venues.
func (v VenueType) Valid() bool {
	switch v {
	case VenueCetus, VenueTurbos, VenueAftermath:
		return true
	}
	return false
}

// AssetPair is an ordered token pair. Direction matters: A/B and B/A key
// separate route lists.
type AssetPair struct {
	TokenA string
	TokenB string
}

// Key returns the canonical registry key for the pair.
func (p AssetPair) Key() string {
	return strings.ToUpper(p.TokenA) + "/" + strings.ToUpper(p.TokenB)
}

func (p AssetPair) String() string { return p.Key() }

// Route describes one hop through an external venue: which pool to trade
// against and what fee tier it charges, in basis points. Routes are
// immutable values.
type Route struct {
	Venue       VenueType
	VenuePoolID string
	TokenA      string
	TokenB      string
	FeeTier     uint64
}

// Pair returns the pair the route trades, in route direction (TokenA in,
// TokenB out).
func (r Route) Pair() AssetPair {
	return AssetPair{TokenA: r.TokenA, TokenB: r.TokenB}
}

// Validate rejects malformed routes with ErrInvalidRoute.
func (r Route) Validate() error {
	switch {
	case !r.Venue.Valid():
		return fmt.Errorf("route: unknown venue %q: %w", r.Venue, ErrInvalidRoute)
	case r.VenuePoolID == "":
		return fmt.Errorf("route: missing venue pool id: %w", ErrInvalidRoute)
	case r.TokenA == "" || r.TokenB == "":
		return fmt.Errorf("route: missing token: %w", ErrInvalidRoute)
	case strings.EqualFold(r.TokenA, r.TokenB):
		return fmt.Errorf("route: identical tokens %q: %w", r.TokenA, ErrInvalidRoute)
	case r.FeeTier > BpsDenom:
		return fmt.Errorf("route: fee tier %d bps: %w", r.FeeTier, ErrInvalidRoute)
	}
	return nil
}

func (r Route) String() string {
	return fmt.Sprintf("%s:%s %s->%s@%dbps", r.Venue, r.VenuePoolID, r.TokenA, r.TokenB, r.FeeTier)
}
