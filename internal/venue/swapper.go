package venue

import (
	"context"
	"fmt"

	"github.com/solvios/flashpool/internal/domain"
)

// Swapper executes one hop through an external venue: given an input
// amount and a route, it returns the output amount and a trade receipt.
// A Swapper either fully executes or returns an error having done nothing,
// so a failed leg aborts the enclosing unit with no partial effects.
type Swapper interface {
	Quote(ctx context.Context, route domain.Route, amountIn uint64) (uint64, error)
	Swap(ctx context.Context, route domain.Route, input domain.Funds) (domain.Funds, *domain.TradeReceipt, error)
}

// Dispatcher fans swaps out to per-venue Swapper implementations. The venue
// set is closed, so registration happens once at wiring time.
type Dispatcher struct {
	swappers map[domain.VenueType]Swapper
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{swappers: make(map[domain.VenueType]Swapper)}
}

// Register binds a venue type to its swapper, replacing any previous
// binding.
func (d *Dispatcher) Register(v domain.VenueType, s Swapper) {
	d.swappers[v] = s
}

func (d *Dispatcher) lookup(route domain.Route) (Swapper, error) {
	s, ok := d.swappers[route.Venue]
	if !ok {
		return nil, fmt.Errorf("venue: no swapper for %q: %w", route.Venue, domain.ErrInvalidRoute)
	}
	return s, nil
}

// Quote prices a swap on the route's venue.
func (d *Dispatcher) Quote(ctx context.Context, route domain.Route, amountIn uint64) (uint64, error) {
	s, err := d.lookup(route)
	if err != nil {
		return 0, err
	}
	return s.Quote(ctx, route, amountIn)
}

// Swap executes a swap on the route's venue.
func (d *Dispatcher) Swap(ctx context.Context, route domain.Route, input domain.Funds) (domain.Funds, *domain.TradeReceipt, error) {
	s, err := d.lookup(route)
	if err != nil {
		return domain.Funds{}, nil, err
	}
	return s.Swap(ctx, route, input)
}

var _ Swapper = (*Dispatcher)(nil)
