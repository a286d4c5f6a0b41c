// Package venue holds the route registry and the swap capability used to
// execute arbitrage legs against external trading venues.
package venue

import (
	"sort"
	"sync"

	"github.com/solvios/flashpool/internal/domain"
)

// Registry stores the known routes per asset pair. Pure keyed append and
// lookup: duplicate routes are allowed and deduping is the caller's
// responsibility. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	routes map[string][]domain.Route
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string][]domain.Route)}
}

// AddRoute appends route to the list keyed by pair.
func (r *Registry) AddRoute(pair domain.AssetPair, route domain.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pair.Key()
	r.routes[key] = append(r.routes[key], route)
}

// Routes returns a copy of the route list for pair, nil when none are
// known.
func (r *Registry) Routes(pair domain.AssetPair) []domain.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs := r.routes[pair.Key()]
	if len(rs) == 0 {
		return nil
	}
	out := make([]domain.Route, len(rs))
	copy(out, rs)
	return out
}

// Pairs returns the known pair keys in sorted order.
func (r *Registry) Pairs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the total number of stored routes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rs := range r.routes {
		n += len(rs)
	}
	return n
}
