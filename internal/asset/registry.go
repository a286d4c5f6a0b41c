// Package asset holds the asset whitelist: which symbols pools may be
// created for and what loan sizes are acceptable. The whitelist is service
// policy only; the pool core never consults it.
package asset

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/solvios/flashpool/internal/domain"
)

// Registry maps asset symbols to their loan policy. Symbols are
// case-insensitive. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]domain.AssetPolicy
}

// NewRegistry returns an empty Registry; every asset starts delisted.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]domain.AssetPolicy)}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Whitelist admits symbol with the given policy, replacing any previous
// policy. The Whitelisted flag on the stored policy is forced true.
func (r *Registry) Whitelist(symbol string, policy domain.AssetPolicy) {
	policy.Whitelisted = true
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[normalize(symbol)] = policy
}

// Delist removes symbol from the whitelist.
func (r *Registry) Delist(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.policies, normalize(symbol))
}

// Policy returns the stored policy for symbol and whether it is listed.
func (r *Registry) Policy(symbol string) (domain.AssetPolicy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[normalize(symbol)]
	return p, ok
}

// Symbols returns the whitelisted symbols in sorted order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.policies))
	for sym := range r.policies {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Check validates a prospective loan of amount units of symbol:
// ErrAssetNotWhitelisted when the symbol is not listed, ErrInvalidAmount
// when amount falls outside the policy's loan bounds. amount 0 checks
// listing only.
func (r *Registry) Check(symbol string, amount uint64) error {
	p, ok := r.Policy(symbol)
	if !ok || !p.Whitelisted {
		return fmt.Errorf("asset: %s: %w", normalize(symbol), domain.ErrAssetNotWhitelisted)
	}
	if amount == 0 {
		return nil
	}
	if !p.InBounds(amount) {
		return fmt.Errorf("asset: loan %d outside [%d, %d] for %s: %w",
			amount, p.MinLoan, p.MaxLoan, normalize(symbol), domain.ErrInvalidAmount)
	}
	return nil
}
