package domain

import "fmt"

// Funds is an in-memory amount of a single asset moving through one atomic
// unit: loan principal, swap proceeds, repayment. The zero value is an empty
// balance of no asset. Fields are unexported so a balance can only be
// created, split, or merged through this package.
type Funds struct {
	asset string
	value uint64
}

// NewFunds mints a balance of value units of asset.
func NewFunds(asset string, value uint64) Funds {
	return Funds{asset: asset, value: value}
}

// Asset returns the asset symbol.
func (f Funds) Asset() string { return f.asset }

// Value returns the balance amount.
func (f Funds) Value() uint64 { return f.value }

// IsZero reports whether the balance holds nothing.
func (f Funds) IsZero() bool { return f.value == 0 }

// Split carves amount out of f and returns the carved part and the
// remainder. Fails with ErrInsufficientBalance when f holds less than
// amount.
func (f Funds) Split(amount uint64) (part, rest Funds, err error) {
	if amount > f.value {
		return Funds{}, f, fmt.Errorf("funds: split %d from %d %s: %w", amount, f.value, f.asset, ErrInsufficientBalance)
	}
	return Funds{asset: f.asset, value: amount}, Funds{asset: f.asset, value: f.value - amount}, nil
}

// Merge combines two balances of the same asset.
func (f Funds) Merge(other Funds) (Funds, error) {
	if other.IsZero() {
		return f, nil
	}
	if f.IsZero() {
		return other, nil
	}
	if f.asset != other.asset {
		return Funds{}, fmt.Errorf("funds: merge %s into %s: %w", other.asset, f.asset, ErrInvalidAmount)
	}
	return Funds{asset: f.asset, value: f.value + other.value}, nil
}

func (f Funds) String() string {
	return fmt.Sprintf("%d %s", f.value, f.asset)
}
