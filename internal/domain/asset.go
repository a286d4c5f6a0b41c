package domain

// AssetPolicy gates which assets pools may be created for and bounds loan
// sizes. Policy only: the pool itself never consults it.
type AssetPolicy struct {
	Whitelisted bool
	MinLoan     uint64
	MaxLoan     uint64
}

// InBounds reports whether amount satisfies the policy's loan bounds.
// A zero MaxLoan means no upper bound.
func (p AssetPolicy) InBounds(amount uint64) bool {
	if amount < p.MinLoan {
		return false
	}
	if p.MaxLoan > 0 && amount > p.MaxLoan {
		return false
	}
	return true
}
