package domain

import (
	"errors"
	"math"
	"testing"
)

func TestFundsSplit(t *testing.T) {
	f := NewFunds("SUI", 1000)

	part, rest, err := f.Split(300)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if part.Value() != 300 || rest.Value() != 700 {
		t.Fatalf("Split = %d/%d, want 300/700", part.Value(), rest.Value())
	}
	if part.Asset() != "SUI" || rest.Asset() != "SUI" {
		t.Fatalf("Split assets = %s/%s", part.Asset(), rest.Asset())
	}

	if _, _, err := f.Split(1001); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Split over balance: err = %v, want ErrInsufficientBalance", err)
	}

	// Exact split leaves an empty remainder.
	part, rest, err = f.Split(1000)
	if err != nil {
		t.Fatalf("Split exact: %v", err)
	}
	if part.Value() != 1000 || !rest.IsZero() {
		t.Fatalf("Split exact = %d/%d", part.Value(), rest.Value())
	}
}

func TestFundsMerge(t *testing.T) {
	a := NewFunds("SUI", 100)
	b := NewFunds("SUI", 250)

	sum, err := a.Merge(b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if sum.Value() != 350 {
		t.Fatalf("Merge = %d, want 350", sum.Value())
	}

	if _, err := a.Merge(NewFunds("USDC", 10)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Merge cross-asset: err = %v, want ErrInvalidAmount", err)
	}

	// Zero-value funds merge into anything.
	sum, err = a.Merge(Funds{})
	if err != nil || sum.Value() != 100 {
		t.Fatalf("Merge zero = %d, %v", sum.Value(), err)
	}
	sum, err = (Funds{}).Merge(b)
	if err != nil || sum.Value() != 250 || sum.Asset() != "SUI" {
		t.Fatalf("zero Merge = %s, %v", sum, err)
	}
}

func TestMulDiv(t *testing.T) {
	cases := []struct {
		a, b, den uint64
		want      uint64
	}{
		{100_000, 100, 10_000, 1000},
		{100_000, 0, 10_000, 0},
		{1, 1, 3, 0},
		{7, 3, 2, 10},
		{math.MaxUint64, 5000, 10_000, math.MaxUint64 / 2},
		{10, 10, 0, 0},
		{math.MaxUint64, math.MaxUint64, 1, math.MaxUint64},
	}
	for _, tc := range cases {
		if got := MulDiv(tc.a, tc.b, tc.den); got != tc.want {
			t.Fatalf("MulDiv(%d, %d, %d) = %d, want %d", tc.a, tc.b, tc.den, got, tc.want)
		}
	}
}
