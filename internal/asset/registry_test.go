package asset

import (
	"errors"
	"testing"

	"github.com/solvios/flashpool/internal/domain"
)

func TestCheckUnlistedAsset(t *testing.T) {
	r := NewRegistry()
	if err := r.Check("SUI", 100); !errors.Is(err, domain.ErrAssetNotWhitelisted) {
		t.Fatalf("Check unlisted: err = %v, want ErrAssetNotWhitelisted", err)
	}
}

func TestWhitelistAndBounds(t *testing.T) {
	r := NewRegistry()
	r.Whitelist("sui", domain.AssetPolicy{MinLoan: 1_000, MaxLoan: 500_000})

	tests := []struct {
		name    string
		amount  uint64
		wantErr error
	}{
		{"at min", 1_000, nil},
		{"at max", 500_000, nil},
		{"below min", 999, domain.ErrInvalidAmount},
		{"above max", 500_001, domain.ErrInvalidAmount},
		{"zero checks listing only", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Check("SUI", tt.amount)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Check(%d) = %v, want nil", tt.amount, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Check(%d) = %v, want %v", tt.amount, err, tt.wantErr)
			}
		})
	}
}

func TestWhitelistIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Whitelist("usdc", domain.AssetPolicy{})
	if _, ok := r.Policy("USDC"); !ok {
		t.Fatal("Policy(USDC) not found after Whitelist(usdc)")
	}
	if err := r.Check("Usdc", 42); err != nil {
		t.Fatalf("Check(Usdc) = %v, want nil", err)
	}
}

func TestNoMaxLoanMeansUnbounded(t *testing.T) {
	r := NewRegistry()
	r.Whitelist("SUI", domain.AssetPolicy{MinLoan: 10})
	if err := r.Check("SUI", 1<<60); err != nil {
		t.Fatalf("Check with MaxLoan 0: err = %v, want nil", err)
	}
}

func TestDelist(t *testing.T) {
	r := NewRegistry()
	r.Whitelist("SUI", domain.AssetPolicy{})
	r.Delist("sui")
	if err := r.Check("SUI", 100); !errors.Is(err, domain.ErrAssetNotWhitelisted) {
		t.Fatalf("Check after Delist: err = %v, want ErrAssetNotWhitelisted", err)
	}
	if got := len(r.Symbols()); got != 0 {
		t.Fatalf("Symbols() has %d entries after Delist, want 0", got)
	}
}

func TestSymbolsSorted(t *testing.T) {
	r := NewRegistry()
	for _, sym := range []string{"usdc", "SUI", "Weth"} {
		r.Whitelist(sym, domain.AssetPolicy{})
	}
	got := r.Symbols()
	want := []string{"SUI", "USDC", "WETH"}
	if len(got) != len(want) {
		t.Fatalf("Symbols() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Symbols()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
