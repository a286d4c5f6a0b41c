package pool

import (
	"errors"
	"testing"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

type recordingSink struct {
	evs []domain.Event
}

func (s *recordingSink) Append(evs ...domain.Event) {
	s.evs = append(s.evs, evs...)
}

func (s *recordingSink) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(s.evs))
	for _, ev := range s.evs {
		out = append(out, ev.Type)
	}
	return out
}

const (
	testAdmin    = domain.Identity("0xadmin")
	testBorrower = domain.Identity("0xborrower")
)

func newTestPool(t *testing.T, liquidity, feeBps, ratio uint64) (*Pool, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	p, err := New("pool-1", "SUI", liquidity, feeBps, ratio, testAdmin, sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, sink
}

func TestNewValidatesBounds(t *testing.T) {
	cases := []struct {
		name    string
		feeBps  uint64
		ratio   uint64
		wantErr error
	}{
		{"typical", 100, 5000, nil},
		{"max fee and ratio", 1000, 10000, nil},
		{"zero fee", 0, 0, nil},
		{"fee too high", 1001, 5000, domain.ErrInvalidFee},
		{"ratio too high", 100, 10001, domain.ErrInvalidFee},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New("p", "SUI", 1_000_000, tc.feeBps, tc.ratio, testAdmin, nil)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("New: err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := p.FeeBps(); got != tc.feeBps {
				t.Fatalf("FeeBps = %d, want %d", got, tc.feeBps)
			}
			if got := p.MaxLoanRatio(); got != tc.ratio {
				t.Fatalf("MaxLoanRatio = %d, want %d", got, tc.ratio)
			}
		})
	}
}

func TestNewSetsInitialState(t *testing.T) {
	p, _ := newTestPool(t, 1_000_000, 100, 5000)
	if got := p.Liquidity(); got != 1_000_000 {
		t.Fatalf("Liquidity = %d, want 1000000", got)
	}
	if got := p.TotalBorrowed(); got != 0 {
		t.Fatalf("TotalBorrowed = %d, want 0", got)
	}
	if got := p.TotalRepaid(); got != 0 {
		t.Fatalf("TotalRepaid = %d, want 0", got)
	}
	if got := p.ActiveLoans(); got != 0 {
		t.Fatalf("ActiveLoans = %d, want 0", got)
	}
	if p.IsPaused() {
		t.Fatal("new pool is paused")
	}
	if got := p.Admin(); got != testAdmin {
		t.Fatalf("Admin = %s, want %s", got, testAdmin)
	}
	if got := p.Asset(); got != "SUI" {
		t.Fatalf("Asset = %s, want SUI", got)
	}
}

func TestDepositAddsLiquidity(t *testing.T) {
	p, sink := newTestPool(t, 1000, 100, 5000)

	u := p.Begin()
	if err := u.Deposit("anyone", domain.NewFunds("SUI", 250)); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := u.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := p.Liquidity(); got != 1250 {
		t.Fatalf("Liquidity = %d, want 1250", got)
	}
	if len(sink.evs) != 1 || sink.evs[0].Type != domain.EventDepositReceived {
		t.Fatalf("events = %v, want one DepositReceived", sink.types())
	}
	if got := sink.evs[0].Fields["depositor"]; got != "anyone" {
		t.Fatalf("depositor = %q, want anyone", got)
	}
}

func TestDepositRejectsWrongAsset(t *testing.T) {
	p, _ := newTestPool(t, 1000, 100, 5000)

	u := p.Begin()
	err := u.Deposit("anyone", domain.NewFunds("USDC", 250))
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("Deposit wrong asset: err = %v, want ErrInvalidAmount", err)
	}
	u.Rollback()
	if got := p.Liquidity(); got != 1000 {
		t.Fatalf("Liquidity = %d, want 1000", got)
	}
}

func TestWithdrawAdminOnly(t *testing.T) {
	p, sink := newTestPool(t, 1000, 100, 5000)

	u := p.Begin()
	if _, err := u.Withdraw(testBorrower, 100); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Withdraw by non-admin: err = %v, want ErrUnauthorized", err)
	}
	u.Rollback()

	u = p.Begin()
	funds, err := u.Withdraw(testAdmin, 100)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if err := u.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if funds.Asset() != "SUI" || funds.Value() != 100 {
		t.Fatalf("Withdraw funds = %s, want 100 SUI", funds)
	}
	if got := p.Liquidity(); got != 900 {
		t.Fatalf("Liquidity = %d, want 900", got)
	}
	if len(sink.evs) != 1 || sink.evs[0].Type != domain.EventWithdrawalProcessed {
		t.Fatalf("events = %v, want one WithdrawalProcessed", sink.types())
	}
}

func TestWithdrawBeyondLiquidity(t *testing.T) {
	p, _ := newTestPool(t, 1000, 100, 5000)

	u := p.Begin()
	if _, err := u.Withdraw(testAdmin, 1001); !errors.Is(err, domain.ErrInsufficientLiquidity) {
		t.Fatalf("Withdraw: err = %v, want ErrInsufficientLiquidity", err)
	}
	u.Rollback()
	if got := p.Liquidity(); got != 1000 {
		t.Fatalf("Liquidity = %d, want 1000", got)
	}
}

func TestPauseResume(t *testing.T) {
	p, sink := newTestPool(t, 1_000_000, 100, 5000)

	u := p.Begin()
	if err := u.Pause(testBorrower); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Pause by non-admin: err = %v, want ErrUnauthorized", err)
	}
	u.Rollback()
	if p.IsPaused() {
		t.Fatal("pool paused after aborted unit")
	}

	u = p.Begin()
	if err := u.Pause(testAdmin); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := u.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !p.IsPaused() {
		t.Fatal("pool not paused")
	}

	u = p.Begin()
	if _, _, err := u.Borrow(testBorrower, 1000); !errors.Is(err, domain.ErrPoolPaused) {
		t.Fatalf("Borrow while paused: err = %v, want ErrPoolPaused", err)
	}
	u.Rollback()

	u = p.Begin()
	if err := u.Resume(testAdmin); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := u.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if p.IsPaused() {
		t.Fatal("pool still paused")
	}

	want := []domain.EventType{domain.EventPoolPaused, domain.EventPoolResumed}
	got := sink.types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if sink.evs[0].Fields["admin"] != testAdmin.String() {
		t.Fatalf("pause admin = %q, want %s", sink.evs[0].Fields["admin"], testAdmin)
	}
	if sink.evs[0].Fields["timestamp"] == "" {
		t.Fatal("pause event missing timestamp")
	}
}

func TestUtilizationRate(t *testing.T) {
	p, _ := newTestPool(t, 1_000_000, 100, 5000)
	if got := p.UtilizationRate(); got != 0 {
		t.Fatalf("UtilizationRate = %d, want 0", got)
	}

	u := p.Begin()
	_, ob, err := u.Borrow(testBorrower, 100_000)
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if err := u.Repay(testBorrower, domain.NewFunds("SUI", ob.Due()), ob); err != nil {
		t.Fatalf("Repay: %v", err)
	}
	if err := u.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// borrowed = repaid = 100000, liquidity = 1001000:
	// 100000 * 10000 / 1001000 truncates to 999.
	if got := p.UtilizationRate(); got != 999 {
		t.Fatalf("UtilizationRate = %d, want 999", got)
	}
}

func TestZeroLiquidityUtilization(t *testing.T) {
	p, _ := newTestPool(t, 0, 100, 5000)
	if got := p.UtilizationRate(); got != 0 {
		t.Fatalf("UtilizationRate = %d, want 0", got)
	}
}

func TestSnapshotReflectsState(t *testing.T) {
	p, _ := newTestPool(t, 1_000_000, 100, 5000)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	snap := p.Snapshot()
	if snap.PoolID != "pool-1" || snap.Asset != "SUI" {
		t.Fatalf("snapshot identity = %s/%s", snap.PoolID, snap.Asset)
	}
	if snap.Liquidity != 1_000_000 || snap.FeeBps != 100 || snap.MaxLoanRatio != 5000 {
		t.Fatalf("snapshot params = %+v", snap)
	}
	if !snap.CapturedAt.Equal(fixed) {
		t.Fatalf("CapturedAt = %v, want %v", snap.CapturedAt, fixed)
	}
}
