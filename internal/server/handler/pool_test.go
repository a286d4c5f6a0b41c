package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePoolService returns canned values and records the arguments of the
// last call.
type fakePoolService struct {
	snap    domain.PoolSnapshot
	funds   domain.Funds
	health  domain.PoolHealth
	list    []domain.PoolSnapshot
	history []domain.PoolSnapshot
	err     error

	gotSpec   service.PoolSpec
	gotPool   string
	gotCaller domain.Identity
	gotAmount uint64
	gotOpts   domain.ListOpts
	gotPaused *bool
}

func (f *fakePoolService) CreatePool(ctx context.Context, spec service.PoolSpec) (domain.PoolSnapshot, error) {
	f.gotSpec = spec
	return f.snap, f.err
}

func (f *fakePoolService) Deposit(ctx context.Context, poolID string, from domain.Identity, amount uint64) (domain.PoolSnapshot, error) {
	f.gotPool, f.gotCaller, f.gotAmount = poolID, from, amount
	return f.snap, f.err
}

func (f *fakePoolService) Withdraw(ctx context.Context, poolID string, caller domain.Identity, amount uint64) (domain.Funds, error) {
	f.gotPool, f.gotCaller, f.gotAmount = poolID, caller, amount
	return f.funds, f.err
}

func (f *fakePoolService) Pause(ctx context.Context, poolID string, caller domain.Identity) error {
	paused := true
	f.gotPool, f.gotCaller, f.gotPaused = poolID, caller, &paused
	return f.err
}

func (f *fakePoolService) Resume(ctx context.Context, poolID string, caller domain.Identity) error {
	paused := false
	f.gotPool, f.gotCaller, f.gotPaused = poolID, caller, &paused
	return f.err
}

func (f *fakePoolService) Snapshot(ctx context.Context, poolID string) (domain.PoolSnapshot, error) {
	f.gotPool = poolID
	return f.snap, f.err
}

func (f *fakePoolService) ListSnapshots(ctx context.Context) ([]domain.PoolSnapshot, error) {
	return f.list, f.err
}

func (f *fakePoolService) Health(ctx context.Context, poolID string) (domain.PoolHealth, error) {
	f.gotPool = poolID
	return f.health, f.err
}

func (f *fakePoolService) History(ctx context.Context, poolID string, opts domain.ListOpts) ([]domain.PoolSnapshot, error) {
	f.gotPool, f.gotOpts = poolID, opts
	return f.history, f.err
}

func newPoolRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	return httptest.NewRequest(method, target, rd)
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, res.Body.String())
	}
	return out
}

func TestCreatePoolReturnsSnapshot(t *testing.T) {
	fake := &fakePoolService{snap: domain.PoolSnapshot{PoolID: "sui-main", Asset: "SUI", Liquidity: 1_000_000}}
	h := NewPoolHandler(fake, discardLogger())

	body := `{"id":"sui-main","asset":"SUI","liquidity":1000000,"fee_bps":100,"max_loan_ratio":5000,"admin":"0xadmin"}`
	req := newPoolRequest(t, http.MethodPost, "/api/pools", body)
	res := httptest.NewRecorder()
	h.CreatePool(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %q)", res.Code, res.Body.String())
	}
	if fake.gotSpec.ID != "sui-main" || fake.gotSpec.FeeBps != 100 || fake.gotSpec.Admin != "0xadmin" {
		t.Fatalf("spec not forwarded: %+v", fake.gotSpec)
	}
	got := decodeBody(t, res)
	if got["PoolID"] != "sui-main" {
		t.Fatalf("PoolID = %v", got["PoolID"])
	}
}

func TestCreatePoolValidatesBody(t *testing.T) {
	h := NewPoolHandler(&fakePoolService{}, discardLogger())

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"id":`},
		{"missing id", `{"asset":"SUI"}`},
		{"missing asset", `{"id":"sui-main"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newPoolRequest(t, http.MethodPost, "/api/pools", tc.body)
			res := httptest.NewRecorder()
			h.CreatePool(res, req)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", res.Code)
			}
		})
	}
}

func TestCreatePoolMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate", domain.ErrAlreadyExists, http.StatusConflict},
		{"bad fee", domain.ErrInvalidFee, http.StatusBadRequest},
		{"asset not whitelisted", domain.ErrAssetNotWhitelisted, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewPoolHandler(&fakePoolService{err: tc.err}, discardLogger())
			req := newPoolRequest(t, http.MethodPost, "/api/pools", `{"id":"p","asset":"SUI"}`)
			res := httptest.NewRecorder()
			h.CreatePool(res, req)
			if res.Code != tc.want {
				t.Fatalf("status = %d, want %d", res.Code, tc.want)
			}
			if got := decodeBody(t, res)["error"]; got == "" {
				t.Fatal("expected error message in body")
			}
		})
	}
}

func TestListPoolsEmptyIsArray(t *testing.T) {
	h := NewPoolHandler(&fakePoolService{}, discardLogger())
	req := newPoolRequest(t, http.MethodGet, "/api/pools", "")
	res := httptest.NewRecorder()
	h.ListPools(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"pools":[]`) {
		t.Fatalf("want empty array, got %q", res.Body.String())
	}
}

func TestGetPoolNotFound(t *testing.T) {
	h := NewPoolHandler(&fakePoolService{err: domain.ErrNotFound}, discardLogger())
	req := newPoolRequest(t, http.MethodGet, "/api/pools/ghost", "")
	req.SetPathValue("id", "ghost")
	res := httptest.NewRecorder()
	h.GetPool(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestDepositForwardsCallerFromBody(t *testing.T) {
	fake := &fakePoolService{snap: domain.PoolSnapshot{PoolID: "sui-main", Liquidity: 1_000_500}}
	h := NewPoolHandler(fake, discardLogger())

	req := newPoolRequest(t, http.MethodPost, "/api/pools/sui-main/deposit", `{"amount":500,"caller":"0xlp"}`)
	req.SetPathValue("id", "sui-main")
	res := httptest.NewRecorder()
	h.Deposit(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d (body %q)", res.Code, res.Body.String())
	}
	if fake.gotPool != "sui-main" || fake.gotCaller != "0xlp" || fake.gotAmount != 500 {
		t.Fatalf("call = (%q, %q, %d)", fake.gotPool, fake.gotCaller, fake.gotAmount)
	}
}

func TestDepositPausedPoolConflicts(t *testing.T) {
	h := NewPoolHandler(&fakePoolService{err: domain.ErrPoolPaused}, discardLogger())
	req := newPoolRequest(t, http.MethodPost, "/api/pools/sui-main/deposit", `{"amount":500}`)
	req.SetPathValue("id", "sui-main")
	res := httptest.NewRecorder()
	h.Deposit(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", res.Code)
	}
}

func TestWithdrawReportsFunds(t *testing.T) {
	fake := &fakePoolService{funds: domain.NewFunds("SUI", 250)}
	h := NewPoolHandler(fake, discardLogger())

	req := newPoolRequest(t, http.MethodPost, "/api/pools/sui-main/withdraw", `{"amount":250,"caller":"0xadmin"}`)
	req.SetPathValue("id", "sui-main")
	res := httptest.NewRecorder()
	h.Withdraw(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	got := decodeBody(t, res)
	if got["asset"] != "SUI" || got["amount"] != float64(250) {
		t.Fatalf("body = %v", got)
	}
}

func TestWithdrawNonAdminForbidden(t *testing.T) {
	h := NewPoolHandler(&fakePoolService{err: domain.ErrUnauthorized}, discardLogger())
	req := newPoolRequest(t, http.MethodPost, "/api/pools/sui-main/withdraw", `{"amount":250,"caller":"0xother"}`)
	req.SetPathValue("id", "sui-main")
	res := httptest.NewRecorder()
	h.Withdraw(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.Code)
	}
}

func TestPauseAndResumeReportState(t *testing.T) {
	fake := &fakePoolService{}
	h := NewPoolHandler(fake, discardLogger())

	req := newPoolRequest(t, http.MethodPost, "/api/pools/sui-main/pause", `{"caller":"0xadmin"}`)
	req.SetPathValue("id", "sui-main")
	res := httptest.NewRecorder()
	h.Pause(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("pause status = %d", res.Code)
	}
	if fake.gotPaused == nil || !*fake.gotPaused {
		t.Fatal("pause not forwarded")
	}
	if got := decodeBody(t, res)["status"]; got != "paused" {
		t.Fatalf("status field = %v", got)
	}

	req = newPoolRequest(t, http.MethodPost, "/api/pools/sui-main/resume", "")
	req.SetPathValue("id", "sui-main")
	res = httptest.NewRecorder()
	h.Resume(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("resume status = %d", res.Code)
	}
	if fake.gotPaused == nil || *fake.gotPaused {
		t.Fatal("resume not forwarded")
	}
	if fake.gotCaller != "anonymous" {
		t.Fatalf("caller = %q, want anonymous fallback", fake.gotCaller)
	}
}

func TestPoolHistoryParsesWindow(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakePoolService{history: []domain.PoolSnapshot{{PoolID: "sui-main", CapturedAt: now}}}
	h := NewPoolHandler(fake, discardLogger())

	req := newPoolRequest(t, http.MethodGet, "/api/pools/sui-main/history?limit=10&since=2026-01-01", "")
	req.SetPathValue("id", "sui-main")
	res := httptest.NewRecorder()
	h.GetPoolHistory(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if fake.gotOpts.Limit != 10 {
		t.Fatalf("limit = %d", fake.gotOpts.Limit)
	}
	if fake.gotOpts.Since == nil || !fake.gotOpts.Since.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("since = %v", fake.gotOpts.Since)
	}
}

func TestPoolHealthEndpoint(t *testing.T) {
	fake := &fakePoolService{health: domain.PoolHealth{PoolID: "sui-main", Healthy: true, RecoveryPct: 100}}
	h := NewPoolHandler(fake, discardLogger())

	req := newPoolRequest(t, http.MethodGet, "/api/pools/sui-main/health", "")
	req.SetPathValue("id", "sui-main")
	res := httptest.NewRecorder()
	h.GetPoolHealth(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	got := decodeBody(t, res)
	if got["Healthy"] != true {
		t.Fatalf("body = %v", got)
	}
}
