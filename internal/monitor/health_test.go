package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/solvios/flashpool/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func healthySnap(id string) domain.PoolSnapshot {
	return domain.PoolSnapshot{
		PoolID:        id,
		Asset:         "SUI",
		Liquidity:     1_000_000,
		TotalBorrowed: 100_000,
		TotalRepaid:   100_000,
	}
}

func unhealthySnap(id string) domain.PoolSnapshot {
	return domain.PoolSnapshot{
		PoolID:        id,
		Asset:         "SUI",
		Liquidity:     1_000_000,
		TotalBorrowed: 900_000,
		TotalRepaid:   500_000,
	}
}

type fakeSnapshotter struct {
	snaps []domain.PoolSnapshot
}

func (f *fakeSnapshotter) SnapshotAll(ctx context.Context) []domain.PoolSnapshot {
	return f.snaps
}

type fakeAlerter struct {
	events []string
	titles []string
	err    error
}

func (f *fakeAlerter) Notify(ctx context.Context, event, title, message string) error {
	f.events = append(f.events, event)
	f.titles = append(f.titles, title)
	return f.err
}

func TestHealthCheckerAlertsOnTransitionsOnly(t *testing.T) {
	pools := &fakeSnapshotter{snaps: []domain.PoolSnapshot{healthySnap("sui-main")}}
	alerter := &fakeAlerter{}
	checker := NewHealthChecker(pools, alerter, discardLogger())
	ctx := context.Background()

	checker.Run(ctx)
	if len(alerter.titles) != 0 {
		t.Fatalf("healthy pool alerted: %v", alerter.titles)
	}

	pools.snaps = []domain.PoolSnapshot{unhealthySnap("sui-main")}
	checker.Run(ctx)
	checker.Run(ctx)
	if len(alerter.titles) != 1 {
		t.Fatalf("want exactly one unhealthy alert, got %v", alerter.titles)
	}
	if !strings.Contains(alerter.titles[0], "sui-main unhealthy") {
		t.Fatalf("unexpected alert title %q", alerter.titles[0])
	}

	pools.snaps = []domain.PoolSnapshot{healthySnap("sui-main")}
	checker.Run(ctx)
	checker.Run(ctx)
	if len(alerter.titles) != 2 {
		t.Fatalf("want one recovery alert, got %v", alerter.titles)
	}
	if !strings.Contains(alerter.titles[1], "sui-main recovered") {
		t.Fatalf("unexpected recovery title %q", alerter.titles[1])
	}
}

func TestHealthCheckerAlertsNewPoolSeenUnhealthy(t *testing.T) {
	pools := &fakeSnapshotter{snaps: []domain.PoolSnapshot{unhealthySnap("usdc-main")}}
	alerter := &fakeAlerter{}
	checker := NewHealthChecker(pools, alerter, discardLogger())

	checker.Run(context.Background())

	if len(alerter.titles) != 1 {
		t.Fatalf("want one alert for a pool first seen unhealthy, got %v", alerter.titles)
	}
	if alerter.events[0] != "pool_unhealthy" {
		t.Fatalf("want pool_unhealthy filter key, got %q", alerter.events[0])
	}
}

func TestHealthCheckerTracksPoolsIndependently(t *testing.T) {
	pools := &fakeSnapshotter{snaps: []domain.PoolSnapshot{
		healthySnap("sui-main"),
		unhealthySnap("usdc-main"),
	}}
	alerter := &fakeAlerter{}
	checker := NewHealthChecker(pools, alerter, discardLogger())

	checker.Run(context.Background())
	checker.Run(context.Background())

	if len(alerter.titles) != 1 {
		t.Fatalf("want one alert, got %v", alerter.titles)
	}
	if !strings.Contains(alerter.titles[0], "usdc-main") {
		t.Fatalf("alert named wrong pool: %q", alerter.titles[0])
	}
}

func TestHealthCheckerWithoutAlerter(t *testing.T) {
	pools := &fakeSnapshotter{snaps: []domain.PoolSnapshot{unhealthySnap("sui-main")}}
	checker := NewHealthChecker(pools, nil, discardLogger())

	checker.Run(context.Background())
}

func TestHealthCheckerKeepsRunningWhenAlertFails(t *testing.T) {
	pools := &fakeSnapshotter{snaps: []domain.PoolSnapshot{
		unhealthySnap("a"),
		unhealthySnap("b"),
	}}
	alerter := &fakeAlerter{err: errors.New("webhook down")}
	checker := NewHealthChecker(pools, alerter, discardLogger())

	checker.Run(context.Background())

	if len(alerter.titles) != 2 {
		t.Fatalf("want both pools alerted despite the failure, got %v", alerter.titles)
	}
}
