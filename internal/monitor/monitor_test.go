package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

type countingArchiver struct {
	runs atomic.Int64
}

func (c *countingArchiver) ArchiveExecutions(ctx context.Context, since time.Time) (int64, error) {
	c.runs.Add(1)
	return 0, nil
}

func (c *countingArchiver) ArchiveEvents(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func TestOrchestratorRunsLoopsUntilCancelled(t *testing.T) {
	archiver := &countingArchiver{}
	runner := NewArchiveRunner(archiver, time.Hour, discardLogger())
	orch := NewOrchestrator(nil, nil, nil, runner, 0, 0, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := orch.Run(ctx); err != nil {
		t.Fatalf("Run returned %v on cancellation, want nil", err)
	}
	if got := archiver.runs.Load(); got < 2 {
		t.Fatalf("archive ran %d times in 100ms at a 10ms interval", got)
	}
}

func TestOrchestratorSkipsUnconfiguredLoops(t *testing.T) {
	orch := NewOrchestrator(nil, nil, nil, nil, time.Second, time.Second, time.Second, discardLogger())

	done := make(chan error, 1)
	go func() { done <- orch.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v with nothing to run", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run blocked with no loops configured")
	}
}

func TestOrchestratorStopsCleanlyWhenFeedCloses(t *testing.T) {
	source := newFakeSource()
	relay := NewEventRelay(source, newFakeBus(), nil, nil, discardLogger())
	orch := NewOrchestrator(relay, nil, nil, nil, 0, 0, 0, discardLogger())

	done := make(chan error, 1)
	go func() { done <- orch.Run(context.Background()) }()

	source.ch <- domain.Event{Type: domain.EventPoolResumed, Pool: "sui-main", At: time.Now()}
	close(source.ch)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after the feed closed, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after the feed closed")
	}
}
