package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

type fakeSource struct {
	ch chan domain.Event
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan domain.Event, 16)}
}

func (f *fakeSource) Subscribe(buffer int) (<-chan domain.Event, func()) {
	return f.ch, func() {}
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streamed  [][]byte
	pubErr    error
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][][]byte)}
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return b.pubErr
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (b *fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamed = append(b.streamed, payload)
	return nil
}

func (b *fakeBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *fakeBus) channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.published))
	for name := range b.published {
		names = append(names, name)
	}
	return names
}

func (b *fakeBus) payloadsOn(channel string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[channel]
}

func (b *fakeBus) streamLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streamed)
}

type fakeEventStore struct {
	mu  sync.Mutex
	got []domain.Event
	err error
}

func (s *fakeEventStore) Append(ctx context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev)
	return s.err
}

func (s *fakeEventStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type fakeEventNotifier struct {
	mu  sync.Mutex
	got []domain.Event
	err error
}

func (n *fakeEventNotifier) NotifyEvent(ctx context.Context, ev domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, ev)
	return n.err
}

func (n *fakeEventNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

// waitFor polls cond until it holds or the deadline lapses.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestRelayFansOutToEverySink(t *testing.T) {
	source := newFakeSource()
	bus := newFakeBus()
	store := &fakeEventStore{}
	notifier := &fakeEventNotifier{}
	relay := NewEventRelay(source, bus, store, notifier, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source.ch <- domain.NewLoanIssued("sui-main", "0xabc", 100_000, 30, "loan-1", at)

	waitFor(t, func() bool { return notifier.count() == 1 })
	waitFor(t, func() bool { return store.count() == 1 })
	waitFor(t, func() bool { return len(bus.payloadsOn("events")) == 1 })

	if got := bus.payloadsOn("pool:sui-main"); len(got) != 1 {
		t.Fatalf("pool channel got %d payloads, want 1", len(got))
	}
	if got := bus.payloadsOn("executions"); len(got) != 0 {
		t.Fatalf("loan event leaked to the executions channel")
	}
	if bus.streamLen() != 1 {
		t.Fatalf("stream got %d entries, want 1", bus.streamLen())
	}

	var decoded struct {
		Type   string            `json:"type"`
		Pool   string            `json:"pool"`
		At     string            `json:"at"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(bus.payloadsOn("events")[0], &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.Type != "loan_issued" || decoded.Pool != "sui-main" {
		t.Fatalf("unexpected payload envelope: %+v", decoded)
	}
	if decoded.Fields["amount"] != "100000" || decoded.Fields["borrower"] != "0xabc" {
		t.Fatalf("unexpected payload fields: %v", decoded.Fields)
	}
	if decoded.At != at.Format(time.RFC3339Nano) {
		t.Fatalf("payload at = %q, want %q", decoded.At, at.Format(time.RFC3339Nano))
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestRelayRoutesExecutionEvents(t *testing.T) {
	source := newFakeSource()
	bus := newFakeBus()
	relay := NewEventRelay(source, bus, nil, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	source.ch <- domain.Event{Type: domain.EventArbitrageExecuted, Pool: "sui-main", At: time.Now()}
	source.ch <- domain.Event{Type: domain.EventArbitrageFailed, Pool: "sui-main", At: time.Now()}

	waitFor(t, func() bool { return len(bus.payloadsOn("executions")) == 2 })
	if got := bus.payloadsOn("events"); len(got) != 2 {
		t.Fatalf("events channel got %d payloads, want 2", len(got))
	}
}

func TestRelayStopsWhenFeedCloses(t *testing.T) {
	source := newFakeSource()
	relay := NewEventRelay(source, newFakeBus(), nil, nil, discardLogger())

	done := make(chan error, 1)
	go func() { done <- relay.Run(context.Background()) }()

	close(source.ch)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v for a closed feed, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the feed closed")
	}
}

func TestRelayKeepsGoingWhenSinksFail(t *testing.T) {
	source := newFakeSource()
	bus := newFakeBus()
	bus.pubErr = errors.New("redis down")
	store := &fakeEventStore{err: errors.New("pg down")}
	notifier := &fakeEventNotifier{}
	relay := NewEventRelay(source, bus, store, notifier, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	source.ch <- domain.NewPoolPaused("sui-main", "0xadmin", time.Now())

	waitFor(t, func() bool { return notifier.count() == 1 })
	if store.count() != 1 {
		t.Fatalf("store was skipped after bus failure")
	}
}
