// Package events provides the in-process event log: a bounded append-only
// ring holding committed pool events, with fan-out to subscriber channels
// for the websocket hub and the monitor relay.
package events

import (
	"log/slog"
	"sync"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/pool"
)

// DefaultCapacity bounds the ring when NewLog is given a non-positive
// capacity.
const DefaultCapacity = 4096

// Log is the shared event sink. Pools append their committed events here;
// consumers either poll Recent or register a channel with Subscribe.
// Appends never block: a subscriber whose buffer is full misses the event
// (the drop is logged), the ring itself always keeps the newest entries.
type Log struct {
	mu     sync.Mutex
	buf    []domain.Event
	start  int
	count  int
	total  uint64
	subs   map[int]chan domain.Event
	nextID int
	logger *slog.Logger
}

// NewLog creates a Log retaining up to capacity events.
func NewLog(capacity int, logger *slog.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		buf:    make([]domain.Event, capacity),
		subs:   make(map[int]chan domain.Event),
		logger: logger.With(slog.String("component", "event_log")),
	}
}

// Append records evs in order and offers each to every subscriber.
func (l *Log) Append(evs ...domain.Event) {
	if len(evs) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range evs {
		l.push(ev)
		for id, ch := range l.subs {
			select {
			case ch <- ev:
			default:
				l.logger.Warn("subscriber lagging, event dropped",
					slog.Int("subscriber", id),
					slog.String("type", string(ev.Type)),
					slog.String("pool", ev.Pool))
			}
		}
	}
}

func (l *Log) push(ev domain.Event) {
	if l.count == len(l.buf) {
		l.buf[l.start] = ev
		l.start = (l.start + 1) % len(l.buf)
	} else {
		l.buf[(l.start+l.count)%len(l.buf)] = ev
		l.count++
	}
	l.total++
}

// Subscribe registers a channel with the given buffer size and returns it
// with a cancel func. Cancel is idempotent; after it returns the channel
// is closed and receives nothing further.
func (l *Log) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan domain.Event, buffer)
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = ch
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Recent returns up to n retained events, newest first. n <= 0 returns
// everything retained.
func (l *Log) Recent(n int) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > l.count {
		n = l.count
	}
	out := make([]domain.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, l.buf[(l.start+l.count-1-i)%len(l.buf)])
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Total returns the lifetime append count, including evicted entries.
func (l *Log) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

var _ pool.EventSink = (*Log)(nil)
