package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

// Channel names on the event bus. The websocket hub subscribes to the same
// set; per-pool channels are matched by the "pool:*" pattern.
const (
	channelEvents     = "events"
	channelExecutions = "executions"
	poolChannelPrefix = "pool:"
)

// eventStream is the Redis stream behind the pub/sub channels. Pub/sub is
// fire-and-forget; the stream keeps a capped replay window for consumers
// that come up late.
const eventStream = "events:stream"

const relayBuffer = 256

// EventSource is the in-process feed the relay drains.
type EventSource interface {
	Subscribe(buffer int) (<-chan domain.Event, func())
}

// EventAppender persists one event to the durable history.
type EventAppender interface {
	Append(ctx context.Context, ev domain.Event) error
}

// EventNotifier formats an event and dispatches it to the alert channels.
type EventNotifier interface {
	NotifyEvent(ctx context.Context, ev domain.Event) error
}

// EventRelay drains the in-process event log and fans each event out to the
// bus, the stream, the persisted history, and the notifier. Every sink is
// best effort: a failing sink logs and the relay moves on, so a Redis or
// Postgres hiccup never blocks the core.
type EventRelay struct {
	source   EventSource
	bus      domain.EventBus
	store    EventAppender
	notifier EventNotifier
	logger   *slog.Logger
}

// NewEventRelay creates a new EventRelay. bus, store and notifier may each
// be nil; nil sinks are skipped.
func NewEventRelay(source EventSource, bus domain.EventBus, store EventAppender, notifier EventNotifier, logger *slog.Logger) *EventRelay {
	return &EventRelay{
		source:   source,
		bus:      bus,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Run drains the event feed until the context is cancelled or the feed
// closes.
func (r *EventRelay) Run(ctx context.Context) error {
	ch, cancel := r.source.Subscribe(relayBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("event relay stopped")
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				r.logger.Info("event feed closed")
				return nil
			}
			r.fanOut(ctx, ev)
		}
	}
}

func (r *EventRelay) fanOut(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(map[string]any{
		"type":   ev.Type,
		"pool":   ev.Pool,
		"at":     ev.At.UTC().Format(time.RFC3339Nano),
		"fields": ev.Fields,
	})
	if err != nil {
		r.logger.Warn("event encode failed",
			slog.String("type", string(ev.Type)),
			slog.String("error", err.Error()),
		)
		return
	}

	if r.bus != nil {
		r.publish(ctx, channelEvents, payload)
		if ev.Pool != "" {
			r.publish(ctx, poolChannelPrefix+ev.Pool, payload)
		}
		if ev.Type == domain.EventArbitrageExecuted || ev.Type == domain.EventArbitrageFailed {
			r.publish(ctx, channelExecutions, payload)
		}
		if err := r.bus.StreamAppend(ctx, eventStream, payload); err != nil {
			r.logger.Warn("stream append failed",
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}

	if r.store != nil {
		if err := r.store.Append(ctx, ev); err != nil {
			r.logger.Warn("event persist failed",
				slog.String("type", string(ev.Type)),
				slog.String("pool", ev.Pool),
				slog.String("error", err.Error()),
			)
		}
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyEvent(ctx, ev); err != nil {
			r.logger.Warn("event notify failed",
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (r *EventRelay) publish(ctx context.Context, channel string, payload []byte) {
	if err := r.bus.Publish(ctx, channel, payload); err != nil {
		r.logger.Warn("bus publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
