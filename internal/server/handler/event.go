package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solvios/flashpool/internal/domain"
)

// EventRing is the in-memory event window kept by the live log.
type EventRing interface {
	Recent(n int) []domain.Event
}

// EventStore is the persisted event history, used for per-pool queries that
// can reach past the in-memory window.
type EventStore interface {
	ListByPool(ctx context.Context, pool string, opts domain.ListOpts) ([]domain.Event, error)
}

// EventHandler serves the emitted pool event feed.
type EventHandler struct {
	ring   EventRing
	store  EventStore
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler. store may be nil when event
// persistence is disabled; per-pool queries then return 501.
func NewEventHandler(ring EventRing, store EventStore, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		ring:   ring,
		store:  store,
		logger: logger,
	}
}

// listEventsResponse wraps the event list response.
type listEventsResponse struct {
	Events []domain.Event `json:"events"`
}

// ListEvents returns the most recent events from the in-memory window.
// GET /api/events?limit=50
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	evs := h.ring.Recent(opts.Limit)
	if evs == nil {
		evs = []domain.Event{}
	}

	writeJSON(w, http.StatusOK, listEventsResponse{Events: evs})
}

// ListPoolEvents returns the persisted events of one pool, newest first.
// GET /api/events/{pool}?limit=50&offset=0&since=2026-01-01
func (h *EventHandler) ListPoolEvents(w http.ResponseWriter, r *http.Request) {
	poolID := pathParam(r, "pool")
	if poolID == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "event persistence not configured")
		return
	}

	evs, err := h.store.ListByPool(r.Context(), poolID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pool events failed",
			slog.String("pool", poolID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	if evs == nil {
		evs = []domain.Event{}
	}

	writeJSON(w, http.StatusOK, listEventsResponse{Events: evs})
}
