package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

type fakeRing struct {
	evs  []domain.Event
	gotN int
}

func (f *fakeRing) Recent(n int) []domain.Event {
	f.gotN = n
	return f.evs
}

type fakeEventStore struct {
	evs []domain.Event
	err error

	gotPool string
}

func (f *fakeEventStore) ListByPool(ctx context.Context, pool string, opts domain.ListOpts) ([]domain.Event, error) {
	f.gotPool = pool
	return f.evs, f.err
}

func TestListEventsUsesRing(t *testing.T) {
	ring := &fakeRing{evs: []domain.Event{{Type: domain.EventLoanIssued, Pool: "sui-main", At: time.Now()}}}
	h := NewEventHandler(ring, &fakeEventStore{}, discardLogger())

	req := newPoolRequest(t, http.MethodGet, "/api/events?limit=5", "")
	res := httptest.NewRecorder()
	h.ListEvents(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if ring.gotN != 5 {
		t.Fatalf("ring asked for %d events", ring.gotN)
	}
	got := decodeBody(t, res)
	evs, ok := got["events"].([]any)
	if !ok || len(evs) != 1 {
		t.Fatalf("events = %v", got["events"])
	}
}

func TestListPoolEventsQueriesStore(t *testing.T) {
	store := &fakeEventStore{evs: []domain.Event{{Type: domain.EventDepositReceived, Pool: "sui-main"}}}
	h := NewEventHandler(&fakeRing{}, store, discardLogger())

	req := newPoolRequest(t, http.MethodGet, "/api/events/sui-main", "")
	req.SetPathValue("pool", "sui-main")
	res := httptest.NewRecorder()
	h.ListPoolEvents(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if store.gotPool != "sui-main" {
		t.Fatalf("pool = %q", store.gotPool)
	}
}

func TestListPoolEventsWithoutStore(t *testing.T) {
	h := NewEventHandler(&fakeRing{}, nil, discardLogger())

	req := newPoolRequest(t, http.MethodGet, "/api/events/sui-main", "")
	req.SetPathValue("pool", "sui-main")
	res := httptest.NewRecorder()
	h.ListPoolEvents(res, req)

	if res.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", res.Code)
	}
}
