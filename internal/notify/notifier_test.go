package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/solvios/flashpool/internal/domain"
)

type recordingSender struct {
	name     string
	err      error
	titles   []string
	messages []string
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyRespectsEventFilter(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{"loan_repaid", EventPoolUnhealthy}, discardLogger())

	ctx := context.Background()
	if err := n.Notify(ctx, "loan_issued", "issued", "body"); err != nil {
		t.Fatalf("filtered notify: %v", err)
	}
	if err := n.Notify(ctx, "loan_repaid", "repaid", "body"); err != nil {
		t.Fatalf("allowed notify: %v", err)
	}
	if err := n.Notify(ctx, EventPoolUnhealthy, "unhealthy", "body"); err != nil {
		t.Fatalf("synthetic notify: %v", err)
	}

	if len(sender.titles) != 2 || sender.titles[0] != "repaid" || sender.titles[1] != "unhealthy" {
		t.Fatalf("delivered titles = %v", sender.titles)
	}
}

func TestNotifyEmptyFilterAllowsEverything(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, discardLogger())

	if err := n.Notify(context.Background(), "anything", "t", "m"); err != nil {
		t.Fatal(err)
	}
	if len(sender.titles) != 1 {
		t.Fatalf("delivered = %d", len(sender.titles))
	}
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{"loan_repaid"}, discardLogger())

	if err := n.NotifyAll(context.Background(), "startup", "ready"); err != nil {
		t.Fatal(err)
	}
	if len(sender.titles) != 1 {
		t.Fatalf("delivered = %d", len(sender.titles))
	}
}

func TestDispatchKeepsGoingAfterSenderFailure(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("webhook down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.NotifyAll(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("expected combined error")
	}
	if !strings.Contains(err.Error(), "bad: webhook down") {
		t.Fatalf("error = %v", err)
	}
	if len(good.titles) != 1 {
		t.Fatal("healthy sender skipped after failure")
	}
}

func TestNotifyEventFormatsFields(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, discardLogger())

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := domain.NewLoanIssued("sui-main", "0xop", 100_000, 1_000, "loan-1", at)
	if err := n.NotifyEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if sender.titles[0] != "Loan issued on sui-main" {
		t.Fatalf("title = %q", sender.titles[0])
	}
	body := sender.messages[0]
	for _, want := range []string{"amount: 100000", "fee: 1000", "borrower: 0xop", "at: 2026-03-01T12:00:00Z"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
	// Keys render sorted, so amount precedes borrower precedes fee.
	if strings.Index(body, "amount:") > strings.Index(body, "borrower:") {
		t.Fatalf("fields not sorted:\n%s", body)
	}
}

func TestTelegramSenderPostsPayload(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("bot-token", "chat-42")
	s.api = srv.URL

	if err := s.Send(context.Background(), "Title", "Body"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != "chat-42" || gotBody["text"] != "*Title*\nBody" {
		t.Fatalf("payload = %v", gotBody)
	}
}

func TestDiscordSenderRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), "Title", "Body")
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if !strings.Contains(err.Error(), "unexpected status 404") {
		t.Fatalf("error = %v", err)
	}
}
