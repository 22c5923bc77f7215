package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	gomail "gopkg.in/gomail.v2"

	"github.com/groundcovergroup/supportbot/internal/log"
	"github.com/groundcovergroup/supportbot/internal/session"
)

// Every dispatcher in these tests must be Closed; a leaked worker
// goroutine fails the run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleTicket() Ticket {
	return Ticket{
		Question:  "Waar blijft mijn bestelling?",
		Name:      "Anna",
		Email:     "anna@example.com",
		SessionID: "sess-1",
		History: []session.Message{
			{Role: session.RoleUser, Content: "waar blijft mijn bestelling"},
			{Role: session.RoleAssistant, Content: "Dat zoek ik op!"},
		},
	}
}

func TestEmailSenderMockMode(t *testing.T) {
	s := NewEmailSender(EmailConfig{}, log.NewNop())

	d, err := s.Send(context.Background(), sampleTicket())
	if err != nil {
		t.Fatalf("mock send error: %v", err)
	}
	if !d.Mocked || d.Method != "email" {
		t.Errorf("Delivery = %+v, want mocked email", d)
	}
}

func TestEmailSenderBuildsMessage(t *testing.T) {
	s := NewEmailSender(EmailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "bot@example.com",
		To:   "support@example.com",
	}, log.NewNop())

	var captured *gomail.Message
	s.send = func(m *gomail.Message) error {
		captured = m
		return nil
	}

	d, err := s.Send(context.Background(), sampleTicket())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if d.Mocked {
		t.Error("configured sender should not report mocked")
	}
	if captured == nil {
		t.Fatal("send func not called")
	}
	if got := captured.GetHeader("Subject"); len(got) == 0 || !strings.Contains(got[0], "Anna") {
		t.Errorf("Subject = %v, want the requester name", got)
	}
	if got := captured.GetHeader("Reply-To"); len(got) == 0 || got[0] != "anna@example.com" {
		t.Errorf("Reply-To = %v", got)
	}
}

func TestEmailSenderFailure(t *testing.T) {
	s := NewEmailSender(EmailConfig{Host: "smtp.example.com", From: "a", To: "b"}, log.NewNop())
	s.send = func(*gomail.Message) error { return errors.New("dial tcp: refused") }

	if _, err := s.Send(context.Background(), sampleTicket()); err == nil {
		t.Error("expected error from failing SMTP")
	}
}

func TestZendeskSenderMockMode(t *testing.T) {
	s := NewZendeskSender(ZendeskConfig{}, log.NewNop())

	d, err := s.Send(context.Background(), sampleTicket())
	if err != nil {
		t.Fatalf("mock send error: %v", err)
	}
	if !d.Mocked || d.Method != "zendesk" {
		t.Errorf("Delivery = %+v, want mocked zendesk", d)
	}
}

func TestZendeskSenderCreatesTicket(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload zendeskTicket

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth, _, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ticket":{"id":4242}}`))
	}))
	defer srv.Close()

	s := NewZendeskSender(ZendeskConfig{
		Email:    "agent@example.com",
		APIToken: "tok",
		BaseURL:  srv.URL,
	}, log.NewNop())

	d, err := s.Send(context.Background(), sampleTicket())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotPath != "/api/v2/tickets.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "agent@example.com/token" {
		t.Errorf("basic auth user = %q", gotAuth)
	}
	if gotPayload.Ticket.Requester.Email != "anna@example.com" {
		t.Errorf("requester = %+v", gotPayload.Ticket.Requester)
	}
	if !strings.Contains(gotPayload.Ticket.Comment.Body, "Gespreksgeschiedenis") {
		t.Error("ticket body should include the conversation history")
	}
	if d.Ref != "4242" {
		t.Errorf("Ref = %q, want 4242", d.Ref)
	}
}

func TestZendeskSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewZendeskSender(ZendeskConfig{Email: "a", APIToken: "t", BaseURL: srv.URL}, log.NewNop())
	if _, err := s.Send(context.Background(), sampleTicket()); err == nil {
		t.Error("expected error on 401")
	}
}

// recordingSender counts deliveries and optionally fails.
type recordingSender struct {
	mu    sync.Mutex
	sent  []Ticket
	err   error
	block chan struct{}
}

func (r *recordingSender) Send(_ context.Context, t Ticket) (Delivery, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Delivery{}, r.err
	}
	r.sent = append(r.sent, t)
	return Delivery{Method: "test"}, nil
}

func (r *recordingSender) Method() string { return "test" }

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 8, log.NewNop())

	for i := 0; i < 5; i++ {
		if !d.Enqueue(sampleTicket()) {
			t.Fatalf("Enqueue %d rejected", i)
		}
	}
	d.Close()

	if sender.count() != 5 {
		t.Errorf("delivered %d tickets, want 5", sender.count())
	}
	if s := d.Stats(); s.Delivered != 5 || s.Failed != 0 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestDispatcherRecordsFailures(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, 8, log.NewNop())

	d.Enqueue(sampleTicket())
	d.Close()

	s := d.Stats()
	if s.Failed != 1 || s.Delivered != 0 {
		t.Errorf("Stats = %+v, want one failure", s)
	}
	if !strings.Contains(s.LastError, "smtp down") {
		t.Errorf("LastError = %q", s.LastError)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	block := make(chan struct{})
	sender := &recordingSender{block: block}
	d := NewDispatcher(sender, 1, log.NewNop())

	// First ticket occupies the worker, second fills the queue.
	d.Enqueue(sampleTicket())
	time.Sleep(10 * time.Millisecond)
	d.Enqueue(sampleTicket())

	if d.Enqueue(sampleTicket()) {
		t.Error("Enqueue on a full queue should return false")
	}

	close(block)
	d.Close()
}

func TestDispatcherEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 4, log.NewNop())
	d.Close()

	if d.Enqueue(sampleTicket()) {
		t.Error("Enqueue after Close should return false")
	}
}
