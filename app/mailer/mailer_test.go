package mailer

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
)

type mockSender struct {
	mu       sync.Mutex
	sent     []Message
	attempts map[string]int
	failures map[string][]error
}

func newMockSender() *mockSender {
	return &mockSender{
		attempts: make(map[string]int),
		failures: make(map[string][]error),
	}
}

func (s *mockSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[msg.To]++
	if queue := s.failures[msg.To]; len(queue) > 0 {
		err := queue[0]
		if len(queue) > 1 {
			s.failures[msg.To] = queue[1:]
		}
		if err != nil {
			return err
		}
	}

	s.sent = append(s.sent, msg)
	return nil
}

// failAlways makes every send to email fail with err.
func (s *mockSender) failAlways(email string, err error) {
	s.failures[email] = []error{err}
}

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestMailer(t *testing.T, sender Sender) (*Mailer, *recordedSleep) {
	t.Helper()

	m, err := New(sender, Config{
		From:           "news@example.com",
		Title:          "Daily Newsletter",
		UnsubscribeURL: "https://example.com/unsubscribe",
	})
	if err != nil {
		t.Fatalf("Failed to create mailer: %v", err)
	}

	rec := &recordedSleep{}
	m.sleep = rec.sleep
	return m, rec
}

func testIssue() Issue {
	return Issue{
		Content: "<h1>Today</h1><p>Summary of the day.</p>",
		Date:    time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC),
		Articles: []database.Article{{
			ID:          "a1",
			FeedName:    "Tech",
			Title:       "Go 1.24 released",
			URL:         "https://example.com/go",
			PublishDate: time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC),
		}},
	}
}

func subscribers(emails ...string) []database.Subscriber {
	subs := make([]database.Subscriber, 0, len(emails))
	for _, email := range emails {
		subs = append(subs, database.Subscriber{ID: email, Email: email, Active: true})
	}
	return subs
}

func TestSendNewsletterDeliversToAll(t *testing.T) {
	sender := newMockSender()
	m, _ := newTestMailer(t, sender)

	result, err := m.SendNewsletter(context.Background(), subscribers("a@x.com", "b@x.com"), testIssue())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(result.Succeeded) != 2 || len(result.Failed) != 0 {
		t.Fatalf("Expected 2 successes, got: %+v", result)
	}

	msg := sender.sent[0]
	if msg.Subject != "Daily Newsletter - Mar 5, 2024" {
		t.Errorf("Unexpected subject: %s", msg.Subject)
	}
	if msg.From != "news@example.com" {
		t.Errorf("Unexpected sender: %s", msg.From)
	}
	if !strings.Contains(msg.HTML, "Summary of the day.") {
		t.Error("Expected generated content in HTML body")
	}
	if !strings.Contains(msg.HTML, "https://example.com/unsubscribe?email=a%40x.com") {
		t.Errorf("Expected per-recipient unsubscribe link in HTML body")
	}
	if !strings.Contains(msg.Text, "Summary of the day.") {
		t.Errorf("Expected text part to carry the content, got: %s", msg.Text)
	}
	if strings.Contains(msg.Text, "<p>") {
		t.Error("Expected text part without HTML tags")
	}
}

func TestSendNewsletterSkipsInactiveSubscribers(t *testing.T) {
	sender := newMockSender()
	m, _ := newTestMailer(t, sender)

	subs := []database.Subscriber{
		{ID: "1", Email: "a@x.com", Active: true},
		{ID: "2", Email: "b@x.com", Active: false},
	}

	result, err := m.SendNewsletter(context.Background(), subs, testIssue())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(result.Succeeded) != 1 || result.Succeeded[0] != "a@x.com" {
		t.Errorf("Expected only a@x.com to succeed, got: %v", result.Succeeded)
	}
	if len(result.Failed) != 0 {
		t.Errorf("Expected no failures, got: %+v", result.Failed)
	}
	if sender.attempts["b@x.com"] != 0 {
		t.Errorf("Expected inactive subscriber not to be contacted, got %d attempts", sender.attempts["b@x.com"])
	}
}

func TestSendNewsletterIsolatesPermanentFailure(t *testing.T) {
	sender := newMockSender()
	sender.failAlways("b@x.com", &ProviderError{Kind: KindRejected, Code: "MessageRejected", Err: errors.New("rejected")})
	m, rec := newTestMailer(t, sender)

	result, err := m.SendNewsletter(context.Background(), subscribers("a@x.com", "b@x.com", "c@x.com"), testIssue())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(result.Succeeded) != 2 {
		t.Errorf("Expected 2 successes, got: %v", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].Email != "b@x.com" {
		t.Errorf("Expected b@x.com to fail, got: %+v", result.Failed)
	}
	if sender.attempts["b@x.com"] != 1 {
		t.Errorf("Expected no retry for permanent failure, got %d attempts", sender.attempts["b@x.com"])
	}
	if len(rec.delays) != 0 {
		t.Errorf("Expected no backoff for permanent failure, got: %v", rec.delays)
	}
}

func TestDeliverRetriesTransientFailures(t *testing.T) {
	sender := newMockSender()
	sender.failAlways("a@x.com", &ProviderError{Kind: KindThrottling, Code: "ThrottlingException", Err: errors.New("slow down")})
	m, rec := newTestMailer(t, sender)

	err := m.deliver(context.Background(), Message{To: "a@x.com"})

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Expected DeliveryError, got: %v", err)
	}
	if !deliveryErr.Transient() {
		t.Error("Expected delivery error to be transient")
	}
	if deliveryErr.Attempts != DefaultMaxRetries+1 {
		t.Errorf("Expected %d attempts, got %d", DefaultMaxRetries+1, deliveryErr.Attempts)
	}
	if sender.attempts["a@x.com"] != DefaultMaxRetries+1 {
		t.Errorf("Expected sender to be called %d times, got %d", DefaultMaxRetries+1, sender.attempts["a@x.com"])
	}

	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(rec.delays) != len(expected) {
		t.Fatalf("Expected %d delays, got: %v", len(expected), rec.delays)
	}
	for i := range expected {
		if rec.delays[i] != expected[i] {
			t.Errorf("Delay %d: expected %v, got %v", i, expected[i], rec.delays[i])
		}
	}
}

func TestDeliverRecoversAfterTransientFailure(t *testing.T) {
	sender := newMockSender()
	sender.failures["a@x.com"] = []error{
		&ProviderError{Kind: KindUnavailable, Code: "ServiceUnavailable", Err: errors.New("down")},
		nil,
	}
	m, rec := newTestMailer(t, sender)

	if err := m.deliver(context.Background(), Message{To: "a@x.com"}); err != nil {
		t.Fatalf("Expected delivery to recover, got: %v", err)
	}
	if sender.attempts["a@x.com"] != 2 {
		t.Errorf("Expected 2 attempts, got %d", sender.attempts["a@x.com"])
	}
	if len(rec.delays) != 1 {
		t.Errorf("Expected a single backoff, got: %v", rec.delays)
	}
}

func TestDeliverStopsOnCancel(t *testing.T) {
	sender := newMockSender()
	sender.failAlways("a@x.com", &ProviderError{Kind: KindTimeout, Err: errors.New("timeout")})
	m, _ := newTestMailer(t, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.deliver(ctx, Message{To: "a@x.com"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancellation error, got: %v", err)
	}
	if sender.attempts["a@x.com"] != 1 {
		t.Errorf("Expected a single attempt, got %d", sender.attempts["a@x.com"])
	}
}

func TestSendNewsletterBrokenTemplateContactsNobody(t *testing.T) {
	sender := newMockSender()
	tmpl := template.Must(template.New("broken").Parse(`<html><body>{{.Missing.Field}}</body></html>`))
	m := newMailer(sender, Config{From: "news@example.com"}, tmpl)

	_, err := m.SendNewsletter(context.Background(), subscribers("a@x.com", "b@x.com"), testIssue())

	var templateErr *TemplateError
	if !errors.As(err, &templateErr) {
		t.Fatalf("Expected TemplateError, got: %v", err)
	}
	if len(sender.attempts) != 0 {
		t.Errorf("Expected no recipients to be contacted, got: %v", sender.attempts)
	}
}

func TestCheckTemplateRequiresSampleArticle(t *testing.T) {
	tmpl := template.Must(template.New("plain").Parse(`<html><body><p>{{.Title}}</p></body></html>`))
	m := newMailer(newMockSender(), Config{From: "news@example.com"}, tmpl)

	if _, err := m.CheckTemplate(); err == nil {
		t.Error("Expected self-check to fail when articles are not rendered")
	}
}

func TestCheckTemplate(t *testing.T) {
	m, _ := newTestMailer(t, newMockSender())

	report, err := m.CheckTemplate()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !report.Success || !report.ContainsArticle {
		t.Errorf("Unexpected report: %+v", report)
	}
	if report.RenderedLength == 0 {
		t.Error("Expected rendered length to be reported")
	}
}

func TestSendNewsletterRequiresSender(t *testing.T) {
	m, err := New(newMockSender(), Config{})
	if err != nil {
		t.Fatalf("Failed to create mailer: %v", err)
	}

	if _, err := m.SendNewsletter(context.Background(), subscribers("a@x.com"), testIssue()); err == nil {
		t.Error("Expected error without a sender address")
	}
}
