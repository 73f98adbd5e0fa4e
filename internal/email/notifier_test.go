package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Nagell/chat-nest/internal/models"
)

type stubSender struct {
	calls     int
	failFirst int
	sent      []Outbound
}

func (s *stubSender) Send(_ context.Context, out Outbound) error {
	s.calls++
	if s.calls <= s.failFirst {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, out)
	return nil
}

func newTestNotifier(sender Sender, adminEmail string) (*Notifier, *[]time.Duration) {
	notifier := NewNotifier(sender, adminEmail, "http://localhost:3000")
	waits := &[]time.Duration{}
	notifier.sleep = func(d time.Duration) { *waits = append(*waits, d) }
	return notifier, waits
}

func testMessage() models.ChatMessage {
	return models.ChatMessage{
		ID:         9,
		SessionID:  42,
		Content:    "<b>hi</b>",
		SenderType: models.SenderVisitor,
		CreatedAt:  time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
	}
}

func testSession() models.ChatSession {
	return models.ChatSession{
		ID:           42,
		VisitorEmail: "visitor@example.com",
		VisitorName:  "Ada",
	}
}

func TestNotifyAdminSucceedsAfterRetries(t *testing.T) {
	sender := &stubSender{failFirst: 2}
	notifier, waits := newTestNotifier(sender, "admin@example.com")

	delivered := notifier.NotifyAdmin(context.Background(), testMessage(), testSession())
	if !delivered {
		t.Fatal("expected delivery to succeed on the third attempt")
	}
	if sender.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", sender.calls)
	}
	if len(*waits) != 2 || (*waits)[0] != 2*time.Second || (*waits)[1] != 4*time.Second {
		t.Fatalf("unexpected backoff waits: %v", *waits)
	}
}

func TestNotifyAdminGivesUpAfterMaxRetries(t *testing.T) {
	sender := &stubSender{failFirst: 10}
	notifier, waits := newTestNotifier(sender, "admin@example.com")

	delivered := notifier.NotifyAdmin(context.Background(), testMessage(), testSession())
	if delivered {
		t.Fatal("expected delivery to fail")
	}
	if sender.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", sender.calls)
	}
	// No wait after the final attempt.
	if len(*waits) != 2 {
		t.Fatalf("unexpected backoff waits: %v", *waits)
	}
}

func TestNotifyAdminSucceedsFirstTryWithoutWaiting(t *testing.T) {
	sender := &stubSender{}
	notifier, waits := newTestNotifier(sender, "admin@example.com")

	if !notifier.NotifyAdmin(context.Background(), testMessage(), testSession()) {
		t.Fatal("expected delivery to succeed")
	}
	if sender.calls != 1 || len(*waits) != 0 {
		t.Fatalf("expected a single attempt with no waits, got calls=%d waits=%v", sender.calls, *waits)
	}
}

func TestNotifyAdminShortCircuitsWhenUnconfigured(t *testing.T) {
	sender := &stubSender{}

	notifier, _ := newTestNotifier(sender, "")
	if notifier.NotifyAdmin(context.Background(), testMessage(), testSession()) {
		t.Fatal("expected false with no admin address")
	}

	notifier, _ = newTestNotifier(nil, "admin@example.com")
	if notifier.NotifyAdmin(context.Background(), testMessage(), testSession()) {
		t.Fatal("expected false with no sender")
	}

	if sender.calls != 0 {
		t.Fatalf("expected no delivery attempts, got %d", sender.calls)
	}
}

func TestRenderBuildsSanitizedPayload(t *testing.T) {
	sender := &stubSender{}
	notifier, _ := newTestNotifier(sender, "admin@example.com")

	if !notifier.NotifyAdmin(context.Background(), testMessage(), testSession()) {
		t.Fatal("expected delivery to succeed")
	}

	out := sender.sent[0]
	if out.To != "admin@example.com" {
		t.Fatalf("unexpected recipient: %q", out.To)
	}
	if out.ReplyTo != "visitor@example.com" {
		t.Fatalf("unexpected reply-to: %q", out.ReplyTo)
	}
	if out.Subject != "New chat message from visitor@example.com" {
		t.Fatalf("unexpected subject: %q", out.Subject)
	}
	if !strings.Contains(out.HTML, "&lt;b&gt;hi&lt;/b&gt;") {
		t.Fatalf("HTML body not sanitized: %q", out.HTML)
	}
	if strings.Contains(out.HTML, "<b>hi</b>") {
		t.Fatalf("raw content leaked into HTML body: %q", out.HTML)
	}
	if !strings.Contains(out.HTML, "http://localhost:3000/admin/chat?session=42") {
		t.Fatalf("missing dashboard link: %q", out.HTML)
	}
	if !strings.Contains(out.Text, "Ada") {
		t.Fatalf("missing visitor name in text body: %q", out.Text)
	}
}

func TestRenderDefaultsVisitorNameToAnonymous(t *testing.T) {
	sender := &stubSender{}
	notifier, _ := newTestNotifier(sender, "admin@example.com")

	session := testSession()
	session.VisitorName = ""
	if !notifier.NotifyAdmin(context.Background(), testMessage(), session) {
		t.Fatal("expected delivery to succeed")
	}

	if !strings.Contains(sender.sent[0].HTML, "Anonymous") {
		t.Fatalf("expected Anonymous fallback, got %q", sender.sent[0].HTML)
	}
}
