package email

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Nagell/chat-nest/internal/models"
	"github.com/Nagell/chat-nest/internal/sanitize"
)

const maxRetries = 3

// Outbound is one rendered notification email.
type Outbound struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers one rendered email. Any failure is treated uniformly for
// retry purposes; the Notifier does not distinguish transient from permanent
// failures.
type Sender interface {
	Send(ctx context.Context, out Outbound) error
}

// Notifier alerts the operator about visitor messages out of band, with
// bounded sequential retries and exponential backoff. It never returns an
// error to the caller: the outcome is observable only through the persisted
// email_sent_at stamp and the logs.
type Notifier struct {
	sender       Sender
	adminEmail   string
	dashboardURL string
	sleep        func(time.Duration)
}

func NewNotifier(sender Sender, adminEmail, dashboardURL string) *Notifier {
	if sender == nil || adminEmail == "" {
		log.Println("email: admin notifications disabled")
	}
	return &Notifier{
		sender:       sender,
		adminEmail:   adminEmail,
		dashboardURL: strings.TrimRight(dashboardURL, "/"),
		sleep:        time.Sleep,
	}
}

// NotifyAdmin attempts delivery up to maxRetries times, waiting 2^attempt
// seconds between failures. Returns true on the first success and false when
// unconfigured or when every attempt fails.
func (n *Notifier) NotifyAdmin(
	ctx context.Context,
	message models.ChatMessage,
	session models.ChatSession,
) bool {
	if n.sender == nil || n.adminEmail == "" {
		return false
	}

	out := n.render(message, session)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := n.sender.Send(ctx, out); err != nil {
			lastErr = err
			log.Printf("email: attempt %d/%d for message %d failed: %v", attempt, maxRetries, message.ID, err)
			if attempt < maxRetries {
				n.sleep(time.Duration(1<<attempt) * time.Second)
			}
			continue
		}

		log.Printf("email: notification for message %d sent (attempt %d)", message.ID, attempt)
		return true
	}

	log.Printf("email: all %d attempts for message %d failed: %v", maxRetries, message.ID, lastErr)
	return false
}

func (n *Notifier) render(message models.ChatMessage, session models.ChatSession) Outbound {
	sanitized := sanitize.Message(message)
	visitor := sanitize.Session(session)

	name := visitor.VisitorName
	if name == "" {
		name = "Anonymous"
	}

	vars := templateVars{
		VisitorName:    name,
		VisitorEmail:   visitor.VisitorEmail,
		Timestamp:      message.CreatedAt.UTC().Format(time.RFC1123),
		MessageContent: sanitized.Content,
		DashboardLink:  fmt.Sprintf("%s/admin/chat?session=%d", n.dashboardURL, session.ID),
		SessionID:      session.ID,
		MessageID:      message.ID,
	}

	return Outbound{
		To:      n.adminEmail,
		ReplyTo: session.VisitorEmail,
		Subject: fmt.Sprintf("New chat message from %s", session.VisitorEmail),
		HTML:    renderTemplate(adminNotificationHTML, vars),
		Text:    renderTemplate(adminNotificationText, vars),
	}
}
