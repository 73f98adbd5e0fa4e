package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Nagell/chat-nest/internal/models"
	"github.com/Nagell/chat-nest/internal/sanitize"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found")
)

// A session younger than this is handed back to a returning visitor instead
// of minting a new one.
const sessionReuseWindow = 24 * time.Hour

type sessionStore interface {
	Create(ctx context.Context, visitorEmail, visitorName, sessionToken string) (*models.ChatSession, error)
	LatestByEmail(ctx context.Context, visitorEmail string) (*models.ChatSession, error)
	GetByID(ctx context.Context, sessionID int64) (*models.ChatSession, error)
	ListSummaries(ctx context.Context) ([]models.SessionSummary, error)
}

type messageStore interface {
	Insert(ctx context.Context, sessionID int64, content, senderType string) (*models.ChatMessage, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, sessionID int64, messageIDs []int64) error
	StampEmailSent(ctx context.Context, messageID int64) error
}

type broadcaster interface {
	BroadcastMessage(sessionID int64, message models.ChatMessage) int
}

type adminNotifier interface {
	NotifyAdmin(ctx context.Context, message models.ChatMessage, session models.ChatSession) bool
}

type ChatService struct {
	sessionRepo sessionStore
	messageRepo messageStore
	hub         broadcaster
	notifier    adminNotifier
	now         func() time.Time
	spawn       func(func())
}

func NewChatService(
	sessionRepo sessionStore,
	messageRepo messageStore,
	hub broadcaster,
	notifier adminNotifier,
) *ChatService {
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		hub:         hub,
		notifier:    notifier,
		now:         time.Now,
		spawn:       func(fn func()) { go fn() },
	}
}

// CreateSession returns the visitor's most recent session when it is younger
// than the reuse window, otherwise creates a fresh one.
func (s *ChatService) CreateSession(
	ctx context.Context,
	visitorEmail string,
	visitorName string,
) (*models.ChatSession, error) {
	visitorEmail = strings.TrimSpace(visitorEmail)
	if visitorEmail == "" {
		return nil, ErrInvalidInput
	}

	latest, err := s.sessionRepo.LatestByEmail(ctx, visitorEmail)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if latest != nil && s.now().Sub(latest.CreatedAt) < sessionReuseWindow {
		log.Printf("chat: reusing session %d for %s", latest.ID, visitorEmail)
		return latest, nil
	}

	session, err := s.sessionRepo.Create(ctx, visitorEmail, strings.TrimSpace(visitorName), uuid.NewString())
	if err != nil {
		return nil, err
	}

	log.Printf("chat: created session %d for %s", session.ID, visitorEmail)
	return session, nil
}

func (s *ChatService) GetSession(ctx context.Context, sessionID int64) (*models.ChatSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// GetMessages returns the session's messages in order, with content
// sanitized for display.
func (s *ChatService) GetMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	messages, err := s.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for i := range messages {
		messages[i] = sanitize.Message(messages[i])
	}
	return messages, nil
}

// SendMessage persists the message, fans it out to the session's live
// connections, and for visitor messages fires the admin notification in the
// background. The notification outcome never affects the returned result.
func (s *ChatService) SendMessage(
	ctx context.Context,
	sessionID int64,
	content string,
	senderType string,
) (*models.ChatMessage, error) {
	if senderType != models.SenderVisitor && senderType != models.SenderAdmin {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" || sessionID <= 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	message, err := s.messageRepo.Insert(ctx, sessionID, trimmed, senderType)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastMessage(sessionID, *message)

	if senderType == models.SenderVisitor {
		msg, sess := *message, *session
		s.spawn(func() { s.dispatchNotification(msg, sess) })
	}

	log.Printf("chat: message %d sent by %s in session %d", message.ID, senderType, sessionID)
	return message, nil
}

func (s *ChatService) MarkMessagesRead(ctx context.Context, sessionID int64, messageIDs []int64) error {
	if sessionID <= 0 {
		return ErrInvalidInput
	}
	return s.messageRepo.MarkRead(ctx, sessionID, messageIDs)
}

// AdminSessionSummaries returns every session with last-message and unread
// counts, sanitized for the dashboard.
func (s *ChatService) AdminSessionSummaries(ctx context.Context) ([]models.SessionSummary, error) {
	summaries, err := s.sessionRepo.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		summaries[i].ChatSession = sanitize.Session(summaries[i].ChatSession)
		summaries[i].LastMessage = sanitize.EscapeHTML(truncate(summaries[i].LastMessage, 100))
	}
	return summaries, nil
}

// dispatchNotification runs detached from the request: a visitor
// disconnecting mid-retry must not cancel the notification, and its outcome
// is observed only through the persisted stamp.
func (s *ChatService) dispatchNotification(message models.ChatMessage, session models.ChatSession) {
	ctx := context.Background()

	if !s.notifier.NotifyAdmin(ctx, message, session) {
		return
	}

	if err := s.messageRepo.StampEmailSent(ctx, message.ID); err != nil {
		log.Printf("chat: stamp email_sent_at for message %d: %v", message.ID, err)
	}
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
