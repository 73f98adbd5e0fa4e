package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Nagell/chat-nest/internal/models"
	"github.com/Nagell/chat-nest/internal/services"
	chatws "github.com/Nagell/chat-nest/internal/websocket"
)

type stubChatService struct {
	sessionResult  *models.ChatSession
	sessionErr     error
	messagesResult []models.ChatMessage
	messagesErr    error
	messageResult  *models.ChatMessage
	messageErr     error
	summaries      []models.SessionSummary
	markReadErr    error

	lastEmail     string
	lastName      string
	lastSessionID int64
	lastContent   string
	lastSender    string
	lastMarkedIDs []int64
}

func (s *stubChatService) CreateSession(_ context.Context, visitorEmail, visitorName string) (*models.ChatSession, error) {
	s.lastEmail = visitorEmail
	s.lastName = visitorName
	return s.sessionResult, s.sessionErr
}

func (s *stubChatService) GetSession(_ context.Context, sessionID int64) (*models.ChatSession, error) {
	s.lastSessionID = sessionID
	return s.sessionResult, s.sessionErr
}

func (s *stubChatService) GetMessages(_ context.Context, sessionID int64) ([]models.ChatMessage, error) {
	s.lastSessionID = sessionID
	return s.messagesResult, s.messagesErr
}

func (s *stubChatService) SendMessage(_ context.Context, sessionID int64, content, senderType string) (*models.ChatMessage, error) {
	s.lastSessionID = sessionID
	s.lastContent = content
	s.lastSender = senderType
	return s.messageResult, s.messageErr
}

func (s *stubChatService) MarkMessagesRead(_ context.Context, sessionID int64, messageIDs []int64) error {
	s.lastSessionID = sessionID
	s.lastMarkedIDs = messageIDs
	return s.markReadErr
}

func (s *stubChatService) AdminSessionSummaries(_ context.Context) ([]models.SessionSummary, error) {
	return s.summaries, nil
}

func newTestApp(service chatApplicationService) (*fiber.App, *ChatHandler) {
	handler := NewChatHandler(service, chatws.NewHub())
	app := fiber.New()
	app.Post("/api/chat/sessions", handler.CreateSession)
	app.Get("/api/chat/sessions/:id", handler.GetSession)
	app.Get("/api/chat/sessions/:id/messages", handler.GetMessages)
	app.Post("/api/chat/sessions/:id/mark-read", handler.MarkMessagesRead)
	app.Post("/api/chat/messages", handler.SendMessage)
	app.Get("/api/chat/admin/sessions", handler.AdminSessions)
	app.Get("/api/chat/admin/stats", handler.ConnectionStats)
	return app, handler
}

func TestCreateSessionReturnsCreatedSession(t *testing.T) {
	service := &stubChatService{
		sessionResult: &models.ChatSession{ID: 42, VisitorEmail: "a@b.com", CreatedAt: time.Now().UTC()},
	}
	app, _ := newTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sessions",
		strings.NewReader(`{"visitor_email":"a@b.com","visitor_name":"Ada"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastEmail != "a@b.com" || service.lastName != "Ada" {
		t.Fatalf("unexpected forwarded input: %q %q", service.lastEmail, service.lastName)
	}

	var body struct {
		Success bool               `json:"success"`
		Data    models.ChatSession `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !body.Success || body.Data.ID != 42 {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestCreateSessionRejectsInvalidEmail(t *testing.T) {
	app, _ := newTestApp(&stubChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sessions",
		strings.NewReader(`{"visitor_email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetMessagesReturnsCount(t *testing.T) {
	service := &stubChatService{
		messagesResult: []models.ChatMessage{
			{ID: 1, SessionID: 42, Content: "hello", SenderType: models.SenderVisitor},
			{ID: 2, SessionID: 42, Content: "hi", SenderType: models.SenderAdmin},
		},
	}
	app, _ := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chat/sessions/42/messages", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 42 {
		t.Fatalf("expected session 42, got %d", service.lastSessionID)
	}

	var body struct {
		Success bool                 `json:"success"`
		Data    []models.ChatMessage `json:"data"`
		Count   int                  `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Count != 2 || len(body.Data) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGetSessionReturnsNotFound(t *testing.T) {
	app, _ := newTestApp(&stubChatService{sessionErr: services.ErrSessionNotFound})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chat/sessions/99", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetMessagesRejectsBadSessionID(t *testing.T) {
	app, _ := newTestApp(&stubChatService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chat/sessions/abc/messages", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSendMessageForwardsPayload(t *testing.T) {
	service := &stubChatService{
		messageResult: &models.ChatMessage{ID: 9, SessionID: 42, Content: "hello", SenderType: models.SenderVisitor},
	}
	app, _ := newTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages",
		strings.NewReader(`{"session_id":42,"content":"hello","sender_type":"visitor"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 42 || service.lastContent != "hello" || service.lastSender != "visitor" {
		t.Fatalf("unexpected forwarded payload: %d %q %q", service.lastSessionID, service.lastContent, service.lastSender)
	}
}

func TestSendMessageMapsInvalidInput(t *testing.T) {
	app, _ := newTestApp(&stubChatService{messageErr: services.ErrInvalidInput})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages",
		strings.NewReader(`{"session_id":42,"content":"","sender_type":"visitor"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMarkMessagesReadForwardsIDs(t *testing.T) {
	service := &stubChatService{}
	app, _ := newTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sessions/42/mark-read",
		strings.NewReader(`{"messageIds":[1,2,3]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 42 || len(service.lastMarkedIDs) != 3 {
		t.Fatalf("unexpected forwarding: session=%d ids=%v", service.lastSessionID, service.lastMarkedIDs)
	}
}

func TestAdminSessionsAppliesSlicePagination(t *testing.T) {
	service := &stubChatService{
		summaries: []models.SessionSummary{
			{ChatSession: models.ChatSession{ID: 1}},
			{ChatSession: models.ChatSession{ID: 2}},
			{ChatSession: models.ChatSession{ID: 3}},
		},
	}
	app, _ := newTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chat/admin/sessions?limit=2&offset=1", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Data       []models.SessionSummary `json:"data"`
		Pagination struct {
			Total   int  `json:"total"`
			HasMore bool `json:"hasMore"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Data) != 2 || body.Data[0].ID != 2 {
		t.Fatalf("unexpected page: %+v", body.Data)
	}
	if body.Pagination.Total != 3 || body.Pagination.HasMore {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestConnectionStatsReturnsSnapshot(t *testing.T) {
	app, _ := newTestApp(&stubChatService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chat/admin/stats", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			TotalConnections int    `json:"totalConnections"`
			ServerTime       string `json:"serverTime"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !body.Success || body.Data.TotalConnections != 0 || body.Data.ServerTime == "" {
		t.Fatalf("unexpected stats body: %+v", body)
	}
}
