package handlers

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/Nagell/chat-nest/internal/models"
	"github.com/Nagell/chat-nest/internal/services"
	chatws "github.com/Nagell/chat-nest/internal/websocket"
)

type chatApplicationService interface {
	CreateSession(ctx context.Context, visitorEmail, visitorName string) (*models.ChatSession, error)
	GetSession(ctx context.Context, sessionID int64) (*models.ChatSession, error)
	GetMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, sessionID int64, content, senderType string) (*models.ChatMessage, error)
	MarkMessagesRead(ctx context.Context, sessionID int64, messageIDs []int64) error
	AdminSessionSummaries(ctx context.Context) ([]models.SessionSummary, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	startedAt time.Time
}

type createSessionRequest struct {
	VisitorEmail string `json:"visitor_email"`
	VisitorName  string `json:"visitor_name"`
}

type sendMessageRequest struct {
	SessionID  int64  `json:"session_id"`
	Content    string `json:"content"`
	SenderType string `json:"sender_type"`
}

type markReadRequest struct {
	MessageIDs []int64 `json:"messageIds"`
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		startedAt: time.Now(),
	}
}

func (h *ChatHandler) CreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body",
		})
	}
	if _, err := mail.ParseAddress(req.VisitorEmail); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Please provide a valid email address",
		})
	}
	if len(req.VisitorName) > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Name must be between 1 and 100 characters",
		})
	}

	session, err := h.service.CreateSession(c.Context(), req.VisitorEmail, req.VisitorName)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    session,
		"message": "Chat session created successfully",
	})
}

func (h *ChatHandler) GetSession(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid session id",
		})
	}

	session, err := h.service.GetSession(c.Context(), sessionID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": session})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid session id",
		})
	}

	messages, err := h.service.GetMessages(c.Context(), sessionID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    messages,
		"count":   len(messages),
	})
}

func (h *ChatHandler) MarkMessagesRead(c *fiber.Ctx) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid session id",
		})
	}

	var req markReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false, "error": "Invalid request body",
			})
		}
	}

	if err := h.service.MarkMessagesRead(c.Context(), sessionID, req.MessageIDs); err != nil {
		return mapChatError(c, err)
	}

	h.hub.SendSystemNotification(sessionID, map[string]any{
		"type":       "messages-read",
		"sessionId":  sessionID,
		"messageIds": req.MessageIDs,
	})

	return c.JSON(fiber.Map{"success": true, "message": "Messages marked as read"})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request body",
		})
	}

	message, err := h.service.SendMessage(c.Context(), req.SessionID, req.Content, req.SenderType)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    message,
		"message": "Message sent successfully",
	})
}

func (h *ChatHandler) AdminSessions(c *fiber.Ctx) error {
	summaries, err := h.service.AdminSessionSummaries(c.Context())
	if err != nil {
		return mapChatError(c, err)
	}

	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	page := summaries
	hasMore := false
	if limit > 0 {
		if offset > len(summaries) {
			offset = len(summaries)
		}
		end := offset + limit
		if end > len(summaries) {
			end = len(summaries)
		}
		page = summaries[offset:end]
		hasMore = end < len(summaries)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
		"pagination": fiber.Map{
			"total":   len(summaries),
			"limit":   limit,
			"offset":  offset,
			"hasMore": hasMore,
		},
	})
}

func (h *ChatHandler) ConnectionStats(c *fiber.Ctx) error {
	stats := h.hub.Stats()

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"totalConnections":  stats.TotalConnections,
			"activeSessions":    stats.ActiveSessions,
			"sessionsWithUsers": stats.SessionsWithUsers,
			"serverTime":        time.Now().UTC().Format(time.RFC3339),
			"uptime":            time.Since(h.startedAt).Seconds(),
		},
	})
}

func (h *ChatHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// WebSocketUpgrade gates the websocket route; visitors connect anonymously.
func (h *ChatHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"success": false, "error": "WebSocket upgrade required",
		})
	}
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	client := chatws.NewClient(h.hub, conn)
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func parseSessionID(c *fiber.Ctx) (int64, error) {
	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return 0, errors.New("invalid session id")
	}
	return sessionID, nil
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": "Invalid request",
		})
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false, "error": "Session not found",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "error": "Failed to process chat request",
		})
	}
}
