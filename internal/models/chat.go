package models

import "time"

const (
	SenderVisitor = "visitor"
	SenderAdmin   = "admin"
)

type ChatSession struct {
	ID           int64     `json:"id"`
	VisitorEmail string    `json:"visitor_email"`
	VisitorName  string    `json:"visitor_name,omitempty"`
	SessionToken string    `json:"session_token"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID          int64      `json:"id"`
	SessionID   int64      `json:"session_id"`
	Content     string     `json:"content"`
	SenderType  string     `json:"sender_type"`
	IsRead      bool       `json:"is_read"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type SessionSummary struct {
	ChatSession
	LastMessage   string    `json:"last_message,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
	TotalMessages int       `json:"total_messages"`
}

// ConnectionStats is a read-only snapshot of the live websocket state.
type ConnectionStats struct {
	TotalConnections  int `json:"totalConnections"`
	ActiveSessions    int `json:"activeSessions"`
	SessionsWithUsers int `json:"sessionsWithUsers"`
}
