package repository

import (
	"context"
	"database/sql"

	"github.com/Nagell/chat-nest/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(
	ctx context.Context,
	visitorEmail string,
	visitorName string,
	sessionToken string,
) (*models.ChatSession, error) {
	query := `
		INSERT INTO chat_sessions (visitor_email, visitor_name, session_token)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, visitor_email, COALESCE(visitor_name, ''), session_token, created_at
	`

	var session models.ChatSession
	err := r.db.QueryRow(ctx, query, visitorEmail, visitorName, sessionToken).Scan(
		&session.ID,
		&session.VisitorEmail,
		&session.VisitorName,
		&session.SessionToken,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// LatestByEmail returns the most recently created session for a visitor
// email, or pgx.ErrNoRows when the visitor has none.
func (r *SessionRepository) LatestByEmail(
	ctx context.Context,
	visitorEmail string,
) (*models.ChatSession, error) {
	query := `
		SELECT id, visitor_email, COALESCE(visitor_name, ''), session_token, created_at
		FROM chat_sessions
		WHERE visitor_email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var session models.ChatSession
	err := r.db.QueryRow(ctx, query, visitorEmail).Scan(
		&session.ID,
		&session.VisitorEmail,
		&session.VisitorName,
		&session.SessionToken,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.ChatSession, error) {
	query := `
		SELECT id, visitor_email, COALESCE(visitor_name, ''), session_token, created_at
		FROM chat_sessions
		WHERE id = $1
	`

	var session models.ChatSession
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.VisitorEmail,
		&session.VisitorName,
		&session.SessionToken,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// ListSummaries returns every session with last-message and unread info for
// the admin dashboard, newest session first.
func (r *SessionRepository) ListSummaries(ctx context.Context) ([]models.SessionSummary, error) {
	query := `
		SELECT
			s.id,
			s.visitor_email,
			COALESCE(s.visitor_name, ''),
			s.session_token,
			s.created_at,
			lm.content,
			lm.created_at,
			COALESCE(uc.unread_count, 0),
			COALESCE(tc.total_messages, 0)
		FROM chat_sessions s
		LEFT JOIN LATERAL (
			SELECT content, created_at
			FROM chat_messages
			WHERE session_id = s.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM chat_messages
			WHERE session_id = s.id
			  AND sender_type = 'visitor'
			  AND is_read = FALSE
		) uc ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS total_messages
			FROM chat_messages
			WHERE session_id = s.id
		) tc ON TRUE
		ORDER BY s.created_at DESC, s.id DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.SessionSummary, 0)
	for rows.Next() {
		var summary models.SessionSummary
		var lastMessage sql.NullString
		var lastMessageAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.VisitorEmail,
			&summary.VisitorName,
			&summary.SessionToken,
			&summary.CreatedAt,
			&lastMessage,
			&lastMessageAt,
			&summary.UnreadCount,
			&summary.TotalMessages,
		); err != nil {
			return nil, err
		}

		summary.LastMessage = lastMessage.String
		if lastMessageAt.Valid {
			summary.LastMessageAt = lastMessageAt.Time
		} else {
			summary.LastMessageAt = summary.CreatedAt
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
