package repository

import (
	"context"
	"database/sql"

	"github.com/Nagell/chat-nest/internal/models"
	"github.com/jackc/pgx/v5"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert stores a message. Admin-authored messages are created already read;
// visitor-authored messages start unread.
func (r *MessageRepository) Insert(
	ctx context.Context,
	sessionID int64,
	content string,
	senderType string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (session_id, content, sender_type, is_read)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, content, sender_type, is_read, delivered_at, email_sent_at, created_at
	`

	row := r.db.QueryRow(ctx, query, sessionID, content, senderType, senderType == models.SenderAdmin)
	return scanMessage(row)
}

func (r *MessageRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, session_id, content, sender_type, is_read, delivered_at, email_sent_at, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkRead flags visitor-authored messages in a session as read, optionally
// restricted to an explicit id list.
func (r *MessageRepository) MarkRead(
	ctx context.Context,
	sessionID int64,
	messageIDs []int64,
) error {
	if len(messageIDs) > 0 {
		_, err := r.db.Exec(ctx, `
			UPDATE chat_messages
			SET is_read = TRUE
			WHERE session_id = $1
			  AND sender_type = 'visitor'
			  AND is_read = FALSE
			  AND id = ANY($2)
		`, sessionID, messageIDs)
		return err
	}

	_, err := r.db.Exec(ctx, `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE session_id = $1
		  AND sender_type = 'visitor'
		  AND is_read = FALSE
	`, sessionID)
	return err
}

// StampEmailSent records the notification delivery time. Stamping an already
// stamped message is a no-op.
func (r *MessageRepository) StampEmailSent(ctx context.Context, messageID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_messages
		SET email_sent_at = NOW()
		WHERE id = $1
		  AND email_sent_at IS NULL
	`, messageID)
	return err
}

func scanMessage(row pgx.Row) (*models.ChatMessage, error) {
	var message models.ChatMessage
	var deliveredAt sql.NullTime
	var emailSentAt sql.NullTime

	if err := row.Scan(
		&message.ID,
		&message.SessionID,
		&message.Content,
		&message.SenderType,
		&message.IsRead,
		&deliveredAt,
		&emailSentAt,
		&message.CreatedAt,
	); err != nil {
		return nil, err
	}

	if deliveredAt.Valid {
		message.DeliveredAt = &deliveredAt.Time
	}
	if emailSentAt.Valid {
		message.EmailSentAt = &emailSentAt.Time
	}

	return &message, nil
}
