package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/shared/postgresql"
)

// InsertMessage stores a chat message. A message carrying a client_ref that the
// sender already used is not stored twice; the original row is returned instead,
// provided it is the same message. Reusing a client_ref for a different message
// is rejected with ErrInvalidInput.
func (s *Storage) InsertMessage(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	query := `
		INSERT INTO messages (job_id, sender_id, sender_name, receiver_id, content, client_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sender_id, client_ref) DO NOTHING
		RETURNING ` + messageColumns

	var created domain.Message
	err := s.db.GetContext(ctx, &created, query,
		m.JobID,
		m.SenderID,
		m.SenderName,
		m.ReceiverID,
		m.Content,
		m.ClientRef,
	)
	if err == nil {
		return &created, nil
	}
	if postgresql.IsForeignKeyViolation(err, "messages_job_id_fkey") {
		return nil, domain.ErrJobNotFound
	}
	if postgresql.IsForeignKeyViolation(err, "") {
		return nil, domain.ErrUserNotFound
	}
	if postgresql.IsDataError(err) {
		return nil, domain.ErrInvalidInput
	}
	if !errors.Is(err, sql.ErrNoRows) || m.ClientRef == nil {
		return nil, unavailable(err, "insert message")
	}

	var existing domain.Message
	err = s.db.GetContext(ctx, &existing,
		`SELECT `+messageColumns+` FROM messages WHERE sender_id = $1 AND client_ref = $2`,
		m.SenderID, *m.ClientRef,
	)
	if err != nil {
		return nil, unavailable(err, "load replayed message")
	}
	if existing.JobID != m.JobID || existing.ReceiverID != m.ReceiverID || existing.Content != m.Content {
		return nil, domain.ErrInvalidInput
	}
	return &existing, nil
}

// ListMessagesForUser returns every message a user sent or received, newest first
func (s *Storage) ListMessagesForUser(ctx context.Context, userID string) ([]domain.InboxMessage, error) {
	query := `
		SELECT m.id, m.job_id, m.sender_id, m.sender_name, m.receiver_id, m.content, m.client_ref, m.created_at,
		       su.full_name AS sender_full_name,
		       ru.full_name AS receiver_full_name,
		       j.title AS job_title
		FROM messages m
		LEFT JOIN users su ON su.id = m.sender_id
		LEFT JOIN users ru ON ru.id = m.receiver_id
		LEFT JOIN jobs j ON j.id = m.job_id
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		ORDER BY m.created_at DESC
	`

	messages := []domain.InboxMessage{}
	if err := s.db.SelectContext(ctx, &messages, query, userID); err != nil {
		return nil, unavailable(err, "list user messages")
	}

	return messages, nil
}

// ListChat returns the messages between two users about one job, newest first
func (s *Storage) ListChat(ctx context.Context, jobID, userID, otherID string) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE job_id = $1
		  AND ((sender_id = $2 AND receiver_id = $3) OR (sender_id = $3 AND receiver_id = $2))
		ORDER BY created_at DESC
	`

	messages := []domain.Message{}
	if err := s.db.SelectContext(ctx, &messages, query, jobID, userID, otherID); err != nil {
		return nil, unavailable(err, "list chat")
	}

	return messages, nil
}
