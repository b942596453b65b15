package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/shared/postgresql"
)

// CountUnread returns the number of unread notifications for a user
func (s *Storage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return 0, unavailable(err, "count unread notifications")
	}
	return count, nil
}

// ListNotifications returns a user's notifications newest first, with the actor's name
func (s *Storage) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	query := `
		SELECT n.id, n.user_id, n.notification_type, n.title, n.is_read,
		       n.link_to_job_id, n.actor_id, u.full_name AS actor_name, n.event_id, n.created_at
		FROM notifications n
		LEFT JOIN users u ON u.id = n.actor_id
		WHERE n.user_id = $1
		ORDER BY n.created_at DESC
	`

	notifications := []domain.Notification{}
	if err := s.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, unavailable(err, "list notifications")
	}

	return notifications, nil
}

// MarkAllRead marks every unread notification of a user as read
func (s *Storage) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return 0, unavailable(err, "mark notifications read")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, unavailable(err, "get rows affected")
	}
	return n, nil
}

// InsertNotification stores a notification once per event.
// It returns false when the event was already recorded.
func (s *Storage) InsertNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (user_id, notification_type, title, link_to_job_id, actor_id, event_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`

	var id string
	err := s.db.GetContext(ctx, &id, query,
		n.UserID,
		n.NotificationType,
		n.Title,
		n.LinkToJobID,
		n.ActorID,
		n.EventID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if postgresql.IsDataError(err) {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	if err != nil {
		return false, unavailable(err, "insert notification")
	}

	n.ID = id
	return true, nil
}
