package marketplace

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/domain"
)

// ListNotifications returns the caller's notifications, newest first
func (s *Service) ListNotifications(ctx context.Context, caller *domain.Identity) ([]domain.Notification, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}
	return s.store.ListNotifications(ctx, caller.ID)
}

// UnreadCount returns how many of the caller's notifications are unread
func (s *Service) UnreadCount(ctx context.Context, caller *domain.Identity) (int, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return 0, err
	}
	return s.store.CountUnread(ctx, caller.ID)
}

// MarkAllRead marks every unread notification of the caller as read
func (s *Service) MarkAllRead(ctx context.Context, caller *domain.Identity) (int64, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return 0, err
	}

	n, err := s.store.MarkAllRead(ctx, caller.ID)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Notifications marked read",
		slog.String("user_id", caller.ID),
		slog.Int64("count", n),
	)
	return n, nil
}
