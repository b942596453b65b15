// Package notification keeps a user's unread-notification count current.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/realtime"
)

const notificationsTable = "notifications"

// ErrStreamClosed is returned when the change stream ends underneath a projector
var ErrStreamClosed = errors.New("change stream closed")

// Counter runs the unread-count query
type Counter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

// Subscriber opens change subscriptions
type Subscriber interface {
	Subscribe(filter realtime.Filter) *realtime.Subscription
}

// UnreadProjector derives one user's unread count from the notifications change stream.
// It never adjusts the count arithmetically: every change re-runs the count query.
type UnreadProjector struct {
	counter    Counter
	subscriber Subscriber
	userID     string
	logger     *slog.Logger
}

// NewUnreadProjector creates a projector for userID
func NewUnreadProjector(counter Counter, subscriber Subscriber, userID string, logger *slog.Logger) *UnreadProjector {
	return &UnreadProjector{
		counter:    counter,
		subscriber: subscriber,
		userID:     userID,
		logger:     logger.With(slog.String("user_id", userID)),
	}
}

// Run reports the seeded count, then every change to it, until ctx is done.
// The subscription is opened before seeding so no change is missed, and is
// released on every return path.
func (p *UnreadProjector) Run(ctx context.Context, onChange func(count int)) error {
	sub := p.subscriber.Subscribe(realtime.Filter{
		Table:  notificationsTable,
		Column: "user_id",
		Value:  p.userID,
	})
	defer sub.Close()

	last, err := p.counter.CountUnread(ctx, p.userID)
	if err != nil {
		return err
	}
	onChange(last)

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-sub.Events():
			if !ok {
				return ErrStreamClosed
			}

			count, err := p.counter.CountUnread(ctx, p.userID)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// keep the last value; the next change retries
				p.logger.Warn("Failed to refresh unread count",
					slog.String("op", e.Op),
					slog.Any("error", err),
				)
				continue
			}

			if count != last {
				last = count
				onChange(count)
			}
		}
	}
}
