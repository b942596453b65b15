package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/events"
)

var notificationTypes = map[string]string{
	events.TypeBidPlaced:      domain.NotificationNewBid,
	events.TypeBidUpdated:     domain.NotificationBidUpdated,
	events.TypeBidAccepted:    domain.NotificationBidAccepted,
	events.TypeContractFunded: domain.NotificationContractFunded,
	events.TypeMessageSent:    domain.NotificationNewMessage,
}

// processEvent writes the recipient's notification for e. Redelivered events
// carry the same event id and are stored once.
func (w *Worker) processEvent(ctx context.Context, e *events.Event) error {
	notificationType, ok := notificationTypes[e.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, e.Type)
	}

	if e.ActorID != "" && e.ActorID == e.RecipientID {
		w.logger.Debug("Skipping self notification",
			slog.String("event_id", e.EventID),
			slog.String("type", e.Type),
		)
		return nil
	}

	n := &domain.Notification{
		UserID:           e.RecipientID,
		NotificationType: notificationType,
		Title:            e.Title,
		LinkToJobID:      optional(e.JobID),
		ActorID:          optional(e.ActorID),
		EventID:          e.EventID,
	}

	inserted, err := w.store.InsertNotification(ctx, n)
	if err != nil {
		if domain.KindOf(err) == domain.KindRemoteUnavailable {
			return NewRetryableError(err)
		}
		return err
	}

	if !inserted {
		w.logger.Info("Duplicate event ignored",
			slog.String("event_id", e.EventID),
			slog.String("type", e.Type),
		)
		return nil
	}

	w.metrics.NotificationWritten(notificationType)
	w.logger.Info("Notification written",
		slog.String("notification_id", n.ID),
		slog.String("event_id", e.EventID),
		slog.String("user_id", n.UserID),
		slog.String("type", notificationType),
	)
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
