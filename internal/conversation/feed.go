package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/realtime"
)

const messagesTable = "messages"

// ErrFeedClosed is returned when the change stream ends underneath a feed
var ErrFeedClosed = errors.New("change stream closed")

// Subscriber opens change subscriptions
type Subscriber interface {
	Subscribe(filter realtime.Filter) *realtime.Subscription
}

// Loader reads the current chat, newest first
type Loader func(ctx context.Context) ([]domain.Message, error)

// ChatFeed follows the messages two users exchange about one job.
// Change events carry no message content, so every relevant insert triggers a re-read.
type ChatFeed struct {
	subscriber Subscriber
	load       Loader
	jobID      string
	userID     string
	otherID    string
	logger     *slog.Logger
}

// NewChatFeed creates a feed of the chat between userID and otherID on jobID
func NewChatFeed(subscriber Subscriber, load Loader, jobID, userID, otherID string, logger *slog.Logger) *ChatFeed {
	return &ChatFeed{
		subscriber: subscriber,
		load:       load,
		jobID:      jobID,
		userID:     userID,
		otherID:    otherID,
		logger:     logger,
	}
}

// Run calls onChange with the seeded chat and again after every new message
// between the two users, until ctx is done. A failed seed is returned as is.
func (f *ChatFeed) Run(ctx context.Context, onChange func([]domain.Message)) error {
	sub := f.subscriber.Subscribe(realtime.Filter{
		Table:  messagesTable,
		Column: "job_id",
		Value:  f.jobID,
		Ops:    []string{realtime.OpInsert},
	})
	defer sub.Close()

	messages, err := f.load(ctx)
	if err != nil {
		return err
	}
	onChange(messages)

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-sub.Events():
			if !ok {
				return ErrFeedClosed
			}
			if e.Op != realtime.OpResync && !f.between(e.Record) {
				continue
			}

			messages, err := f.load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				f.logger.Warn("Failed to refresh chat",
					slog.String("job_id", f.jobID),
					slog.String("op", e.Op),
					slog.Any("error", err),
				)
				continue
			}
			onChange(messages)
		}
	}
}

// between reports whether a message row was sent by one of the pair to the other
func (f *ChatFeed) between(record map[string]interface{}) bool {
	sender := field(record, "sender_id")
	receiver := field(record, "receiver_id")
	return (sender == f.userID && receiver == f.otherID) ||
		(sender == f.otherID && receiver == f.userID)
}

func field(record map[string]interface{}, key string) string {
	v, ok := record[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
