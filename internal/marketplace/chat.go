package marketplace

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cuongbtq/gigmarket/internal/conversation"
	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/events"
)

const maxMessageLength = 4000

// SendMessage stores a chat message about a job. clientRef is the sender's local id
// for the message; sending it again returns the message already stored.
func (s *Service) SendMessage(ctx context.Context, caller *domain.Identity, jobID, receiverID, content string, clientRef *string) (*domain.Message, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return nil, &domain.Error{Kind: domain.KindValidation, Code: domain.ErrInvalidInput.Code, Message: "message cannot be empty"}
	case len(content) > maxMessageLength:
		return nil, &domain.Error{Kind: domain.KindValidation, Code: domain.ErrInvalidInput.Code, Message: "message is too long"}
	case receiverID == "" || receiverID == caller.ID:
		return nil, &domain.Error{Kind: domain.KindValidation, Code: domain.ErrInvalidInput.Code, Message: "receiver must be another user"}
	}

	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	msg, err := s.store.InsertMessage(ctx, &domain.Message{
		JobID:      jobID,
		SenderID:   caller.ID,
		SenderName: caller.DisplayName(anonymousUser),
		ReceiverID: receiverID,
		Content:    content,
		ClientRef:  clientRef,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Message sent",
		slog.String("message_id", msg.ID),
		slog.String("job_id", jobID),
		slog.String("receiver_id", receiverID),
	)

	s.publish(ctx, events.New(
		events.TypeMessageSent,
		jobID,
		caller.ID,
		msg.SenderName,
		receiverID,
		"New message from "+msg.SenderName,
	).Keyed(msg.ID))

	return msg, nil
}

// ListConversations returns one entry per person the caller has chatted with
func (s *Service) ListConversations(ctx context.Context, caller *domain.Identity) ([]conversation.Conversation, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessagesForUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return conversation.Group(messages, caller.ID), nil
}

// ListChat returns the caller's messages with one user about one job, newest first
func (s *Service) ListChat(ctx context.Context, caller *domain.Identity, jobID, otherID string) ([]domain.Message, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}
	return s.store.ListChat(ctx, jobID, caller.ID, otherID)
}
