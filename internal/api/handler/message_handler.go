package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/gigmarket/internal/api/dto"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/conversation"
	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/gin-gonic/gin"
)

// SendMessage handles POST /api/v1/jobs/:job_id/messages.
// A retried send with the same client_ref returns the stored message.
func (h *Handler) SendMessage(c *gin.Context) {
	jobID, ok := h.uuidParam(c, "job_id")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()

	msg, err := h.marketplace.SendMessage(ctx, auth.IdentityFrom(c), jobID, req.ReceiverID, req.Content, req.ClientRef)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListChat handles GET /api/v1/jobs/:job_id/messages/:user_id
func (h *Handler) ListChat(c *gin.Context) {
	jobID, ok := h.uuidParam(c, "job_id")
	if !ok {
		return
	}
	otherID, ok := h.uuidParam(c, "user_id")
	if !ok {
		return
	}

	messages, err := h.marketplace.ListChat(c.Request.Context(), auth.IdentityFrom(c), jobID, otherID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessagesResponse{Messages: nonNil(messages)})
}

// StreamChat handles GET /api/v1/jobs/:job_id/messages/:user_id/stream.
// It sends a messages event with the chat as ListChat returns it, then again
// whenever either side posts a new message, for as long as the client stays connected.
func (h *Handler) StreamChat(c *gin.Context) {
	jobID, ok := h.uuidParam(c, "job_id")
	if !ok {
		return
	}
	otherID, ok := h.uuidParam(c, "user_id")
	if !ok {
		return
	}
	caller := auth.IdentityFrom(c)
	if err := domain.RequireIdentity(caller); err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	load := func(ctx context.Context) ([]domain.Message, error) {
		return h.marketplace.ListChat(ctx, caller, jobID, otherID)
	}
	feed := conversation.NewChatFeed(h.subscriber, load, jobID, caller.ID, otherID, h.logger)

	updates := make(chan []domain.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- feed.Run(ctx, func(messages []domain.Message) {
			select {
			case updates <- messages:
			case <-ctx.Done():
			}
		})
	}()

	var first []domain.Message
	select {
	case first = <-updates:
	case err := <-done:
		if err == nil {
			return
		}
		h.respondError(c, err)
		return
	case <-ctx.Done():
		<-done
		return
	}

	h.openStream(c)

	h.logger.Debug("Chat stream opened",
		slog.String("job_id", jobID),
		slog.String("user_id", caller.ID),
	)
	defer h.logger.Debug("Chat stream closed", slog.String("job_id", jobID), slog.String("user_id", caller.ID))

	c.SSEvent("messages", dto.MessagesResponse{Messages: nonNil(first)})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-done
			return

		case messages := <-updates:
			c.SSEvent("messages", dto.MessagesResponse{Messages: nonNil(messages)})
			c.Writer.Flush()

		case <-ticker.C:
			if !keepAlive(c) {
				cancel()
			}

		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Warn("Chat stream ended",
					slog.String("job_id", jobID),
					slog.Any("error", err),
				)
				c.SSEvent("error", gin.H{"error": "stream interrupted, reconnect"})
				c.Writer.Flush()
			}
			return
		}
	}
}

// ListConversations handles GET /api/v1/conversations
func (h *Handler) ListConversations(c *gin.Context) {
	conversations, err := h.marketplace.ListConversations(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConversationsResponse{Conversations: nonNil(conversations)})
}
