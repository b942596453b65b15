package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/gigmarket/internal/api/dto"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/notification"
	"github.com/gin-gonic/gin"
)

// ListNotifications handles GET /api/v1/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.marketplace.ListNotifications(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NotificationsResponse{Notifications: nonNil(notifications)})
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *Handler) UnreadCount(c *gin.Context) {
	count, err := h.marketplace.UnreadCount(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: count})
}

// MarkAllRead handles POST /api/v1/notifications/read
func (h *Handler) MarkAllRead(c *gin.Context) {
	ctx, cancel := h.writeContext(c)
	defer cancel()

	updated, err := h.marketplace.MarkAllRead(ctx, auth.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkReadResponse{Updated: updated})
}

// StreamUnreadCount handles GET /api/v1/notifications/unread/stream.
// It sends an unread_count event with the seeded value and then one per change,
// for as long as the client stays connected.
func (h *Handler) StreamUnreadCount(c *gin.Context) {
	caller := auth.IdentityFrom(c)
	if err := domain.RequireIdentity(caller); err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	counts := make(chan int, 1)
	done := make(chan error, 1)
	projector := notification.NewUnreadProjector(h.counter, h.subscriber, caller.ID, h.logger)
	go func() {
		done <- projector.Run(ctx, func(count int) {
			select {
			case counts <- count:
			case <-ctx.Done():
			}
		})
	}()

	// hold the headers until the seed is known so a failed seed can still answer with an error
	var first int
	select {
	case first = <-counts:
	case err := <-done:
		if err == nil {
			return
		}
		h.respondError(c, domain.Unavailable(err))
		return
	case <-ctx.Done():
		<-done
		return
	}

	h.openStream(c)

	h.logger.Debug("Unread count stream opened", slog.String("user_id", caller.ID))
	defer h.logger.Debug("Unread count stream closed", slog.String("user_id", caller.ID))

	c.SSEvent("unread_count", dto.UnreadCountResponse{Count: first})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-done
			return

		case count := <-counts:
			c.SSEvent("unread_count", dto.UnreadCountResponse{Count: count})
			c.Writer.Flush()

		case <-ticker.C:
			if !keepAlive(c) {
				cancel()
			}

		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Warn("Unread count stream ended",
					slog.String("user_id", caller.ID),
					slog.Any("error", err),
				)
				c.SSEvent("error", gin.H{"error": "stream interrupted, reconnect"})
				c.Writer.Flush()
			}
			return
		}
	}
}

// openStream commits the event-stream headers
func (h *Handler) openStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// the server-wide write timeout would otherwise cut the stream
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("Write deadline not cleared", slog.Any("error", err))
	}
}

// keepAlive writes an SSE comment; false means the client is gone
func keepAlive(c *gin.Context) bool {
	if _, err := c.Writer.WriteString(": keep-alive\n\n"); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}
