package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/conversation"
	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/marketplace"
	"github.com/cuongbtq/gigmarket/internal/notification"
	"github.com/cuongbtq/gigmarket/internal/payment"
	"github.com/cuongbtq/gigmarket/internal/storage"
	"github.com/gin-gonic/gin"
)

// Marketplace is the lifecycle service behind the job, bid, contract, chat and notification routes
type Marketplace interface {
	PostJob(ctx context.Context, caller *domain.Identity, draft domain.JobDraft) (*domain.Job, error)
	GetJob(ctx context.Context, caller *domain.Identity, jobID string) (*domain.Job, error)
	ListOpenJobs(ctx context.Context, caller *domain.Identity, pageSize int, cursor *storage.JobCursor) (*marketplace.JobPage, error)
	ListMyJobs(ctx context.Context, caller *domain.Identity) ([]domain.Job, error)

	PlaceBid(ctx context.Context, caller *domain.Identity, jobID string, amount int64) (*domain.Bid, error)
	UpdateBid(ctx context.Context, caller *domain.Identity, bidID string, amount int64) (*domain.Bid, error)
	ListBids(ctx context.Context, caller *domain.Identity, jobID string) ([]domain.Bid, error)
	ListMyBids(ctx context.Context, caller *domain.Identity) ([]domain.WorkerBid, error)

	AcceptBid(ctx context.Context, caller *domain.Identity, jobID, bidID string) (*domain.Hire, error)
	GetContract(ctx context.Context, caller *domain.Identity, contractID string) (*domain.Contract, error)
	CreatePaymentOrder(ctx context.Context, caller *domain.Identity, contractID string) (*payment.CheckoutConfig, error)
	ConfirmPayment(ctx context.Context, caller *domain.Identity, contractID string, confirmation marketplace.PaymentConfirmation) (*domain.Contract, error)
	RecordPaymentFailure(ctx context.Context, caller *domain.Identity, contractID string, failure marketplace.PaymentFailure) error

	SendMessage(ctx context.Context, caller *domain.Identity, jobID, receiverID, content string, clientRef *string) (*domain.Message, error)
	ListConversations(ctx context.Context, caller *domain.Identity) ([]conversation.Conversation, error)
	ListChat(ctx context.Context, caller *domain.Identity, jobID, otherID string) ([]domain.Message, error)

	ListNotifications(ctx context.Context, caller *domain.Identity) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, caller *domain.Identity) (int, error)
	MarkAllRead(ctx context.Context, caller *domain.Identity) (int64, error)
}

// Accounts handles sign up, sign in and sign out
type Accounts interface {
	SignUp(ctx context.Context, email, fullName, password string) (*domain.User, *auth.Token, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, *auth.Token, error)
	SignOut(ctx context.Context, claims *auth.Claims) error
	Me(ctx context.Context, caller *domain.Identity) (*domain.User, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Marketplace Marketplace
	Accounts    Accounts

	// Counter and Subscriber feed the unread-count and chat streams
	Counter    notification.Counter
	Subscriber notification.Subscriber

	// WriteOpTimeout bounds mutating requests once detached from the client connection
	WriteOpTimeout    time.Duration
	KeepAliveInterval time.Duration
}

// Handler serves the marketplace HTTP API
type Handler struct {
	logger         *slog.Logger
	marketplace    Marketplace
	accounts       Accounts
	counter        notification.Counter
	subscriber     notification.Subscriber
	writeOpTimeout time.Duration
	keepAlive      time.Duration
}

// New creates a Handler
func New(deps *Dependencies) *Handler {
	writeOpTimeout := deps.WriteOpTimeout
	if writeOpTimeout <= 0 {
		writeOpTimeout = 15 * time.Second
	}
	keepAlive := deps.KeepAliveInterval
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}

	return &Handler{
		logger:         deps.Logger,
		marketplace:    deps.Marketplace,
		accounts:       deps.Accounts,
		counter:        deps.Counter,
		subscriber:     deps.Subscriber,
		writeOpTimeout: writeOpTimeout,
		keepAlive:      keepAlive,
	}
}

// writeContext detaches a mutating request from the client connection so a
// disconnect cannot abandon a compound write halfway. The write still gets a deadline.
func (h *Handler) writeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.writeOpTimeout)
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindStateConflict:
		return http.StatusConflict
	case domain.KindPaymentDeclined:
		return http.StatusPaymentRequired
	case domain.KindRemoteUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error", "code"} with the status of its kind
func (h *Handler) respondError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		h.logger.Error("Unhandled error",
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"code":  "INTERNAL",
		})
		return
	}

	status := statusFor(de.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("code", de.Code),
			slog.Any("error", err),
		)
	} else {
		h.logger.Debug("Request rejected",
			slog.String("path", c.Request.URL.Path),
			slog.String("code", de.Code),
		)
	}

	c.JSON(status, gin.H{
		"error": de.Message,
		"code":  de.Code,
	})
}

func (h *Handler) respondBindError(c *gin.Context, err error) {
	h.logger.Debug("Invalid request body", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request body",
		"code":    domain.ErrInvalidInput.Code,
		"details": err.Error(),
	})
}
