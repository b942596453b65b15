// Package marketplace implements the job, bid, hire and escrow-funding lifecycle
// along with the chat and notification reads built on top of it.
package marketplace

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/events"
	"github.com/cuongbtq/gigmarket/internal/metrics"
	"github.com/cuongbtq/gigmarket/internal/payment"
	"github.com/cuongbtq/gigmarket/internal/storage"
)

// Display-name fallbacks for users who never set a full name
const (
	anonymousClient = "Anonymous"
	anonymousWorker = "Anonymous Worker"
	anonymousUser   = "A User"
)

// Store is the persistence the service depends on
type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) (*domain.Job, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListOpenJobs(ctx context.Context, filter storage.JobFilter) ([]domain.Job, error)
	ListJobsByClient(ctx context.Context, clientID string) ([]domain.Job, error)

	InsertBid(ctx context.Context, bid *domain.Bid) (*domain.Bid, error)
	GetBid(ctx context.Context, bidID string) (*domain.Bid, error)
	UpdateBidAmount(ctx context.Context, bidID, workerID string, amount int64) (*domain.Bid, error)
	ListBidsByJob(ctx context.Context, jobID string) ([]domain.Bid, error)
	ListBidsByWorker(ctx context.Context, workerID string) ([]domain.WorkerBid, error)

	AcceptBid(ctx context.Context, jobID, bidID string) (*domain.Hire, error)
	GetContract(ctx context.Context, contractID string) (*domain.Contract, error)
	SetPaymentOrder(ctx context.Context, contractID, orderID string) (*domain.Contract, error)
	MarkContractFunded(ctx context.Context, contractID, orderID, paymentID string) (*domain.Contract, error)

	CountUnread(ctx context.Context, userID string) (int, error)
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)

	InsertMessage(ctx context.Context, m *domain.Message) (*domain.Message, error)
	ListMessagesForUser(ctx context.Context, userID string) ([]domain.InboxMessage, error)
	ListChat(ctx context.Context, jobID, userID, otherID string) ([]domain.Message, error)
}

// EventPublisher announces committed writes
type EventPublisher interface {
	Publish(ctx context.Context, e *events.Event) error
}

// PaymentGateway creates orders and checks checkout signatures
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64) (*payment.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	Checkout(order *payment.Order, description string, prefill payment.Prefill) *payment.CheckoutConfig
}

// IdempotencyStore remembers keys that were already processed
type IdempotencyStore interface {
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Config holds service settings
type Config struct {
	PaymentIdempotencyTTL time.Duration
	DefaultPageSize       int
	MaxPageSize           int
}

// Service coordinates the marketplace operations
type Service struct {
	store       Store
	publisher   EventPublisher
	gateway     PaymentGateway
	idempotency IdempotencyStore
	metrics     *metrics.Metrics
	config      Config
	logger      *slog.Logger
}

// NewService creates a Service
func NewService(
	store Store,
	publisher EventPublisher,
	gateway PaymentGateway,
	idempotency IdempotencyStore,
	m *metrics.Metrics,
	config Config,
	logger *slog.Logger,
) *Service {
	if config.PaymentIdempotencyTTL <= 0 {
		config.PaymentIdempotencyTTL = 24 * time.Hour
	}
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = 20
	}
	if config.MaxPageSize < config.DefaultPageSize {
		config.MaxPageSize = 100
	}

	return &Service{
		store:       store,
		publisher:   publisher,
		gateway:     gateway,
		idempotency: idempotency,
		metrics:     m,
		config:      config,
		logger:      logger,
	}
}

// publish sends an event after a committed write. The write already succeeded,
// so a broker failure is logged and never returned to the caller.
func (s *Service) publish(ctx context.Context, e *events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("Failed to publish event",
			slog.String("event_id", e.EventID),
			slog.String("type", e.Type),
			slog.String("job_id", e.JobID),
			slog.Any("error", err),
		)
	}
}
