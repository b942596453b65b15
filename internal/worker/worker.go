// Package worker turns marketplace events from RabbitMQ into user notifications.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationWriter stores notifications idempotently by event id
type NotificationWriter interface {
	InsertNotification(ctx context.Context, n *domain.Notification) (bool, error)
}

// Consumer delivers queued messages with manual acknowledgement
type Consumer interface {
	Consume(consumerTag string, prefetchCount int) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Store         NotificationWriter
	Consumer      Consumer
	Metrics       *metrics.Metrics
	WorkerID      string
	Concurrency   int
	PrefetchCount int
	EventTimeout  time.Duration
}

// Worker consumes events and writes notifications with a fixed pool of goroutines
type Worker struct {
	logger        *slog.Logger
	store         NotificationWriter
	consumer      Consumer
	metrics       *metrics.Metrics
	workerID      string
	concurrency   int
	prefetchCount int
	eventTimeout  time.Duration

	tasks chan *task
	wg    sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency * 2
	}
	eventTimeout := cfg.EventTimeout
	if eventTimeout <= 0 {
		eventTimeout = 10 * time.Second
	}

	return &Worker{
		logger:        cfg.Logger,
		store:         cfg.Store,
		consumer:      cfg.Consumer,
		metrics:       cfg.Metrics,
		workerID:      cfg.WorkerID,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		eventTimeout:  eventTimeout,
		tasks:         make(chan *task),
	}
}

// Start consumes until ctx is done or the delivery channel closes, then waits for
// in-flight events to finish. A closed delivery channel is reported as an error.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("event_timeout", w.eventTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool()

	dispatchErr := w.startMessageDispatcher(ctx, deliveries)

	close(w.tasks)
	w.wg.Wait()
	w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))

	return dispatchErr
}

func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.consumer.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
	)
	return deliveries, nil
}
