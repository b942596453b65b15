package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

// errDeliveriesClosed means the broker connection went away underneath the consumer
var errDeliveriesClosed = errors.New("rabbitmq delivery channel closed")

// task is one decoded event waiting for a pool goroutine
type task struct {
	event    *events.Event
	delivery amqp.Delivery
}

// startMessageDispatcher decodes deliveries and hands them to the pool.
// Malformed bodies are dropped without requeue.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("Message dispatcher started", slog.String("worker_id", w.workerID))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return errDeliveriesClosed
			}

			event, err := events.Decode(delivery.Body)
			if err != nil {
				w.logger.Error("Dropping malformed event",
					slog.String("routing_key", delivery.RoutingKey),
					slog.Any("error", err),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed event", slog.Any("error", nackErr))
				}
				continue
			}

			select {
			case w.tasks <- &task{event: event, delivery: delivery}:
				w.logger.Debug("Event dispatched to worker pool",
					slog.String("event_id", event.EventID),
					slog.String("type", event.Type),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching event")
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK event on shutdown", slog.Any("error", nackErr))
				}
				return nil
			}
		}
	}
}
