package events

import (
	"context"
	"fmt"
	"log/slog"
)

// Broker is the transport events are published on
type Broker interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// Publisher sends marketplace events with their type as routing key
type Publisher struct {
	broker Broker
	logger *slog.Logger
}

// NewPublisher creates a Publisher
func NewPublisher(broker Broker, logger *slog.Logger) *Publisher {
	return &Publisher{broker: broker, logger: logger}
}

// Publish encodes and sends an event
func (p *Publisher) Publish(ctx context.Context, e *Event) error {
	body, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := p.broker.Publish(ctx, e.Type, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Type, err)
	}

	p.logger.Debug("Event published",
		slog.String("event_id", e.EventID),
		slog.String("type", e.Type),
		slog.String("recipient_id", e.RecipientID),
	)
	return nil
}
