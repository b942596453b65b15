package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/events"
	"github.com/cuongbtq/gigmarket/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackResult struct {
	tag     uint64
	acked   bool
	requeue bool
}

type recordingAcknowledger struct {
	mu      sync.Mutex
	results []ackResult
	settled chan struct{}
}

func newAcknowledger() *recordingAcknowledger {
	return &recordingAcknowledger{settled: make(chan struct{}, 64)}
}

func (a *recordingAcknowledger) record(r ackResult) error {
	a.mu.Lock()
	a.results = append(a.results, r)
	a.mu.Unlock()
	a.settled <- struct{}{}
	return nil
}

func (a *recordingAcknowledger) Ack(tag uint64, _ bool) error {
	return a.record(ackResult{tag: tag, acked: true})
}

func (a *recordingAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	return a.record(ackResult{tag: tag, requeue: requeue})
}

func (a *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.record(ackResult{tag: tag, requeue: requeue})
}

func (a *recordingAcknowledger) waitFor(t *testing.T, n int) []ackResult {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-a.settled:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %d settlements", n)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ackResult(nil), a.results...)
}

type memNotifications struct {
	mu    sync.Mutex
	byID  map[string]*domain.Notification
	fail  error
	calls int
}

func newMemNotifications() *memNotifications {
	return &memNotifications{byID: make(map[string]*domain.Notification)}
}

func (m *memNotifications) InsertNotification(_ context.Context, n *domain.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail != nil {
		return false, m.fail
	}
	if _, ok := m.byID[n.EventID]; ok {
		return false, nil
	}
	n.ID = "notification-" + n.EventID
	m.byID[n.EventID] = n
	return true, nil
}

func (m *memNotifications) stored() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Notification, 0, len(m.byID))
	for _, n := range m.byID {
		out = append(out, n)
	}
	return out
}

type chanConsumer struct {
	ch  chan amqp.Delivery
	err error
}

func (c *chanConsumer) Consume(string, int) (<-chan amqp.Delivery, error) {
	return c.ch, c.err
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, e *events.Event) amqp.Delivery {
	t.Helper()
	body, err := e.Marshal()
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body, RoutingKey: e.Type}
}

type harness struct {
	worker   *Worker
	store    *memNotifications
	consumer *chanConsumer
	ack      *recordingAcknowledger
	metrics  *metrics.Metrics
	cancel   context.CancelFunc
	done     chan error
}

func startHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    newMemNotifications(),
		consumer: &chanConsumer{ch: make(chan amqp.Delivery, 16)},
		ack:      newAcknowledger(),
		metrics:  metrics.New(),
		done:     make(chan error, 1),
	}
	h.worker = NewWorker(&Config{
		Logger:      discard(),
		Store:       h.store,
		Consumer:    h.consumer,
		Metrics:     h.metrics,
		WorkerID:    "worker-test",
		Concurrency: 3,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.worker.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func TestWorker_WritesNotificationPerEventType(t *testing.T) {
	h := startHarness(t)

	tests := []struct {
		event    *events.Event
		wantType string
	}{
		{events.New(events.TypeBidPlaced, "job-1", "worker-1", "Ravi", "client-1", "New bid"), domain.NotificationNewBid},
		{events.New(events.TypeBidUpdated, "job-1", "worker-1", "Ravi", "client-1", "Bid updated"), domain.NotificationBidUpdated},
		{events.New(events.TypeBidAccepted, "job-1", "client-1", "Asha", "worker-1", "Accepted"), domain.NotificationBidAccepted},
		{events.New(events.TypeContractFunded, "job-1", "client-1", "Asha", "worker-1", "Funded"), domain.NotificationContractFunded},
		{events.New(events.TypeMessageSent, "job-1", "client-1", "Asha", "worker-1", "New message"), domain.NotificationNewMessage},
	}

	for i, tt := range tests {
		h.consumer.ch <- delivery(t, h.ack, uint64(i+1), tt.event)
	}

	results := h.ack.waitFor(t, len(tests))
	for _, r := range results {
		assert.True(t, r.acked, "delivery %d", r.tag)
	}

	stored := h.store.stored()
	require.Len(t, stored, len(tests))
	for _, tt := range tests {
		n := h.store.byID[tt.event.EventID]
		require.NotNil(t, n)
		assert.Equal(t, tt.wantType, n.NotificationType)
		assert.Equal(t, tt.event.RecipientID, n.UserID)
		assert.Equal(t, tt.event.Title, n.Title)
		require.NotNil(t, n.LinkToJobID)
		assert.Equal(t, "job-1", *n.LinkToJobID)
		require.NotNil(t, n.ActorID)
		assert.Equal(t, tt.event.ActorID, *n.ActorID)
	}
}

func TestWorker_RedeliveryStoresOnce(t *testing.T) {
	h := startHarness(t)
	e := events.New(events.TypeBidPlaced, "job-1", "worker-1", "Ravi", "client-1", "New bid").Keyed("bid-1")

	h.consumer.ch <- delivery(t, h.ack, 1, e)
	h.consumer.ch <- delivery(t, h.ack, 2, e)

	results := h.ack.waitFor(t, 2)
	assert.True(t, results[0].acked)
	assert.True(t, results[1].acked)
	assert.Len(t, h.store.stored(), 1)

	expected := `
# HELP gigmarket_notifications_written_total Notifications inserted by the worker, by type.
# TYPE gigmarket_notifications_written_total counter
gigmarket_notifications_written_total{type="new_bid"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "gigmarket_notifications_written_total"))
}

func TestWorker_MalformedEventIsDropped(t *testing.T) {
	h := startHarness(t)

	h.consumer.ch <- amqp.Delivery{Acknowledger: h.ack, DeliveryTag: 7, Body: []byte(`{"type":"bid.placed"`)}

	results := h.ack.waitFor(t, 1)
	assert.Equal(t, ackResult{tag: 7}, results[0])
	assert.Empty(t, h.store.stored())
}

func TestWorker_UnknownTypeIsDropped(t *testing.T) {
	h := startHarness(t)
	e := events.New("job.archived", "job-1", "client-1", "Asha", "worker-1", "Archived")

	h.consumer.ch <- delivery(t, h.ack, 3, e)

	results := h.ack.waitFor(t, 1)
	assert.Equal(t, ackResult{tag: 3}, results[0])
}

func TestWorker_TransientFailureRequeues(t *testing.T) {
	h := startHarness(t)
	h.store.fail = domain.Unavailable(errors.New("connection reset"))
	e := events.New(events.TypeBidPlaced, "job-1", "worker-1", "Ravi", "client-1", "New bid")

	h.consumer.ch <- delivery(t, h.ack, 4, e)

	results := h.ack.waitFor(t, 1)
	assert.Equal(t, ackResult{tag: 4, requeue: true}, results[0])
}

func TestWorker_SkipsSelfNotification(t *testing.T) {
	h := startHarness(t)
	e := events.New(events.TypeMessageSent, "job-1", "user-1", "Asha", "user-1", "Note to self")

	h.consumer.ch <- delivery(t, h.ack, 5, e)

	results := h.ack.waitFor(t, 1)
	assert.True(t, results[0].acked)
	assert.Equal(t, 0, h.store.calls)
}

func TestWorker_DeliveryChannelClosed(t *testing.T) {
	consumer := &chanConsumer{ch: make(chan amqp.Delivery)}
	w := NewWorker(&Config{Logger: discard(), Store: newMemNotifications(), Consumer: consumer, WorkerID: "w"})
	close(consumer.ch)

	err := w.Start(context.Background())

	assert.ErrorIs(t, err, errDeliveriesClosed)
}

func TestWorker_ConsumeFailure(t *testing.T) {
	consumer := &chanConsumer{err: errors.New("not connected to RabbitMQ")}
	w := NewWorker(&Config{Logger: discard(), Store: newMemNotifications(), Consumer: consumer, WorkerID: "w"})

	err := w.Start(context.Background())

	assert.ErrorContains(t, err, "failed to start consuming")
}

func TestShouldRequeue(t *testing.T) {
	assert.True(t, shouldRequeue(NewRetryableError(errors.New("timeout"))))
	assert.False(t, shouldRequeue(ErrUnknownEventType))
	assert.False(t, shouldRequeue(errors.New("constraint violation")))
}
