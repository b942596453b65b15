// Package realtime fans out row changes published by Postgres triggers over
// LISTEN/NOTIFY to in-process subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/gigmarket/internal/metrics"
	"github.com/lib/pq"
)

// Row operations carried by change events
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
	// OpResync tells subscribers that events may have been missed and state must be re-read
	OpResync = "RESYNC"
)

// Event is one row change
type Event struct {
	Table  string                 `json:"table"`
	Op     string                 `json:"op"`
	Record map[string]interface{} `json:"record"`
}

// Source delivers raw notifications. *pq.Listener satisfies it; a nil
// notification means the connection was re-established.
type Source interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// Config holds hub settings
type Config struct {
	SubscriberBuffer  int
	KeepAliveInterval time.Duration
}

// Hub routes change events to matching subscriptions
type Hub struct {
	source  Source
	config  Config
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// NewHub creates a Hub reading from source
func NewHub(source Source, config Config, m *metrics.Metrics, logger *slog.Logger) *Hub {
	if config.SubscriberBuffer <= 0 {
		config.SubscriberBuffer = 16
	}
	if config.KeepAliveInterval <= 0 {
		config.KeepAliveInterval = 90 * time.Second
	}

	return &Hub{
		source:  source,
		config:  config,
		metrics: m,
		logger:  logger,
		subs:    make(map[uint64]*Subscription),
	}
}

// Run dispatches notifications until ctx is done or the source closes.
// Every open subscription is closed when Run returns.
func (h *Hub) Run(ctx context.Context) error {
	defer h.closeAll()

	ticker := time.NewTicker(h.config.KeepAliveInterval)
	defer ticker.Stop()

	notifications := h.source.NotificationChannel()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Realtime hub stopping")
			return nil

		case n, ok := <-notifications:
			if !ok {
				return fmt.Errorf("realtime source closed")
			}
			if n == nil {
				h.logger.Warn("Realtime source reconnected, resyncing subscribers")
				h.broadcast(Event{Op: OpResync})
				continue
			}
			h.handle(n)

		case <-ticker.C:
			if err := h.source.Ping(); err != nil {
				h.logger.Warn("Realtime source ping failed", slog.Any("error", err))
			}
		}
	}
}

func (h *Hub) handle(n *pq.Notification) {
	var e Event
	if err := json.Unmarshal([]byte(n.Extra), &e); err != nil {
		h.logger.Warn("Dropping malformed change event",
			slog.String("channel", n.Channel),
			slog.Any("error", err),
		)
		return
	}
	h.Dispatch(e)
}

// Dispatch delivers e to every subscription whose filter matches
func (h *Hub) Dispatch(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.filter.Matches(e) {
			sub.deliver(e)
		}
	}
}

func (h *Hub) broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		sub.deliver(e)
	}
}

// Subscribe registers interest in changes matching filter. The caller must Close
// the subscription. Subscribing to a stopped hub returns an already closed one.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		filter: filter,
		ch:     make(chan Event, h.config.SubscriberBuffer),
		hub:    h,
	}

	if h.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}

	h.subs[sub.id] = sub
	h.metrics.SubscriptionOpened()
	h.logger.Debug("Realtime subscription opened",
		slog.Uint64("subscription_id", sub.id),
		slog.String("table", filter.Table),
	)
	return sub
}

// Len returns the number of open subscriptions
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[id]; !ok {
		return false
	}
	delete(h.subs, id)
	h.metrics.SubscriptionClosed()
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*Subscription)
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		h.metrics.SubscriptionClosed()
		sub.once.Do(func() { close(sub.ch) })
	}
}
