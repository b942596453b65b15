package realtime

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Filter selects change events by table, an optional column equality and an
// optional set of operations. Resync events match every filter.
type Filter struct {
	Table  string
	Column string
	Value  string
	Ops    []string
}

// Matches reports whether e passes the filter
func (f Filter) Matches(e Event) bool {
	if e.Op == OpResync {
		return true
	}
	if e.Table != f.Table {
		return false
	}
	if len(f.Ops) > 0 && !contains(f.Ops, e.Op) {
		return false
	}
	if f.Column == "" {
		return true
	}
	v, ok := e.Record[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

func contains(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

// Subscription is a live feed of matching change events.
// When its buffer is full new events are dropped: a pending event already
// tells the consumer to re-read.
type Subscription struct {
	id      uint64
	filter  Filter
	ch      chan Event
	hub     *Hub
	once    sync.Once
	dropped atomic.Int64
}

// Events returns the channel events arrive on. It is closed by Close or when the hub stops.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events were discarded because the buffer was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	if s.hub.remove(s.id) {
		s.once.Do(func() { close(s.ch) })
	}
}

// deliver must be called with the hub's read lock held
func (s *Subscription) deliver(e Event) {
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}
