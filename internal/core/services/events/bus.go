// Package events fans out service events to streaming subscribers over
// bounded, lossy-on-overflow per-subscriber queues.
package events

import (
	"sync"
	"time"

	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/telemetry"
)

// QueueCapacity bounds each subscriber queue. A subscriber that falls this
// far behind starts losing its oldest events.
const QueueCapacity = 500

// Subscriber is one registered consumer. Receive from C; always call
// the bus's Unsubscribe when done, on every exit path.
type Subscriber struct {
	C chan domain.Envelope
}

// Bus delivers event envelopes to all subscribers. Emit never blocks: a full
// subscriber drops its oldest event to make room, and drops the new event if
// the queue is still full after one retry. Slow consumers never cause
// head-of-line blocking for others or the emitter.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}

	now func() time.Time
}

// NewBus creates an empty bus using the wall clock.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscriber]struct{}), now: time.Now}
}

// NewBusWithClock creates an empty bus with an injected clock for envelope
// timestamps.
func NewBusWithClock(now func() time.Time) *Bus {
	return &Bus{subs: make(map[*Subscriber]struct{}), now: now}
}

// Subscribe registers a new consumer and returns its queue handle.
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan domain.Envelope, QueueCapacity)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a consumer. Safe to call more than once.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// SubscriberCount returns the number of registered consumers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Emit wraps the payload in a typed envelope and offers it to every
// subscriber. The subscriber set is snapshotted so delivery happens outside
// the lock.
func (b *Bus) Emit(eventType string, payload map[string]any) {
	envelope := domain.NewEnvelope(eventType, b.now(), payload)

	b.mu.Lock()
	snapshot := make([]*Subscriber, 0, len(b.subs))
	for sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.Unlock()

	telemetry.EventsEmitted.WithLabelValues(eventType).Inc()

	for _, sub := range snapshot {
		offer(sub.C, envelope, eventType)
	}
}

// Keepalive builds a keepalive envelope stamped with the bus clock.
func (b *Bus) Keepalive() domain.Envelope {
	return domain.NewEnvelope(domain.EventKeepalive, b.now(), nil)
}

// offer performs the non-blocking insert with drop-oldest-then-retry-once.
func offer(ch chan domain.Envelope, envelope domain.Envelope, eventType string) {
	select {
	case ch <- envelope:
		return
	default:
	}

	// Queue full: evict the oldest, then retry once. If another consumer
	// raced us and the queue is full again, the new event is lost.
	select {
	case evicted := <-ch:
		telemetry.EventsDropped.WithLabelValues(evicted.Type).Inc()
	default:
	}

	select {
	case ch <- envelope:
	default:
		telemetry.EventsDropped.WithLabelValues(eventType).Inc()
	}
}
