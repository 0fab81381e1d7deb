// Package eventbus implements the in-process publish/subscribe router that
// fans domain events out to UI bridges, policies and audit sinks.
//
// Delivery is synchronous, in subscriber-registration order, on the calling
// goroutine. The bus never introduces concurrency of its own; it only
// tolerates being called concurrently from multiple goroutines.
package eventbus

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Handler processes one event. Panics are caught by the bus, logged with
// the event context, and never reach the publisher or other subscribers.
type Handler func(evt domain.Event)

// MatchAll subscribes to every event regardless of type.
const MatchAll = "*"

// Subscription identifies one (pattern, handler) registration.
type Subscription struct {
	id      uint64
	pattern string
	handler Handler
}

// Pattern returns the pattern this subscription was registered with.
func (s *Subscription) Pattern() string { return s.pattern }

// Bus is a thread-safe in-process event router.
//
// The subscriber list is copy-on-write: Publish takes an immutable snapshot
// of the slice and releases the lock before fan-out, so subscribe and
// unsubscribe never block delivery and re-entrant publishes from inside a
// handler cannot deadlock.
type Bus struct {
	mu     sync.Mutex
	subs   atomic.Pointer[[]*Subscription]
	nextID uint64

	history *ring

	logger *slog.Logger
	tel    *observability.Telemetry
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for subscriber failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithHistory enables a bounded in-memory history buffer of the last n
// published events. Audit/debug replay within the running session only;
// this is not a durability guarantee.
func WithHistory(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.history = newRing(n)
		}
	}
}

// WithTelemetry enables publish and failure counters.
func WithTelemetry(tel *observability.Telemetry) Option {
	return func(b *Bus) { b.tel = tel }
}

// New creates an event bus.
func New(opts ...Option) *Bus {
	b := &Bus{logger: slog.Default()}
	empty := make([]*Subscription, 0)
	b.subs.Store(&empty)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for events whose type matches pattern.
// A pattern is either an exact event type ("coding.code_created"), a
// context prefix wildcard ("coding.*"), or MatchAll.
func (b *Bus) Subscribe(pattern string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, pattern: pattern, handler: handler}

	old := *b.subs.Load()
	next := make([]*Subscription, len(old), len(old)+1)
	copy(next, old)
	next = append(next, sub)
	b.subs.Store(&next)

	return sub
}

// SubscribeAll registers a handler for every event.
func (b *Bus) SubscribeAll(handler Handler) *Subscription {
	return b.Subscribe(MatchAll, handler)
}

// Unsubscribe removes a subscription. Removing an already-removed
// subscription is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	old := *b.subs.Load()
	next := make([]*Subscription, 0, len(old))
	for _, s := range old {
		if s.id != sub.id {
			next = append(next, s)
		}
	}
	b.subs.Store(&next)
}

// Publish delivers evt synchronously to every matching subscriber in
// registration order, on the calling goroutine. A panicking subscriber is
// logged and skipped; remaining subscribers still receive the event.
func (b *Bus) Publish(evt domain.Event) {
	if evt == nil {
		return
	}

	if b.history != nil {
		b.history.append(evt)
	}

	if b.tel != nil && b.tel.Metrics != nil {
		b.tel.Metrics.EventsPublished.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("event_type", evt.EventType()),
		))
	}

	subs := *b.subs.Load()
	for _, sub := range subs {
		if !matches(sub.pattern, evt.EventType()) {
			continue
		}
		b.deliver(sub, evt)
	}
}

func (b *Bus) deliver(sub *Subscription, evt domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				"pattern", sub.pattern,
				"event_type", evt.EventType(),
				"aggregate_id", evt.AggregateID(),
				"panic", r,
			)
			if b.tel != nil && b.tel.Metrics != nil {
				b.tel.Metrics.SubscriberFailures.Add(context.Background(), 1, metric.WithAttributes(
					attribute.String("event_type", evt.EventType()),
				))
			}
		}
	}()
	sub.handler(evt)
}

// History returns up to n of the most recently published events, oldest
// first. Returns nil when history is disabled.
func (b *Bus) History(n int) []domain.Event {
	if b.history == nil {
		return nil
	}
	return b.history.last(n)
}

// matches reports whether an event type matches a subscription pattern.
func matches(pattern, eventType string) bool {
	switch {
	case pattern == MatchAll:
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, pattern[:len(pattern)-1])
	default:
		return pattern == eventType
	}
}
