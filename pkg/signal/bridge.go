// Package signal bridges domain events to UI notifications. Each
// notification carries a structured payload the front end can render
// without knowing the Go event types.
package signal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/eventbus"
	"github.com/kodexlab/kodex/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/protobuf/types/known/structpb"
)

// Notification is what the UI receives for one domain event.
type Notification struct {
	Context     string
	EventType   string
	AggregateID string
	Payload     *structpb.Struct
}

// Emitter receives notifications on the bridge's consumer goroutine.
// Implementations marshal to whatever the UI transport needs.
type Emitter func(n Notification)

// Converter extracts the payload fields for one event type. Events
// without a registered converter get the generic envelope only.
type Converter func(evt domain.Event) (map[string]any, error)

const defaultBufferSize = 256

// Bridge subscribes to the bus and forwards events to the emitter
// through a bounded queue. Publishing never blocks: when the queue is
// full the notification is dropped and counted.
type Bridge struct {
	bus        *eventbus.Bus
	emit       Emitter
	pattern    string
	bufferSize int
	logger     *slog.Logger
	tel        *observability.Telemetry

	mu         sync.Mutex
	converters map[string]Converter

	queue chan Notification
	sub   *eventbus.Subscription
	done  chan struct{}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithTelemetry enables delivery metrics.
func WithTelemetry(tel *observability.Telemetry) Option {
	return func(b *Bridge) { b.tel = tel }
}

// WithPattern narrows the bridge to one event pattern, for example
// "coding.*". Default is every event.
func WithPattern(pattern string) Option {
	return func(b *Bridge) { b.pattern = pattern }
}

// WithBufferSize sets the queue capacity. Default is 256.
func WithBufferSize(n int) Option {
	return func(b *Bridge) { b.bufferSize = n }
}

// NewBridge creates a bridge delivering to emit.
func NewBridge(bus *eventbus.Bus, emit Emitter, opts ...Option) *Bridge {
	b := &Bridge{
		bus:        bus,
		emit:       emit,
		pattern:    eventbus.MatchAll,
		bufferSize: defaultBufferSize,
		logger:     slog.Default(),
		converters: make(map[string]Converter),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterConverter sets the payload converter for an event type.
func (b *Bridge) RegisterConverter(eventType string, conv Converter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.converters[eventType] = conv
}

// Name implements runner.Service.
func (b *Bridge) Name() string { return "signal-bridge " + b.pattern }

// Start subscribes on the bus and launches the consumer goroutine.
func (b *Bridge) Start(context.Context) error {
	b.queue = make(chan Notification, b.bufferSize)
	b.done = make(chan struct{})
	b.sub = b.bus.Subscribe(b.pattern, b.enqueue)

	go b.consume()
	return nil
}

// Stop unsubscribes and drains the queue before returning.
func (b *Bridge) Stop(ctx context.Context) error {
	b.bus.Unsubscribe(b.sub)
	close(b.queue)

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue converts the event and offers it to the queue without
// blocking the publisher.
func (b *Bridge) enqueue(evt domain.Event) {
	n, err := b.convert(evt)
	if err != nil {
		b.logger.Warn("signal conversion failed",
			"event_type", evt.EventType(),
			"error", err,
		)
		b.countDropped(evt.EventType())
		return
	}

	select {
	case b.queue <- n:
	default:
		b.logger.Warn("signal queue full, dropping notification",
			"event_type", evt.EventType(),
			"aggregate_id", evt.AggregateID(),
		)
		b.countDropped(evt.EventType())
	}
}

func (b *Bridge) consume() {
	defer close(b.done)
	for n := range b.queue {
		b.emit(n)
		b.countDelivered(n.EventType)
	}
}

func (b *Bridge) convert(evt domain.Event) (Notification, error) {
	fields := map[string]any{
		"event_type":   evt.EventType(),
		"aggregate_id": evt.AggregateID(),
		"occurred_at":  evt.OccurredAt().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if f, ok := evt.(domain.FailureEvent); ok {
		fields["error_code"] = f.ErrorCode()
		fields["reason"] = f.Reason()
		hints := make([]any, len(f.Suggestions()))
		for i, h := range f.Suggestions() {
			hints[i] = h
		}
		fields["suggestions"] = hints
	}

	b.mu.Lock()
	conv, ok := b.converters[evt.EventType()]
	b.mu.Unlock()
	if ok {
		extra, err := conv(evt)
		if err != nil {
			return Notification{}, fmt.Errorf("convert %s: %w", evt.EventType(), err)
		}
		for k, v := range extra {
			fields[k] = v
		}
	}

	payload, err := structpb.NewStruct(fields)
	if err != nil {
		return Notification{}, fmt.Errorf("build payload for %s: %w", evt.EventType(), err)
	}

	return Notification{
		Context:     domain.Context(evt.EventType()),
		EventType:   evt.EventType(),
		AggregateID: evt.AggregateID(),
		Payload:     payload,
	}, nil
}

func (b *Bridge) countDelivered(eventType string) {
	if b.tel == nil || b.tel.Metrics == nil {
		return
	}
	b.tel.Metrics.SignalsDelivered.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

func (b *Bridge) countDropped(eventType string) {
	if b.tel == nil || b.tel.Metrics == nil {
		return
	}
	b.tel.Metrics.SignalsDropped.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}
