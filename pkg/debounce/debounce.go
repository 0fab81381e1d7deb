// Package debounce coalesces bursts of events into one batched flush.
// The project snapshot writer sits behind it so rapid mutations cost a
// single write instead of one per event.
package debounce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/eventbus"
	"github.com/kodexlab/kodex/pkg/observability"
	"go.opentelemetry.io/otel/metric"
)

// FlushFunc receives the coalesced batch in arrival order.
type FlushFunc func(ctx context.Context, batch []domain.Event) error

const defaultWindow = 500 * time.Millisecond

// Listener collects matching events and flushes them once the window
// elapses without a new arrival. Events arriving while a flush runs are
// buffered for the next cycle, never lost.
type Listener struct {
	bus    *eventbus.Bus
	flush  FlushFunc
	window time.Duration
	types  []string
	logger *slog.Logger
	tel    *observability.Telemetry

	mu      sync.Mutex
	pending []domain.Event
	timer   *time.Timer
	closed  bool

	subs []*eventbus.Subscription
}

// Option configures a Listener.
type Option func(*Listener)

// WithWindow sets the quiet period before a flush. Default is 500ms.
func WithWindow(window time.Duration) Option {
	return func(l *Listener) { l.window = window }
}

// WithLogger sets the listener's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) { l.logger = logger }
}

// WithTelemetry enables flush metrics.
func WithTelemetry(tel *observability.Telemetry) Option {
	return func(l *Listener) { l.tel = tel }
}

// NewListener creates a listener for the given event patterns.
func NewListener(bus *eventbus.Bus, flush FlushFunc, patterns []string, opts ...Option) *Listener {
	l := &Listener{
		bus:    bus,
		flush:  flush,
		window: defaultWindow,
		types:  patterns,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements runner.Service.
func (l *Listener) Name() string { return "debounce-listener" }

// Start subscribes the listener's patterns on the bus.
func (l *Listener) Start(context.Context) error {
	for _, pattern := range l.types {
		l.subs = append(l.subs, l.bus.Subscribe(pattern, l.collect))
	}
	return nil
}

// Stop unsubscribes and flushes whatever is still pending.
func (l *Listener) Stop(ctx context.Context) error {
	for _, sub := range l.subs {
		l.bus.Unsubscribe(sub)
	}
	l.subs = nil

	l.mu.Lock()
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return l.runFlush(ctx, batch)
}

// collect buffers one event and rearms the window. Called on the
// publisher's goroutine, so it must stay cheap.
func (l *Listener) collect(evt domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.pending = append(l.pending, evt)

	if l.timer == nil {
		l.timer = time.AfterFunc(l.window, l.windowElapsed)
		return
	}
	l.timer.Reset(l.window)
}

// windowElapsed takes the batch and flushes it off the publisher's
// goroutine. Arrivals during the flush start a fresh window.
func (l *Listener) windowElapsed() {
	l.mu.Lock()
	if l.closed || len(l.pending) == 0 {
		l.timer = nil
		l.mu.Unlock()
		return
	}
	batch := l.pending
	l.pending = nil
	l.timer = nil
	l.mu.Unlock()

	_ = l.runFlush(context.Background(), batch)
}

func (l *Listener) runFlush(ctx context.Context, batch []domain.Event) error {
	if err := l.flush(ctx, batch); err != nil {
		l.logger.Error("debounced flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		return err
	}

	l.logger.Debug("debounced flush completed", "batch_size", len(batch))
	if l.tel != nil && l.tel.Metrics != nil {
		l.tel.Metrics.DebounceFlushes.Add(ctx, 1, metric.WithAttributes())
	}
	return nil
}
