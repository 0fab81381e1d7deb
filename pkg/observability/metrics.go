package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the domain core.
type Metrics struct {
	// Command handling
	CommandDuration metric.Float64Histogram
	CommandTotal    metric.Int64Counter
	CommandErrors   metric.Int64Counter

	// Event distribution
	EventsPublished    metric.Int64Counter
	SubscriberFailures metric.Int64Counter

	// Policy execution
	PolicyActions      metric.Int64Counter
	PolicyActionErrors metric.Int64Counter

	// Signal bridge
	SignalsDelivered metric.Int64Counter
	SignalsDropped   metric.Int64Counter

	// Debounce
	DebounceFlushes metric.Int64Counter
}

// NewMetrics creates all instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.CommandDuration, err = meter.Float64Histogram(
		"kodex.command.duration",
		metric.WithDescription("Command handling duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating command.duration: %w", err)
	}

	if m.CommandTotal, err = meter.Int64Counter(
		"kodex.command.total",
		metric.WithDescription("Total commands handled"),
	); err != nil {
		return nil, fmt.Errorf("creating command.total: %w", err)
	}

	if m.CommandErrors, err = meter.Int64Counter(
		"kodex.command.errors",
		metric.WithDescription("Commands that ended in infrastructure failure"),
	); err != nil {
		return nil, fmt.Errorf("creating command.errors: %w", err)
	}

	if m.EventsPublished, err = meter.Int64Counter(
		"kodex.events.published",
		metric.WithDescription("Events published on the in-process bus"),
	); err != nil {
		return nil, fmt.Errorf("creating events.published: %w", err)
	}

	if m.SubscriberFailures, err = meter.Int64Counter(
		"kodex.events.subscriber_failures",
		metric.WithDescription("Subscriber panics caught during fan-out"),
	); err != nil {
		return nil, fmt.Errorf("creating events.subscriber_failures: %w", err)
	}

	if m.PolicyActions, err = meter.Int64Counter(
		"kodex.policy.actions",
		metric.WithDescription("Policy actions executed"),
	); err != nil {
		return nil, fmt.Errorf("creating policy.actions: %w", err)
	}

	if m.PolicyActionErrors, err = meter.Int64Counter(
		"kodex.policy.action_errors",
		metric.WithDescription("Policy actions that failed"),
	); err != nil {
		return nil, fmt.Errorf("creating policy.action_errors: %w", err)
	}

	if m.SignalsDelivered, err = meter.Int64Counter(
		"kodex.signal.delivered",
		metric.WithDescription("UI notifications delivered by the signal bridge"),
	); err != nil {
		return nil, fmt.Errorf("creating signal.delivered: %w", err)
	}

	if m.SignalsDropped, err = meter.Int64Counter(
		"kodex.signal.dropped",
		metric.WithDescription("UI notifications dropped due to a full buffer"),
	); err != nil {
		return nil, fmt.Errorf("creating signal.dropped: %w", err)
	}

	if m.DebounceFlushes, err = meter.Int64Counter(
		"kodex.debounce.flushes",
		metric.WithDescription("Debounced batch flushes"),
	); err != nil {
		return nil, fmt.Errorf("creating debounce.flushes: %w", err)
	}

	return m, nil
}
