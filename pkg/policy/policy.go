// Package policy reacts to published events with configured follow-up
// actions, typically by issuing cascade commands to other contexts.
package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/eventbus"
	"github.com/kodexlab/kodex/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Action is one reaction to an event. Actions issue commands through
// the regular handlers; they never write to repositories directly.
type Action func(ctx context.Context, evt domain.Event) error

// NamedAction pairs an action with the name used in logs and metrics.
// Actions run in slice order; a slice keeps registration order where a
// map would not.
type NamedAction struct {
	Name string
	Run  Action
}

// Rule binds an event type to its ordered reactions.
type Rule struct {
	EventType   string
	Description string
	Actions     []NamedAction
}

// Registry holds policy rules in registration order.
type Registry struct {
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// On registers the reactions for an event type. Multiple calls for the
// same event type append further rules; all of them fire.
func (r *Registry) On(eventType, description string, actions ...NamedAction) {
	r.rules = append(r.rules, Rule{
		EventType:   eventType,
		Description: description,
		Actions:     actions,
	})
}

// Rules returns the registered rules in order.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// Executor subscribes the registry's rules on the bus and runs their
// actions when events arrive. One failing or panicking action never
// stops the remaining actions of the same rule.
type Executor struct {
	registry *Registry
	bus      *eventbus.Bus
	logger   *slog.Logger
	tel      *observability.Telemetry

	subs []*eventbus.Subscription
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithTelemetry enables policy metrics.
func WithTelemetry(tel *observability.Telemetry) ExecutorOption {
	return func(e *Executor) { e.tel = tel }
}

// NewExecutor creates an executor over the given registry and bus.
func NewExecutor(registry *Registry, bus *eventbus.Bus, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		bus:      bus,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attach subscribes every rule on the bus. Cascades publish further
// events re-entrantly on the same goroutine; the bus tolerates that.
func (e *Executor) Attach() {
	for _, rule := range e.registry.rules {
		rule := rule
		sub := e.bus.Subscribe(rule.EventType, func(evt domain.Event) {
			e.apply(rule, evt)
		})
		e.subs = append(e.subs, sub)
	}
}

// Detach removes the executor's subscriptions.
func (e *Executor) Detach() {
	for _, sub := range e.subs {
		e.bus.Unsubscribe(sub)
	}
	e.subs = nil
}

func (e *Executor) apply(rule Rule, evt domain.Event) {
	for _, action := range rule.Actions {
		e.runAction(rule, action, evt)
	}
}

func (e *Executor) runAction(rule Rule, action NamedAction, evt domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("policy action panicked",
				"action", action.Name,
				"event_type", rule.EventType,
				"panic", fmt.Sprintf("%v", r),
			)
			e.count(e.errCounter(), action.Name, rule.EventType)
		}
	}()

	if err := action.Run(context.Background(), evt); err != nil {
		e.logger.Error("policy action failed",
			"action", action.Name,
			"event_type", rule.EventType,
			"error", err,
		)
		e.count(e.errCounter(), action.Name, rule.EventType)
		return
	}

	e.logger.Debug("policy action applied",
		"action", action.Name,
		"event_type", rule.EventType,
		"aggregate_id", evt.AggregateID(),
	)
	e.count(e.okCounter(), action.Name, rule.EventType)
}

func (e *Executor) okCounter() metric.Int64Counter {
	if e.tel == nil || e.tel.Metrics == nil {
		return nil
	}
	return e.tel.Metrics.PolicyActions
}

func (e *Executor) errCounter() metric.Int64Counter {
	if e.tel == nil || e.tel.Metrics == nil {
		return nil
	}
	return e.tel.Metrics.PolicyActionErrors
}

func (e *Executor) count(counter metric.Int64Counter, action, eventType string) {
	if counter == nil {
		return
	}
	counter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("event_type", eventType),
	))
}
