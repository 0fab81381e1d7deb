// Package app wires the workbench together: project store, event bus,
// trust gate, the three context handlers, the dispatcher, policy
// cascades, UI signal bridges, the debounced snapshot writer, and the
// optional agent gateway.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kodexlab/kodex/pkg/approval"
	"github.com/kodexlab/kodex/pkg/cases"
	"github.com/kodexlab/kodex/pkg/coding"
	"github.com/kodexlab/kodex/pkg/config"
	"github.com/kodexlab/kodex/pkg/debounce"
	"github.com/kodexlab/kodex/pkg/dispatch"
	"github.com/kodexlab/kodex/pkg/eventbus"
	"github.com/kodexlab/kodex/pkg/idgen"
	"github.com/kodexlab/kodex/pkg/observability"
	"github.com/kodexlab/kodex/pkg/policy"
	"github.com/kodexlab/kodex/pkg/runner"
	"github.com/kodexlab/kodex/pkg/signal"
	"github.com/kodexlab/kodex/pkg/sources"
	"github.com/kodexlab/kodex/pkg/sqlite"
)

// App is the assembled workbench. Outer surfaces talk to Dispatcher;
// everything else is wiring.
type App struct {
	Store      *sqlite.ProjectStore
	Bus        *eventbus.Bus
	Gate       *approval.Gate
	Dispatcher *dispatch.Dispatcher
	Coding     *coding.Handler
	Sources    *sources.Handler
	Cases      *cases.Handler
	Policies   *policy.Executor

	settings        config.Settings
	logger          *slog.Logger
	tel             *observability.Telemetry
	emit            signal.Emitter
	auditRejections bool
	ownsStore       bool

	services []runner.Service
}

// Option configures the App.
type Option func(*App)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithTelemetry enables metrics and tracing across the core.
func WithTelemetry(tel *observability.Telemetry) Option {
	return func(a *App) { a.tel = tel }
}

// WithEmitter sets the UI notification sink. Default logs at debug.
func WithEmitter(emit signal.Emitter) Option {
	return func(a *App) { a.emit = emit }
}

// WithStore injects an already opened project store, typically an
// in-memory one in tests. The caller keeps ownership.
func WithStore(store *sqlite.ProjectStore) Option {
	return func(a *App) { a.Store = store }
}

// WithRejectionAudit publishes failure events on the bus in every
// context so audit subscribers observe rejected attempts.
func WithRejectionAudit() Option {
	return func(a *App) { a.auditRejections = true }
}

// New assembles the workbench from settings. Policies attach
// immediately; long-running services start under Run.
func New(settings config.Settings, opts ...Option) (*App, error) {
	a := &App{
		settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.emit == nil {
		a.emit = func(n signal.Notification) {
			a.logger.Debug("signal emitted", "event_type", n.EventType, "aggregate_id", n.AggregateID)
		}
	}

	if a.Store == nil {
		store, err := sqlite.NewProjectStore(sqlite.WithDSN(settings.DatabasePath))
		if err != nil {
			return nil, fmt.Errorf("open project store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	busOpts := []eventbus.Option{eventbus.WithLogger(a.logger)}
	if settings.BusHistorySize > 0 {
		busOpts = append(busOpts, eventbus.WithHistory(settings.BusHistorySize))
	}
	if a.tel != nil {
		busOpts = append(busOpts, eventbus.WithTelemetry(a.tel))
	}
	a.Bus = eventbus.New(busOpts...)

	a.Gate = approval.NewGate(settings.ApprovalSettings(), a.Bus, approval.WithLogger(a.logger))

	ids := idgen.New()
	a.Coding = coding.NewHandler(a.Store.Coding(), a.Bus, a.Gate, ids, a.codingOptions()...)
	a.Sources = sources.NewHandler(a.Store.Sources(), a.Bus, a.Gate, ids, a.sourcesOptions()...)
	a.Cases = cases.NewHandler(a.Store.Cases(), a.Bus, a.Gate, ids, a.casesOptions()...)

	a.Dispatcher = dispatch.NewDispatcher()
	a.registerOperations()

	registry := policy.NewRegistry()
	a.registerPolicies(registry)
	polOpts := []policy.ExecutorOption{policy.WithLogger(a.logger)}
	if a.tel != nil {
		polOpts = append(polOpts, policy.WithTelemetry(a.tel))
	}
	a.Policies = policy.NewExecutor(registry, a.Bus, polOpts...)
	a.Policies.Attach()

	a.buildServices()

	return a, nil
}

func (a *App) codingOptions() []coding.HandlerOption {
	opts := []coding.HandlerOption{coding.WithLogger(a.logger)}
	if a.tel != nil {
		opts = append(opts, coding.WithTelemetry(a.tel))
	}
	if a.auditRejections {
		opts = append(opts, coding.WithRejectionAudit())
	}
	return opts
}

func (a *App) sourcesOptions() []sources.HandlerOption {
	opts := []sources.HandlerOption{sources.WithLogger(a.logger)}
	if a.tel != nil {
		opts = append(opts, sources.WithTelemetry(a.tel))
	}
	if a.auditRejections {
		opts = append(opts, sources.WithRejectionAudit())
	}
	return opts
}

func (a *App) casesOptions() []cases.HandlerOption {
	opts := []cases.HandlerOption{cases.WithLogger(a.logger)}
	if a.tel != nil {
		opts = append(opts, cases.WithTelemetry(a.tel))
	}
	if a.auditRejections {
		opts = append(opts, cases.WithRejectionAudit())
	}
	return opts
}

// buildServices assembles the long-running pieces in start order: UI
// bridges first, then the snapshot writer, then the agent gateway.
func (a *App) buildServices() {
	for _, pattern := range []string{"coding.*", "sources.*", "cases.*", "approval.*"} {
		bridgeOpts := []signal.Option{
			signal.WithLogger(a.logger),
			signal.WithPattern(pattern),
			signal.WithBufferSize(a.settings.SignalBufferSize),
		}
		if a.tel != nil {
			bridgeOpts = append(bridgeOpts, signal.WithTelemetry(a.tel))
		}
		a.services = append(a.services, signal.NewBridge(a.Bus, a.emit, bridgeOpts...))
	}

	listenerOpts := []debounce.Option{
		debounce.WithLogger(a.logger),
		debounce.WithWindow(a.settings.DebounceWindow()),
	}
	if a.tel != nil {
		listenerOpts = append(listenerOpts, debounce.WithTelemetry(a.tel))
	}
	a.services = append(a.services, debounce.NewListener(
		a.Bus,
		a.flushSnapshot,
		[]string{"coding.*", "sources.*", "cases.*"},
		listenerOpts...,
	))

	if a.settings.AgentEnabled {
		a.services = append(a.services, newAgentService(a.Dispatcher, a.logger))
	}
}

// Services returns the long-running services in start order.
func (a *App) Services() []runner.Service {
	return a.services
}

// Run starts every service and blocks until the context is cancelled
// or a shutdown signal arrives, then releases the app's resources.
func (a *App) Run(ctx context.Context) error {
	r := runner.New(a.services, runner.WithLogger(a.logger))
	err := r.Run(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close detaches policies and closes the store when the app owns it.
func (a *App) Close() error {
	a.Policies.Detach()
	if a.ownsStore {
		return a.Store.Close()
	}
	return nil
}
