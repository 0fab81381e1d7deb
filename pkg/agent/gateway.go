// Package agent exposes the dispatcher's operations as tools over NATS
// request/reply, so an agent process can drive the workbench through
// the same validated command path as the UI.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kodexlab/kodex/pkg/dispatch"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/nats-io/nats.go"
)

// Error codes returned by the gateway before an operation runs.
const (
	CodeUnknownTool = "AGENT/UNKNOWN_TOOL"
	CodeBadRequest  = "AGENT/BAD_REQUEST"
)

// DefaultSubjectPrefix is where tools live on the subject space:
// tools.coding.create_code, tools.sources.add_source, and so on.
const DefaultSubjectPrefix = "tools."

const defaultTimeout = 10 * time.Second

// Gateway subscribes to the tool subject space and forwards each
// request to the dispatcher, replying with the JSON operation result.
type Gateway struct {
	nc         *nats.Conn
	dispatcher *dispatch.Dispatcher
	prefix     string
	timeout    time.Duration
	logger     *slog.Logger

	sub *nats.Subscription
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the gateway's logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = logger }
}

// WithSubjectPrefix overrides the tool subject prefix.
func WithSubjectPrefix(prefix string) GatewayOption {
	return func(g *Gateway) { g.prefix = prefix }
}

// WithTimeout bounds each dispatched operation. Default is 10 seconds.
func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = timeout }
}

// NewGateway creates a gateway over an established NATS connection.
func NewGateway(nc *nats.Conn, dispatcher *dispatch.Dispatcher, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		nc:         nc,
		dispatcher: dispatcher,
		prefix:     DefaultSubjectPrefix,
		timeout:    defaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements runner.Service.
func (g *Gateway) Name() string { return "agent-gateway" }

// Start subscribes to the tool subject space.
func (g *Gateway) Start(context.Context) error {
	sub, err := g.nc.Subscribe(g.prefix+">", g.handle)
	if err != nil {
		return fmt.Errorf("subscribe to tool subjects: %w", err)
	}
	g.sub = sub
	g.logger.Info("agent gateway listening",
		"subject", g.prefix+">",
		"operations", len(g.dispatcher.Operations()),
	)
	return nil
}

// Stop drains the subscription so in-flight requests finish.
func (g *Gateway) Stop(context.Context) error {
	if g.sub == nil {
		return nil
	}
	if err := g.sub.Drain(); err != nil {
		return fmt.Errorf("drain tool subscription: %w", err)
	}
	g.sub = nil
	return nil
}

// HealthCheck implements runner.HealthChecker.
func (g *Gateway) HealthCheck(context.Context) error {
	if g.nc == nil || !g.nc.IsConnected() {
		return errors.New("nats connection lost")
	}
	return nil
}

func (g *Gateway) handle(msg *nats.Msg) {
	operation := strings.TrimPrefix(msg.Subject, g.prefix)

	// tools.list is the discovery endpoint: it names every operation an
	// agent may call.
	if operation == "list" {
		g.reply(msg, map[string]any{
			"success":    true,
			"operations": g.dispatcher.Operations(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	res, err := g.dispatcher.Dispatch(ctx, operation, msg.Data)
	switch {
	case errors.Is(err, domain.ErrOperationNotFound):
		g.reply(msg, &domain.OperationResult{
			ErrorCode:   CodeUnknownTool,
			Reason:      fmt.Sprintf("no tool named %q", operation),
			Suggestions: []string{"call tools.list to discover the available tools"},
		})
	case err != nil:
		g.logger.Error("tool call failed",
			"operation", operation,
			"error", err,
		)
		g.reply(msg, domain.InfrastructureFailure(""))
	default:
		g.reply(msg, res)
	}
}

func (g *Gateway) reply(msg *nats.Msg, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		g.logger.Error("failed to marshal tool reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		g.logger.Error("failed to send tool reply", "error", err)
	}
}
