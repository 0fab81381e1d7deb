// Package dispatch routes named operations to command handlers. It is
// the single entry point shared by every outer surface (agent gateway,
// CLI, UI), so middleware applied here covers all of them.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/validate"
)

// HandlerFunc executes one operation from its raw JSON payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (*domain.OperationResult, error)

// Middleware wraps every registered handler.
type Middleware func(next HandlerFunc) HandlerFunc

// Dispatcher maps operation names to handlers.
type Dispatcher struct {
	mu         sync.RWMutex
	handlers   map[string]HandlerFunc
	middleware []Middleware
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register binds an operation name to a handler. Registering the same
// name twice is a wiring bug and panics at startup.
func (d *Dispatcher) Register(operation string, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[operation]; exists {
		panic(fmt.Sprintf("dispatch: operation %q registered twice", operation))
	}
	d.handlers[operation] = handler
}

// Use appends middleware. Middleware wraps in registration order, so
// the first Use is the outermost.
func (d *Dispatcher) Use(mw ...Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middleware = append(d.middleware, mw...)
}

// Operations returns the registered operation names, sorted.
func (d *Dispatcher) Operations() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ops := make([]string, 0, len(d.handlers))
	for op := range d.handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Dispatch runs the named operation through the middleware chain.
func (d *Dispatcher) Dispatch(ctx context.Context, operation string, payload json.RawMessage) (*domain.OperationResult, error) {
	d.mu.RLock()
	handler, ok := d.handlers[operation]
	chain := d.middleware
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOperationNotFound, operation)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler(WithOperation(ctx, operation), payload)
}

// Validation error codes returned before a command reaches its handler.
const (
	CodeMalformedPayload = "VALIDATION/MALFORMED_PAYLOAD"
	CodeInvalidFields    = "VALIDATION/INVALID_FIELDS"
)

// Typed adapts a strongly typed command handler to a HandlerFunc: it
// decodes the payload, stamps missing command metadata, and runs the
// optional field check before the command reaches the domain.
func Typed[C domain.Command](check func(cmd C, c *validate.Checker), handle func(ctx context.Context, cmd C) *domain.OperationResult) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (*domain.OperationResult, error) {
		var cmd C
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &cmd); err != nil {
				return &domain.OperationResult{
					ErrorCode:   CodeMalformedPayload,
					Reason:      "the payload is not valid JSON for this operation",
					Suggestions: []string{"check the payload against the operation's schema"},
				}, nil
			}
		}
		stampMeta(&cmd)

		if check != nil {
			checker := validate.NewChecker()
			check(cmd, checker)
			if issues := checker.Result(); issues != nil {
				return &domain.OperationResult{
					ErrorCode:   CodeInvalidFields,
					Reason:      issues.Error(),
					Suggestions: suggestions(issues),
				}, nil
			}
		}

		return handle(ctx, cmd), nil
	}
}

// stampMeta fills the command's Meta field when the wire payload left
// it empty, so derivers always see an issue time and a command ID.
func stampMeta(cmd any) {
	v := reflect.ValueOf(cmd).Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	field := v.FieldByName("Meta")
	if !field.IsValid() || field.Type() != reflect.TypeOf(domain.Meta{}) || !field.CanSet() {
		return
	}
	meta := field.Interface().(domain.Meta)
	if meta.CommandID == "" {
		field.Set(reflect.ValueOf(domain.NewMeta()))
	}
}

func suggestions(issues validate.Issues) []string {
	var out []string
	for _, issue := range issues {
		if issue.Suggestion != "" {
			out = append(out, issue.Suggestion)
		}
	}
	if len(out) == 0 {
		out = []string{"fix the listed fields and retry"}
	}
	return out
}

// OperationName derives the canonical operation name from a command
// type string, which is already namespaced like "coding.create_code".
func OperationName(cmd domain.Command) string {
	return strings.TrimSpace(cmd.CommandType())
}
