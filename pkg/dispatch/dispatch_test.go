package dispatch_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/kodexlab/kodex/pkg/coding"
	"github.com/kodexlab/kodex/pkg/dispatch"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	d := dispatch.NewDispatcher()
	d.Register("coding.create_code", func(ctx context.Context, payload json.RawMessage) (*domain.OperationResult, error) {
		return domain.SuccessResult(map[string]any{"routed": true}, nil), nil
	})

	res, err := d.Dispatch(context.Background(), "coding.create_code", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestDispatchUnknownOperation(t *testing.T) {
	d := dispatch.NewDispatcher()

	_, err := d.Dispatch(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, domain.ErrOperationNotFound)
}

func TestRegisterTwicePanics(t *testing.T) {
	d := dispatch.NewDispatcher()
	h := func(context.Context, json.RawMessage) (*domain.OperationResult, error) { return nil, nil }

	d.Register("coding.create_code", h)
	assert.Panics(t, func() { d.Register("coding.create_code", h) })
}

func TestMiddlewareOrderIsOutsideIn(t *testing.T) {
	d := dispatch.NewDispatcher()
	var order []string

	mw := func(name string) dispatch.Middleware {
		return func(next dispatch.HandlerFunc) dispatch.HandlerFunc {
			return func(ctx context.Context, payload json.RawMessage) (*domain.OperationResult, error) {
				order = append(order, name)
				return next(ctx, payload)
			}
		}
	}

	d.Use(mw("outer"), mw("inner"))
	d.Register("op", func(context.Context, json.RawMessage) (*domain.OperationResult, error) {
		order = append(order, "handler")
		return domain.SuccessResult(nil, nil), nil
	})

	_, err := d.Dispatch(context.Background(), "op", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRecoveryTurnsPanicIntoResult(t *testing.T) {
	d := dispatch.NewDispatcher()
	d.Use(dispatch.Recovery(slog.Default()))
	d.Register("op", func(context.Context, json.RawMessage) (*domain.OperationResult, error) {
		panic("handler exploded")
	})

	res, err := d.Dispatch(context.Background(), "op", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, domain.CodePanic, res.ErrorCode)
}

func TestTypedDecodesAndStampsMeta(t *testing.T) {
	var got coding.CreateCode
	handler := dispatch.Typed(nil, func(_ context.Context, cmd coding.CreateCode) *domain.OperationResult {
		got = cmd
		return domain.SuccessResult(nil, nil)
	})

	payload := json.RawMessage(`{"name":"Anxiety","color":"#1F77B4"}`)
	res, err := handler(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Anxiety", got.Name)
	assert.NotEmpty(t, got.Meta.CommandID, "missing metadata is stamped at the edge")
	assert.False(t, got.Meta.IssuedAt.IsZero())
}

func TestTypedKeepsSuppliedMeta(t *testing.T) {
	var got coding.CreateCode
	handler := dispatch.Typed(nil, func(_ context.Context, cmd coding.CreateCode) *domain.OperationResult {
		got = cmd
		return domain.SuccessResult(nil, nil)
	})

	payload := json.RawMessage(`{"meta":{"command_id":"cmd-9","correlation_id":"corr-9","issued_at":"2026-08-01T12:00:00Z"},"name":"Anxiety"}`)
	_, err := handler(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "cmd-9", got.Meta.CommandID)
	assert.Equal(t, "corr-9", got.Meta.CorrelationID)
}

func TestTypedRejectsMalformedPayload(t *testing.T) {
	handler := dispatch.Typed(nil, func(_ context.Context, cmd coding.CreateCode) *domain.OperationResult {
		t.Fatal("handler must not run")
		return nil
	})

	res, err := handler(context.Background(), json.RawMessage(`{broken`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, dispatch.CodeMalformedPayload, res.ErrorCode)
}

func TestTypedRunsFieldChecks(t *testing.T) {
	handler := dispatch.Typed(
		func(cmd coding.CreateCode, c *validate.Checker) {
			c.Require("name", cmd.Name)
			c.HexColor("color", cmd.Color)
		},
		func(_ context.Context, cmd coding.CreateCode) *domain.OperationResult {
			t.Fatal("handler must not run")
			return nil
		},
	)

	res, err := handler(context.Background(), json.RawMessage(`{"color":"blue"}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, dispatch.CodeInvalidFields, res.ErrorCode)
	assert.Contains(t, res.Reason, "Name is required")
	assert.NotEmpty(t, res.Suggestions)
}

func TestOperationsAreSorted(t *testing.T) {
	d := dispatch.NewDispatcher()
	h := func(context.Context, json.RawMessage) (*domain.OperationResult, error) { return nil, nil }
	d.Register("b.op", h)
	d.Register("a.op", h)

	assert.Equal(t, []string{"a.op", "b.op"}, d.Operations())
}
