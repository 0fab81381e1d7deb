package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type operationKey struct{}

// WithOperation annotates the context with the operation name so
// middleware can log it without re-threading parameters.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// Operation extracts the operation name set by WithOperation.
func Operation(ctx context.Context) string {
	op, _ := ctx.Value(operationKey{}).(string)
	return op
}

// Logging logs every dispatched operation with its outcome and latency.
func Logging(logger *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, payload json.RawMessage) (*domain.OperationResult, error) {
			start := time.Now()
			res, err := next(ctx, payload)
			elapsed := time.Since(start)

			switch {
			case err != nil:
				logger.Error("operation failed",
					"operation", Operation(ctx),
					"elapsed", elapsed,
					"error", err,
				)
			case res != nil && !res.Success:
				logger.Info("operation rejected",
					"operation", Operation(ctx),
					"elapsed", elapsed,
					"error_code", res.ErrorCode,
				)
			default:
				logger.Info("operation completed",
					"operation", Operation(ctx),
					"elapsed", elapsed,
				)
			}
			return res, err
		}
	}
}

// Recovery converts a panicking handler into an infrastructure failure
// so one bad operation cannot take down the process.
func Recovery(logger *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, payload json.RawMessage) (res *domain.OperationResult, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("operation panicked",
						"operation", Operation(ctx),
						"panic", fmt.Sprintf("%v", r),
					)
					res = domain.InfrastructureFailure(domain.CodePanic)
					err = nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// Tracing opens a span per dispatched operation.
func Tracing(tel *observability.Telemetry) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, payload json.RawMessage) (*domain.OperationResult, error) {
			if tel == nil || tel.Tracer == nil {
				return next(ctx, payload)
			}

			op := Operation(ctx)
			ctx, span := tel.Tracer.Start(ctx, "dispatch."+op,
				trace.WithAttributes(attribute.String("operation", op)))
			defer span.End()

			res, err := next(ctx, payload)
			if res != nil {
				span.SetAttributes(attribute.Bool("success", res.Success))
				if res.ErrorCode != "" {
					span.SetAttributes(attribute.String("error_code", res.ErrorCode))
				}
			}
			return res, err
		}
	}
}
