package sources

import (
	"context"
	"log/slog"
	"time"

	"github.com/kodexlab/kodex/pkg/approval"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/eventbus"
	"github.com/kodexlab/kodex/pkg/idgen"
	"github.com/kodexlab/kodex/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Handler orchestrates source and segment mutations following the same
// load, derive, gate, persist-then-publish steps as every context.
type Handler struct {
	repo   Repository
	bus    *eventbus.Bus
	gate   *approval.Gate
	ids    idgen.Generator
	logger *slog.Logger
	tel    *observability.Telemetry

	auditRejections bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithTelemetry enables command metrics.
func WithTelemetry(tel *observability.Telemetry) HandlerOption {
	return func(h *Handler) { h.tel = tel }
}

// WithRejectionAudit publishes failure events on the bus.
func WithRejectionAudit() HandlerOption {
	return func(h *Handler) { h.auditRejections = true }
}

// NewHandler creates the sources command handler.
func NewHandler(repo Repository, bus *eventbus.Bus, gate *approval.Gate, ids idgen.Generator, opts ...HandlerOption) *Handler {
	h := &Handler{
		repo:   repo,
		bus:    bus,
		gate:   gate,
		ids:    ids,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddSource handles the AddSource command.
func (h *Handler) AddSource(ctx context.Context, cmd AddSource) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveSourceAddition(cmd, snap, h.ids)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	added := evt.(SourceAdded)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		err := h.repo.SaveSource(ctx, Source{
			ID:        added.SourceID,
			Name:      added.Name,
			Path:      added.Path,
			MediaType: added.MediaType,
			Length:    added.Length,
		})
		if err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(added)

		return domain.SuccessResult(
			map[string]any{
				"source_id":  added.SourceID,
				"name":       added.Name,
				"path":       added.Path,
				"media_type": added.MediaType,
			},
			DeleteSource{Meta: domain.ChildMeta(cmd.Meta), SourceID: added.SourceID},
		)
	})
}

// DeleteSource handles the DeleteSource command. Segment cleanup and
// case unlinking are policy reactions to the published event.
func (h *Handler) DeleteSource(ctx context.Context, cmd DeleteSource) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveSourceDeletion(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	deleted := evt.(SourceDeleted)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		if err := h.repo.DeleteSource(ctx, deleted.SourceID); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(deleted)

		return domain.SuccessResult(
			map[string]any{
				"source_id": deleted.SourceID,
				"name":      deleted.Name,
			},
			AddSource{
				Meta:      domain.ChildMeta(cmd.Meta),
				SourceID:  deleted.SourceID,
				Name:      deleted.Name,
				Path:      deleted.Path,
				MediaType: deleted.MediaType,
				Length:    deleted.Length,
			},
		)
	})
}

// CodeSegment handles the CodeSegment command.
func (h *Handler) CodeSegment(ctx context.Context, cmd CodeSegment) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveSegmentCoding(cmd, snap, h.ids)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	coded := evt.(SegmentCoded)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		err := h.repo.SaveSegment(ctx, Segment{
			ID:       coded.SegmentID,
			SourceID: coded.SourceID,
			CodeID:   coded.CodeID,
			Start:    coded.Start,
			End:      coded.End,
			Excerpt:  coded.Excerpt,
		})
		if err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(coded)

		return domain.SuccessResult(
			map[string]any{
				"segment_id": coded.SegmentID,
				"source_id":  coded.SourceID,
				"code_id":    coded.CodeID,
				"start":      coded.Start,
				"end":        coded.End,
			},
			DeleteSegment{Meta: domain.ChildMeta(cmd.Meta), SegmentID: coded.SegmentID},
		)
	})
}

// DeleteSegment handles the DeleteSegment command.
func (h *Handler) DeleteSegment(ctx context.Context, cmd DeleteSegment) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveSegmentDeletion(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	deleted := evt.(SegmentDeleted)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		if err := h.repo.DeleteSegment(ctx, deleted.SegmentID); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(deleted)

		return domain.SuccessResult(
			map[string]any{
				"segment_id": deleted.SegmentID,
				"source_id":  deleted.SourceID,
				"code_id":    deleted.CodeID,
			},
			CodeSegment{
				Meta:      domain.ChildMeta(cmd.Meta),
				SegmentID: deleted.SegmentID,
				SourceID:  deleted.SourceID,
				CodeID:    deleted.CodeID,
				Start:     deleted.Start,
				End:       deleted.End,
				Excerpt:   deleted.Excerpt,
			},
		)
	})
}

// PurgeSegments handles the PurgeSegments cascade command. A purge has
// no single compensating command; undo is the replayed segment history.
func (h *Handler) PurgeSegments(ctx context.Context, cmd PurgeSegments) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveSegmentPurge(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	purged := evt.(SegmentsPurged)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		if len(purged.SegmentIDs) > 0 {
			if err := h.repo.DeleteSegments(ctx, purged.SegmentIDs); err != nil {
				return h.infraFailure(cmd.CommandType(), err)
			}
		}
		h.bus.Publish(purged)

		return domain.SuccessResult(
			map[string]any{
				"code_id":   purged.CodeID,
				"source_id": purged.SourceID,
				"purged":    len(purged.SegmentIDs),
			},
			nil,
		)
	})
}

func (h *Handler) rejected(op string, f domain.FailureEvent) *domain.OperationResult {
	h.logger.Info("command rejected",
		"command_type", op,
		"error_code", f.ErrorCode(),
		"reason", f.Reason(),
	)
	if h.auditRejections {
		h.bus.Publish(f)
	}
	return domain.FailureResult(f)
}

func (h *Handler) infraFailure(op string, err error) *domain.OperationResult {
	h.logger.Error("command failed on infrastructure",
		"command_type", op,
		"error", err,
	)
	if h.tel != nil && h.tel.Metrics != nil {
		h.tel.Metrics.CommandErrors.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("command_type", op),
		))
	}
	return domain.InfrastructureFailure(domain.CodePersistence)
}

func (h *Handler) observe(ctx context.Context, op string, start time.Time) {
	if h.tel == nil || h.tel.Metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("command_type", op))
	h.tel.Metrics.CommandTotal.Add(ctx, 1, attrs)
	h.tel.Metrics.CommandDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}
