package coding

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

// Handler orchestrates coding mutations. Each operation follows the same
// five steps: load a snapshot, derive, return failures without side
// effects, persist-then-publish as a unit behind the trust gate, and
// return the operation result with a compensating command.
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

// WithRejectionAudit publishes failure events on the bus so audit and UI
// subscribers can observe attempted-and-rejected mutations. Rejections
// are never persisted either way.
func WithRejectionAudit() HandlerOption {
	return func(h *Handler) { h.auditRejections = true }
}

// NewHandler creates the coding command handler.
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

// CreateCode handles the CreateCode command.
func (h *Handler) CreateCode(ctx context.Context, cmd CreateCode) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCodeCreation(cmd, snap, h.ids)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	created := evt.(CodeCreated)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		err := h.repo.SaveCode(ctx, Code{
			ID:         created.CodeID,
			Name:       created.Name,
			Color:      created.Color,
			CategoryID: created.CategoryID,
		})
		if err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(created)

		return domain.SuccessResult(
			map[string]any{
				"code_id":     created.CodeID,
				"name":        created.Name,
				"color":       created.Color,
				"category_id": created.CategoryID,
			},
			DeleteCode{Meta: domain.ChildMeta(cmd.Meta), CodeID: created.CodeID},
		)
	})
}

// RenameCode handles the RenameCode command.
func (h *Handler) RenameCode(ctx context.Context, cmd RenameCode) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCodeRename(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	renamed := evt.(CodeRenamed)
	code, _ := snap.CodeByID(cmd.CodeID)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		code.Name = renamed.NewName
		if err := h.repo.SaveCode(ctx, code); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(renamed)

		return domain.SuccessResult(
			map[string]any{
				"code_id":  renamed.CodeID,
				"old_name": renamed.OldName,
				"new_name": renamed.NewName,
			},
			RenameCode{
				Meta:    domain.ChildMeta(cmd.Meta),
				CodeID:  renamed.CodeID,
				NewName: renamed.OldName,
			},
		)
	})
}

// RecolorCode handles the RecolorCode command.
func (h *Handler) RecolorCode(ctx context.Context, cmd RecolorCode) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCodeRecolor(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	recolored := evt.(CodeRecolored)
	code, _ := snap.CodeByID(cmd.CodeID)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		code.Color = recolored.NewColor
		if err := h.repo.SaveCode(ctx, code); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(recolored)

		return domain.SuccessResult(
			map[string]any{
				"code_id":   recolored.CodeID,
				"old_color": recolored.OldColor,
				"new_color": recolored.NewColor,
			},
			RecolorCode{
				Meta:     domain.ChildMeta(cmd.Meta),
				CodeID:   recolored.CodeID,
				NewColor: recolored.OldColor,
			},
		)
	})
}

// MoveCodeToCategory handles the MoveCodeToCategory command.
func (h *Handler) MoveCodeToCategory(ctx context.Context, cmd MoveCodeToCategory) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCodeMove(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	moved := evt.(CodeMoved)
	code, _ := snap.CodeByID(cmd.CodeID)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		code.CategoryID = moved.ToCategoryID
		if err := h.repo.SaveCode(ctx, code); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(moved)

		return domain.SuccessResult(
			map[string]any{
				"code_id":          moved.CodeID,
				"from_category_id": moved.FromCategoryID,
				"to_category_id":   moved.ToCategoryID,
			},
			MoveCodeToCategory{
				Meta:       domain.ChildMeta(cmd.Meta),
				CodeID:     moved.CodeID,
				CategoryID: moved.FromCategoryID,
			},
		)
	})
}

// DeleteCode handles the DeleteCode command. Cascade cleanup of segments
// coded with this code is a policy reaction, not part of this handler.
func (h *Handler) DeleteCode(ctx context.Context, cmd DeleteCode) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCodeDeletion(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	deleted := evt.(CodeDeleted)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		if err := h.repo.DeleteCode(ctx, deleted.CodeID); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(deleted)

		return domain.SuccessResult(
			map[string]any{
				"code_id": deleted.CodeID,
				"name":    deleted.Name,
			},
			CreateCode{
				Meta:       domain.ChildMeta(cmd.Meta),
				CodeID:     deleted.CodeID,
				Name:       deleted.Name,
				Color:      deleted.Color,
				CategoryID: deleted.CategoryID,
			},
		)
	})
}

// CreateCategory handles the CreateCategory command.
func (h *Handler) CreateCategory(ctx context.Context, cmd CreateCategory) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCategoryCreation(cmd, snap, h.ids)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	created := evt.(CategoryCreated)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		err := h.repo.SaveCategory(ctx, Category{
			ID:       created.CategoryID,
			Name:     created.Name,
			ParentID: created.ParentID,
		})
		if err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(created)

		return domain.SuccessResult(
			map[string]any{
				"category_id": created.CategoryID,
				"name":        created.Name,
				"parent_id":   created.ParentID,
			},
			DeleteCategory{Meta: domain.ChildMeta(cmd.Meta), CategoryID: created.CategoryID},
		)
	})
}

// MoveCategory handles the MoveCategory command.
func (h *Handler) MoveCategory(ctx context.Context, cmd MoveCategory) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCategoryMove(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	moved := evt.(CategoryMoved)
	cat, _ := snap.CategoryByID(cmd.CategoryID)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		cat.ParentID = moved.ToParentID
		if err := h.repo.SaveCategory(ctx, cat); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(moved)

		return domain.SuccessResult(
			map[string]any{
				"category_id":    moved.CategoryID,
				"from_parent_id": moved.FromParentID,
				"to_parent_id":   moved.ToParentID,
			},
			MoveCategory{
				Meta:        domain.ChildMeta(cmd.Meta),
				CategoryID:  moved.CategoryID,
				NewParentID: moved.FromParentID,
			},
		)
	})
}

// DeleteCategory handles the DeleteCategory command.
func (h *Handler) DeleteCategory(ctx context.Context, cmd DeleteCategory) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCategoryDeletion(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	deleted := evt.(CategoryDeleted)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		if err := h.repo.DeleteCategory(ctx, deleted.CategoryID); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(deleted)

		return domain.SuccessResult(
			map[string]any{
				"category_id": deleted.CategoryID,
				"name":        deleted.Name,
			},
			CreateCategory{
				Meta:       domain.ChildMeta(cmd.Meta),
				CategoryID: deleted.CategoryID,
				Name:       deleted.Name,
				ParentID:   deleted.ParentID,
			},
		)
	})
}

// rejected converts a failure event into the caller's result. When
// rejection audit is enabled the event is also published (never
// persisted) so subscribers can observe rejected attempts.
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

// infraFailure logs a repository fault and returns the generic
// infrastructure result. Faults are never published as events.
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
