package cases

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

// Handler orchestrates case mutations following the same load, derive,
// gate, persist-then-publish steps as every context.
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

// NewHandler creates the cases command handler.
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

// CreateCase handles the CreateCase command.
func (h *Handler) CreateCase(ctx context.Context, cmd CreateCase) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCaseCreation(cmd, snap, h.ids)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	created := evt.(CaseCreated)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		err := h.repo.SaveCase(ctx, Case{
			ID:        created.CaseID,
			Name:      created.Name,
			SourceIDs: created.SourceIDs,
		})
		if err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(created)

		return domain.SuccessResult(
			map[string]any{
				"case_id": created.CaseID,
				"name":    created.Name,
			},
			DeleteCase{Meta: domain.ChildMeta(cmd.Meta), CaseID: created.CaseID},
		)
	})
}

// RenameCase handles the RenameCase command.
func (h *Handler) RenameCase(ctx context.Context, cmd RenameCase) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCaseRename(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	renamed := evt.(CaseRenamed)
	c, _ := snap.CaseByID(cmd.CaseID)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		c.Name = renamed.NewName
		if err := h.repo.SaveCase(ctx, c); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(renamed)

		return domain.SuccessResult(
			map[string]any{
				"case_id":  renamed.CaseID,
				"old_name": renamed.OldName,
				"new_name": renamed.NewName,
			},
			RenameCase{
				Meta:    domain.ChildMeta(cmd.Meta),
				CaseID:  renamed.CaseID,
				NewName: renamed.OldName,
			},
		)
	})
}

// DeleteCase handles the DeleteCase command.
func (h *Handler) DeleteCase(ctx context.Context, cmd DeleteCase) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveCaseDeletion(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	deleted := evt.(CaseDeleted)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		if err := h.repo.DeleteCase(ctx, deleted.CaseID); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(deleted)

		return domain.SuccessResult(
			map[string]any{
				"case_id": deleted.CaseID,
				"name":    deleted.Name,
			},
			CreateCase{
				Meta:      domain.ChildMeta(cmd.Meta),
				CaseID:    deleted.CaseID,
				Name:      deleted.Name,
				SourceIDs: deleted.SourceIDs,
			},
		)
	})
}

// LinkSource handles the LinkSource command.
func (h *Handler) LinkSource(ctx context.Context, cmd LinkSource) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveSourceLink(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	linked := evt.(SourceLinked)
	c, _ := snap.CaseByID(cmd.CaseID)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		c.SourceIDs = append(c.SourceIDs, linked.SourceID)
		if err := h.repo.SaveCase(ctx, c); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(linked)

		return domain.SuccessResult(
			map[string]any{
				"case_id":   linked.CaseID,
				"source_id": linked.SourceID,
			},
			UnlinkSource{
				Meta:     domain.ChildMeta(cmd.Meta),
				CaseID:   linked.CaseID,
				SourceID: linked.SourceID,
			},
		)
	})
}

// UnlinkSource handles the UnlinkSource command.
func (h *Handler) UnlinkSource(ctx context.Context, cmd UnlinkSource) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveSourceUnlink(cmd, snap)
	if f, ok := evt.(domain.FailureEvent); ok {
		return h.rejected(cmd.CommandType(), f)
	}
	unlinked := evt.(SourceUnlinked)
	c, _ := snap.CaseByID(cmd.CaseID)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		c.SourceIDs = without(c.SourceIDs, unlinked.SourceID)
		if err := h.repo.SaveCase(ctx, c); err != nil {
			return h.infraFailure(cmd.CommandType(), err)
		}
		h.bus.Publish(unlinked)

		return domain.SuccessResult(
			map[string]any{
				"case_id":   unlinked.CaseID,
				"source_id": unlinked.SourceID,
			},
			LinkSource{
				Meta:     domain.ChildMeta(cmd.Meta),
				CaseID:   unlinked.CaseID,
				SourceID: unlinked.SourceID,
			},
		)
	})
}

// UnlinkSourceEverywhere handles the cascade unlink issued when a
// source disappears. Unlinking from zero cases is still a success.
func (h *Handler) UnlinkSourceEverywhere(ctx context.Context, cmd UnlinkSourceEverywhere) *domain.OperationResult {
	defer h.observe(ctx, cmd.CommandType(), time.Now())

	snap, err := h.repo.LoadSnapshot(ctx)
	if err != nil {
		return h.infraFailure(cmd.CommandType(), err)
	}

	evt := DeriveSourceUnlinkEverywhere(cmd, snap)
	unlinked := evt.(SourceUnlinkedEverywhere)

	ctx = context.WithoutCancel(ctx)
	return h.gate.Execute(cmd, func() *domain.OperationResult {
		for _, caseID := range unlinked.CaseIDs {
			c, ok := snap.CaseByID(caseID)
			if !ok {
				continue
			}
			c.SourceIDs = without(c.SourceIDs, unlinked.SourceID)
			if err := h.repo.SaveCase(ctx, c); err != nil {
				return h.infraFailure(cmd.CommandType(), err)
			}
		}
		h.bus.Publish(unlinked)

		return domain.SuccessResult(
			map[string]any{
				"source_id": unlinked.SourceID,
				"unlinked":  len(unlinked.CaseIDs),
			},
			nil,
		)
	})
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
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
