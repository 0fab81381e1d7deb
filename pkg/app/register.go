package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kodexlab/kodex/pkg/approval"
	"github.com/kodexlab/kodex/pkg/cases"
	"github.com/kodexlab/kodex/pkg/coding"
	"github.com/kodexlab/kodex/pkg/dispatch"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/sources"
	"github.com/kodexlab/kodex/pkg/validate"
)

// CodePendingNotFound is returned when an approval targets a pending ID
// that is unknown, already approved, or already rejected.
const CodePendingNotFound = "APPROVAL/PENDING_NOT_FOUND"

const maxNameLength = 120

// registerOperations binds every operation to the dispatcher. Operation
// names equal command type strings, so the agent's tool names and the
// UI's operation names never drift apart.
func (a *App) registerOperations() {
	d := a.Dispatcher
	d.Use(dispatch.Recovery(a.logger), dispatch.Logging(a.logger))
	if a.tel != nil {
		d.Use(dispatch.Tracing(a.tel))
	}

	// Coding context.
	d.Register("coding.create_code", dispatch.Typed(
		func(cmd coding.CreateCode, c *validate.Checker) {
			c.Require("name", cmd.Name).
				MaxLength("name", cmd.Name, maxNameLength).
				Printable("name", cmd.Name).
				HexColor("color", cmd.Color)
		},
		a.Coding.CreateCode,
	))
	d.Register("coding.rename_code", dispatch.Typed(
		func(cmd coding.RenameCode, c *validate.Checker) {
			c.Require("code_id", cmd.CodeID).
				Require("new_name", cmd.NewName).
				MaxLength("new_name", cmd.NewName, maxNameLength)
		},
		a.Coding.RenameCode,
	))
	d.Register("coding.recolor_code", dispatch.Typed(
		func(cmd coding.RecolorCode, c *validate.Checker) {
			c.Require("code_id", cmd.CodeID).
				HexColor("new_color", cmd.NewColor)
		},
		a.Coding.RecolorCode,
	))
	d.Register("coding.move_code", dispatch.Typed(
		func(cmd coding.MoveCodeToCategory, c *validate.Checker) {
			c.Require("code_id", cmd.CodeID)
		},
		a.Coding.MoveCodeToCategory,
	))
	d.Register("coding.delete_code", dispatch.Typed(
		func(cmd coding.DeleteCode, c *validate.Checker) {
			c.Require("code_id", cmd.CodeID)
		},
		a.Coding.DeleteCode,
	))
	d.Register("coding.create_category", dispatch.Typed(
		func(cmd coding.CreateCategory, c *validate.Checker) {
			c.Require("name", cmd.Name).
				MaxLength("name", cmd.Name, maxNameLength).
				Printable("name", cmd.Name)
		},
		a.Coding.CreateCategory,
	))
	d.Register("coding.move_category", dispatch.Typed(
		func(cmd coding.MoveCategory, c *validate.Checker) {
			c.Require("category_id", cmd.CategoryID)
		},
		a.Coding.MoveCategory,
	))
	d.Register("coding.delete_category", dispatch.Typed(
		func(cmd coding.DeleteCategory, c *validate.Checker) {
			c.Require("category_id", cmd.CategoryID)
		},
		a.Coding.DeleteCategory,
	))

	// Sources context.
	d.Register("sources.add_source", dispatch.Typed(
		func(cmd sources.AddSource, c *validate.Checker) {
			c.Require("name", cmd.Name).
				MaxLength("name", cmd.Name, maxNameLength).
				Require("path", cmd.Path)
		},
		a.Sources.AddSource,
	))
	d.Register("sources.delete_source", dispatch.Typed(
		func(cmd sources.DeleteSource, c *validate.Checker) {
			c.Require("source_id", cmd.SourceID)
		},
		a.Sources.DeleteSource,
	))
	d.Register("sources.code_segment", dispatch.Typed(
		func(cmd sources.CodeSegment, c *validate.Checker) {
			c.Require("source_id", cmd.SourceID).
				Require("code_id", cmd.CodeID)
		},
		a.Sources.CodeSegment,
	))
	d.Register("sources.delete_segment", dispatch.Typed(
		func(cmd sources.DeleteSegment, c *validate.Checker) {
			c.Require("segment_id", cmd.SegmentID)
		},
		a.Sources.DeleteSegment,
	))
	d.Register("sources.purge_segments", dispatch.Typed[sources.PurgeSegments](
		nil, // selector emptiness is a domain invariant, not a shape check
		a.Sources.PurgeSegments,
	))

	// Cases context.
	d.Register("cases.create_case", dispatch.Typed(
		func(cmd cases.CreateCase, c *validate.Checker) {
			c.Require("name", cmd.Name).
				MaxLength("name", cmd.Name, maxNameLength).
				Printable("name", cmd.Name)
		},
		a.Cases.CreateCase,
	))
	d.Register("cases.rename_case", dispatch.Typed(
		func(cmd cases.RenameCase, c *validate.Checker) {
			c.Require("case_id", cmd.CaseID).
				Require("new_name", cmd.NewName).
				MaxLength("new_name", cmd.NewName, maxNameLength)
		},
		a.Cases.RenameCase,
	))
	d.Register("cases.delete_case", dispatch.Typed(
		func(cmd cases.DeleteCase, c *validate.Checker) {
			c.Require("case_id", cmd.CaseID)
		},
		a.Cases.DeleteCase,
	))
	d.Register("cases.link_source", dispatch.Typed(
		func(cmd cases.LinkSource, c *validate.Checker) {
			c.Require("case_id", cmd.CaseID).
				Require("source_id", cmd.SourceID)
		},
		a.Cases.LinkSource,
	))
	d.Register("cases.unlink_source", dispatch.Typed(
		func(cmd cases.UnlinkSource, c *validate.Checker) {
			c.Require("case_id", cmd.CaseID).
				Require("source_id", cmd.SourceID)
		},
		a.Cases.UnlinkSource,
	))
	d.Register("cases.unlink_source_everywhere", dispatch.Typed(
		func(cmd cases.UnlinkSourceEverywhere, c *validate.Checker) {
			c.Require("source_id", cmd.SourceID)
		},
		a.Cases.UnlinkSourceEverywhere,
	))

	// Approval queue.
	d.Register("approval.approve", dispatch.Typed(
		func(cmd approval.ApproveOperation, c *validate.Checker) {
			c.Require("pending_id", cmd.PendingID)
		},
		func(_ context.Context, cmd approval.ApproveOperation) *domain.OperationResult {
			res, err := a.Gate.Approve(cmd.PendingID)
			if err != nil {
				return pendingNotFound(cmd.PendingID)
			}
			return res
		},
	))
	d.Register("approval.reject", dispatch.Typed(
		func(cmd approval.RejectOperation, c *validate.Checker) {
			c.Require("pending_id", cmd.PendingID)
		},
		func(_ context.Context, cmd approval.RejectOperation) *domain.OperationResult {
			if err := a.Gate.Reject(cmd.PendingID); err != nil {
				return pendingNotFound(cmd.PendingID)
			}
			return domain.SuccessResult(map[string]any{"pending_id": cmd.PendingID}, nil)
		},
	))
	d.Register("approval.list_pending", func(context.Context, json.RawMessage) (*domain.OperationResult, error) {
		pending := a.Gate.Pending()
		items := make([]map[string]any, len(pending))
		for i, p := range pending {
			items[i] = map[string]any{
				"pending_id":   p.PendingID,
				"command_type": p.CommandType,
				"category":     p.Category,
				"held_at":      p.HeldAt.UTC().Format(time.RFC3339Nano),
			}
		}
		return domain.SuccessResult(map[string]any{"pending": items}, nil), nil
	})
}

func pendingNotFound(pendingID string) *domain.OperationResult {
	return &domain.OperationResult{
		ErrorCode:   CodePendingNotFound,
		Reason:      fmt.Sprintf("no pending operation %q", pendingID),
		Suggestions: []string{"call approval.list_pending to see held operations"},
	}
}
