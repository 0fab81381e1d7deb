package app

import (
	"context"
	"fmt"

	"github.com/kodexlab/kodex/pkg/cases"
	"github.com/kodexlab/kodex/pkg/coding"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/policy"
	"github.com/kodexlab/kodex/pkg/sources"
)

// registerPolicies wires the cascade rules. Actions go through the
// regular command handlers; the cascade commands are idempotent, so a
// re-fired rule converges instead of failing.
func (a *App) registerPolicies(registry *policy.Registry) {
	registry.On(sources.EventTypeSourceDeleted,
		"a deleted source leaves no segments and no case links behind",
		policy.NamedAction{Name: "purge_segments", Run: a.purgeSegmentsOfSource},
		policy.NamedAction{Name: "unlink_cases", Run: a.unlinkSourceFromCases},
	)

	registry.On(coding.EventTypeCodeDeleted,
		"a deleted code leaves no segments behind",
		policy.NamedAction{Name: "purge_segments", Run: a.purgeSegmentsOfCode},
	)
}

func (a *App) purgeSegmentsOfSource(ctx context.Context, evt domain.Event) error {
	deleted, ok := evt.(sources.SourceDeleted)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", evt, evt.EventType())
	}
	return cascadeResult(a.Sources.PurgeSegments(ctx, sources.PurgeSegments{
		Meta:     domain.NewMeta(),
		SourceID: deleted.SourceID,
	}))
}

func (a *App) unlinkSourceFromCases(ctx context.Context, evt domain.Event) error {
	deleted, ok := evt.(sources.SourceDeleted)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", evt, evt.EventType())
	}
	return cascadeResult(a.Cases.UnlinkSourceEverywhere(ctx, cases.UnlinkSourceEverywhere{
		Meta:     domain.NewMeta(),
		SourceID: deleted.SourceID,
	}))
}

func (a *App) purgeSegmentsOfCode(ctx context.Context, evt domain.Event) error {
	deleted, ok := evt.(coding.CodeDeleted)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", evt, evt.EventType())
	}
	return cascadeResult(a.Sources.PurgeSegments(ctx, sources.PurgeSegments{
		Meta:   domain.NewMeta(),
		CodeID: deleted.CodeID,
	}))
}

func cascadeResult(res *domain.OperationResult) error {
	if res.Success || res.Pending {
		return nil
	}
	return fmt.Errorf("%s: %s", res.ErrorCode, res.Reason)
}
