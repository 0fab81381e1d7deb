package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kodexlab/kodex/pkg/domain"
)

// flushSnapshot is the debounce listener's flush target: one full
// project snapshot per quiet window, regardless of how many mutations
// the window coalesced.
func (a *App) flushSnapshot(ctx context.Context, batch []domain.Event) error {
	codingSnap, err := a.Store.Coding().LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot coding state: %w", err)
	}
	sourcesSnap, err := a.Store.Sources().LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot sources state: %w", err)
	}
	casesSnap, err := a.Store.Cases().LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot cases state: %w", err)
	}

	eventTypes := make([]string, len(batch))
	for i, evt := range batch {
		eventTypes[i] = evt.EventType()
	}

	payload, err := json.Marshal(map[string]any{
		"codes":       codingSnap.Codes,
		"categories":  codingSnap.Categories,
		"sources":     sourcesSnap.Sources,
		"segments":    sourcesSnap.Segments,
		"cases":       casesSnap.Cases,
		"event_types": eventTypes,
	})
	if err != nil {
		return fmt.Errorf("marshal project snapshot: %w", err)
	}

	return a.Store.SaveProjectSnapshot(ctx, time.Now().UTC(), payload, a.settings.SnapshotsToKeep)
}
