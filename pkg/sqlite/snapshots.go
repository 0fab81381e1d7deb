package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kodexlab/kodex/pkg/domain"
)

// SaveProjectSnapshot appends a serialized project snapshot. Older
// snapshots beyond keep are pruned; keep <= 0 disables pruning.
func (s *ProjectStore) SaveProjectSnapshot(ctx context.Context, takenAt time.Time, payload []byte, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save snapshot: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO project_snapshots (taken_at, payload) VALUES (?, ?)",
		takenAt.UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if keep > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM project_snapshots WHERE id NOT IN (
				SELECT id FROM project_snapshots ORDER BY id DESC LIMIT ?
			)
		`, keep)
		if err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
	}

	return tx.Commit()
}

// LatestProjectSnapshot returns the most recent snapshot payload and
// when it was taken. Returns domain.ErrNotFound when none exists.
func (s *ProjectStore) LatestProjectSnapshot(ctx context.Context) ([]byte, time.Time, error) {
	var raw string
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT taken_at, payload FROM project_snapshots ORDER BY id DESC LIMIT 1",
	).Scan(&raw, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, domain.ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot: %w", err)
	}

	takenAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse snapshot timestamp: %w", err)
	}
	return payload, takenAt, nil
}
