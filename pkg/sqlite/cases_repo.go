package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kodexlab/kodex/pkg/cases"
)

// CasesRepository implements cases.Repository on the project store.
type CasesRepository struct {
	db *sql.DB
}

// LoadSnapshot reads cases with their links, plus the source IDs known
// to the sources context.
func (r *CasesRepository) LoadSnapshot(ctx context.Context) (*cases.Snapshot, error) {
	snap := &cases.Snapshot{}

	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM cases")
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	defer rows.Close()

	index := map[string]int{}
	for rows.Next() {
		var c cases.Case
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		index[c.ID] = len(snap.Cases)
		snap.Cases = append(snap.Cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}

	linkRows, err := r.db.QueryContext(ctx,
		"SELECT case_id, source_id FROM case_sources ORDER BY case_id, position")
	if err != nil {
		return nil, fmt.Errorf("load case links: %w", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var caseID, sourceID string
		if err := linkRows.Scan(&caseID, &sourceID); err != nil {
			return nil, fmt.Errorf("scan case link: %w", err)
		}
		if i, ok := index[caseID]; ok {
			snap.Cases[i].SourceIDs = append(snap.Cases[i].SourceIDs, sourceID)
		}
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case links: %w", err)
	}

	srcRows, err := r.db.QueryContext(ctx, "SELECT id FROM sources")
	if err != nil {
		return nil, fmt.Errorf("load source ids: %w", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var id string
		if err := srcRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan source id: %w", err)
		}
		snap.SourceIDs = append(snap.SourceIDs, id)
	}
	if err := srcRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source ids: %w", err)
	}

	return snap, nil
}

// SaveCase upserts a case and rewrites its links in one transaction.
func (r *CasesRepository) SaveCase(ctx context.Context, c cases.Case) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save case: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cases (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name
	`, c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM case_sources WHERE case_id = ?", c.ID); err != nil {
		return fmt.Errorf("clear case links %s: %w", c.ID, err)
	}
	for i, sourceID := range c.SourceIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO case_sources (case_id, source_id, position) VALUES (?, ?, ?)",
			c.ID, sourceID, i)
		if err != nil {
			return fmt.Errorf("link source %s to case %s: %w", sourceID, c.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteCase removes a case and its links.
func (r *CasesRepository) DeleteCase(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete case: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM case_sources WHERE case_id = ?", id); err != nil {
		return fmt.Errorf("delete case links %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cases WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete case %s: %w", id, err)
	}

	return tx.Commit()
}
