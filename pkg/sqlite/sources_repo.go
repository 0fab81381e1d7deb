package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kodexlab/kodex/pkg/sources"
)

// SourcesRepository implements sources.Repository on the project store.
type SourcesRepository struct {
	db *sql.DB
}

// LoadSnapshot reads sources, segments, and the code IDs known to the
// coding context for cross-context reference checks.
func (r *SourcesRepository) LoadSnapshot(ctx context.Context) (*sources.Snapshot, error) {
	snap := &sources.Snapshot{}

	rows, err := r.db.QueryContext(ctx, "SELECT id, name, path, media_type, length FROM sources")
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s sources.Source
		if err := rows.Scan(&s.ID, &s.Name, &s.Path, &s.MediaType, &s.Length); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		snap.Sources = append(snap.Sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}

	segRows, err := r.db.QueryContext(ctx,
		"SELECT id, source_id, code_id, start_pos, end_pos, excerpt FROM segments")
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	defer segRows.Close()
	for segRows.Next() {
		var s sources.Segment
		if err := segRows.Scan(&s.ID, &s.SourceID, &s.CodeID, &s.Start, &s.End, &s.Excerpt); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		snap.Segments = append(snap.Segments, s)
	}
	if err := segRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}

	codeRows, err := r.db.QueryContext(ctx, "SELECT id FROM codes")
	if err != nil {
		return nil, fmt.Errorf("load code ids: %w", err)
	}
	defer codeRows.Close()
	for codeRows.Next() {
		var id string
		if err := codeRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan code id: %w", err)
		}
		snap.CodeIDs = append(snap.CodeIDs, id)
	}
	if err := codeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate code ids: %w", err)
	}

	return snap, nil
}

// SaveSource inserts or updates a source.
func (r *SourcesRepository) SaveSource(ctx context.Context, src sources.Source) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, path, media_type, length) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			media_type = excluded.media_type,
			length = excluded.length
	`, src.ID, src.Name, src.Path, src.MediaType, src.Length)
	if err != nil {
		return fmt.Errorf("save source %s: %w", src.ID, err)
	}
	return nil
}

// DeleteSource removes a source.
func (r *SourcesRepository) DeleteSource(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete source %s: %w", id, err)
	}
	return nil
}

// SaveSegment inserts or updates a segment.
func (r *SourcesRepository) SaveSegment(ctx context.Context, seg sources.Segment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO segments (id, source_id, code_id, start_pos, end_pos, excerpt)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			source_id = excluded.source_id,
			code_id = excluded.code_id,
			start_pos = excluded.start_pos,
			end_pos = excluded.end_pos,
			excerpt = excluded.excerpt
	`, seg.ID, seg.SourceID, seg.CodeID, seg.Start, seg.End, seg.Excerpt)
	if err != nil {
		return fmt.Errorf("save segment %s: %w", seg.ID, err)
	}
	return nil
}

// DeleteSegment removes a segment.
func (r *SourcesRepository) DeleteSegment(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM segments WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete segment %s: %w", id, err)
	}
	return nil
}

// DeleteSegments removes a batch of segments in one statement.
func (r *SourcesRepository) DeleteSegments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM segments WHERE id IN (%s)", placeholders)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %d segments: %w", len(ids), err)
	}
	return nil
}
