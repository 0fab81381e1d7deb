package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kodexlab/kodex/pkg/coding"
)

// CodingRepository implements coding.Repository on the project store.
type CodingRepository struct {
	db *sql.DB
}

// LoadSnapshot reads all codes and categories.
func (r *CodingRepository) LoadSnapshot(ctx context.Context) (*coding.Snapshot, error) {
	snap := &coding.Snapshot{}

	rows, err := r.db.QueryContext(ctx, "SELECT id, name, color, category_id FROM codes")
	if err != nil {
		return nil, fmt.Errorf("load codes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c coding.Code
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.CategoryID); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		snap.Codes = append(snap.Codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate codes: %w", err)
	}

	catRows, err := r.db.QueryContext(ctx, "SELECT id, name, parent_id FROM categories")
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var c coding.Category
		if err := catRows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		snap.Categories = append(snap.Categories, c)
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return snap, nil
}

// SaveCode inserts or updates a code.
func (r *CodingRepository) SaveCode(ctx context.Context, code coding.Code) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO codes (id, name, color, category_id) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			category_id = excluded.category_id
	`, code.ID, code.Name, code.Color, code.CategoryID)
	if err != nil {
		return fmt.Errorf("save code %s: %w", code.ID, err)
	}
	return nil
}

// DeleteCode removes a code.
func (r *CodingRepository) DeleteCode(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM codes WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete code %s: %w", id, err)
	}
	return nil
}

// SaveCategory inserts or updates a category.
func (r *CodingRepository) SaveCategory(ctx context.Context, cat coding.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			parent_id = excluded.parent_id
	`, cat.ID, cat.Name, cat.ParentID)
	if err != nil {
		return fmt.Errorf("save category %s: %w", cat.ID, err)
	}
	return nil
}

// DeleteCategory removes a category.
func (r *CodingRepository) DeleteCategory(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}
