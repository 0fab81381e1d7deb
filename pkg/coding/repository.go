package coding

import "context"

// Repository is the persistence contract consumed by the command handler.
// It is the only collaborator the write path touches for I/O; failures
// are infrastructure errors, never events.
type Repository interface {
	// LoadSnapshot assembles a fresh, immutable view of the coding state.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// SaveCode inserts or updates a code.
	SaveCode(ctx context.Context, code Code) error

	// DeleteCode removes a code.
	DeleteCode(ctx context.Context, id string) error

	// SaveCategory inserts or updates a category.
	SaveCategory(ctx context.Context, cat Category) error

	// DeleteCategory removes a category.
	DeleteCategory(ctx context.Context, id string) error
}
