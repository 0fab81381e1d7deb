package cases

import "context"

// Repository is the persistence contract consumed by the command handler.
type Repository interface {
	// LoadSnapshot assembles a fresh view of cases and the source IDs
	// known to the sources context.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// SaveCase inserts or updates a case together with its source links.
	SaveCase(ctx context.Context, c Case) error

	// DeleteCase removes a case and its links.
	DeleteCase(ctx context.Context, id string) error
}
