package sources

import "context"

// Repository is the persistence contract consumed by the command handler.
type Repository interface {
	// LoadSnapshot assembles a fresh view of sources, segments, and the
	// code IDs known to the coding context.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// SaveSource inserts or updates a source.
	SaveSource(ctx context.Context, src Source) error

	// DeleteSource removes a source.
	DeleteSource(ctx context.Context, id string) error

	// SaveSegment inserts or updates a segment.
	SaveSegment(ctx context.Context, seg Segment) error

	// DeleteSegment removes a segment.
	DeleteSegment(ctx context.Context, id string) error

	// DeleteSegments removes a batch of segments in one round trip.
	DeleteSegments(ctx context.Context, ids []string) error
}
