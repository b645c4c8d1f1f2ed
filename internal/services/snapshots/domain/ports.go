package domain

import "context"

// WriterPort appends observations to the store
type WriterPort interface {
	Append(ctx context.Context, in AppendInput) (AppendOutcome, error)
}

// ReaderPort reads snapshots and their derived events
type ReaderPort interface {
	// Latest returns the newest snapshot for a record, nil when none exists
	Latest(ctx context.Context, recordID string) (*Snapshot, error)

	// History returns a record's snapshots oldest first, optionally windowed
	History(ctx context.Context, recordID string, w Window) ([]Snapshot, error)

	// Search pages snapshots across records
	Search(ctx context.Context, f Filters, limit, offset int) (Page, error)

	// ChangesFor returns a record's status change events oldest first
	ChangesFor(ctx context.Context, recordID string) ([]StatusChange, error)

	// Stats summarizes the store
	Stats(ctx context.Context) (Stats, error)
}

// Ports bundles what the snapshots module exposes to other modules
type Ports struct {
	Writer WriterPort
	Reader ReaderPort
}
