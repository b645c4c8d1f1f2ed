package domain

import (
	"context"
	"time"

	"chronicle/internal/core/record"
	snapdom "chronicle/internal/services/snapshots/domain"
)

// RunnerPort is the public port exposed by the backfill module
type RunnerPort interface {
	// Run seeds initial snapshots for every record modified within lookback
	Run(ctx context.Context, lookback time.Duration) (Summary, error)

	// RunIDs seeds initial snapshots for specific record ids
	RunIDs(ctx context.Context, ids []string) (Summary, error)
}

// SourcePort fetches upstream records for seeding.
// Malformed payloads come back as rejects next to the good records so the
// caller can count them without losing the batch
type SourcePort interface {
	ModifiedBetween(ctx context.Context, since, until time.Time) ([]record.TrackedRecord, []record.Rejected, error)
	ByIDs(ctx context.Context, ids []string) ([]record.TrackedRecord, []record.Rejected, error)
}

// Ports are the cross module dependencies the backfill module consumes
type Ports struct {
	Snapshots snapdom.Ports
	Source    SourcePort
}
