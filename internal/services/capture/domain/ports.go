package domain

import (
	"context"
	"time"

	"chronicle/internal/core/record"
	snapdom "chronicle/internal/services/snapshots/domain"
)

// RunnerPort is the public port exposed by the capture module
type RunnerPort interface {
	// RunCapture executes one capture pass over the window.
	// A zero window is resolved from the last successful run
	RunCapture(ctx context.Context, w Window) (CaptureRun, error)
}

// SourcePort fetches upstream records modified inside a window.
// Malformed payloads come back as rejects next to the good records so the
// caller can count them without losing the batch
type SourcePort interface {
	ModifiedBetween(ctx context.Context, since, until time.Time) ([]record.TrackedRecord, []record.Rejected, error)
}

// Ports are the cross module dependencies the capture module consumes
type Ports struct {
	Snapshots snapdom.Ports
	Source    SourcePort
}
