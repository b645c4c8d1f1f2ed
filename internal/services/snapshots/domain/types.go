// Package domain defines the types and interfaces for the snapshots service
package domain

import (
	"time"

	"chronicle/internal/core/record"
)

// CaptureReason says which path produced a snapshot
type CaptureReason string

// Snapshot provenance values
const (
	ReasonInitial  CaptureReason = "initial"
	ReasonPeriodic CaptureReason = "periodic"
)

// Snapshot is one immutable point-in-time copy of an upstream record
type Snapshot struct {
	ID          string
	RecordID    string
	RecordLabel string
	AccountID   *string
	AccountName *string
	Status      string
	Fingerprint string
	Raw         record.TrackedRecord
	CapturedAt  time.Time
	Reason      CaptureReason
}

// StatusChange is a derived status transition event between two adjacent
// snapshots of the same record
type StatusChange struct {
	ID              string
	RecordID        string
	PreviousStatus  string
	NewStatus       string
	PriorSnapshotID string
	NewSnapshotID   string
	DetectedAt      time.Time
}

// AppendInput is everything the write path supplies for one observation
type AppendInput struct {
	Record      record.TrackedRecord
	Fingerprint string
	CapturedAt  time.Time
	Reason      CaptureReason
}

// AppendOutcome reports what an Append actually did.
// Inserted false means the observation was a no-op (same fingerprint as the
// latest snapshot, or a stale write raced by a newer one); SnapshotID then
// points at the surviving latest snapshot
type AppendOutcome struct {
	SnapshotID string
	Inserted   bool

	// ChangeID is set when the append also produced a status change event
	ChangeID string
}

// Window bounds a capture or query time range; zero values mean unbounded
type Window struct {
	Since time.Time
	Until time.Time
}

// Filters narrows snapshot searches; zero values match everything
type Filters struct {
	AccountName string
	Status      string
	Window      Window
}

// Page is a bounded slice of search results plus the unbounded total
type Page struct {
	Snapshots []Snapshot
	Total     int64
}

// Stats summarizes the whole snapshot store
type Stats struct {
	TotalRecords       int64
	TotalSnapshots     int64
	TotalStatusChanges int64
	EarliestSnapshotAt *time.Time
	LatestSnapshotAt   *time.Time
}
