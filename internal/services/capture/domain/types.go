// Package domain holds the core types and interfaces for scheduled capture
package domain

import "time"

// RunStatus is the lifecycle state of a capture run
type RunStatus string

// Capture run states
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Window bounds one capture pass over upstream modifications.
// Zero values are resolved by the service: Until defaults to now, Since to the
// last successful run minus the configured overlap margin
type Window struct {
	Since time.Time
	Until time.Time
}

// CaptureRun is the persisted record of one capture pass
type CaptureRun struct {
	ID               string
	StartedAt        time.Time
	CompletedAt      *time.Time
	RecordsProcessed int
	NewSnapshots     int
	ChangesDetected  int
	RecordErrors     int
	Status           RunStatus
	ErrorMessage     *string
}

// RunFinish carries the final counters written when a run ends
type RunFinish struct {
	Status           RunStatus
	RecordsProcessed int
	NewSnapshots     int
	ChangesDetected  int
	RecordErrors     int
	ErrText          string
}
