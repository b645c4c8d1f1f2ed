package change

import (
	"chronicle/internal/core/record"
)

// Kind enumerates the possible outcomes of a change decision
type Kind int

const (
	// Skip means the latest snapshot already records this state
	Skip Kind = iota

	// RecordOnly means a snapshot should be written without a status change
	// event (first observation, or monitored fields moved while status held)
	RecordOnly

	// RecordAndStatusChange means a snapshot plus a status transition event
	// should be written
	RecordAndStatusChange
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case Skip:
		return "skip"
	case RecordOnly:
		return "record"
	case RecordAndStatusChange:
		return "record+status-change"
	default:
		return "unknown"
	}
}

// Prior is the slice of the latest stored snapshot a decision needs.
// Callers that have a full snapshot row project it down to this
type Prior struct {
	SnapshotID  string
	Status      string
	Fingerprint string
}

// Decision is the verdict for one record observation
type Decision struct {
	Kind Kind

	// Fingerprint of the current state, computed once here so callers
	// persist exactly what was compared
	Fingerprint string

	// PreviousStatus is set only for RecordAndStatusChange
	PreviousStatus string
}

// Decide is the pure decision function: given the current upstream state and
// the latest stored snapshot (nil when none exists), it returns what the
// capture path should do. A nil prior can never synthesize a status change;
// there is nothing to diff against, so it is always RecordOnly
func Decide(current record.TrackedRecord, previous *Prior) Decision {
	fp := Fingerprint(current)

	if previous == nil {
		return Decision{Kind: RecordOnly, Fingerprint: fp}
	}
	if previous.Fingerprint == fp {
		return Decision{Kind: Skip, Fingerprint: fp}
	}
	if previous.Status != current.Status {
		return Decision{
			Kind:           RecordAndStatusChange,
			Fingerprint:    fp,
			PreviousStatus: previous.Status,
		}
	}
	return Decision{Kind: RecordOnly, Fingerprint: fp}
}
