// Package domain holds DTOs for audit http and service contracts
package domain

// TimeRange defines a start and end time for queries
// Times are RFC3339 timestamps; both bounds optional
type TimeRange struct {
	Start string `json:"start,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" example:"2025-08-01T00:00:00Z"`
	End   string `json:"end,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" example:"2025-08-31T00:00:00Z"`
}

// SearchInput narrows a snapshot search; empty filters match everything
type SearchInput struct {
	AccountName string    `json:"account_name,omitempty" validate:"omitempty,min=1,max=200" example:"Globex"`
	Status      string    `json:"status,omitempty" validate:"omitempty,min=1,max=100" example:"Pending"`
	Range       TimeRange `json:"range"`
	Limit       int       `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"100"`
	Offset      int       `json:"offset,omitempty" validate:"omitempty,min=0" example:"0"`
}

// SnapshotRow is one snapshot in API responses
type SnapshotRow struct {
	SnapshotID  string         `json:"snapshot_id" example:"6c1a2f34-9d5b-4d6e-8a3f-0c7b2d1e4f5a"`
	RecordID    string         `json:"record_id" example:"REQ-1001"`
	RecordLabel string         `json:"record_label" example:"Globex entitlement request"`
	AccountID   *string        `json:"account_id,omitempty" example:"ACC-9"`
	AccountName *string        `json:"account_name,omitempty" example:"Globex"`
	Status      string         `json:"status" example:"Pending"`
	Fingerprint string         `json:"fingerprint" example:"9f86d081884c7d65"`
	CapturedAt  string         `json:"captured_at" example:"2025-08-25T04:00:00Z"`
	Reason      string         `json:"reason" example:"periodic"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// ChangeRow is one status transition in API responses
type ChangeRow struct {
	ChangeID       string `json:"change_id" example:"1a2b3c4d-0000-4d6e-8a3f-0c7b2d1e4f5a"`
	PreviousStatus string `json:"previous_status" example:"Pending"`
	NewStatus      string `json:"new_status" example:"Completed"`
	DetectedAt     string `json:"detected_at" example:"2025-08-25T04:00:00Z"`
}

// TimelineEntry pairs a snapshot with the status transition it produced, if any
type TimelineEntry struct {
	Snapshot SnapshotRow `json:"snapshot"`
	Change   *ChangeRow  `json:"change,omitempty"`
}

// TimelineResponse is a record's full capture history oldest first.
// Unknown record ids yield an empty timeline, not an error
type TimelineResponse struct {
	RecordID string          `json:"record_id" example:"REQ-1001"`
	Entries  []TimelineEntry `json:"entries"`
}

// SearchResponse pages snapshots across records
type SearchResponse struct {
	Snapshots []SnapshotRow `json:"snapshots"`
	Total     int64         `json:"total" example:"1234"`
}

// StatsResponse summarizes the snapshot store
type StatsResponse struct {
	TotalRecords       int64   `json:"total_records" example:"3200"`
	TotalSnapshots     int64   `json:"total_snapshots" example:"48000"`
	TotalStatusChanges int64   `json:"total_status_changes" example:"810"`
	EarliestSnapshotAt *string `json:"earliest_snapshot_at,omitempty" example:"2024-01-02T00:00:00Z"`
	LatestSnapshotAt   *string `json:"latest_snapshot_at,omitempty" example:"2025-08-25T04:00:00Z"`
}
