// Package service contains audit read workflows over the snapshot store
package service

import (
	"context"
	"encoding/json"
	"time"

	perr "chronicle/internal/platform/errors"
	"chronicle/internal/services/api/audit/domain"
	snapdom "chronicle/internal/services/snapshots/domain"
)

// Service defines the audit service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the audit service
type Svc struct {
	Snapshots snapdom.ReaderPort
}

// New constructs an audit service
func New(snapshots snapdom.ReaderPort) *Svc {
	if snapshots == nil {
		panic("audit.Service requires a non nil snapshots reader")
	}
	return &Svc{Snapshots: snapshots}
}

// Timeline returns a record's snapshots oldest first, each annotated with the
// status transition it produced when one exists
func (s *Svc) Timeline(ctx context.Context, recordID string) (domain.TimelineResponse, error) {
	if recordID == "" {
		return domain.TimelineResponse{}, perr.Newf(perr.ErrorCodeInvalidArgument, "record id required")
	}

	snaps, err := s.Snapshots.History(ctx, recordID, snapdom.Window{})
	if err != nil {
		return domain.TimelineResponse{}, err
	}
	changes, err := s.Snapshots.ChangesFor(ctx, recordID)
	if err != nil {
		return domain.TimelineResponse{}, err
	}

	// index transitions by the snapshot that triggered them
	bySnap := make(map[string]snapdom.StatusChange, len(changes))
	for _, c := range changes {
		bySnap[c.NewSnapshotID] = c
	}

	out := domain.TimelineResponse{RecordID: recordID, Entries: []domain.TimelineEntry{}}
	for _, snap := range snaps {
		e := domain.TimelineEntry{Snapshot: toSnapshotRow(snap)}
		if c, ok := bySnap[snap.ID]; ok {
			e.Change = &domain.ChangeRow{
				ChangeID:       c.ID,
				PreviousStatus: c.PreviousStatus,
				NewStatus:      c.NewStatus,
				DetectedAt:     c.DetectedAt.UTC().Format(time.RFC3339),
			}
		}
		out.Entries = append(out.Entries, e)
	}
	return out, nil
}

// Search pages snapshots across records
func (s *Svc) Search(ctx context.Context, in domain.SearchInput) (domain.SearchResponse, error) {
	w, err := parseRange(in.Range)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	page, err := s.Snapshots.Search(ctx, snapdom.Filters{
		AccountName: in.AccountName,
		Status:      in.Status,
		Window:      w,
	}, in.Limit, in.Offset)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	out := domain.SearchResponse{Snapshots: []domain.SnapshotRow{}, Total: page.Total}
	for _, snap := range page.Snapshots {
		out.Snapshots = append(out.Snapshots, toSnapshotRow(snap))
	}
	return out, nil
}

// Stats summarizes the snapshot store
func (s *Svc) Stats(ctx context.Context) (domain.StatsResponse, error) {
	st, err := s.Snapshots.Stats(ctx)
	if err != nil {
		return domain.StatsResponse{}, err
	}
	return domain.StatsResponse{
		TotalRecords:       st.TotalRecords,
		TotalSnapshots:     st.TotalSnapshots,
		TotalStatusChanges: st.TotalStatusChanges,
		EarliestSnapshotAt: fmtTime(st.EarliestSnapshotAt),
		LatestSnapshotAt:   fmtTime(st.LatestSnapshotAt),
	}, nil
}

func toSnapshotRow(snap snapdom.Snapshot) domain.SnapshotRow {
	row := domain.SnapshotRow{
		SnapshotID:  snap.ID,
		RecordID:    snap.RecordID,
		RecordLabel: snap.RecordLabel,
		AccountID:   snap.AccountID,
		AccountName: snap.AccountName,
		Status:      snap.Status,
		Fingerprint: snap.Fingerprint,
		CapturedAt:  snap.CapturedAt.UTC().Format(time.RFC3339),
		Reason:      string(snap.Reason),
	}
	// flatten the stored record for API consumers without exporting the
	// internal struct shape directly
	if b, err := json.Marshal(snap.Raw); err == nil {
		var m map[string]any
		if json.Unmarshal(b, &m) == nil {
			row.Raw = m
		}
	}
	return row
}

func parseRange(tr domain.TimeRange) (snapdom.Window, error) {
	var w snapdom.Window
	if tr.Start != "" {
		t, err := time.Parse(time.RFC3339, tr.Start)
		if err != nil {
			return snapdom.Window{}, perr.Wrapf(err, perr.ErrorCodeValidation, "bad range start")
		}
		w.Since = t
	}
	if tr.End != "" {
		t, err := time.Parse(time.RFC3339, tr.End)
		if err != nil {
			return snapdom.Window{}, perr.Wrapf(err, perr.ErrorCodeValidation, "bad range end")
		}
		w.Until = t
	}
	return w, nil
}

func fmtTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
