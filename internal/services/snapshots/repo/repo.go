// Package repo provides the snapshots repository implementation
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chronicle/internal/core/record"
	"chronicle/internal/modkit/repokit"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/services/snapshots/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the snapshots repository.
// Append must run inside a transaction; it takes an advisory lock scoped to
// the record so concurrent writers serialize per record, then derives any
// status change event from the latest row it actually sees
type Storage interface {
	Append(ctx context.Context, in domain.AppendInput) (domain.AppendOutcome, error)
	Latest(ctx context.Context, recordID string) (*domain.Snapshot, error)
	History(ctx context.Context, recordID string, w domain.Window) ([]domain.Snapshot, error)
	Search(ctx context.Context, f domain.Filters, limit, offset int) (domain.Page, error)
	ChangesFor(ctx context.Context, recordID string) ([]domain.StatusChange, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

const snapshotCols = `
	id::text, record_id, record_label, account_id, account_name,
	status, fingerprint, raw_fields, captured_at, capture_reason`

// Append implements Storage
func (s *pg) Append(ctx context.Context, in domain.AppendInput) (domain.AppendOutcome, error) {
	r := in.Record

	// serialize writers per record for the rest of this tx
	if _, err := s.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.RecordID); err != nil {
		return domain.AppendOutcome{}, err
	}

	var (
		priorID, priorStatus, priorFP string
		havePrior                     bool
	)
	err := s.q.QueryRow(ctx, `
		SELECT id::text, status, fingerprint
		FROM snapshots
		WHERE record_id = $1 AND captured_at <= $2
		ORDER BY captured_at DESC, id DESC
		LIMIT 1`, r.RecordID, in.CapturedAt,
	).Scan(&priorID, &priorStatus, &priorFP)
	switch {
	case err == nil:
		havePrior = true
	case errors.Is(err, pgx.ErrNoRows):
		// first observation inside the window
	default:
		return domain.AppendOutcome{}, err
	}

	if havePrior && priorFP == in.Fingerprint {
		return domain.AppendOutcome{SnapshotID: priorID}, nil
	}

	// a newer snapshot past capturedAt means this observation is stale
	var newerID string
	err = s.q.QueryRow(ctx, `
		SELECT id::text FROM snapshots
		WHERE record_id = $1 AND captured_at > $2
		ORDER BY captured_at DESC, id DESC
		LIMIT 1`, r.RecordID, in.CapturedAt,
	).Scan(&newerID)
	if err == nil {
		return domain.AppendOutcome{SnapshotID: newerID}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.AppendOutcome{}, err
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return domain.AppendOutcome{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "snapshot raw encode")
	}

	out := domain.AppendOutcome{SnapshotID: uuid.NewString(), Inserted: true}
	if _, err := s.q.Exec(ctx, `
		INSERT INTO snapshots
			(id, record_id, record_label, account_id, account_name,
			 status, fingerprint, raw_fields, captured_at, capture_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		out.SnapshotID, r.RecordID, r.Label, r.AccountID, r.AccountName,
		r.Status, in.Fingerprint, raw, in.CapturedAt, string(in.Reason),
	); err != nil {
		return domain.AppendOutcome{}, err
	}

	if havePrior && priorStatus != r.Status {
		out.ChangeID = uuid.NewString()
		if _, err := s.q.Exec(ctx, `
			INSERT INTO status_changes
				(id, record_id, previous_status, new_status,
				 prior_snapshot_id, new_snapshot_id, detected_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			out.ChangeID, r.RecordID, priorStatus, r.Status,
			priorID, out.SnapshotID, in.CapturedAt,
		); err != nil {
			return domain.AppendOutcome{}, err
		}
	}
	return out, nil
}

// Latest implements Storage
func (s *pg) Latest(ctx context.Context, recordID string) (*domain.Snapshot, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+snapshotCols+`
		FROM snapshots
		WHERE record_id = $1
		ORDER BY captured_at DESC, id DESC
		LIMIT 1`, recordID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

// History implements Storage
func (s *pg) History(ctx context.Context, recordID string, w domain.Window) ([]domain.Snapshot, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`SELECT ` + snapshotCols + ` FROM snapshots WHERE record_id = ` + arg(recordID) + "\n")
	if !w.Since.IsZero() {
		sb.WriteString("  AND captured_at >= " + arg(w.Since) + "\n")
	}
	if !w.Until.IsZero() {
		sb.WriteString("  AND captured_at < " + arg(w.Until) + "\n")
	}
	sb.WriteString("ORDER BY captured_at ASC, id ASC")

	return s.querySnapshots(ctx, sb.String(), args...)
}

// Search implements Storage
func (s *pg) Search(ctx context.Context, f domain.Filters, limit, offset int) (domain.Page, error) {
	var where strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	where.WriteString("WHERE TRUE\n")
	if f.AccountName != "" {
		where.WriteString("  AND account_name = " + arg(f.AccountName) + "\n")
	}
	if f.Status != "" {
		where.WriteString("  AND status = " + arg(f.Status) + "\n")
	}
	if !f.Window.Since.IsZero() {
		where.WriteString("  AND captured_at >= " + arg(f.Window.Since) + "\n")
	}
	if !f.Window.Until.IsZero() {
		where.WriteString("  AND captured_at < " + arg(f.Window.Until) + "\n")
	}

	var page domain.Page
	if err := s.q.QueryRow(ctx,
		"SELECT COUNT(*) FROM snapshots "+where.String(), args...,
	).Scan(&page.Total); err != nil {
		return domain.Page{}, err
	}

	sql := "SELECT " + snapshotCols + " FROM snapshots " + where.String() +
		"ORDER BY captured_at DESC, id DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := s.querySnapshots(ctx, sql, args...)
	if err != nil {
		return domain.Page{}, err
	}
	page.Snapshots = rows
	return page, nil
}

// ChangesFor implements Storage
func (s *pg) ChangesFor(ctx context.Context, recordID string) ([]domain.StatusChange, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id::text, record_id, previous_status, new_status,
			prior_snapshot_id::text, new_snapshot_id::text, detected_at
		FROM status_changes
		WHERE record_id = $1
		ORDER BY detected_at ASC, id ASC`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StatusChange
	for rows.Next() {
		var c domain.StatusChange
		if err := rows.Scan(
			&c.ID, &c.RecordID, &c.PreviousStatus, &c.NewStatus,
			&c.PriorSnapshotID, &c.NewSnapshotID, &c.DetectedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats implements Storage
func (s *pg) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	err := s.q.QueryRow(ctx, `
		SELECT
			COUNT(DISTINCT record_id),
			COUNT(*),
			(SELECT COUNT(*) FROM status_changes),
			MIN(captured_at),
			MAX(captured_at)
		FROM snapshots`,
	).Scan(&st.TotalRecords, &st.TotalSnapshots, &st.TotalStatusChanges,
		&st.EarliestSnapshotAt, &st.LatestSnapshotAt)
	if err != nil {
		return domain.Stats{}, err
	}
	return st, nil
}

func (s *pg) querySnapshots(ctx context.Context, sql string, args ...any) ([]domain.Snapshot, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanSnapshot(r scanner) (domain.Snapshot, error) {
	var (
		snap   domain.Snapshot
		raw    []byte
		reason string
	)
	if err := r.Scan(
		&snap.ID, &snap.RecordID, &snap.RecordLabel, &snap.AccountID, &snap.AccountName,
		&snap.Status, &snap.Fingerprint, &raw, &snap.CapturedAt, &reason,
	); err != nil {
		return domain.Snapshot{}, err
	}
	snap.Reason = domain.CaptureReason(reason)

	var rec record.TrackedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Snapshot{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "snapshot raw decode")
	}
	snap.Raw = rec
	return snap, nil
}
