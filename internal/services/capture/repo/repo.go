// Package repo provides the capture run bookkeeping repository
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chronicle/internal/modkit/repokit"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/services/capture/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the capture run repository
type Storage interface {
	CreateRun(ctx context.Context, startedAt time.Time) (string, error)
	FinalizeRun(ctx context.Context, id string, completedAt time.Time, fin domain.RunFinish) error
	LastSuccessfulRun(ctx context.Context) (time.Time, bool, error)
	Run(ctx context.Context, id string) (domain.CaptureRun, error)
}

// CreateRun implements Storage
func (s *pg) CreateRun(ctx context.Context, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.q.Exec(ctx, `
		INSERT INTO capture_runs (id, started_at, status)
		VALUES ($1, $2, $3)`,
		id, startedAt.UTC(), string(domain.RunRunning))
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinalizeRun implements Storage
func (s *pg) FinalizeRun(ctx context.Context, id string, completedAt time.Time, fin domain.RunFinish) error {
	var errText *string
	if fin.ErrText != "" {
		errText = &fin.ErrText
	}
	_, err := s.q.Exec(ctx, `
		UPDATE capture_runs
		SET completed_at = $2,
			records_processed = $3,
			new_snapshots = $4,
			changes_detected = $5,
			record_errors = $6,
			status = $7,
			error_message = $8
		WHERE id = $1`,
		id, completedAt.UTC(),
		fin.RecordsProcessed, fin.NewSnapshots, fin.ChangesDetected, fin.RecordErrors,
		string(fin.Status), errText)
	return err
}

// LastSuccessfulRun implements Storage
func (s *pg) LastSuccessfulRun(ctx context.Context) (time.Time, bool, error) {
	var at *time.Time
	err := s.q.QueryRow(ctx, `
		SELECT MAX(started_at) FROM capture_runs WHERE status = $1`,
		string(domain.RunCompleted),
	).Scan(&at)
	if err != nil {
		return time.Time{}, false, err
	}
	if at == nil {
		return time.Time{}, false, nil
	}
	return *at, true, nil
}

// Run implements Storage
func (s *pg) Run(ctx context.Context, id string) (domain.CaptureRun, error) {
	var r domain.CaptureRun
	var status string
	err := s.q.QueryRow(ctx, `
		SELECT id::text, started_at, completed_at,
			records_processed, new_snapshots, changes_detected, record_errors,
			status, error_message
		FROM capture_runs
		WHERE id = $1`, id,
	).Scan(&r.ID, &r.StartedAt, &r.CompletedAt,
		&r.RecordsProcessed, &r.NewSnapshots, &r.ChangesDetected, &r.RecordErrors,
		&status, &r.ErrorMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CaptureRun{}, perr.ErrNotFound
	}
	if err != nil {
		return domain.CaptureRun{}, err
	}
	r.Status = domain.RunStatus(status)
	return r, nil
}
