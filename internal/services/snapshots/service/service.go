// Package service provides the snapshots service implementation
package service

import (
	"context"
	"time"

	"chronicle/internal/core/change"
	"chronicle/internal/modkit/repokit"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/services/snapshots/domain"
	"chronicle/internal/services/snapshots/repo"
)

// Config for the snapshots service
type Config struct {
	// SearchHardLimit caps Search page sizes; <=0 -> 100
	SearchHardLimit int
}

// Service implements domain.WriterPort and domain.ReaderPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Cfg    Config

	now func() time.Time
}

// New constructs the snapshots service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], cfg Config) *Service {
	if db == nil {
		panic("snapshots.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("snapshots.Service requires a non nil Repo binder")
	}
	if cfg.SearchHardLimit <= 0 {
		cfg.SearchHardLimit = 100
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg, now: time.Now}
}

// Append implements domain.WriterPort.
// The whole decision runs inside one transaction so concurrent captures of the
// same record serialize on the per-record advisory lock and losers degrade to
// clean skips
func (s *Service) Append(ctx context.Context, in domain.AppendInput) (domain.AppendOutcome, error) {
	if err := s.validate(&in); err != nil {
		return domain.AppendOutcome{}, err
	}

	var out domain.AppendOutcome
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).Append(ctx, in)
		return err
	})
	if err != nil {
		return domain.AppendOutcome{}, perr.FromPostgres(err, "snapshot append")
	}
	return out, nil
}

// Latest implements domain.ReaderPort
func (s *Service) Latest(ctx context.Context, recordID string) (*domain.Snapshot, error) {
	if recordID == "" {
		return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "record id required")
	}
	var out *domain.Snapshot
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).Latest(ctx, recordID)
		return err
	})
	return out, err
}

// History implements domain.ReaderPort
func (s *Service) History(ctx context.Context, recordID string, w domain.Window) ([]domain.Snapshot, error) {
	if recordID == "" {
		return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "record id required")
	}
	var out []domain.Snapshot
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).History(ctx, recordID, w)
		return err
	})
	return out, err
}

// Search implements domain.ReaderPort
func (s *Service) Search(ctx context.Context, f domain.Filters, limit, offset int) (domain.Page, error) {
	if limit <= 0 || limit > s.Cfg.SearchHardLimit {
		limit = s.Cfg.SearchHardLimit
	}
	if offset < 0 {
		offset = 0
	}
	var out domain.Page
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).Search(ctx, f, limit, offset)
		return err
	})
	return out, err
}

// ChangesFor implements domain.ReaderPort
func (s *Service) ChangesFor(ctx context.Context, recordID string) ([]domain.StatusChange, error) {
	if recordID == "" {
		return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "record id required")
	}
	var out []domain.StatusChange
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).ChangesFor(ctx, recordID)
		return err
	})
	return out, err
}

// Stats implements domain.ReaderPort
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	var out domain.Stats
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).Stats(ctx)
		return err
	})
	return out, err
}

func (s *Service) validate(in *domain.AppendInput) error {
	if in.Record.RecordID == "" {
		return perr.Newf(perr.ErrorCodeValidation, "record id required")
	}
	if in.Record.Status == "" {
		return perr.Newf(perr.ErrorCodeValidation, "record %s has no status", in.Record.RecordID)
	}
	switch in.Reason {
	case domain.ReasonInitial, domain.ReasonPeriodic:
	default:
		return perr.Newf(perr.ErrorCodeValidation, "unknown capture reason %q", in.Reason)
	}
	if in.CapturedAt.IsZero() {
		in.CapturedAt = s.now().UTC()
	}
	if in.Fingerprint == "" {
		in.Fingerprint = change.Fingerprint(in.Record)
	}
	return nil
}
