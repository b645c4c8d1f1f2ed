// Package service provides the backfill service implementation
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/internal/core/record"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/platform/logger"
	"chronicle/internal/services/backfill/domain"
	snapdom "chronicle/internal/services/snapshots/domain"
)

// Config holds configuration options for the backfill service
type Config struct {
	// Workers is the number of records seeded in parallel; <=0 -> 1
	Workers int

	// FetchTimeout caps the upstream listing step
	FetchTimeout time.Duration
}

// Service implements domain.RunnerPort
type Service struct {
	Source domain.SourcePort
	Store  snapdom.Ports
	Cfg    Config

	now func() time.Time
}

// New constructs the backfill service
func New(source domain.SourcePort, store snapdom.Ports, cfg Config) *Service {
	if source == nil {
		panic("backfill.Service requires a non nil SourcePort")
	}
	if store.Writer == nil || store.Reader == nil {
		panic("backfill.Service requires wired snapshot ports")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{Source: source, Store: store, Cfg: cfg, now: time.Now}
}

// Run implements domain.RunnerPort
func (s *Service) Run(ctx context.Context, lookback time.Duration) (domain.Summary, error) {
	if lookback <= 0 {
		return domain.Summary{}, perr.Newf(perr.ErrorCodeInvalidArgument, "backfill lookback must be positive")
	}
	until := s.now().UTC()

	fetchCtx, cancel := s.fetchCtx(ctx)
	recs, rejects, err := s.Source.ModifiedBetween(fetchCtx, until.Add(-lookback), until)
	cancel()
	if err != nil {
		return domain.Summary{}, err
	}
	return s.seed(ctx, recs, rejects)
}

// RunIDs implements domain.RunnerPort
func (s *Service) RunIDs(ctx context.Context, ids []string) (domain.Summary, error) {
	if len(ids) == 0 {
		return domain.Summary{}, perr.Newf(perr.ErrorCodeInvalidArgument, "backfill needs at least one record id")
	}

	fetchCtx, cancel := s.fetchCtx(ctx)
	recs, rejects, err := s.Source.ByIDs(fetchCtx, ids)
	cancel()
	if err != nil {
		return domain.Summary{}, err
	}
	return s.seed(ctx, recs, rejects)
}

// seed writes an initial snapshot for every record that has no history yet.
// Records that already have snapshots are skipped; backfill never rewrites
// history that capture is already maintaining. Rejects from the fetch count
// as failures without touching the store
func (s *Service) seed(ctx context.Context, recs []record.TrackedRecord, rejects []record.Rejected) (domain.Summary, error) {
	start := s.now()

	var ok, skipped, failed int64
	for _, rej := range rejects {
		logger.C(ctx).Error().Str("record_id", rej.RecordID).Err(rej.Err).Msg("backfill: malformed record")
	}
	failed += int64(len(rejects))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.Cfg.Workers)
	jobs := make(chan record.TrackedRecord)

	worker := func() {
		defer func() { <-sem; wg.Done() }()
		for rec := range jobs {
			seeded, err := s.seedOne(ctx, rec)
			switch {
			case err != nil:
				logger.C(ctx).Error().Str("record_id", rec.RecordID).Err(err).Msg("backfill: record failed")
				atomic.AddInt64(&failed, 1)
			case seeded:
				atomic.AddInt64(&ok, 1)
			default:
				atomic.AddInt64(&skipped, 1)
			}
		}
	}

	for range s.Cfg.Workers {
		sem <- struct{}{}
		wg.Add(1)
		go worker()
	}
feed:
	for _, rec := range recs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- rec:
		}
	}
	close(jobs)
	wg.Wait()

	sum := domain.Summary{
		Total:     len(recs) + len(rejects),
		Succeeded: int(ok),
		Skipped:   int(skipped),
		Failed:    int(failed),
		Duration:  s.now().Sub(start),
	}
	logger.C(ctx).Info().
		Int("total", sum.Total).
		Int("succeeded", sum.Succeeded).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Dur("duration", sum.Duration).
		Msg("backfill: pass finished")

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

func (s *Service) seedOne(ctx context.Context, rec record.TrackedRecord) (bool, error) {
	latest, err := s.Store.Reader.Latest(ctx, rec.RecordID)
	if err != nil {
		return false, err
	}
	if latest != nil {
		return false, nil
	}

	out, err := s.Store.Writer.Append(ctx, snapdom.AppendInput{
		Record:     rec,
		CapturedAt: s.now().UTC(),
		Reason:     snapdom.ReasonInitial,
	})
	if err != nil {
		return false, err
	}
	// a concurrent writer may have seeded it between Latest and Append
	return out.Inserted, nil
}

func (s *Service) fetchCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Cfg.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Cfg.FetchTimeout)
}
