// Package service provides the capture service implementation
package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/internal/core/change"
	"chronicle/internal/core/record"
	"chronicle/internal/modkit/repokit"
	perr "chronicle/internal/platform/errors"
	"chronicle/internal/platform/logger"
	ptime "chronicle/internal/platform/time"
	"chronicle/internal/services/capture/domain"
	"chronicle/internal/services/capture/guardrails"
	"chronicle/internal/services/capture/repo"
	snapdom "chronicle/internal/services/snapshots/domain"
)

// Config holds configuration options for the capture service
type Config struct {
	// Workers is the number of records processed in parallel; <=0 -> 1
	Workers int

	// Overlap is subtracted from the last successful run when resolving the
	// window start, so records modified during the previous run are re-checked.
	// Duplicate observations degrade to skips in the store
	Overlap time.Duration

	// FirstRunLookback bounds the window when no successful run exists yet
	FirstRunLookback time.Duration

	// Timeouts applied via guardrails
	RunTimeout   time.Duration
	FetchTimeout time.Duration

	// Per-record retry
	MaxRetries int
	RetryBase  time.Duration

	// Distributed lease for a window (optional)
	EnableLeases bool
}

// Service implements domain.RunnerPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Source domain.SourcePort
	Store  snapdom.Ports
	Cfg    Config

	// Lease(ctx, windowStart, do) should claim the window and run do()
	Lease func(ctx context.Context, windowStart time.Time, do func(context.Context) error) error

	now func() time.Time
}

// New constructs the capture service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Storage],
	source domain.SourcePort,
	store snapdom.Ports,
	cfg Config,
	lease func(context.Context, time.Time, func(context.Context) error) error,
) *Service {
	if db == nil {
		panic("capture.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("capture.Service requires a non nil Repo binder")
	}
	if source == nil {
		panic("capture.Service requires a non nil SourcePort")
	}
	if store.Writer == nil || store.Reader == nil {
		panic("capture.Service requires wired snapshot ports")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Overlap <= 0 {
		cfg.Overlap = 10 * time.Minute
	}
	if cfg.FirstRunLookback <= 0 {
		cfg.FirstRunLookback = 24 * time.Hour
	}
	return &Service{
		DB: db, Binder: binder,
		Source: source, Store: store,
		Cfg:   cfg,
		Lease: lease,
		now:   time.Now,
	}
}

// RunCapture implements domain.RunnerPort.
// An upstream fetch failure fails the whole run with zero writes; individual
// record failures are counted and the run still completes
func (s *Service) RunCapture(ctx context.Context, w domain.Window) (domain.CaptureRun, error) {
	w, err := s.resolveWindow(ctx, w)
	if err != nil {
		return domain.CaptureRun{}, err
	}

	tos := guardrails.Timeouts{Run: s.Cfg.RunTimeout, Fetch: s.Cfg.FetchTimeout}
	runCtx, cancel := guardrails.WithRun(ctx, tos)
	defer cancel()

	if s.Lease != nil && s.Cfg.EnableLeases {
		var run domain.CaptureRun
		err := s.Lease(runCtx, w.Since, func(ctx context.Context) error {
			var e error
			run, e = s.runWindow(ctx, w, tos)
			return e
		})
		if errors.Is(err, guardrails.ErrLeaseHeld) {
			logger.C(ctx).Info().Time("window_start", w.Since).Msg("capture: window already claimed, skipping")
			return domain.CaptureRun{}, nil
		}
		return run, err
	}
	return s.runWindow(runCtx, w, tos)
}

// resolveWindow fills zero bounds: Until from the clock, Since from the last
// successful run minus the overlap margin
func (s *Service) resolveWindow(ctx context.Context, w domain.Window) (domain.Window, error) {
	if w.Until.IsZero() {
		w.Until = s.now().UTC()
	}
	if w.Since.IsZero() {
		var last time.Time
		var ok bool
		err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
			var e error
			last, ok, e = s.Binder.Bind(q).LastSuccessfulRun(ctx)
			return e
		})
		if err != nil {
			return domain.Window{}, err
		}
		if ok {
			w.Since = last.Add(-s.Cfg.Overlap)
		} else {
			w.Since = w.Until.Add(-s.Cfg.FirstRunLookback)
		}
	}
	if !w.Until.After(w.Since) {
		return domain.Window{}, perr.Newf(perr.ErrorCodeInvalidArgument, "capture window until not after since")
	}
	return w, nil
}

func (s *Service) runWindow(ctx context.Context, w domain.Window, tos guardrails.Timeouts) (domain.CaptureRun, error) {
	startedAt := s.now().UTC()

	var runID string
	if err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var e error
		runID, e = s.Binder.Bind(q).CreateRun(ctx, startedAt)
		return e
	}); err != nil {
		return domain.CaptureRun{}, err
	}

	run := domain.CaptureRun{ID: runID, StartedAt: startedAt, Status: domain.RunRunning}

	// Fetch (timeoutable). Failure here fails the run before any snapshot work
	fetchCtx, fetchCancel := guardrails.ForFetch(ctx, tos)
	recs, rejects, err := s.Source.ModifiedBetween(fetchCtx, w.Since, w.Until)
	fetchCancel()
	if err != nil {
		s.finalize(ctx, &run, domain.RunFinish{Status: domain.RunFailed, ErrText: err.Error()})
		return run, err
	}

	var processed, snaps, changes, fails int64

	// malformed payloads were already diverted by the source; they count as
	// processed record failures without aborting the run
	for _, rej := range rejects {
		logger.C(ctx).Error().Str("record_id", rej.RecordID).Err(rej.Err).Msg("capture: malformed record")
	}
	processed += int64(len(rejects))
	fails += int64(len(rejects))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.Cfg.Workers)
	jobs := make(chan record.TrackedRecord)

	worker := func() {
		defer func() { <-sem; wg.Done() }()
		for rec := range jobs {
			atomic.AddInt64(&processed, 1)
			out, err := s.captureOneWithRetry(ctx, rec)
			if err != nil {
				logger.C(ctx).Error().Str("record_id", rec.RecordID).Err(err).Msg("capture: record failed")
				atomic.AddInt64(&fails, 1)
				continue
			}
			if out.Inserted {
				atomic.AddInt64(&snaps, 1)
			}
			if out.ChangeID != "" {
				atomic.AddInt64(&changes, 1)
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

	fin := domain.RunFinish{
		Status:           domain.RunCompleted,
		RecordsProcessed: int(processed),
		NewSnapshots:     int(snaps),
		ChangesDetected:  int(changes),
		RecordErrors:     int(fails),
	}
	if err := ctx.Err(); err != nil {
		fin.Status = domain.RunFailed
		fin.ErrText = err.Error()
		s.finalize(ctx, &run, fin)
		return run, err
	}

	s.finalize(ctx, &run, fin)
	logger.C(ctx).Info().
		Str("run_id", run.ID).
		Time("since", w.Since).
		Time("until", w.Until).
		Int("processed", fin.RecordsProcessed).
		Int("new_snapshots", fin.NewSnapshots).
		Int("changes", fin.ChangesDetected).
		Int("errors", fin.RecordErrors).
		Msg("capture: run completed")
	return run, nil
}

// captureOne checks the latest stored state first so unchanged records never
// open a write transaction; the store re-checks under its per-record lock
func (s *Service) captureOne(ctx context.Context, rec record.TrackedRecord) (snapdom.AppendOutcome, error) {
	latest, err := s.Store.Reader.Latest(ctx, rec.RecordID)
	if err != nil {
		return snapdom.AppendOutcome{}, err
	}
	var prior *change.Prior
	if latest != nil {
		prior = &change.Prior{
			SnapshotID:  latest.ID,
			Status:      latest.Status,
			Fingerprint: latest.Fingerprint,
		}
	}

	d := change.Decide(rec, prior)
	if d.Kind == change.Skip {
		return snapdom.AppendOutcome{SnapshotID: prior.SnapshotID}, nil
	}

	return s.Store.Writer.Append(ctx, snapdom.AppendInput{
		Record:      rec,
		Fingerprint: d.Fingerprint,
		CapturedAt:  s.now().UTC(),
		Reason:      snapdom.ReasonPeriodic,
	})
}

func (s *Service) captureOneWithRetry(ctx context.Context, rec record.TrackedRecord) (snapdom.AppendOutcome, error) {
	attempts := max(s.Cfg.MaxRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var out snapdom.AppendOutcome
	var last error
	for i := range attempts {
		out, last = s.captureOne(ctx, rec)
		if last == nil {
			return out, nil
		}
		if !perr.Retryable(last) && perr.CodeOf(last) != perr.ErrorCodeUnavailable {
			return out, last
		}
		if i == attempts-1 {
			break
		}
		d := min(base<<i, 30*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)))
		if se := sleepCtx(ctx, j); se != nil {
			return out, last
		}
	}
	return out, last
}

// finalize is best-effort; a run row stuck in running is better than losing
// the snapshots already written
func (s *Service) finalize(ctx context.Context, run *domain.CaptureRun, fin domain.RunFinish) {
	// detach from the run budget so a timed-out run still gets its row closed
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	completedAt := s.now().UTC()
	err := repokit.WithTx(dbCtx, s.DB, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).FinalizeRun(dbCtx, run.ID, completedAt, fin)
	})
	if err != nil {
		logger.C(ctx).Error().Str("run_id", run.ID).Err(err).Msg("capture: finalize failed")
		return
	}
	run.CompletedAt = ptime.Ptr(completedAt)
	run.Status = fin.Status
	run.RecordsProcessed = fin.RecordsProcessed
	run.NewSnapshots = fin.NewSnapshots
	run.ChangesDetected = fin.ChangesDetected
	run.RecordErrors = fin.RecordErrors
	if fin.ErrText != "" {
		run.ErrorMessage = &fin.ErrText
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
