package guardrails

import (
	"context"
	"errors"
	"time"

	"chronicle/internal/modkit"
	"chronicle/internal/platform/store"
)

// ErrLeaseHeld signals another worker already owns this capture window.
var ErrLeaseHeld = errors.New("capture: window lease already held")

// MakeAdvisoryLease returns a function that uses Postgres to claim a capture
// window, running the do function on success. It uses the capture_run_leases
// table to track claimed window starts; if the window is already claimed it
// returns ErrLeaseHeld. The claim is one-time and never released, which keeps
// overlapping schedulers from double-capturing the same window without any
// coordination service
func MakeAdvisoryLease(
	deps modkit.Deps,
) func(ctx context.Context, windowStart time.Time, do func(context.Context) error) error {
	return func(ctx context.Context, windowStart time.Time, do func(context.Context) error) error {
		var claimed bool
		err := deps.PG.Tx(ctx, func(q store.RowQuerier) error {
			rows, err := q.Query(ctx, `
				insert into capture_run_leases (window_start)
				values ($1)
				on conflict (window_start) do nothing
				returning true
			`, windowStart.UTC())
			if err != nil {
				return err
			}
			defer rows.Close()
			if rows.Next() {
				claimed = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld // clean skip
		}
		return do(ctx)
	}
}
