// Package domain holds the core types and interfaces for backfill seeding
package domain

import "time"

// Summary reports what one backfill pass did
type Summary struct {
	// Total is the number of upstream records considered
	Total int

	// Succeeded counts records that got an initial snapshot
	Succeeded int

	// Skipped counts records that already had snapshot history
	Skipped int

	// Failed counts records that errored; their ids keep flowing on later runs
	Failed int

	Duration time.Duration
}
