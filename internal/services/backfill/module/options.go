package module

import (
	"time"

	"chronicle/internal/platform/config"
)

// Options holds configuration options for the backfill service
type Options struct {
	Workers      int
	FetchTimeout time.Duration
}

// FromConfig reads the backfill options from config with CORE_BACKFILL_ prefix
func FromConfig(cfg config.Conf) Options {
	bf := cfg.Prefix("CORE_BACKFILL_")
	return Options{
		Workers:      bf.MayInt("WORKERS", 4),
		FetchTimeout: bf.MayDuration("FETCH_TIMEOUT", 10*time.Minute),
	}
}
