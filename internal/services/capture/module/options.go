package module

import (
	"time"

	"chronicle/internal/platform/config"
)

// Options holds configuration options for the capture service
type Options struct {
	Workers          int
	Overlap          time.Duration
	FirstRunLookback time.Duration
	RunTimeout       time.Duration
	FetchTimeout     time.Duration
	MaxRetries       int
	RetryBase        time.Duration
	EnableLeases     bool
}

// FromConfig reads the capture options from config with CORE_CAPTURE_ prefix
func FromConfig(cfg config.Conf) Options {
	cf := cfg.Prefix("CORE_CAPTURE_")
	return Options{
		Workers:          cf.MayInt("WORKERS", 4),
		Overlap:          cf.MayDuration("OVERLAP", 10*time.Minute),
		FirstRunLookback: cf.MayDuration("FIRST_LOOKBACK", 24*time.Hour),
		RunTimeout:       cf.MayDuration("RUN_TIMEOUT", 30*time.Minute),
		FetchTimeout:     cf.MayDuration("FETCH_TIMEOUT", 5*time.Minute),
		MaxRetries:       cf.MayInt("RETRIES", 3),
		RetryBase:        cf.MayDuration("RETRY_BASE", 500*time.Millisecond),
		EnableLeases:     cf.MayBool("LEASES", true),
	}
}
