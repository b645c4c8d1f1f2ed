package module

import "chronicle/internal/platform/config"

// Options holds configuration settings for the snapshots module
type Options struct {
	SearchHardLimit int
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	sf := cfg.Prefix("CORE_SNAPSHOTS_")
	return Options{
		SearchHardLimit: sf.MayInt("SEARCH_HARD_LIMIT", 100),
	}
}
