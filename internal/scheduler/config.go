package scheduler

import (
	"time"

	"github.com/smallbiznis/pricewise/internal/config"
)

const (
	JobNormalizeItems = "normalize_items"
	JobIndexApproved  = "index_approved"
)

// Config controls scheduler intervals, batch sizes and parallelism.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	Workers     int
	// JobTimeout bounds a single job run; a timed out job is retried on the
	// next tick.
	JobTimeout time.Duration
	// EnabledJobs limits RunOnce to the named jobs. Empty enables all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		BatchSize:   500,
		Workers:     4,
		JobTimeout:  5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.Interval,
		BatchSize:   cfg.Scheduler.BatchSize,
		Workers:     cfg.Scheduler.Workers,
		EnabledJobs: cfg.Scheduler.EnabledJobs,
	}.withDefaults()
}
