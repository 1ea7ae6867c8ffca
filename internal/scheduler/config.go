package scheduler

import (
	"time"

	"github.com/smallbiznis/partnerdesk/internal/config"
)

const JobCloseMonth = "close_month"

// Config controls how often the scheduler wakes up and when the monthly close runs.
type Config struct {
	RunInterval time.Duration
	// CloseDay is the first UTC day of the month on which the previous month is settled.
	CloseDay    int
	JobTimeout  time.Duration
	LockTTL     time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		CloseDay:    1,
		JobTimeout:  5 * time.Minute,
		LockTTL:     15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.CloseDay < 1 || c.CloseDay > 28 {
		c.CloseDay = defaults.CloseDay
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.LockTTL < c.JobTimeout {
		c.LockTTL = c.JobTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.Interval,
		CloseDay:    cfg.Scheduler.CloseDay,
		JobTimeout:  cfg.Scheduler.Timeout,
	}.withDefaults()
}
