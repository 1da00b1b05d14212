package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the background job worker.
type Config struct {
	// Concurrency is the number of polling goroutines. Default: 1
	Concurrency int

	// PollInterval is how often an idle goroutine checks for jobs. Default: 5s
	PollInterval time.Duration

	// JobTimeout bounds a single job run. A sweep over a large backlog is the
	// slowest job we have. Default: 10m
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for running jobs. Default: 30s
	ShutdownTimeout time.Duration

	// StaleJobThreshold is the age at which a 'running' job is assumed to
	// belong to a crashed process and is reset on Start. Default: 15m
	StaleJobThreshold time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Concurrency:       1,
		PollInterval:      5 * time.Second,
		JobTimeout:        10 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 15 * time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Concurrency > 32 {
		return fmt.Errorf("concurrency too high (max 32), got %d", c.Concurrency)
	}
	if c.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("poll interval must be at least 100ms, got %v", c.PollInterval)
	}
	if c.JobTimeout < time.Second {
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.StaleJobThreshold <= c.JobTimeout {
		return fmt.Errorf("stale job threshold (%v) must exceed job timeout (%v)", c.StaleJobThreshold, c.JobTimeout)
	}
	return nil
}
