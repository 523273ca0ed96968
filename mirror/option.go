package mirror

import (
	"fmt"
	"time"
)

const (
	defaultRefreshIn     = 5 * time.Minute
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

type config struct {
	refreshIn     time.Duration
	retryAttempts int
	retryDelay    time.Duration
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		refreshIn:     defaultRefreshIn,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithRefreshInterval sets the interval between automatic refresh cycles,
// used when StartAutoRefresh is called without a positive interval.
//
// Default is 5 minutes.
func WithRefreshInterval(interval time.Duration) Option {
	return func(cfg *config) error {
		if interval <= 0 {
			return fmt.Errorf("refresh interval must be positive")
		}
		cfg.refreshIn = interval
		return nil
	}
}

// WithRetry sets how a proactive update retries a fetch that fails with a
// transient error: the total number of attempts and the fixed delay between
// them.
//
// Default is 3 attempts 500ms apart.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(cfg *config) error {
		if attempts < 1 {
			return fmt.Errorf("retry attempts must be at least 1")
		}
		cfg.retryAttempts = attempts
		cfg.retryDelay = delay
		return nil
	}
}
