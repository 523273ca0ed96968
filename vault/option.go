package vault

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultRetryMax     = 2
	defaultRetryWaitMin = 250 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
)

type config struct {
	client       *http.Client
	header       http.Header
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		retryMax:     defaultRetryMax,
		retryWaitMin: defaultRetryWaitMin,
		retryWaitMax: defaultRetryWaitMax,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// httpClient returns the client to issue requests with. Unless retries are
// disabled, requests go through a retryable client that redoes transient
// failures (connection errors and 5xx responses) with backoff. Not-found is
// never retried at this level.
func (c *config) httpClient() *http.Client {
	if c.retryMax == 0 {
		if c.client != nil {
			return c.client
		}
		return http.DefaultClient
	}
	rclient := &retryablehttp.Client{
		RetryWaitMin: c.retryWaitMin,
		RetryWaitMax: c.retryWaitMax,
		RetryMax:     c.retryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
	}
	if c.client != nil {
		rclient.HTTPClient = c.client
	}
	return rclient.StandardClient()
}

// WithClient supplies an underlying network client for requests to the
// store.
func WithClient(c *http.Client) Option {
	return func(cfg *config) error {
		cfg.client = c
		return nil
	}
}

// WithHeader adds an HTTP header, such as an authorization token, to every
// request sent to the store.
func WithHeader(key, value string) Option {
	return func(cfg *config) error {
		if cfg.header == nil {
			cfg.header = make(http.Header)
		}
		cfg.header.Add(key, value)
		return nil
	}
}

// WithRetry configures transport-level retry of transient request failures.
// Setting retryMax to 0 disables retries.
//
// Default is 2 retries waiting between 250ms and 2s.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(cfg *config) error {
		if retryMax < 0 {
			return fmt.Errorf("retryMax must not be negative")
		}
		cfg.retryMax = retryMax
		cfg.retryWaitMin = waitMin
		cfg.retryWaitMax = waitMax
		return nil
	}
}
