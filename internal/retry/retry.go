// Package retry re-issues model backend calls that fail with rate limit or
// transient server errors.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config controls how often and how patiently a call is retried.
type Config struct {
	// MaxRetries is the number of extra attempts after the first one. 0 disables retrying.
	MaxRetries int `yaml:"max_retries"`
	// BaseBackoff is the wait before the first retry, doubled on each subsequent one
	BaseBackoff time.Duration `yaml:"base_backoff"`
	// MaxBackoff caps the doubled wait
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// MaxJitter is the upper bound of the random delay added to each wait
	MaxJitter time.Duration `yaml:"max_jitter"`
}

// Validate rejects negative settings.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.New("max retries cannot be negative")
	case c.BaseBackoff < 0:
		return errors.New("base backoff cannot be negative")
	case c.MaxBackoff < 0:
		return errors.New("max backoff cannot be negative")
	case c.MaxJitter < 0:
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// DefaultConfig suits quota-limited hosted model APIs.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// Disabled never retries.
func Disabled() Config {
	return Config{}
}

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) bool

// Do runs fn until it succeeds, returns an error rejected by isRetryable, or
// the retry budget is spent. Waiting honours ctx cancellation.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable Classifier, fn func(context.Context) (T, error)) (T, error) {
	if isRetryable == nil {
		isRetryable = IsTransient
	}

	var (
		result  T
		lastErr error
	)
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn(ctx)
		if lastErr == nil {
			return result, nil
		}
		if ctx.Err() != nil || !isRetryable(lastErr) {
			return result, lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		wait := backoff(cfg, attempt)
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", lastErr.Error()).
			Warn("Transient backend error, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	if cfg.MaxRetries == 0 {
		return result, lastErr
	}
	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}

func backoff(cfg Config, attempt int) time.Duration {
	wait := cfg.BaseBackoff << attempt
	if cfg.MaxBackoff > 0 && (wait > cfg.MaxBackoff || wait < 0) {
		wait = cfg.MaxBackoff
	}
	if cfg.MaxJitter > 0 {
		wait += time.Duration(rand.Int64N(int64(cfg.MaxJitter)))
	}
	return wait
}

var transientMarkers = []string{
	"429",
	"500",
	"502",
	"503",
	"504",
	"resource exhausted",
	"resource_exhausted",
	"rate limit",
	"overloaded",
	"quota exceeded",
	"internal error",
	"server error",
	"unavailable",
	"deadline exceeded",
	"connection reset",
}

// IsTransient matches rate limit, quota and server-side failures by their
// error text. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
