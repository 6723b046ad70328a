package downloader

import (
	"context"
	"time"

	"github.com/iconidentify/dyresolve/internal/config"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// RetryConfigFrom derives the retry policy from download settings.
func RetryConfigFrom(cfg config.DownloadConfig) RetryConfig {
	rc := RetryConfig{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.RetryDelay,
		MaxDelay:      cfg.MaxRetryDelay,
		BackoffFactor: 2.0,
	}
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.MaxDelay < rc.InitialDelay {
		rc.MaxDelay = rc.InitialDelay
	}
	return rc
}

// RetryWithCheck calls fn until it succeeds, shouldRetry rejects the error,
// the attempts run out, or ctx ends. Delays grow by BackoffFactor up to MaxDelay.
func RetryWithCheck[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	var zero T
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= cfg.MaxAttempts || (shouldRetry != nil && !shouldRetry(err)) {
			return zero, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
