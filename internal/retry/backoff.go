package retry

import (
	"context"
	"time"
)

// MaxDelay caps a single backoff wait.
const MaxDelay = 5 * time.Second

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt (base * 2^attempt) up to MaxDelay.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return MaxDelay
	}
	d := base * (1 << attempt)
	if d > MaxDelay || d < 0 {
		return MaxDelay
	}
	return d
}

// Do calls fn up to attempts times, waiting ExponentialBackoff between
// failures. onRetry, if set, sees each failure that will be retried.
// It returns the last error, or ctx.Err() if ctx ends while waiting.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		delay := ExponentialBackoff(attempt, base)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
