package pipeline

import (
	"context"
	"time"
)

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the default sleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff returns the wait before the attempt following attemptIndex:
// base * 2^attemptIndex, capped at MaxBackoff.
func backoff(base time.Duration, attemptIndex int) time.Duration {
	if base <= 0 {
		return 0
	}
	for i := 0; i < attemptIndex; i++ {
		if base >= MaxBackoff/2 {
			return MaxBackoff
		}
		base *= 2
	}
	return min(base, MaxBackoff)
}

// retryWithBackoff executes fn up to retries+1 times.
// It retries only if shouldRetry returns true for the error, and returns the
// error of the last attempt unchanged. A ctx cancellation during a wait is
// returned as-is.
func retryWithBackoff[T any](
	ctx context.Context,
	retries int,
	base time.Duration,
	sleep sleepFunc,
	fn func(attempt int) (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	if retries < 0 {
		retries = 0
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(base, attempt-1)); err != nil {
				return zero, err
			}
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !shouldRetry(lastErr) {
			break
		}
	}

	return zero, lastErr
}
