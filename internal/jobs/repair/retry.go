package repair

import (
	"context"
	"fmt"
	"time"

	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/errclass"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  4,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	return c
}

// backoff is the delay before retry number attempt+1, doubling up to MaxDelay.
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := c.InitialDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	return delay
}

// withRetry calls fn until it succeeds, fails with a non-transient error, or
// runs out of attempts.
func withRetry[T any](ctx context.Context, cfg RetryConfig, sleep func(context.Context, time.Duration) error, fn func(context.Context) (T, error)) (T, int, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, attempt + 1, nil
		}
		lastErr = err
		if !errclass.IsTransient(err, 0) {
			return zero, attempt + 1, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		if err := sleep(ctx, cfg.backoff(attempt)); err != nil {
			return zero, attempt + 1, err
		}
	}
	return zero, cfg.MaxAttempts, fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
