package guardrails

import (
	"context"
	"math/rand/v2"
	"time"

	perr "asdelete/internal/platform/errors"
)

// Retry runs fn up to 1+retries times while it fails with a retryable store error
// backoff doubles from base with jitter in [d/2, d), capped at 5s
func Retry(ctx context.Context, retries int, base time.Duration, fn func(context.Context) error) error {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	var last error
	for i := 0; i <= retries; i++ {
		last = fn(ctx)
		if last == nil || !perr.Retryable(last) || i == retries {
			return last
		}
		d := min(base<<i, 5*time.Second)
		j := d/2 + time.Duration(rand.Int64N(int64(d/2)+1))
		if err := SleepCtx(ctx, j); err != nil {
			return last
		}
	}
	return last
}

// SleepCtx sleeps for d or until ctx ends
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
