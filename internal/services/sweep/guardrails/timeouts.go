// Package guardrails holds the sweep's safety helpers: action timeouts, delete pacing,
// retry with jitter and the per-namespace run lease
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for a run
// zero values mean no extra timeout at that level
type Timeouts struct {
	// Action caps a single delete or rewrite
	Action time.Duration

	// Ledger caps each run ledger or audit write so a slow database never stalls the scan
	Ledger time.Duration
}

// ForAction returns a sub context for one record mutation
func ForAction(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Action)
}

// ForLedger returns a sub context for a ledger or audit write
func ForLedger(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Ledger)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder; never extends the parent
// a zero d gives a cancelable child that inherits the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
