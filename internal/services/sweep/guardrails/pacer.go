package guardrails

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Pacer bounds the delete rate across all workers
// a nil *Pacer never waits
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer returns a pacer for perSecond mutations; zero or less disables pacing
func NewPacer(perSecond float64) *Pacer {
	if perSecond <= 0 {
		return nil
	}
	burst := int(math.Ceil(perSecond / 10))
	if burst < 1 {
		burst = 1
	}
	return &Pacer{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until one more mutation is allowed or ctx ends
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.lim.Wait(ctx)
}

// Limit reports the configured rate, zero when unpaced
func (p *Pacer) Limit() float64 {
	if p == nil {
		return 0
	}
	return float64(p.lim.Limit())
}
