package worker

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Governor serializes model calls and enforces a minimum gap between them.
// The upstream APIs enforce requests-per-minute ceilings, so the pipeline
// must never grant two tokens closer together than the configured interval,
// no matter how many documents are queued. Waiters are served in request
// order.
type Governor struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewGovernor creates a governor with the given minimum inter-call
// interval. A zero or negative interval disables pacing entirely, which is
// how tests inject a zero-wait variant.
func NewGovernor(interval time.Duration) *Governor {
	if interval <= 0 {
		return &Governor{
			limiter:  rate.NewLimiter(rate.Inf, 1),
			interval: 0,
		}
	}
	return &Governor{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Interval returns the configured minimum spacing.
func (g *Governor) Interval() time.Duration {
	return g.interval
}

// Acquire blocks until at least the configured interval has elapsed since
// the previous grant. It returns early with ctx.Err() if the run deadline
// fires while waiting.
func (g *Governor) Acquire(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// AcquireWithDelay acquires a token and then waits an additional delay.
// Used before consolidation, whose oversized prompt needs the provider's
// token bucket to refill after many extraction calls.
func (g *Governor) AcquireWithDelay(ctx context.Context, additionalDelay time.Duration) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}

	if additionalDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(additionalDelay):
		}
	}

	return nil
}
