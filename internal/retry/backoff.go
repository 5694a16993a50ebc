package retry

import (
	"context"
	"math"
	"time"
)

// Policy computes exponential backoff delays for reconciliation polling.
// Delays grow as BaseDelay * Multiplier^attempt, capped at MaxDelay.
type Policy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultPolicy returns the payment reconciliation defaults: 1s base,
// doubling, capped at 30s. Tunable configuration, not a contract.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
	}
}

// Delay returns the backoff delay before the given attempt (0-based).
// Non-decreasing in attempt and never exceeds MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) || math.IsInf(d, 1) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Wait sleeps for the attempt's delay, returning early with the context's
// error if the caller cancels or the deadline passes.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	d := p.Delay(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
