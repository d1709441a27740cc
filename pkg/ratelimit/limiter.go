package ratelimit

import (
	"context"
	"time"
)

// FixedInterval spaces pages by a constant pause. Every Wait sleeps the full
// interval regardless of how long the previous request took.
type FixedInterval struct {
	interval time.Duration
}

// NewFixedInterval creates a pacer that pauses interval between pages
func NewFixedInterval(interval time.Duration) *FixedInterval {
	return &FixedInterval{interval: interval}
}

// Wait sleeps the interval, returning early with ctx.Err() on cancellation
func (f *FixedInterval) Wait(ctx context.Context) error {
	if f.interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(f.interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
