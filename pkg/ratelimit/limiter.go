// Package ratelimit provides the pacing primitive for scrape runs.
package ratelimit

import (
	"context"
	"time"
)

// Limiter paces successive operations.
type Limiter interface {
	// Wait blocks until the next operation may proceed, or until ctx is
	// done, in which case it returns the context error.
	Wait(ctx context.Context) error
	// Interval returns the fixed delay between operations.
	Interval() time.Duration
}

// Interval is a purely periodic limiter: every operation waits exactly the
// same delay. Bursts are impossible and no credit accumulates while idle.
type IntervalLimiter struct {
	interval time.Duration
}

var _ Limiter = (*IntervalLimiter)(nil)

// PerSecond builds an IntervalLimiter for n operations per second.
func PerSecond(n int) *IntervalLimiter {
	if n <= 0 {
		n = 1
	}
	return &IntervalLimiter{interval: time.Second / time.Duration(n)}
}

// NewIntervalLimiter builds a limiter with an explicit delay.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval}
}

// Wait sleeps the fixed delay, yielding on ctx.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(l.interval)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interval returns the configured delay.
func (l *IntervalLimiter) Interval() time.Duration {
	return l.interval
}
