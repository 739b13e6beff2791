package batch

import (
	"context"
	"fmt"
	"time"
)

// Limiter enforces a fixed pause between consecutive extraction calls.
// It does not discount time already spent in retry backoff, so actual
// throughput stays at or under the budget.
type Limiter struct {
	interval time.Duration
	sleeper  Sleeper
}

// NewLimiter creates a Limiter for a requests-per-minute budget
func NewLimiter(requestsPerMinute int) (*Limiter, error) {
	return NewLimiterWithSleeper(requestsPerMinute, timerSleeper{})
}

// NewLimiterWithSleeper creates a Limiter with a custom sleeper for testing
func NewLimiterWithSleeper(requestsPerMinute int, sleeper Sleeper) (*Limiter, error) {
	if requestsPerMinute <= 0 {
		return nil, fmt.Errorf("%w: requests per minute must be positive, got %d", ErrInvalidConfig, requestsPerMinute)
	}
	return &Limiter{
		interval: time.Minute / time.Duration(requestsPerMinute),
		sleeper:  sleeper,
	}, nil
}

// Interval returns the pause applied by Wait
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait pauses for one interval or until ctx is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	return l.sleeper.Sleep(ctx, l.interval)
}
