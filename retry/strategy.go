// Package retry provides exponential backoff strategies for the expiry sweeper
// (backing off after storage failures) and for atomic claims (retrying a lost
// compare-and-set).
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Strategy defines a bounded exponential backoff.
//
// The schedule follows: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay)
//
// Example with DefaultStrategy (1s base, 2.0 exponential, 1m max):
//
//	Attempt 1: 2s
//	Attempt 2: 4s
//	Attempt 3: 8s
//	Attempt 4: 16s
//	Attempt 5: 32s
//	Attempt 6: 1m
type Strategy struct {
	MaxAttempts     int           // Maximum attempts before giving up
	BaseDelay       time.Duration // Initial delay
	MaxDelay        time.Duration // Maximum delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the backoff used by the expiry sweeper after a failed sweep.
// Configuration: 6 attempts, 1s→1m exponential backoff.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     6,
		BaseDelay:       time.Second,
		MaxDelay:        time.Minute,
		ExponentialBase: 2.0,
	}
}

// ClaimStrategy returns the strategy used when an atomic claim loses its
// compare-and-set to a concurrent consumer: 5 attempts, 2ms→50ms.
func ClaimStrategy() Strategy {
	return Strategy{
		MaxAttempts:     5,
		BaseDelay:       2 * time.Millisecond,
		MaxDelay:        50 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

// CalculateRetryDelay calculates the delay for a given attempt using exponential backoff.
// Formula: delay = min(BaseDelay * ExponentialBase^attemptNumber, MaxDelay)
//
// Attempt numbers <= 0 return BaseDelay.
func (s Strategy) CalculateRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber <= 0 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attemptNumber))

	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// IsRetryable checks if another attempt is allowed.
// Returns true if the attempt count is below the maximum attempts limit.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// Wait blocks for the delay of attemptNumber or until ctx is done,
// whichever comes first. Returns ctx.Err() when interrupted.
func (s Strategy) Wait(ctx context.Context, attemptNumber int) error {
	delay := s.CalculateRetryDelay(attemptNumber)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetRetrySchedule returns a human-readable description of the schedule.
//
// Example output:
//
//	Retry Schedule:
//	  Attempt 1: after 2s
//	  Attempt 2: after 4s
//	  ...
//	  → Give up
func (s Strategy) GetRetrySchedule() string {
	schedule := "Retry Schedule:\n"
	for i := 1; i <= s.MaxAttempts; i++ {
		schedule += fmt.Sprintf("  Attempt %d: after %v\n", i, s.CalculateRetryDelay(i))
	}
	schedule += "  → Give up\n"
	return schedule
}
