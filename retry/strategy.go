// Package retry provides bounded exponential backoff strategies for push
// delivery attempts. A strategy only governs retries inside a single Deliver
// call; once attempts are exhausted the failure stands until the trigger's
// next natural window.
package retry

import (
	"fmt"
	"math"
	"time"
)

// Strategy defines the retry behavior for temporary delivery failures
// (429, 5xx, timeouts). It implements exponential backoff with configurable
// parameters.
//
// The retry schedule follows: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay)
//
// Example with defaults (2s base, 2.0 exponential, 30s max):
//
//	Attempt 1: 2s
//	Attempt 2: 4s
//	Attempt 3: 8s (last)
type Strategy struct {
	MaxAttempts     int           // Total delivery attempts, including the first
	BaseDelay       time.Duration // Initial retry delay
	MaxDelay        time.Duration // Maximum retry delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the default in-call retry strategy.
// Configuration: 3 total attempts, 2s→30s exponential backoff.
//
// Deliberately short: a Deliver call runs inside a scheduler tick and must
// finish well before the next tick starts.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     3,
		BaseDelay:       2 * time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
	}
}

// CalculateRetryDelay calculates the retry delay for a given attempt using
// exponential backoff.
// Formula: delay = min(BaseDelay * ExponentialBase^(attemptNumber-1), MaxDelay)
//
// attemptNumber is 1-based: the delay before attempt 2 is CalculateRetryDelay(1).
func (s Strategy) CalculateRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber <= 1 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attemptNumber-1))

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

// Clamp bounds a server-supplied Retry-After hint to the strategy's cap so a
// hostile or misconfigured push service cannot stall a whole tick.
func (s Strategy) Clamp(hint time.Duration) time.Duration {
	if hint <= 0 {
		return s.BaseDelay
	}
	if hint > s.MaxDelay {
		return s.MaxDelay
	}
	return hint
}

// GetRetrySchedule returns a human-readable description of the retry schedule.
// Useful for debugging, documentation, and displaying retry behavior to users.
func (s Strategy) GetRetrySchedule() string {
	schedule := "Retry Schedule:\n"
	for i := 1; i < s.MaxAttempts; i++ {
		schedule += fmt.Sprintf("  Retry %d: after %v\n", i, s.CalculateRetryDelay(i))
	}
	schedule += "  → Give up until next window\n"
	return schedule
}
