package task

import (
	"math"
	"time"
)

// RetryPolicy is the geometric-backoff, bounded-attempt rule governing
// background task re-execution.
type RetryPolicy struct {
	// MaxAttempts is the ceiling on execution attempts, including the
	// first. A task is never attempted more than MaxAttempts times.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Multiplier grows the delay geometrically with each retry.
	// Must be greater than 1 for strictly increasing delays.
	Multiplier float64
}

// Delay returns the backoff before the next attempt given the number of
// attempts already made: BaseDelay for the first retry, then multiplied by
// Multiplier for each further one.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempts-1)))
}

// Exhausted reports whether the attempt ceiling has been reached.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
