// Package backoff computes the delay between retry attempts.
package backoff

import (
	"math"
	"time"
)

// Strategy returns how long to wait after the given attempt failed. The first
// attempt is 1.
type Strategy func(attempt uint) time.Duration

// Constant waits interval after every attempt.
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}

// Exponential waits baseDelay * base^(attempt-1).
//
// Exponential(100*time.Millisecond, 3) = 100ms, 300ms, 900ms, ...
func Exponential(baseDelay time.Duration, base float64) Strategy {
	return func(attempt uint) time.Duration {
		if attempt == 0 {
			attempt = 1
		}
		return clamp(float64(baseDelay) * math.Pow(base, float64(attempt-1)))
	}
}

// BinaryExponential doubles the delay after every attempt.
func BinaryExponential(baseDelay time.Duration) Strategy {
	return Exponential(baseDelay, 2)
}

func clamp(delay float64) time.Duration {
	switch {
	case math.IsNaN(delay), delay < 0:
		return 0
	case delay >= math.MaxInt64:
		return math.MaxInt64
	}
	return time.Duration(delay)
}
