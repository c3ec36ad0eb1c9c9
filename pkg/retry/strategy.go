package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/copy-trader/pkg/retry/backoff"
)

// Strategy decides whether an action that failed with err on the given
// attempt should run again. Strategies may block, which is how delays are
// introduced.
type Strategy func(attempt uint, err error) bool

// Limit stops after maxAttempts executions of the action.
func Limit(maxAttempts uint) Strategy {
	return func(attempt uint, _ error) bool {
		return attempt < maxAttempts
	}
}

// NonRetriableErrors stops as soon as the action fails with (or wraps) one of
// the provided errors.
func NonRetriableErrors(nonRetriable ...error) Strategy {
	return func(_ uint, err error) bool {
		for _, target := range nonRetriable {
			if errors.Is(err, target) {
				return false
			}
		}
		return true
	}
}

// RetriableIf only retries errors accepted by predicate.
func RetriableIf(predicate func(error) bool) Strategy {
	return func(_ uint, err error) bool {
		return predicate(err)
	}
}

// Context stops once ctx is done.
func Context(ctx context.Context) Strategy {
	return func(uint, error) bool {
		return ctx.Err() == nil
	}
}

// BackoffWithContext sleeps for the delay given by strategy, capped at
// maxBackoff. The sleep is cut short when ctx is done, in which case no
// further attempts are made.
func BackoffWithContext(ctx context.Context, strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return BackoffWithJitter(ctx, strategy, maxBackoff, 0)
}

// BackoffWithJitter is BackoffWithContext with the capped delay spread by
// +/- jitter (a fraction of the delay), so that concurrent callers do not
// retry in lockstep.
func BackoffWithJitter(ctx context.Context, strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempt uint, _ error) bool {
		delay := min(strategy(attempt), maxBackoff)
		if jitter > 0 {
			delay = time.Duration(float64(delay) * (1 + jitter*(2*rand.Float64()-1)))
		}
		return sleeperImpl.Sleep(ctx, delay)
	}
}

type sleeper interface {
	// Sleep blocks for d, returning false if ctx ended first.
	Sleep(ctx context.Context, d time.Duration) bool
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

var sleeperImpl sleeper = timerSleeper{}
