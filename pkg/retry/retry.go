// Package retry runs an action until it succeeds or one of a set of
// strategies gives up.
package retry

import (
	"context"
)

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retry runs action until it returns nil or a strategy returns false, and
// reports the number of attempts made along with the last error.
//
// Strategies are consulted in order after each failure, so the ones that
// sleep belong last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for attempt := uint(1); ; attempt++ {
		err := action()
		if err == nil {
			return attempt, nil
		}

		for _, strategy := range strategies {
			if !strategy(attempt, err) {
				return attempt, err
			}
		}
	}
}

// RetryWithContext is Retry bounded by ctx. When ctx ends before the action
// succeeds, the context error is returned instead of the last action error.
func RetryWithContext(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	attempts, err := Retry(action, append([]Strategy{Context(ctx)}, strategies...)...)
	if err != nil && ctx.Err() != nil {
		return attempts, ctx.Err()
	}
	return attempts, err
}
