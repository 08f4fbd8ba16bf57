// Package timeout races a unit of work against a deadline.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Do when the deadline elapses before the work finishes.
var ErrTimeout = errors.New("operation timed out")

type result[T any] struct {
	value T
	err   error
}

// Do runs fn with a context that expires after d. If fn finishes first its result is
// returned; otherwise Do returns ErrTimeout as soon as d elapses, without waiting for fn.
// Cancellation of the parent context is reported as the parent's error.
func Do[T any](parent context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()

	// buffered so the worker can always finish after losing the race
	done := make(chan result[T], 1)
	go func() {
		var r result[T]
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("panic: %v", p)
			}
			done <- r
		}()
		r.value, r.err = fn(ctx)
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return zero, expired(parent, d)
		}
		return r.value, r.err
	case <-ctx.Done():
		return zero, expired(parent, d)
	}
}

func expired(parent context.Context, d time.Duration) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w after %s", ErrTimeout, d)
}
