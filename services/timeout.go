package services

import (
	"context"
	"errors"
	"time"

	"anime-dubber/models"
)

type callResult[T any] struct {
	value T
	err   error
}

// callWithTimeout runs fn under a deadline of timeout. Expiry of that deadline
// is reported as *models.TimeoutError even if fn does not return promptly;
// cancellation of the parent ctx is returned as the context error.
func callWithTimeout[T any](ctx context.Context, operation string, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return fn(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		v, err := fn(cctx)
		done <- callResult[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return zero, &models.TimeoutError{Operation: operation, After: timeout, Err: r.err}
		}
		return r.value, r.err
	case <-cctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &models.TimeoutError{Operation: operation, After: timeout, Err: cctx.Err()}
	}
}

// runWithTimeout is callWithTimeout for calls that only return an error.
func runWithTimeout(ctx context.Context, operation string, timeout time.Duration, fn func(ctx context.Context) error) error {
	_, err := callWithTimeout(ctx, operation, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
