package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures Retry.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry is a conservative default for remote calls.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

// Retry runs f up to MaxAttempts times with doubling waits between
// attempts. Context cancellation aborts the wait and returns ctx.Err.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	wait := opts.InitialWait
	var last Result[T]
	for attempt := 1; ; attempt++ {
		last = f(ctx)
		if last.IsOk() || attempt >= opts.MaxAttempts {
			return last
		}

		d := wait
		if opts.Jitter {
			d = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if d > opts.MaxWait {
			d = opts.MaxWait
		}
		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case <-time.After(d):
		}
		if wait *= 2; wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
}

// RetryStage wraps a stage so each invocation retries per opts.
func RetryStage[In, Out any](opts RetryOpts, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return Retry(ctx, opts, func(ctx context.Context) Result[Out] {
			return stage(ctx, in)
		})
	}
}
