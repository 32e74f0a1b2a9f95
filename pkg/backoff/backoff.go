// Package backoff runs an operation a bounded number of times with exponential
// backoff between attempts and a deadline on each attempt.
package backoff

import (
	"context"
	"errors"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

type Policy struct {
	Attempts        int
	AttemptTimeout  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:        3,
		AttemptTimeout:  3 * time.Second,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return cbackoff.Permanent(err)
}

// Retry calls op until it succeeds, returns a permanent error, runs out of
// attempts or ctx is done. Each call receives a context bounded by AttemptTimeout.
func Retry[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	exp := cbackoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = 0

	policy := cbackoff.WithContext(cbackoff.WithMaxRetries(exp, uint64(p.Attempts-1)), ctx)

	return cbackoff.RetryWithData(func() (T, error) {
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}

		result, err := op(attemptCtx)
		if err != nil && ctx.Err() != nil {
			return result, cbackoff.Permanent(errors.Join(ctx.Err(), err))
		}
		return result, err
	}, policy)
}
