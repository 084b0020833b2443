// Package retry wraps slow collaborator calls in a per-attempt timeout and a
// bounded number of retries.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Policy describes how a call is retried. The zero value runs once with no timeout.
type Policy struct {
	Name           string
	AttemptTimeout time.Duration
	Retries        uint64
	Wait           time.Duration
}

// Once is the policy used for completion and storage calls: one retry after a short pause.
func Once(name string, attemptTimeout time.Duration) Policy {
	return Policy{Name: name, AttemptTimeout: attemptTimeout, Retries: 1, Wait: 500 * time.Millisecond}
}

// Do runs fn under the policy. Errors marked with Permanent are not retried.
// The parent context's cancellation stops further attempts.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	attempt := 0

	op := func() error {
		attempt++
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}
		v, err := fn(attemptCtx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Wait), p.Retries), ctx)
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("call", p.Name).Int("attempt", attempt).Dur("wait", wait).Msg("retrying call")
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Permanent marks err so Do returns it without retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

