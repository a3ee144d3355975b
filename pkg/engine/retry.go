package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/pkg/transport"
)

// RetryPolicy bounds automatic retries of flush write-backs. Only
// temporary transport errors are retried; pages stay dirty until a PUT
// succeeds, so a retry resends exactly the pages still pending.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retrying.
	MaxRetries uint64

	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// NoRetry makes a single attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	// the retry count bounds the loop, not the wall clock
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxRetries), ctx)
}

// do runs op until it succeeds, fails permanently or retries run out.
func (p RetryPolicy) do(ctx context.Context, what string, op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err != nil && !transport.IsTemporary(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.WarnCtx(ctx, "engine: retrying after temporary storage error",
			logger.KeyOperation, what,
			logger.KeyAttempt, attempt,
			logger.KeyMaxRetries, p.MaxRetries,
			"wait_ms", wait.Milliseconds(),
			logger.KeyError, err.Error(),
		)
	}

	return backoff.RetryNotify(wrapped, p.backOff(ctx), notify)
}
