package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
)

type policy struct {
	attempts    int
	first       time.Duration
	ceiling     time.Duration
	shouldRetry func(error) bool
	onRetry     func(attempt int, err error, delay time.Duration)
}

// Option tunes one call of Do or DoWithData
type Option func(*policy)

// WithMaxAttempts caps the number of calls, the first one included
func WithMaxAttempts(n int) Option {
	return func(p *policy) { p.attempts = n }
}

// WithInitialDelay sets the wait after the first failure. Later waits double
// up to DefaultMaxDelay.
func WithInitialDelay(d time.Duration) Option {
	return func(p *policy) { p.first = d }
}

// WithRetryIf limits retries to errors accepted by fn
func WithRetryIf(fn func(error) bool) Option {
	return func(p *policy) { p.shouldRetry = fn }
}

// WithOnRetry registers a hook run before each wait
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *policy) { p.onRetry = fn }
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as final. Do returns the inner error without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds or a stop condition holds
func Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	_, err := DoWithData(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// DoWithData calls fn until it succeeds, returns a permanent or rejected
// error, runs out of attempts or ctx is done. The last error is returned.
func DoWithData[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	p := policy{attempts: DefaultMaxAttempts, first: DefaultInitialDelay, ceiling: DefaultMaxDelay}
	for _, opt := range opts {
		opt(&p)
	}
	p.attempts = max(p.attempts, 1)

	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		var final *permanentError
		switch {
		case errors.As(err, &final):
			return result, final.err
		case p.shouldRetry != nil && !p.shouldRetry(err):
			return result, err
		case attempt >= p.attempts:
			return result, err
		}

		wait := p.backoff(attempt)
		if p.onRetry != nil {
			p.onRetry(attempt, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff doubles the first delay per failed attempt, capped at the ceiling,
// and spreads it by up to 10% either way.
func (p policy) backoff(attempt int) time.Duration {
	d := p.first
	for i := 1; i < attempt && d < p.ceiling; i++ {
		d *= 2
	}
	d = min(d, p.ceiling)
	spread := float64(d) / 10
	return time.Duration(float64(d) + (rand.Float64()*2-1)*spread)
}
