package engine

import (
	"context"
	"fmt"
	"time"
)

// Outcome is the classification of a single attempt.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeTransient Outcome = "transient"
	OutcomeFatal     Outcome = "fatal"
)

// Attempt records one execution of an activity under a RetryPolicy.
type Attempt struct {
	Activity    string
	Number      int
	MaxAttempts int
	// Backoff is the delay before the next attempt; zero on the last one.
	Backoff time.Duration
	Timeout time.Duration
	Outcome Outcome
	Err     error
}

// Option configures Execute.
type Option func(*executor)

type executor struct {
	name    string
	sleep   func(context.Context, time.Duration) error
	observe func(Attempt)
}

// WithName labels attempts reported to observers and wrapped errors.
func WithName(name string) Option {
	return func(e *executor) { e.name = name }
}

// WithSleep replaces the inter-attempt wait.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *executor) { e.sleep = sleep }
}

// WithObserver registers a callback invoked after every attempt.
func WithObserver(fn func(Attempt)) Option {
	return func(e *executor) { e.observe = fn }
}

// Execute runs fn under policy. Every attempt is bounded by the policy's
// StartToCloseTimeout; an attempt that exceeds it is abandoned and counts as
// a transient failure. Fatal and validation errors stop immediately, other
// errors are retried with exponential backoff until MaxAttempts is reached.
// Cancelling ctx stops the loop without further attempts.
func Execute[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	p := policy.WithDefaults()
	ex := executor{name: "activity", sleep: sleepContext}
	for _, opt := range opts {
		opt(&ex)
	}

	var zero T
	var lastErr error
	for n := 1; n <= p.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := runAttempt(ctx, p.StartToCloseTimeout, fn)
		a := Attempt{
			Activity:    ex.name,
			Number:      n,
			MaxAttempts: p.MaxAttempts,
			Timeout:     p.StartToCloseTimeout,
			Err:         err,
		}
		if err == nil {
			a.Outcome = OutcomeSuccess
			ex.report(a)
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		lastErr = err
		if Classify(err) == OutcomeFatal {
			a.Outcome = OutcomeFatal
			ex.report(a)
			return zero, err
		}

		a.Outcome = OutcomeTransient
		if n < p.MaxAttempts {
			a.Backoff = p.Backoff(n)
		}
		ex.report(a)
		if a.Backoff > 0 {
			if err := ex.sleep(ctx, a.Backoff); err != nil {
				return zero, err
			}
		}
	}

	return zero, fmt.Errorf("%s: %d attempts exhausted: %w", ex.name, p.MaxAttempts, lastErr)
}

func (e *executor) report(a Attempt) {
	if e.observe != nil {
		e.observe(a)
	}
}

type attemptResult[T any] struct {
	v   T
	err error
}

// runAttempt calls fn and returns as soon as it finishes or its timeout
// fires, whichever comes first. A late result is discarded.
func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan attemptResult[T], 1)
	go func() {
		v, err := fn(actx)
		done <- attemptResult[T]{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && actx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return r.v, Transient("attempt", fmt.Errorf("start-to-close timeout %s exceeded: %w", timeout, r.err))
		}
		return r.v, r.err
	case <-actx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, Transient("attempt", fmt.Errorf("start-to-close timeout %s exceeded", timeout))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
