// Package retry runs an operation until it succeeds, fails with an error the
// caller considers permanent, runs out of attempts, or its context ends.
//
// Which errors are worth another attempt is decided by a predicate
// (WithRetryable). The default predicate retries everything except errors
// that report Temporary() == false, such as those wrapped with Abort.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return device.SetFan(ctx, true)
//	},
//	    retry.WithAttempts(retry.Unlimited),
//	    retry.WithBackoff(retry.ConstBackoff(10*time.Second)),
//	    retry.WithJitter(retry.WithoutJitter),
//	    retry.WithRetryable(func(err error) bool { return !errors.Is(err, errBadConfig) }),
//	)
package retry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const (
	defaultAttempts      = 4
	defaultBaseDelay     = 100 // milliseconds
	defaultMaxDelay      = 2   // seconds
	defaultBackoffFactor = 2.0
)

// Runner executes operations with a fixed retry configuration.
type Runner interface {
	Do(ctx context.Context, f func(ctx context.Context) error) error
}

// ValueRunner is the Runner flavor for operations that produce a value.
type ValueRunner[T any] interface {
	Do(ctx context.Context, f func(ctx context.Context) (T, error)) (T, error)
}

func newOptions(opts []Option) *options {
	o := &options{
		attempts: Attempts(defaultAttempts),
		backoff: ExpBackoff{
			Base:   defaultBaseDelay * time.Millisecond,
			Max:    defaultMaxDelay * time.Second,
			Factor: defaultBackoffFactor,
		},
		jitter:    FullJitter,
		retryable: IsTemporary,
	}

	for _, option := range opts {
		option(o)
	}

	return o
}

// NewRunner creates a Runner. Without options it makes 4 attempts with
// exponential backoff (100ms base, 2s cap, factor 2) and full jitter.
func NewRunner(opts ...Option) Runner {
	return &runnerImpl{opts: newOptions(opts)}
}

// NewValueRunner creates a ValueRunner with the same defaults as NewRunner.
func NewValueRunner[T any](opts ...Option) ValueRunner[T] {
	return &valueRunnerImpl[T]{opts: newOptions(opts)}
}

type runnerImpl struct {
	opts *options
}

func (r *runnerImpl) Do(ctx context.Context, f func(ctx context.Context) error) error {
	return do(ctx, r.opts, f)
}

type valueRunnerImpl[T any] struct {
	opts *options
}

// Do returns the first successful result. On failure it returns the zero
// value of T with the error that ended the loop.
func (v *valueRunnerImpl[T]) Do(ctx context.Context, f func(ctx context.Context) (T, error)) (T, error) {
	var out T

	err := do(ctx, v.opts, func(ctx context.Context) error {
		var err error

		out, err = f(ctx)

		return err
	})
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

// do is the retry loop. It returns nil on success, ctx.Err() when the
// context ends, the error itself when the predicate rejects it, and the last
// error once the attempts are used up.
func do(ctx context.Context, opts *options, operation func(ctx context.Context) error) error {
	var err error

	var mut sync.Mutex

	running := atomic.NewBool(true)
	defer running.Store(false)

	for attemptIndex := uint(0); opts.attempts == Unlimited || Attempts(attemptIndex) < opts.attempts; attemptIndex++ {
		ctx := withAttempt(ctx, attemptIndex)

		// One channel per attempt: a timed out attempt may still be running.
		errChan := make(chan error, 1)

		go func(ctx context.Context) {
			defer close(errChan)

			if opts.timeout != 0 {
				errChan <- callWithTimeout(ctx, operation, opts.timeout, &mut, running)

				return
			}

			mut.Lock()
			defer mut.Unlock()

			if !running.Load() {
				return
			}

			errChan <- operation(ctx)
		}(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err = <-errChan:
			if err == nil {
				return nil
			}

			if !opts.retryable(err) {
				var p *permanentError
				if errors.As(err, &p) {
					return p.error
				}

				return err
			}
		}

		if opts.attempts != Unlimited && Attempts(attemptIndex+1) >= opts.attempts {
			break
		}

		delay := opts.jitter.jitter(opts.backoff.Delay(attemptIndex))

		if opts.notify != nil {
			opts.notify(ctx, attemptIndex, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

// callWithTimeout runs callback under a deadline of timeout. If the deadline
// passes first it returns context.DeadlineExceeded.
func callWithTimeout(
	ctx context.Context,
	callback func(context.Context) error,
	timeout Timeout,
	mut *sync.Mutex,
	running *atomic.Bool,
) error {
	// Lock/unlock pair for visibility of running.
	mut.Lock()
	mut.Unlock() //nolint:staticcheck

	if !running.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout))
	defer cancel()

	errChan := make(chan error, 1)

	go func(ctx context.Context) {
		defer close(errChan)

		mut.Lock()
		defer mut.Unlock()

		if !running.Load() {
			return
		}

		errChan <- callback(ctx)
	}(ctx)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Do runs f with a one-off Runner built from opts.
func Do(ctx context.Context, f func(ctx context.Context) error, opts ...Option) error {
	return NewRunner(opts...).Do(ctx, f)
}

// DoValue runs f with a one-off ValueRunner built from opts.
func DoValue[T any](ctx context.Context, f func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	return NewValueRunner[T](opts...).Do(ctx, f)
}
