package retry

import (
	"context"
	"time"
)

// Attempts is the maximum number of times an operation is invoked.
type Attempts uint

// Unlimited retries until success, a non-retryable error or context end.
const Unlimited Attempts = 0

// Timeout bounds a single attempt. Zero means no per-attempt deadline.
type Timeout time.Duration

// Notify is called after a failed attempt that will be retried, before the
// backoff wait. attempt is zero-based.
type Notify func(ctx context.Context, attempt uint, err error, delay time.Duration)

// Option configures a Runner or ValueRunner.
type Option func(*options)

type options struct {
	attempts  Attempts
	backoff   Backoff
	jitter    Jitter
	timeout   Timeout
	retryable func(error) bool
	notify    Notify
}

// WithAttempts sets the maximum number of attempts. Unlimited (0) never
// gives up on retryable errors.
func WithAttempts(a Attempts) Option {
	return func(o *options) {
		o.attempts = a
	}
}

// WithBackoff sets the delay strategy between attempts.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		o.backoff = b
	}
}

// WithJitter sets how much randomness is applied to each delay.
func WithJitter(j Jitter) Option {
	return func(o *options) {
		o.jitter = j
	}
}

// WithTimeout bounds every individual attempt. An attempt that runs past the
// deadline fails with context.DeadlineExceeded, which is then subject to the
// retry predicate like any other error.
func WithTimeout(t Timeout) Option {
	return func(o *options) {
		o.timeout = t
	}
}

// WithRetryable replaces the predicate that decides whether an error is worth
// another attempt. The predicate must be a pure function of the error.
func WithRetryable(f func(error) bool) Option {
	return func(o *options) {
		if f == nil {
			f = IsTemporary
		}

		o.retryable = f
	}
}

// WithNotify registers a callback invoked before every backoff wait.
func WithNotify(n Notify) Option {
	return func(o *options) {
		o.notify = n
	}
}

type ctxKey string

const attemptKey ctxKey = "attempt"

func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// Attempt returns the zero-based attempt index stored by the retry loop, or 0
// outside of one.
func Attempt(ctx context.Context) uint {
	attemptNum, _ := ctx.Value(attemptKey).(uint)

	return attemptNum
}
