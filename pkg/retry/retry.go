// Package retry re-runs operations that fail with transient errors, backing
// off exponentially with jitter between attempts. It guards the payment
// provider calls made during webhook handling and the database transactions
// that can lose a serialization race.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRANSIENT ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// RetryableError marks an error as worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// strip removes a top-level Retryable marker so callers see the original error.
func strip(err error) error {
	if re, ok := err.(*RetryableError); ok {
		return re.Err
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// BACKOFF
// ══════════════════════════════════════════════════════════════════════════════

// Backoff is the attempt budget and the delay curve between attempts.
type Backoff struct {
	// Attempts counts every call, the first included.
	Attempts int
	// Initial is the pause after the first failure.
	Initial time.Duration
	// Max caps a single pause.
	Max time.Duration
	// Factor grows the pause after each failure.
	Factor float64
	// Jitter spreads each pause by ±Jitter of its length (0..1).
	Jitter float64
}

// PaymentProvider is the budget for provider API calls. They run inside a
// webhook request, so the total stays well below the delivery timeout.
var PaymentProvider = Backoff{
	Attempts: 3,
	Initial:  200 * time.Millisecond,
	Max:      2 * time.Second,
	Factor:   2,
	Jitter:   0.2,
}

// Database is the budget for replaying a transaction after a serialization
// failure, a deadlock or a connection dropped before the statement was sent.
var Database = Backoff{
	Attempts: 3,
	Initial:  50 * time.Millisecond,
	Max:      time.Second,
	Factor:   2,
	Jitter:   0.05,
}

func (b Backoff) normalized() Backoff {
	if b.Attempts < 1 {
		b.Attempts = 1
	}
	if b.Factor < 1 {
		b.Factor = 2
	}
	if b.Max <= 0 {
		b.Max = 30 * time.Second
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		b.Jitter = 0
	}
	return b
}

// Delay returns the pause after failed attempt n (1-based), before jitter.
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(b.Initial) * math.Pow(b.Factor, float64(n-1))
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Retrier runs operations under a Backoff.
type Retrier struct {
	backoff Backoff
	retryIf func(error) bool
	onRetry func(attempt int, err error, delay time.Duration)
	rand    func() float64
}

// Option configures a Retrier.
type Option func(*Retrier)

// RetryIf replaces the default test, which only retries errors marked with
// Retryable.
func RetryIf(fn func(error) bool) Option {
	return func(r *Retrier) {
		if fn != nil {
			r.retryIf = fn
		}
	}
}

// OnRetry is called before each pause.
func OnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

// New creates a Retrier.
func New(b Backoff, opts ...Option) *Retrier {
	r := &Retrier{
		backoff: b.normalized(),
		retryIf: IsRetryable,
		rand:    rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PaymentProviderRetrier retries provider calls marked with Retryable.
func PaymentProviderRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(PaymentProvider, OnRetry(onRetry))
}

// DatabaseRetrier retries the errors isTransient accepts.
func DatabaseRetrier(isTransient func(error) bool) *Retrier {
	return New(Database, RetryIf(isTransient))
}

// Do calls op until it succeeds, fails with an error that is not retried, or
// the budget runs out. The returned error has its Retryable marker removed.
// A cancelled ctx stops the loop and returns the last failure, or ctx.Err()
// when op never ran.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		last = strip(err)

		if attempt >= r.backoff.Attempts || !r.retryIf(err) {
			return last
		}

		delay := r.jittered(r.backoff.Delay(attempt))
		if r.onRetry != nil {
			r.onRetry(attempt, last, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last
		case <-timer.C:
		}
	}
}

func (r *Retrier) jittered(d time.Duration) time.Duration {
	if r.backoff.Jitter == 0 {
		return d
	}
	spread := float64(d) * r.backoff.Jitter * (r.rand()*2 - 1)
	if out := time.Duration(float64(d) + spread); out > 0 {
		return out
	}
	return 0
}
