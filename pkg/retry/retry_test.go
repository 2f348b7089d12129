package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(attempts int, opts ...Option) *Retrier {
	return New(Backoff{Attempts: attempts, Initial: time.Millisecond, Max: 2 * time.Millisecond}, opts...)
}

func TestRetrier_RetriesMarkedErrors(t *testing.T) {
	calls := 0
	err := fast(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("temporary"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_UnmarkedErrorsStopImmediately(t *testing.T) {
	base := errors.New("bad request")
	calls := 0
	err := fast(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return base
	})

	assert.Same(t, base, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_ExhaustsBudget(t *testing.T) {
	base := errors.New("still down")
	var retried []int
	r := fast(3, OnRetry(func(attempt int, err error, delay time.Duration) {
		assert.Same(t, base, err)
		retried = append(retried, attempt)
	}))

	err := r.Do(context.Background(), func(ctx context.Context) error {
		return Retryable(base)
	})

	assert.Same(t, base, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetrier_RetryIf(t *testing.T) {
	transient := errors.New("serialization failure")
	calls := 0
	r := fast(4, RetryIf(func(err error) bool { return errors.Is(err, transient) }))

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return transient
		}
		return errors.New("constraint violation")
	})

	assert.EqualError(t, err, "constraint violation")
	assert.Equal(t, 2, calls)
}

func TestRetrier_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fast(3).Do(ctx, func(ctx context.Context) error {
		t.Fatal("operation must not run on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrier_CancelDuringPause(t *testing.T) {
	base := errors.New("flaky")
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Backoff{Attempts: 5, Initial: time.Hour}, OnRetry(func(int, error, time.Duration) { cancel() }))

	err := r.Do(ctx, func(ctx context.Context) error { return Retryable(base) })
	assert.Same(t, base, err)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Factor: 2}

	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 800*time.Millisecond, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(5))
}

func TestRetrier_JitterStaysInBounds(t *testing.T) {
	r := New(Backoff{Attempts: 2, Initial: 100 * time.Millisecond, Jitter: 0.2})

	r.rand = func() float64 { return 0 }
	assert.Equal(t, 80*time.Millisecond, r.jittered(100*time.Millisecond))
	r.rand = func() float64 { return 1 }
	assert.Equal(t, 120*time.Millisecond, r.jittered(100*time.Millisecond))
}

func TestPresets(t *testing.T) {
	p := PaymentProviderRetrier(nil)
	assert.Equal(t, 3, p.backoff.Attempts)
	assert.True(t, p.retryIf(Retryable(errors.New("x"))))

	d := DatabaseRetrier(func(error) bool { return true })
	assert.Equal(t, Database, d.backoff)
	assert.True(t, d.retryIf(errors.New("plain")))
}
