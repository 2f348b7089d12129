// Package circuitbreaker stops calling an external service that keeps
// failing, so webhook deliveries fail fast and the provider redelivers later
// instead of every request waiting out its retry budget.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the position of a breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until OpenFor has passed.
	StateOpen
	// StateHalfOpen admits a few trial calls to test recovery.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

var (
	// ErrCircuitOpen is returned without calling the service while open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned while every half-open trial slot is in use.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Settings configures a breaker. Zero numeric fields take the defaults
// noted on each field.
type Settings struct {
	Name string

	// MaxFailures is the run of failures that opens a closed breaker (5).
	MaxFailures int
	// RecoverAfter is the run of half-open successes that closes it (2).
	RecoverAfter int
	// OpenFor is how long an open breaker rejects calls (30s).
	OpenFor time.Duration
	// Trials is the number of calls admitted while half-open (1).
	Trials int

	// IsFailure decides which errors count against the service. Nil counts
	// every error.
	IsFailure func(error) bool
	// OnStateChange is called under the breaker lock on every transition.
	OnStateChange func(name string, from, to State)
}

func (s Settings) withDefaults() Settings {
	if s.MaxFailures <= 0 {
		s.MaxFailures = 5
	}
	if s.RecoverAfter <= 0 {
		s.RecoverAfter = 2
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	if s.Trials <= 0 {
		s.Trials = 1
	}
	return s
}

// Counts are running totals since creation. The streak fields restart on
// every transition.
type Counts struct {
	Requests             int
	Successes            int
	Failures             int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// CircuitBreaker guards calls to one external service.
type CircuitBreaker struct {
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	trials   int
}

// New creates a closed breaker.
func New(s Settings) *CircuitBreaker {
	return &CircuitBreaker{
		settings: s.withDefaults(),
		now:      time.Now,
	}
}

// PaymentProviderBreaker guards payment provider API calls. Each call carries
// its own retries, so three failed calls in a row mean an outage, not noise.
func PaymentProviderBreaker(isFailure func(error) bool, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Settings{
		Name:          "payment-provider",
		MaxFailures:   3,
		RecoverAfter:  1,
		OpenFor:       30 * time.Second,
		Trials:        1,
		IsFailure:     isFailure,
		OnStateChange: onStateChange,
	})
}

// Execute calls fn unless the breaker rejects it, and records the outcome.
// Rejections return ErrCircuitOpen or ErrTooManyRequests without calling fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.settings.OpenFor {
			return ErrCircuitOpen
		}
		cb.moveTo(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.trials >= cb.settings.Trials {
			return ErrTooManyRequests
		}
		cb.trials++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counts.Requests++
	if cb.state == StateHalfOpen && cb.trials > 0 {
		cb.trials--
	}

	failed := err != nil
	if failed && cb.settings.IsFailure != nil {
		failed = cb.settings.IsFailure(err)
	}

	if !failed {
		cb.counts.Successes++
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFailures = 0
		if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.settings.RecoverAfter {
			cb.moveTo(StateClosed)
		}
		return
	}

	cb.counts.Failures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0
	if cb.state == StateHalfOpen || cb.counts.ConsecutiveFailures >= cb.settings.MaxFailures {
		cb.moveTo(StateOpen)
	}
}

// moveTo must be called with mu held.
func (cb *CircuitBreaker) moveTo(next State) {
	if cb.state == next {
		return
	}
	prev := cb.state
	cb.state = next
	cb.counts.ConsecutiveSuccesses = 0
	cb.counts.ConsecutiveFailures = 0
	cb.trials = 0
	if next == StateOpen {
		cb.openedAt = cb.now()
	}

	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, prev, next)
	}
}

// State returns the current state. An open breaker whose OpenFor has passed
// still reports open until the next call trials it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns a copy of the running totals.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Name returns the configured name.
func (cb *CircuitBreaker) Name() string { return cb.settings.Name }

// IsOpen reports whether calls are currently rejected outright.
func (cb *CircuitBreaker) IsOpen() bool { return cb.State() == StateOpen }
