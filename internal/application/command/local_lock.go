package command

import (
	"context"
	"sync"
)

// LocalEventLock is an in-process subscription.EventLock used when no shared
// lock store is configured. It only serializes deliveries reaching the same
// process.
type LocalEventLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalEventLock creates a LocalEventLock.
func NewLocalEventLock() *LocalEventLock {
	return &LocalEventLock{held: make(map[string]struct{})}
}

// Acquire takes the lock if free.
func (l *LocalEventLock) Acquire(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[eventID]; busy {
		return false, nil
	}
	l.held[eventID] = struct{}{}
	return true, nil
}

// Release frees the lock.
func (l *LocalEventLock) Release(_ context.Context, eventID string) error {
	l.mu.Lock()
	delete(l.held, eventID)
	l.mu.Unlock()
	return nil
}
