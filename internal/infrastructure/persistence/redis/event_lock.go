package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another delivery is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// EventLock implements subscription.EventLock with SET NX and a TTL.
type EventLock struct {
	cache  *Cache
	ttl    time.Duration
	mu     sync.Mutex
	tokens map[string]string
}

// NewEventLock creates an EventLock. A non-positive ttl uses TTLEventLock.
func NewEventLock(cache *Cache, ttl time.Duration) *EventLock {
	if ttl <= 0 {
		ttl = TTLEventLock
	}
	return &EventLock{
		cache:  cache,
		ttl:    ttl,
		tokens: make(map[string]string),
	}
}

func eventLockKey(eventID string) string {
	return LockKey("payment_event:" + eventID)
}

// Acquire takes the lock for an event id.
func (l *EventLock) Acquire(ctx context.Context, eventID string) (bool, error) {
	token := uuid.NewString()

	ok, err := l.cache.SetNX(ctx, eventLockKey(eventID), token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("event_lock: acquire %s: %w", eventID, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[eventID] = token
	l.mu.Unlock()
	return true, nil
}

// Release drops the lock if this process still owns it.
func (l *EventLock) Release(ctx context.Context, eventID string) error {
	l.mu.Lock()
	token, ok := l.tokens[eventID]
	delete(l.tokens, eventID)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.cache.Client(), []string{eventLockKey(eventID)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("event_lock: release %s: %w", eventID, err)
	}
	return nil
}
