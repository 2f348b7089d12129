package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langquest/langquest-core/internal/domain/shared"
)

func TestConfig_Addr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())

	cfg.Host = "redis"
	cfg.Port = 6380
	assert.Equal(t, "redis:6380", cfg.Addr())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "leaderboard:top", LeaderboardKey(""))
	assert.Equal(t, "leaderboard:meta", LeaderboardKey("meta"))
	assert.Equal(t, "lock:payment_event:evt_1", eventLockKey("evt_1"))
	assert.Equal(t, "pubsub:views:invalidated", ViewsInvalidatedChannel)
}

func TestCache_ArgumentValidation(t *testing.T) {
	c := &Cache{}
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, time.Minute), ErrCacheNilValue)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)

	_, err := c.SetNX(ctx, "k", "v", 0)
	assert.ErrorIs(t, err, ErrCacheInvalidTTL)

	assert.NoError(t, c.Delete(ctx))
}

func TestEventLock_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	l := NewEventLock(&Cache{}, 0)
	assert.Equal(t, TTLEventLock, l.ttl)
	assert.NoError(t, l.Release(context.Background(), "evt_unknown"))
}

func TestViewsInvalidated_Wire(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := shared.ViewsInvalidated{
		UserID:     "user_1",
		Views:      []shared.View{shared.ViewLearn, shared.LessonView(7)},
		OccurredAt: at,
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"user_id":"user_1","views":["learn","lesson/7"],"occurred_at":"2026-01-02T03:04:05Z"}`,
		string(data))
}

func TestViewInvalidator_EmptyViewsIsNoop(t *testing.T) {
	v := NewViewInvalidator(&Cache{}, nil, nil, nil)
	assert.NoError(t, v.Invalidate(context.Background(), "user_1"))
}
