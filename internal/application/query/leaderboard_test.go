package query

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langquest/langquest-core/internal/domain/leaderboard"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func players() *fakeProgress {
	return newFakeProgress(
		row(alice, 1, 5, 120),
		row("user_bob", 1, 5, 300),
		row("user_carol", 1, 5, 120),
		row("user_dave", 1, 5, 10),
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// Leaderboard
// ─────────────────────────────────────────────────────────────────────────────

func TestGetLeaderboard_Anonymous(t *testing.T) {
	repo := players()
	cache := &fakeBoardCache{}
	h := NewGetLeaderboardHandler(repo, cache, 0, shared.FixedClock(now), nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.NotNil(t, res.Entries)
	assert.Zero(t, repo.topCalls)
}

func TestGetLeaderboard_MissBuildsAndCaches(t *testing.T) {
	repo := players()
	cache := &fakeBoardCache{}
	h := NewGetLeaderboardHandler(repo, cache, 0, shared.FixedClock(now), nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Identity: aliceIdentity})
	require.NoError(t, err)

	require.Len(t, res.Entries, 4)
	assert.Equal(t, shared.UserID("user_bob"), res.Entries[0].UserID)
	assert.Equal(t, leaderboard.Rank(2), res.Entries[1].Rank)
	assert.Equal(t, leaderboard.Rank(2), res.Entries[2].Rank, "ties share a rank")
	assert.Equal(t, leaderboard.Rank(4), res.Entries[3].Rank)
	assert.Equal(t, leaderboard.Rank(2), res.MyRank)
	assert.Equal(t, now, res.BuiltAt)

	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, DefaultLeaderboardTTL, cache.ttl)
}

func TestGetLeaderboard_HitSkipsDatabase(t *testing.T) {
	repo := players()
	cached := &leaderboard.Board{
		Entries: []leaderboard.Entry{{Rank: 1, UserID: alice, Points: 999}},
		BuiltAt: now.Add(-time.Minute),
	}
	cache := &fakeBoardCache{board: cached}
	h := NewGetLeaderboardHandler(repo, cache, time.Minute, shared.FixedClock(now), nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Identity: aliceIdentity})
	require.NoError(t, err)
	assert.Equal(t, 999, res.Entries[0].Points)
	assert.Equal(t, leaderboard.Rank(1), res.MyRank)
	assert.Zero(t, repo.topCalls)
	assert.Zero(t, cache.sets)
}

func TestGetLeaderboard_CacheFailuresFallBack(t *testing.T) {
	repo := players()
	cache := &fakeBoardCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	h := NewGetLeaderboardHandler(repo, cache, 0, shared.FixedClock(now), nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Identity: aliceIdentity})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 4)
	assert.Equal(t, 1, repo.topCalls)
}

func TestGetLeaderboard_WithoutCache(t *testing.T) {
	repo := players()
	h := NewGetLeaderboardHandler(repo, nil, 0, shared.FixedClock(now), nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Identity: shared.Identity{UserID: "user_nobody"}})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 4)
	assert.Zero(t, res.MyRank, "users outside the top have no rank")
}

func TestGetLeaderboard_TopSize(t *testing.T) {
	repo := newFakeProgress()
	for i := 0; i < leaderboard.TopSize+5; i++ {
		id := shared.UserID("user_" + strconv.Itoa(i))
		repo.rows[id] = row(id, 1, 5, i*10)
	}
	h := NewGetLeaderboardHandler(repo, nil, 0, shared.FixedClock(now), nil)

	board, err := h.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Len(t, board.Entries, leaderboard.TopSize)
}

func TestGetLeaderboard_DatabaseError(t *testing.T) {
	repo := players()
	repo.err = errDatabaseDown
	h := NewGetLeaderboardHandler(repo, &fakeBoardCache{}, 0, shared.FixedClock(now), nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{Identity: aliceIdentity})
	assert.ErrorIs(t, err, errDatabaseDown)
}

// ─────────────────────────────────────────────────────────────────────────────
// Quests
// ─────────────────────────────────────────────────────────────────────────────

func TestGetQuests(t *testing.T) {
	ctx := context.Background()
	h := NewGetQuestsHandler(newFakeProgress(row(alice, 1, 5, 60)))

	res, err := h.Handle(ctx, GetQuestsQuery{Identity: aliceIdentity})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Points)
	require.Len(t, res.Quests, len(progress.Quests))

	got := make([]int, 0, len(res.Quests))
	for _, q := range res.Quests {
		got = append(got, q.Percentage)
	}
	assert.Equal(t, []int{100, 100, 60, 12, 6}, got)
	assert.True(t, res.Quests[1].Completed)
	assert.False(t, res.Quests[2].Completed)
}

func TestGetQuests_NoProgressRow(t *testing.T) {
	res, err := NewGetQuestsHandler(newFakeProgress()).
		Handle(context.Background(), GetQuestsQuery{Identity: aliceIdentity})
	require.NoError(t, err)
	assert.Zero(t, res.Points)
	for _, q := range res.Quests {
		assert.Zero(t, q.Percentage)
		assert.False(t, q.Completed)
	}
}

func TestGetQuests_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewGetQuestsHandler(newFakeProgress()).Handle(ctx, GetQuestsQuery{})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	repo := newFakeProgress()
	repo.err = errDatabaseDown
	_, err = NewGetQuestsHandler(repo).Handle(ctx, GetQuestsQuery{Identity: aliceIdentity})
	assert.ErrorIs(t, err, errDatabaseDown)
}

// ─────────────────────────────────────────────────────────────────────────────
// Subscription
// ─────────────────────────────────────────────────────────────────────────────

func TestGetUserSubscription(t *testing.T) {
	ctx := context.Background()
	subs := &fakeSubscriptions{byUser: map[shared.UserID]*subscription.UserSubscription{
		alice: {
			UserID:                 alice,
			StripeSubscriptionID:   "sub_1",
			StripePriceID:          "price_1",
			StripeCurrentPeriodEnd: now.Add(-time.Hour),
		},
	}}

	tests := []struct {
		name       string
		at         time.Time
		identity   shared.Identity
		wantSub    bool
		wantActive bool
	}{
		{"inside grace period", now, aliceIdentity, true, true},
		{"grace period elapsed", now.Add(subscription.GracePeriod), aliceIdentity, true, false},
		{"no subscription", now, shared.Identity{UserID: "user_bob"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGetUserSubscriptionHandler(subs, shared.FixedClock(tt.at))

			res, err := h.Handle(ctx, GetUserSubscriptionQuery{Identity: tt.identity})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, res.Subscription != nil)
			assert.Equal(t, tt.wantActive, res.IsActive)
		})
	}
}

func TestGetUserSubscription_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewGetUserSubscriptionHandler(&fakeSubscriptions{}, nil).Handle(ctx, GetUserSubscriptionQuery{})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = NewGetUserSubscriptionHandler(&fakeSubscriptions{err: errDatabaseDown}, nil).
		Handle(ctx, GetUserSubscriptionQuery{Identity: aliceIdentity})
	assert.ErrorIs(t, err, errDatabaseDown)
}
