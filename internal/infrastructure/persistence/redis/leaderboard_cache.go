package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/langquest/langquest-core/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache stores the built board as a JSON snapshot plus a small
// metadata hash, written in one MULTI block.
//
// Keys:
//   - String "leaderboard:top" holds the board JSON
//   - Hash "leaderboard:meta" holds built_at and size
type LeaderboardCache struct {
	cache *Cache
}

var (
	keyLeaderboardTop  = LeaderboardKey("top")
	keyLeaderboardMeta = LeaderboardKey("meta")
)

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// Get returns the cached board, or nil without error on a miss.
func (l *LeaderboardCache) Get(ctx context.Context) (*leaderboard.Board, error) {
	var board leaderboard.Board
	err := l.cache.Get(ctx, keyLeaderboardTop, &board)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: get: %w", err)
	}
	return &board, nil
}

// Set replaces the cached board.
func (l *LeaderboardCache) Set(ctx context.Context, board *leaderboard.Board, ttl time.Duration) error {
	if board == nil {
		return ErrCacheNilValue
	}
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}

	if err := l.cache.Set(ctx, keyLeaderboardTop, board, ttl); err != nil {
		return fmt.Errorf("leaderboard_cache: set: %w", err)
	}

	_, err := l.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keyLeaderboardMeta,
			"built_at", board.BuiltAt.UTC().Format(time.RFC3339),
			"size", len(board.Entries),
		)
		pipe.Expire(ctx, keyLeaderboardMeta, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("leaderboard_cache: meta: %w", err)
	}
	return nil
}

// Invalidate drops the cached board.
func (l *LeaderboardCache) Invalidate(ctx context.Context) error {
	return l.cache.Delete(ctx, keyLeaderboardTop, keyLeaderboardMeta)
}
