package redis

import (
	"context"
	"fmt"
	"slices"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ViewsInvalidatedChannel carries shared.ViewsInvalidated messages.
var ViewsInvalidatedChannel = PubSubChannel("views:invalidated")

// ViewInvalidator implements shared.ViewInvalidator over Redis pub/sub.
// Subscribers (page renderers, edge caches) drop their copies of the named
// views. The leaderboard is also cached here, so it is dropped directly.
type ViewInvalidator struct {
	cache       *Cache
	leaderboard *LeaderboardCache
	clock       shared.Clock
	log         *logger.Logger
}

// NewViewInvalidator creates a ViewInvalidator.
func NewViewInvalidator(cache *Cache, board *LeaderboardCache, clock shared.Clock, log *logger.Logger) *ViewInvalidator {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ViewInvalidator{
		cache:       cache,
		leaderboard: board,
		clock:       clock,
		log:         log.Named("view_invalidator"),
	}
}

// Invalidate publishes one notification for all views.
func (v *ViewInvalidator) Invalidate(ctx context.Context, userID shared.UserID, views ...shared.View) error {
	if len(views) == 0 {
		return nil
	}

	if v.leaderboard != nil && slices.Contains(views, shared.ViewLeaderboard) {
		if err := v.leaderboard.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate leaderboard: %w", err)
		}
	}

	msg := shared.ViewsInvalidated{
		UserID:     userID,
		Views:      views,
		OccurredAt: v.clock.Now(),
	}
	if err := v.cache.Publish(ctx, ViewsInvalidatedChannel, msg); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}

	v.log.Debug("views invalidated",
		logger.UserID(string(userID)),
		logger.Int("count", len(views)),
	)
	return nil
}
