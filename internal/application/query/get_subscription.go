package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER SUBSCRIPTION QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetUserSubscriptionQuery requests the caller's subscription status.
type GetUserSubscriptionQuery struct {
	Identity shared.Identity
}

// SubscriptionResult is the subscription row plus its derived status. A user
// without a subscription gets a nil Subscription and IsActive false.
type SubscriptionResult struct {
	Subscription *subscription.UserSubscription `json:"subscription"`
	IsActive     bool                           `json:"is_active"`
}

// GetUserSubscriptionHandler handles GetUserSubscriptionQuery.
type GetUserSubscriptionHandler struct {
	subscriptions subscription.Repository
	clock         shared.Clock
}

// NewGetUserSubscriptionHandler creates a new GetUserSubscriptionHandler.
func NewGetUserSubscriptionHandler(subscriptions subscription.Repository, clock shared.Clock) *GetUserSubscriptionHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &GetUserSubscriptionHandler{subscriptions: subscriptions, clock: clock}
}

// Handle executes the query.
func (h *GetUserSubscriptionHandler) Handle(ctx context.Context, q GetUserSubscriptionQuery) (*SubscriptionResult, error) {
	if !q.Identity.UserID.IsValid() {
		return nil, shared.ErrUnauthenticated
	}

	sub, err := h.subscriptions.GetByUserID(ctx, q.Identity.UserID)
	if errors.Is(err, shared.ErrSubscriptionNotFound) {
		return &SubscriptionResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_subscription: %w", err)
	}

	return &SubscriptionResult{
		Subscription: sub,
		IsActive:     sub.IsActive(h.clock.Now()),
	}, nil
}
