package subscription

import (
	"context"
	"time"

	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores UserSubscription rows. Storage integrity violations are
// returned as errors matching shared.ErrConstraintViolation.
type Repository interface {
	// GetByUserID returns ErrSubscriptionNotFound if the user has no row.
	GetByUserID(ctx context.Context, userID shared.UserID) (*UserSubscription, error)

	// GetBySubscriptionID returns ErrSubscriptionNotFound if no row tracks
	// the provider subscription.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*UserSubscription, error)

	// UpsertByUserID updates the user's row if it exists, inserts otherwise.
	UpsertByUserID(ctx context.Context, sub *UserSubscription) error

	// UpdateBilling updates price and period end of the row tracking the
	// provider subscription. Never inserts.
	UpdateBilling(ctx context.Context, subscriptionID, priceID string, periodEnd time.Time) error
}

// EventLedger is the durable set of processed event ids.
type EventLedger interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed records the event. Recording an id twice is not an error.
	MarkProcessed(ctx context.Context, eventID string, eventType EventType) error

	// PruneBefore deletes entries processed before the cutoff.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventLock serializes concurrent deliveries of the same event id.
type EventLock interface {
	// Acquire returns false if another delivery holds the lock.
	Acquire(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// PaymentProvider is the payment provider's API surface used here.
type PaymentProvider interface {
	// ParseEvent verifies the signature and decodes the payload. Returns an
	// error matching shared.ErrInvalidSignature when verification fails.
	ParseEvent(payload []byte, signature string) (*PaymentEvent, error)

	// GetSubscription fetches subscription details by id.
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}
