package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SubscriptionRepository implements subscription.Repository.
type SubscriptionRepository struct {
	conn *Connection
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(conn *Connection) *SubscriptionRepository {
	return &SubscriptionRepository{conn: conn}
}

const subscriptionColumns = `id, user_id, stripe_customer_id, stripe_subscription_id, stripe_price_id, stripe_current_period_end`

// GetByUserID returns the subscription of a user.
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID shared.UserID) (*subscription.UserSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id = $1`
	return r.getOne(ctx, query, string(userID))
}

// GetBySubscriptionID returns the row tracking a provider subscription.
func (r *SubscriptionRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*subscription.UserSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE stripe_subscription_id = $1`
	return r.getOne(ctx, query, subscriptionID)
}

func (r *SubscriptionRepository) getOne(ctx context.Context, query string, arg any) (*subscription.UserSubscription, error) {
	sub, err := scanSubscription(r.conn.QueryRow(ctx, query, arg))
	if IsNoRows(err) {
		return nil, shared.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// UpsertByUserID inserts or updates the user's subscription. A customer or
// subscription id already owned by another row surfaces as a constraint
// violation.
func (r *SubscriptionRepository) UpsertByUserID(ctx context.Context, sub *subscription.UserSubscription) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO user_subscriptions (user_id, stripe_customer_id, stripe_subscription_id, stripe_price_id, stripe_current_period_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			stripe_price_id = EXCLUDED.stripe_price_id,
			stripe_current_period_end = EXCLUDED.stripe_current_period_end
		RETURNING id
	`,
		string(sub.UserID), sub.StripeCustomerID, sub.StripeSubscriptionID,
		sub.StripePriceID, sub.StripeCurrentPeriodEnd,
	).Scan(&sub.ID)

	return classify("subscription", "UpsertByUserID", err)
}

// UpdateBilling refreshes price and period end. Never inserts.
func (r *SubscriptionRepository) UpdateBilling(ctx context.Context, subscriptionID, priceID string, periodEnd time.Time) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE user_subscriptions
		SET stripe_price_id = $2, stripe_current_period_end = $3
		WHERE stripe_subscription_id = $1
	`, subscriptionID, priceID, periodEnd)
	if err != nil {
		return classify("subscription", "UpdateBilling", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSubscriptionNotFound
	}
	return nil
}

func scanSubscription(row pgx.Row) (*subscription.UserSubscription, error) {
	var s subscription.UserSubscription
	var userID string
	if err := row.Scan(&s.ID, &userID, &s.StripeCustomerID, &s.StripeSubscriptionID, &s.StripePriceID, &s.StripeCurrentPeriodEnd); err != nil {
		return nil, err
	}
	s.UserID = shared.UserID(userID)
	return &s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// EventLedgerRepository implements subscription.EventLedger.
type EventLedgerRepository struct {
	conn *Connection
}

// NewEventLedgerRepository creates a new EventLedgerRepository.
func NewEventLedgerRepository(conn *Connection) *EventLedgerRepository {
	return &EventLedgerRepository{conn: conn}
}

// IsProcessed reports whether the event id is recorded.
func (r *EventLedgerRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_payment_events WHERE event_id = $1)`,
		eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event ledger: %w", err)
	}
	return exists, nil
}

// MarkProcessed records the event id. Recording twice is a no-op, so a
// transient failure is retried before the delivery is failed; a lost mark
// would make the provider redeliver an event that was already applied.
func (r *EventLedgerRepository) MarkProcessed(ctx context.Context, eventID string, eventType subscription.EventType) error {
	err := r.conn.retrying(ctx, func(ctx context.Context) error {
		_, err := r.conn.Exec(ctx, `
			INSERT INTO processed_payment_events (event_id, event_type)
			VALUES ($1, $2)
			ON CONFLICT (event_id) DO NOTHING
		`, eventID, string(eventType))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// PruneBefore deletes ledger entries older than cutoff.
func (r *EventLedgerRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn.Exec(ctx, `DELETE FROM processed_payment_events WHERE processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune event ledger: %w", err)
	}
	return tag.RowsAffected(), nil
}
