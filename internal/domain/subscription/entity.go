// Package subscription models paid subscriptions and the payment events that
// drive them. Events arrive at least once and possibly out of order, so every
// event is tracked in a durable ledger keyed by the provider's event id.
package subscription

import (
	"time"

	"github.com/langquest/langquest-core/internal/domain/shared"
)

// GracePeriod is the extra validity granted after the provider's period end.
const GracePeriod = 24 * time.Hour

// ══════════════════════════════════════════════════════════════════════════════
// USER SUBSCRIPTION
// ══════════════════════════════════════════════════════════════════════════════

// UserSubscription is the single subscription row per user.
type UserSubscription struct {
	ID                     int64         `json:"id"`
	UserID                 shared.UserID `json:"user_id"`
	StripeCustomerID       string        `json:"stripe_customer_id"`
	StripeSubscriptionID   string        `json:"stripe_subscription_id"`
	StripePriceID          string        `json:"stripe_price_id"`
	StripeCurrentPeriodEnd time.Time     `json:"stripe_current_period_end"`
}

// IsActive reports whether the subscription grants access at now: a price is
// present and now is before the period end plus the grace period.
func (s *UserSubscription) IsActive(now time.Time) bool {
	if s == nil || s.StripePriceID == "" {
		return false
	}
	return now.Before(s.StripeCurrentPeriodEnd.Add(GracePeriod))
}

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// EventType is the provider's event type string.
type EventType string

const (
	EventCheckoutCompleted       EventType = "checkout.session.completed"
	EventInvoicePaymentSucceeded EventType = "invoice.payment_succeeded"
	EventInvoicePaymentPaid      EventType = "invoice_payment.paid"
	EventInvoicePaid             EventType = "invoice.paid"
)

// IsCheckoutCompleted reports whether the event starts a subscription.
func (t EventType) IsCheckoutCompleted() bool {
	return t == EventCheckoutCompleted
}

// IsInvoicePaid reports whether the event is one of the invoice-paid aliases.
func (t EventType) IsInvoicePaid() bool {
	switch t {
	case EventInvoicePaymentSucceeded, EventInvoicePaymentPaid, EventInvoicePaid:
		return true
	default:
		return false
	}
}

// PaymentEvent is a verified event reduced to the fields this service uses.
type PaymentEvent struct {
	ID   string
	Type EventType

	// SubscriptionID is empty when the payload has none.
	SubscriptionID string

	// UserID is the correlation tag set at checkout. Empty for invoices.
	UserID shared.UserID
}

// ProviderSubscription is the provider's view of a subscription.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	PriceID          string
	CurrentPeriodEnd time.Time
}

// Complete reports whether every field needed to store the subscription is
// present and the period end is a positive timestamp.
func (p *ProviderSubscription) Complete() bool {
	if p == nil {
		return false
	}
	return p.ID != "" && p.CustomerID != "" && p.PriceID != "" && p.CurrentPeriodEnd.Unix() > 0
}

// BillingComplete reports whether the fields updated by invoices are present.
func (p *ProviderSubscription) BillingComplete() bool {
	if p == nil {
		return false
	}
	return p.PriceID != "" && p.CurrentPeriodEnd.Unix() > 0
}

// ToUserSubscription builds the row for a user.
func (p *ProviderSubscription) ToUserSubscription(userID shared.UserID) *UserSubscription {
	return &UserSubscription{
		UserID:                 userID,
		StripeCustomerID:       p.CustomerID,
		StripeSubscriptionID:   p.ID,
		StripePriceID:          p.PriceID,
		StripeCurrentPeriodEnd: p.CurrentPeriodEnd,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPOSITION
// ══════════════════════════════════════════════════════════════════════════════

// Disposition is the terminal state of processing one delivery.
type Disposition string

const (
	// DispositionProcessed means the event was applied and recorded.
	DispositionProcessed Disposition = "processed"

	// DispositionDuplicate means the ledger already had the event.
	DispositionDuplicate Disposition = "duplicate"

	// DispositionSkipped means the event was incomplete or irrelevant and was
	// recorded so it is never retried.
	DispositionSkipped Disposition = "skipped"

	// DispositionConflict means a storage constraint rejected the write
	// because another delivery already applied it. Recorded.
	DispositionConflict Disposition = "benign_conflict"

	// DispositionRejected means signature verification failed. Not recorded.
	DispositionRejected Disposition = "rejected"

	// DispositionInProgress means another delivery of the same event holds
	// the lock. Not recorded.
	DispositionInProgress Disposition = "in_progress"

	// DispositionFailed means processing failed and the provider should
	// redeliver. Not recorded.
	DispositionFailed Disposition = "failed"
)

// Recorded reports whether the event id ends up in the ledger.
func (d Disposition) Recorded() bool {
	switch d {
	case DispositionProcessed, DispositionDuplicate, DispositionSkipped, DispositionConflict:
		return true
	default:
		return false
	}
}
