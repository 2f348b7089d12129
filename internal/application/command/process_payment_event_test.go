package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
)

var periodEnd = time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

type paymentFixture struct {
	provider *fakeProvider
	subs     *fakeSubscriptions
	ledger   *fakeLedger
	lock     *LocalEventLock
	handler  *ProcessPaymentEventHandler
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		provider: &fakeProvider{
			events: map[string]*subscription.PaymentEvent{
				"checkout":         {ID: "evt_checkout", Type: subscription.EventCheckoutCompleted, SubscriptionID: "sub_1", UserID: "user_alice"},
				"checkout-no-user": {ID: "evt_no_user", Type: subscription.EventCheckoutCompleted, SubscriptionID: "sub_1"},
				"invoice":          {ID: "evt_invoice", Type: subscription.EventInvoicePaymentSucceeded, SubscriptionID: "sub_1"},
				"invoice-unknown":  {ID: "evt_invoice_unknown", Type: subscription.EventInvoicePaid, SubscriptionID: "sub_unknown"},
				"invoice-no-sub":   {ID: "evt_invoice_no_sub", Type: subscription.EventInvoicePaymentPaid},
				"other":            {ID: "evt_other", Type: "customer.created"},
			},
			subs: map[string]*subscription.ProviderSubscription{
				"sub_1":       {ID: "sub_1", CustomerID: "cus_1", PriceID: "price_1", CurrentPeriodEnd: periodEnd},
				"sub_unknown": {ID: "sub_unknown", CustomerID: "cus_2", PriceID: "price_1", CurrentPeriodEnd: periodEnd},
			},
		},
		subs:   newFakeSubscriptions(),
		ledger: newFakeLedger(),
		lock:   NewLocalEventLock(),
	}
	f.handler = NewProcessPaymentEventHandler(f.provider, f.subs, f.ledger, f.lock, nil)
	return f
}

func (f *paymentFixture) deliver(payload string) *ProcessPaymentEventResult {
	return f.handler.Handle(context.Background(), ProcessPaymentEventCommand{
		Payload:   []byte(payload),
		Signature: "valid",
	})
}

func TestProcessPaymentEvent_CheckoutCreatesSubscription(t *testing.T) {
	f := newPaymentFixture()

	res := f.deliver("checkout")
	require.Equal(t, subscription.DispositionProcessed, res.Disposition)

	sub, err := f.subs.GetByUserID(context.Background(), "user_alice")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)
	assert.Equal(t, "price_1", sub.StripePriceID)
	assert.Equal(t, periodEnd, sub.StripeCurrentPeriodEnd)
	assert.Contains(t, f.ledger.ids, "evt_checkout")
}

func TestProcessPaymentEvent_DuplicateDeliveryIsNoop(t *testing.T) {
	f := newPaymentFixture()

	require.Equal(t, subscription.DispositionProcessed, f.deliver("checkout").Disposition)
	fetches := f.provider.fetches

	res := f.deliver("checkout")
	assert.Equal(t, subscription.DispositionDuplicate, res.Disposition)
	assert.Equal(t, fetches, f.provider.fetches, "duplicates never reach the provider")
}

func TestProcessPaymentEvent_InvoiceUpdatesBilling(t *testing.T) {
	f := newPaymentFixture()
	require.Equal(t, subscription.DispositionProcessed, f.deliver("checkout").Disposition)

	renewed := periodEnd.AddDate(0, 1, 0)
	f.provider.subs["sub_1"] = &subscription.ProviderSubscription{ID: "sub_1", CustomerID: "cus_1", PriceID: "price_2", CurrentPeriodEnd: renewed}

	res := f.deliver("invoice")
	require.Equal(t, subscription.DispositionProcessed, res.Disposition)

	sub, err := f.subs.GetByUserID(context.Background(), "user_alice")
	require.NoError(t, err)
	assert.Equal(t, "price_2", sub.StripePriceID)
	assert.Equal(t, renewed, sub.StripeCurrentPeriodEnd)
}

func TestProcessPaymentEvent_Skips(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		eventID string
	}{
		{"checkout without user tag", "checkout-no-user", "evt_no_user"},
		{"invoice before checkout never inserts", "invoice-unknown", "evt_invoice_unknown"},
		{"invoice without subscription", "invoice-no-sub", "evt_invoice_no_sub"},
		{"unhandled type", "other", "evt_other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture()

			res := f.deliver(tt.payload)
			assert.Equal(t, subscription.DispositionSkipped, res.Disposition)
			assert.Contains(t, f.ledger.ids, tt.eventID)
			assert.Empty(t, f.subs.byUser)
		})
	}
}

func TestProcessPaymentEvent_IncompleteProviderSubscriptionSkips(t *testing.T) {
	f := newPaymentFixture()
	f.provider.subs["sub_1"] = &subscription.ProviderSubscription{ID: "sub_1", CustomerID: "cus_1", PriceID: "price_1"}

	res := f.deliver("checkout")
	assert.Equal(t, subscription.DispositionSkipped, res.Disposition)
	assert.Empty(t, f.subs.byUser)
	assert.Contains(t, f.ledger.ids, "evt_checkout")
}

func TestProcessPaymentEvent_BadSignatureIsNotRecorded(t *testing.T) {
	f := newPaymentFixture()

	res := f.handler.Handle(context.Background(), ProcessPaymentEventCommand{Payload: []byte("checkout"), Signature: "forged"})
	assert.Equal(t, subscription.DispositionRejected, res.Disposition)
	assert.ErrorIs(t, res.Err, shared.ErrInvalidSignature)
	assert.Empty(t, f.ledger.ids)

	// The legitimate retry still succeeds.
	assert.Equal(t, subscription.DispositionProcessed, f.deliver("checkout").Disposition)
}

func TestProcessPaymentEvent_ConstraintViolationIsBenign(t *testing.T) {
	f := newPaymentFixture()
	f.subs.upsertErr = shared.WrapError("subscription", "UpsertByUserID", shared.ErrConstraintViolation,
		"constraint violation", errors.New("duplicate key value violates unique constraint"))

	res := f.deliver("checkout")
	assert.Equal(t, subscription.DispositionConflict, res.Disposition)
	assert.Contains(t, f.ledger.ids, "evt_checkout")
}

func TestProcessPaymentEvent_OtherFailuresAreRetried(t *testing.T) {
	f := newPaymentFixture()
	f.subs.upsertErr = errDatabaseDown

	res := f.deliver("checkout")
	assert.Equal(t, subscription.DispositionFailed, res.Disposition)
	assert.ErrorIs(t, res.Err, errDatabaseDown)
	assert.Empty(t, f.ledger.ids)

	f.subs.upsertErr = nil
	assert.Equal(t, subscription.DispositionProcessed, f.deliver("checkout").Disposition)
}

func TestProcessPaymentEvent_ProviderFailureIsRetried(t *testing.T) {
	f := newPaymentFixture()
	f.provider.fetchErr = shared.ErrPaymentProviderFailed

	res := f.deliver("checkout")
	assert.Equal(t, subscription.DispositionFailed, res.Disposition)
	assert.Empty(t, f.ledger.ids)
}

func TestProcessPaymentEvent_ConcurrentDeliveryInProgress(t *testing.T) {
	f := newPaymentFixture()
	ok, err := f.lock.Acquire(context.Background(), "evt_checkout")
	require.NoError(t, err)
	require.True(t, ok)

	res := f.deliver("checkout")
	assert.Equal(t, subscription.DispositionInProgress, res.Disposition)
	assert.Empty(t, f.ledger.ids)

	require.NoError(t, f.lock.Release(context.Background(), "evt_checkout"))
	assert.Equal(t, subscription.DispositionProcessed, f.deliver("checkout").Disposition)
}

func TestProcessPaymentEvent_LedgerWriteFailureIsRetried(t *testing.T) {
	f := newPaymentFixture()
	f.ledger.markErr = errDatabaseDown

	res := f.deliver("other")
	assert.Equal(t, subscription.DispositionFailed, res.Disposition)
}

func TestLocalEventLock(t *testing.T) {
	l := NewLocalEventLock()
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "evt")
	assert.True(t, ok)
	ok, _ = l.Acquire(ctx, "evt")
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "evt"))
	ok, _ = l.Acquire(ctx, "evt")
	assert.True(t, ok)
}
