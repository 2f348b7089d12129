package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS PAYMENT EVENT COMMAND
// Applies one verified provider delivery to the subscription store exactly
// once. Deliveries are at-least-once and unordered, so every terminal state
// is a Disposition and only dispositions that must never be retried are
// written to the ledger.
// ══════════════════════════════════════════════════════════════════════════════

// ProcessPaymentEventCommand carries the raw delivery.
type ProcessPaymentEventCommand struct {
	Payload   []byte
	Signature string
}

// ProcessPaymentEventResult describes what happened to the delivery.
type ProcessPaymentEventResult struct {
	EventID     string
	EventType   subscription.EventType
	Disposition subscription.Disposition

	// Err is set for rejected and failed deliveries.
	Err error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProcessPaymentEventHandler handles ProcessPaymentEventCommand.
type ProcessPaymentEventHandler struct {
	provider      subscription.PaymentProvider
	subscriptions subscription.Repository
	ledger        subscription.EventLedger
	lock          subscription.EventLock
	log           *logger.Logger
}

// NewProcessPaymentEventHandler creates a new ProcessPaymentEventHandler.
func NewProcessPaymentEventHandler(
	provider subscription.PaymentProvider,
	subscriptions subscription.Repository,
	ledger subscription.EventLedger,
	lock subscription.EventLock,
	log *logger.Logger,
) *ProcessPaymentEventHandler {
	if lock == nil {
		lock = NewLocalEventLock()
	}
	return &ProcessPaymentEventHandler{
		provider:      provider,
		subscriptions: subscriptions,
		ledger:        ledger,
		lock:          lock,
		log:           orNop(log).Named("payment_events"),
	}
}

// Handle processes one delivery. It never returns an error: every failure is
// folded into the result's Disposition.
func (h *ProcessPaymentEventHandler) Handle(ctx context.Context, cmd ProcessPaymentEventCommand) *ProcessPaymentEventResult {
	event, err := h.provider.ParseEvent(cmd.Payload, cmd.Signature)
	if err != nil {
		h.log.Warn("payment event rejected", logger.Err(err))
		return &ProcessPaymentEventResult{Disposition: subscription.DispositionRejected, Err: err}
	}

	result := &ProcessPaymentEventResult{EventID: event.ID, EventType: event.Type}
	log := h.log.With(logger.EventID(event.ID), logger.EventType(string(event.Type)))

	acquired, err := h.lock.Acquire(ctx, event.ID)
	if err != nil {
		return h.fail(log, result, fmt.Errorf("acquire lock: %w", err))
	}
	if !acquired {
		log.Info("payment event already in progress")
		result.Disposition = subscription.DispositionInProgress
		result.Err = shared.ErrEventAlreadyInProgress
		return result
	}
	defer func() {
		if err := h.lock.Release(context.WithoutCancel(ctx), event.ID); err != nil {
			log.Warn("failed to release event lock", logger.Err(err))
		}
	}()

	processed, err := h.ledger.IsProcessed(ctx, event.ID)
	if err != nil {
		return h.fail(log, result, fmt.Errorf("check ledger: %w", err))
	}
	if processed {
		log.Debug("duplicate payment event")
		result.Disposition = subscription.DispositionDuplicate
		return result
	}

	disposition, err := h.apply(ctx, log, event)
	if err != nil {
		if !shared.IsConstraintViolation(err) {
			return h.fail(log, result, err)
		}
		log.Info("payment event hit a storage constraint, treating as duplicate", logger.Err(err))
		disposition = subscription.DispositionConflict
	}

	if disposition.Recorded() {
		if err := h.ledger.MarkProcessed(ctx, event.ID, event.Type); err != nil {
			return h.fail(log, result, fmt.Errorf("record event: %w", err))
		}
	}

	log.Info("payment event handled", logger.String("disposition", string(disposition)))
	result.Disposition = disposition
	return result
}

func (h *ProcessPaymentEventHandler) fail(log *logger.Logger, result *ProcessPaymentEventResult, err error) *ProcessPaymentEventResult {
	log.Error("payment event processing failed", logger.Err(err))
	result.Disposition = subscription.DispositionFailed
	result.Err = err
	return result
}

// apply dispatches on the event type. Skipped means the event can never
// become applicable and is recorded as handled.
func (h *ProcessPaymentEventHandler) apply(ctx context.Context, log *logger.Logger, event *subscription.PaymentEvent) (subscription.Disposition, error) {
	switch {
	case event.Type.IsCheckoutCompleted():
		return h.applyCheckout(ctx, log, event)
	case event.Type.IsInvoicePaid():
		return h.applyInvoice(ctx, log, event)
	default:
		log.Debug("ignoring payment event type")
		return subscription.DispositionSkipped, nil
	}
}

func (h *ProcessPaymentEventHandler) applyCheckout(ctx context.Context, log *logger.Logger, event *subscription.PaymentEvent) (subscription.Disposition, error) {
	if event.SubscriptionID == "" || !event.UserID.IsValid() {
		log.Info("checkout without subscription or user tag, skipping")
		return subscription.DispositionSkipped, nil
	}

	sub, err := h.provider.GetSubscription(ctx, event.SubscriptionID)
	if err != nil {
		return "", err
	}
	if !sub.Complete() {
		log.Info("provider subscription incomplete, skipping")
		return subscription.DispositionSkipped, nil
	}

	if err := h.subscriptions.UpsertByUserID(ctx, sub.ToUserSubscription(event.UserID)); err != nil {
		return "", fmt.Errorf("upsert subscription: %w", err)
	}
	return subscription.DispositionProcessed, nil
}

func (h *ProcessPaymentEventHandler) applyInvoice(ctx context.Context, log *logger.Logger, event *subscription.PaymentEvent) (subscription.Disposition, error) {
	if event.SubscriptionID == "" {
		log.Info("invoice without subscription, skipping")
		return subscription.DispositionSkipped, nil
	}

	sub, err := h.provider.GetSubscription(ctx, event.SubscriptionID)
	if err != nil {
		return "", err
	}
	if !sub.BillingComplete() || sub.ID == "" {
		log.Info("provider subscription incomplete, skipping")
		return subscription.DispositionSkipped, nil
	}

	err = h.subscriptions.UpdateBilling(ctx, sub.ID, sub.PriceID, sub.CurrentPeriodEnd)
	if errors.Is(err, shared.ErrSubscriptionNotFound) {
		log.Info("invoice for unknown subscription, skipping")
		return subscription.DispositionSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("update billing: %w", err)
	}
	return subscription.DispositionProcessed, nil
}
