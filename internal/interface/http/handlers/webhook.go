package handlers

import (
	"context"
	"net/http"

	"github.com/langquest/langquest-core/internal/application/command"
	"github.com/langquest/langquest-core/internal/domain/subscription"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

// PaymentSignatureHeader carries the provider's payload signature.
const PaymentSignatureHeader = "Stripe-Signature"

// MaxWebhookBytes bounds the accepted payload size.
const MaxWebhookBytes int64 = 64 << 10

// PaymentEventProcessor processes one webhook delivery.
type PaymentEventProcessor interface {
	Handle(ctx context.Context, cmd command.ProcessPaymentEventCommand) *command.ProcessPaymentEventResult
}

// DispositionStatus maps a processing result to the HTTP status returned to
// the provider. Recorded outcomes are acknowledged with 200 so the provider
// stops retrying; failures get 500 so it redelivers.
func DispositionStatus(d subscription.Disposition) int {
	switch d {
	case subscription.DispositionProcessed,
		subscription.DispositionDuplicate,
		subscription.DispositionSkipped,
		subscription.DispositionConflict:
		return http.StatusOK
	case subscription.DispositionRejected:
		return http.StatusBadRequest
	case subscription.DispositionInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
