// Package stripe adapts the Stripe API to subscription.PaymentProvider.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
	"github.com/langquest/langquest-core/pkg/circuitbreaker"
	"github.com/langquest/langquest-core/pkg/logger"
	"github.com/langquest/langquest-core/pkg/retry"
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = "Stripe-Signature"

// UserIDMetadataKey is the checkout metadata key holding our user id. The
// session's client_reference_id is the fallback.
const UserIDMetadataKey = "userId"

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Stripe credentials.
type Config struct {
	APIKey        string
	WebhookSecret string
}

// subscriptionGetter is the part of the Stripe subscriptions client we call.
type subscriptionGetter interface {
	Get(id string, params *stripego.SubscriptionParams) (*stripego.Subscription, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROVIDER
// ══════════════════════════════════════════════════════════════════════════════

// Provider implements subscription.PaymentProvider.
type Provider struct {
	webhookSecret string
	subscriptions subscriptionGetter
	retrier       *retry.Retrier
	breaker       *circuitbreaker.CircuitBreaker
	log           *logger.Logger
}

// NewProvider creates a Provider backed by the Stripe API.
func NewProvider(cfg Config, log *logger.Logger) *Provider {
	sc := client.New(cfg.APIKey, nil)
	return newProvider(cfg.WebhookSecret, sc.Subscriptions, log)
}

func newProvider(secret string, subs subscriptionGetter, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("stripe")

	return &Provider{
		webhookSecret: secret,
		subscriptions: subs,
		log:           log,
		retrier: retry.PaymentProviderRetrier(func(attempt int, err error, delay time.Duration) {
			log.Warn("retrying subscription fetch",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
		breaker: circuitbreaker.PaymentProviderBreaker(transient, func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	}
}

// eventObject holds the data.object fields read from checkout and invoice
// payloads. subscription is either an id or an expanded object.
type eventObject struct {
	Subscription      json.RawMessage   `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
	ClientReferenceID string            `json:"client_reference_id"`
}

// checkoutUserID reads the user tag of a checkout session. Metadata wins;
// client_reference_id covers sessions created without metadata.
func (o eventObject) checkoutUserID() shared.UserID {
	if id := strings.TrimSpace(o.Metadata[UserIDMetadataKey]); id != "" {
		return shared.UserID(id)
	}
	return shared.UserID(strings.TrimSpace(o.ClientReferenceID))
}

// ParseEvent verifies the signature and extracts the event fields.
func (p *Provider) ParseEvent(payload []byte, signature string) (*subscription.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, shared.WrapError("subscription", "VerifyEvent", shared.ErrInvalidSignature,
			"webhook signature verification failed", err)
	}

	result := &subscription.PaymentEvent{
		ID:   event.ID,
		Type: subscription.EventType(event.Type),
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return result, nil
	}

	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		// Verified but unreadable objects are treated as carrying nothing.
		p.log.Warn("undecodable event object", logger.EventID(event.ID), logger.Err(err))
		return result, nil
	}

	result.SubscriptionID = referenceID(obj.Subscription)
	if result.Type.IsCheckoutCompleted() {
		result.UserID = obj.checkoutUserID()
	}
	return result, nil
}

// referenceID reads an expandable reference: a bare id or {"id": ...}.
func referenceID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// GetSubscription fetches a subscription, retrying rate limits and server
// errors. While the provider keeps failing the breaker is open and calls
// fail immediately.
func (p *Provider) GetSubscription(ctx context.Context, subscriptionID string) (*subscription.ProviderSubscription, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx

	var sub *stripego.Subscription
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.retrier.Do(ctx, func(ctx context.Context) error {
			s, err := p.subscriptions.Get(subscriptionID, params)
			if err != nil {
				if transient(err) {
					return retry.Retryable(err)
				}
				return err
			}
			sub = s
			return nil
		})
	})
	if err != nil {
		return nil, shared.WrapError("subscription", "FetchSubscription", shared.ErrExternalService,
			fmt.Sprintf("fetch subscription %s", subscriptionID), err)
	}

	return toProviderSubscription(sub), nil
}

// Check reports the provider unavailable while the breaker is open.
func (p *Provider) Check(context.Context) error {
	if p.breaker.IsOpen() {
		return fmt.Errorf("%w: payment provider calls are failing", circuitbreaker.ErrCircuitOpen)
	}
	return nil
}

// transient reports whether a Stripe error is worth retrying.
func transient(err error) bool {
	var se *stripego.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError
	}
	return true
}

func toProviderSubscription(s *stripego.Subscription) *subscription.ProviderSubscription {
	if s == nil {
		return nil
	}

	out := &subscription.ProviderSubscription{ID: s.ID}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		out.PriceID = s.Items.Data[0].Price.ID
	}
	if s.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(s.CurrentPeriodEnd, 0).UTC()
	}
	return out
}
