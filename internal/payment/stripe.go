package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type Stripe struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
}

func NewStripe(secretKey, webhookSecret string, timeout time.Duration) *Stripe {
	return &Stripe{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}
}

func (s *Stripe) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, memo string) (Intent, error) {
	units, err := MinorUnits(amount, currency)
	if err != nil {
		return Intent{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(units),
		Currency:    stripe.String(strings.ToLower(currency)),
		Description: stripe.String(memo),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, classify("create_intent", err)
	}
	return Intent{Reference: pi.ID, ClientHandle: pi.ClientSecret}, nil
}

func (s *Stripe) IsSettled(ctx context.Context, reference string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(reference, params)
	if err != nil {
		return false, classify("is_settled", err)
	}
	return pi.Status == stripe.PaymentIntentStatusSucceeded, nil
}

func (s *Stripe) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || ev.Data == nil {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe webhook: decode payment intent: %w", err)
	}
	out.Reference = pi.ID
	return out, nil
}

// classify wraps transient failures in ErrUnavailable. Definitive rejections
// (bad request, card errors, unknown intent) keep their stripe error.
func classify(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode != 0 &&
		se.HTTPStatusCode < http.StatusInternalServerError && se.HTTPStatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("stripe %s: %w", op, err)
	}
	return fmt.Errorf("%w: stripe %s: %v", ErrUnavailable, op, err)
}
