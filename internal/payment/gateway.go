// Package payment isolates the external settlement protocol. The rest of the
// service only sees Gateway: create an intent, ask whether it settled.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnavailable marks transient gateway failures (timeouts, network errors,
// 5xx, rate limiting). It is never returned for a definitive "not paid".
var ErrUnavailable = errors.New("payment gateway unavailable")

// Headers carrying the webhook signature for each gateway.
const (
	StripeSignatureHeader  = "Stripe-Signature"
	SandboxSignatureHeader = "X-Sandbox-Signature"
)

var (
	ErrInvalidAmount    = errors.New("invalid payment amount")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type Intent struct {
	Reference    string
	ClientHandle string
}

type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency, memo string) (Intent, error)
	IsSettled(ctx context.Context, reference string) (bool, error)
}

// WebhookEvent is what survives verification of a gateway callback. Only the
// reference is used, and settlement is always re-checked through IsSettled.
type WebhookEvent struct {
	ID        string
	Type      string
	Reference string
}

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// zero-decimal currencies per the card networks; everything else uses 2.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

func exponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// MinorUnits converts a decimal amount into the integer the gateway charges.
// Amounts carrying more precision than the currency allows are rejected.
func MinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if currency == "" {
		return 0, fmt.Errorf("%w: currency is required", ErrInvalidAmount)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, amount)
	}
	exp := exponent(currency)
	scaled := amount.Shift(exp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places for %s", ErrInvalidAmount, amount, exp, currency)
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -exponent(currency))
}
