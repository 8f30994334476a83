package service

import (
	"errors"
	"fmt"

	"github.com/shinyyama/evolon-market/internal/payment"
)

// Outcomes of the order core. Callers classify with errors.Is; the error text is
// the wire code used in API responses.
var (
	ErrItemUnavailable     = errors.New("item_unavailable")
	ErrOrderNotFound       = errors.New("order_not_found")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrForbidden           = errors.New("forbidden")
	ErrPaymentNotConfirmed = errors.New("payment_not_confirmed")
	ErrGatewayUnavailable  = errors.New("gateway_unavailable")
	ErrAlreadyReviewed     = errors.New("already_reviewed")
	ErrValidation          = errors.New("validation_error")
	ErrNotFound            = errors.New("not_found")
)

var taxonomy = []error{
	ErrItemUnavailable,
	ErrOrderNotFound,
	ErrInvalidTransition,
	ErrForbidden,
	ErrPaymentNotConfirmed,
	ErrGatewayUnavailable,
	ErrAlreadyReviewed,
	ErrValidation,
	ErrNotFound,
}

// Code returns the sentinel code of err, "ok" for nil and "error" for anything
// outside the taxonomy.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, sentinel := range taxonomy {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "error"
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// gatewayError maps adapter failures onto the taxonomy.
func gatewayError(err error) error {
	switch {
	case errors.Is(err, payment.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	case errors.Is(err, payment.ErrInvalidAmount):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		return err
	}
}
