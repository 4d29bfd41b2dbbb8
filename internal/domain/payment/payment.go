// Package payment sizes and creates payment intents with an external processor
// and verifies their state before an order is recorded.
package payment

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned for amounts that do not size a positive charge.
	ErrInvalidAmount = errors.New("amount must be greater than 0")
	// ErrProcessorUnavailable hides processor failures from callers.
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	// ErrIntentNotFound is returned when the processor does not know an intent.
	ErrIntentNotFound = errors.New("payment intent not found")
)

// Status mirrors the processor's intent status.
type Status string

const (
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusRequiresConfirmation  Status = "requires_confirmation"
	StatusRequiresAction        Status = "requires_action"
	StatusProcessing            Status = "processing"
	StatusRequiresCapture       Status = "requires_capture"
	StatusCanceled              Status = "canceled"
	StatusSucceeded             Status = "succeeded"
)

// Terminal reports whether no further state change is expected.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusCanceled
}

// Intent is the processor's handle for a charge attempt.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       Status
}

// CreateParams describes an intent to create.
type CreateParams struct {
	Amount             int64
	Currency           string
	PaymentMethodTypes []string
	IdempotencyKey     string
}

// Processor is the external payment processor boundary.
type Processor interface {
	CreateIntent(ctx context.Context, params CreateParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// MaxMinorUnits is the largest single charge the processor accepts.
const MaxMinorUnits = 99_999_999

// ToMinorUnits converts a decimal currency amount to integer minor units,
// rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	minor := amount.Shift(2).Round(0)
	if !minor.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if minor.GreaterThan(decimal.NewFromInt(MaxMinorUnits)) {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// IntentIDFromSecret extracts the intent id from a client secret of the form
// "<id>_secret_<nonce>".
func IntentIDFromSecret(secret string) (string, bool) {
	id, _, ok := strings.Cut(secret, "_secret_")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
