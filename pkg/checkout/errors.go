package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrEmptyCart is returned by Begin when no selected line contributes to
	// the subtotal.
	ErrEmptyCart = errors.New("nothing selected to check out")
	// ErrNotReady is returned when an operation is not valid in the current state.
	ErrNotReady = errors.New("checkout is not ready for this action")
	// ErrConfirmationInFlight is returned while a confirmation awaits the processor.
	ErrConfirmationInFlight = errors.New("a payment confirmation is already in flight")
	// ErrCartChanged is returned by Submit when the selected subtotal moved
	// after the payment intent was sized.
	ErrCartChanged = errors.New("cart changed since checkout began")
	// ErrStillPending is returned by Resume while the processor still waits
	// for the customer.
	ErrStillPending = errors.New("payment still requires action")
	// ErrOrderPending is returned by Abandon after a successful payment whose
	// order is not saved yet.
	ErrOrderPending = errors.New("payment succeeded but the order is not saved yet")
)

// PaymentError carries the processor's message verbatim.
type PaymentError struct {
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	return e.Message
}

// ActionRequiredError is returned when the processor needs the customer to
// complete a challenge before the payment can succeed.
type ActionRequiredError struct {
	RedirectURL string
}

func (e *ActionRequiredError) Error() string {
	if e.RedirectURL == "" {
		return "payment requires additional authentication"
	}
	return "payment requires additional authentication at " + e.RedirectURL
}

// OrderNotSavedError is returned when the payment succeeded but the order
// could not be recorded. The cart is kept so the record can be retried.
type OrderNotSavedError struct {
	PaymentIntentID string
	Err             error
}

func (e *OrderNotSavedError) Error() string {
	return fmt.Sprintf("payment succeeded, but we failed to save your order; contact support with payment reference %s", e.PaymentIntentID)
}

func (e *OrderNotSavedError) Unwrap() error {
	return e.Err
}
