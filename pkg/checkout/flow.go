// Package checkout drives the client side of a payment: sizing an intent for
// the selected cart lines, confirming it with the processor and recording the
// order exactly once after the processor reports success.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
	"github.com/mariotejeda2001/Glazeepink/pkg/api"
	"github.com/mariotejeda2001/Glazeepink/pkg/cart"
)

// State is a checkout flow state.
type State string

const (
	Idle           State = "idle"
	AwaitingIntent State = "awaiting_intent"
	ReadyToConfirm State = "ready_to_confirm"
	Confirming     State = "confirming"
	Succeeded      State = "succeeded"
	RequiresAction State = "requires_action"
	Failed         State = "failed"
)

// Processor intent statuses observed by the flow.
const (
	StatusSucceeded      = "succeeded"
	StatusRequiresAction = "requires_action"
	StatusProcessing     = "processing"
)

// recheckTimeout bounds the retrieve that settles a confirm with an unknown
// outcome.
const recheckTimeout = 10 * time.Second

// Cart is the part of cart.Store the flow needs.
type Cart interface {
	Snapshot() cart.Snapshot
	Clear()
}

// Backend is the storefront API.
type Backend interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal) (clientSecret string, err error)
	RecordOrder(ctx context.Context, req *api.OrderRequest) (*api.Order, error)
}

// Confirmation is the processor's view of an intent after a confirm or
// retrieve call.
type Confirmation struct {
	IntentID    string
	Status      string
	RedirectURL string
	// Message is the processor's last payment error, if any.
	Message string
}

// Confirmer talks to the processor on behalf of the customer.
type Confirmer interface {
	Confirm(ctx context.Context, clientSecret, paymentMethod string) (*Confirmation, error)
	Retrieve(ctx context.Context, clientSecret string) (*Confirmation, error)
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow logger.
func WithLogger(lg *zap.Logger) Option {
	return func(f *Flow) { f.lg = lg }
}

// WithObserver registers fn to be called on every state transition. fn runs
// with the flow locked and must not call back into it.
func WithObserver(fn func(from, to State)) Option {
	return func(f *Flow) { f.observer = fn }
}

// Flow is a single checkout attempt.
type Flow struct {
	cart      Cart
	backend   Backend
	confirmer Confirmer
	lg        *zap.Logger
	observer  func(from, to State)

	mu        sync.Mutex
	state     State
	secret    string
	intentID  string
	lines     []cart.Line
	subtotal  decimal.Decimal
	recording bool
	order     *api.Order
	lastErr   error
}

// NewFlow creates an idle Flow.
func NewFlow(c Cart, backend Backend, confirmer Confirmer, opts ...Option) *Flow {
	f := &Flow{
		cart:      c,
		backend:   backend,
		confirmer: confirmer,
		lg:        zap.NewNop(),
		state:     Idle,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Order returns the recorded order, if any.
func (f *Flow) Order() *api.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order
}

// PaymentIntentID returns the id of the current intent.
func (f *Flow) PaymentIntentID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intentID
}

// Subtotal returns the amount the current intent was sized for.
func (f *Flow) Subtotal() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subtotal
}

// LastError returns the error of the last failed step.
func (f *Flow) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Begin snapshots the selected cart lines and requests a payment intent for
// their subtotal. Calling Begin again before submission discards the previous
// intent and sizes a fresh one.
func (f *Flow) Begin(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case Idle, ReadyToConfirm, Failed:
	default:
		f.mu.Unlock()
		return ErrNotReady
	}

	snap := f.cart.Snapshot()
	if !snap.Subtotal.IsPositive() {
		f.setState(Idle)
		f.mu.Unlock()
		return ErrEmptyCart
	}
	f.lines = snap.Selected()
	f.subtotal = snap.Subtotal
	f.secret, f.intentID, f.lastErr = "", "", nil
	f.setState(AwaitingIntent)
	f.mu.Unlock()

	secret, err := f.backend.CreatePaymentIntent(ctx, snap.Subtotal)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != AwaitingIntent {
		// Abandoned while the intent was being created.
		return ErrNotReady
	}
	if err != nil {
		f.lastErr = err
		f.setState(Idle)
		return errors.Wrap(err, "create payment intent")
	}
	intentID, ok := payment.IntentIDFromSecret(secret)
	if !ok {
		f.lastErr = errors.New("malformed client secret")
		f.setState(Idle)
		return f.lastErr
	}
	f.secret = secret
	f.intentID = intentID
	f.setState(ReadyToConfirm)
	return nil
}

// Submit confirms the intent with paymentMethod. Only one confirmation may be
// in flight; a second call while confirming returns ErrConfirmationInFlight
// without reaching the processor. On success the order is recorded once and
// the cart cleared.
func (f *Flow) Submit(ctx context.Context, paymentMethod string) (*api.Order, error) {
	f.mu.Lock()
	switch f.state {
	case ReadyToConfirm, Failed:
	case Confirming:
		f.mu.Unlock()
		return nil, ErrConfirmationInFlight
	default:
		f.mu.Unlock()
		return nil, ErrNotReady
	}
	if now := f.cart.Snapshot(); !now.Subtotal.Equal(f.subtotal) || !sameLines(now.Selected(), f.lines) {
		f.mu.Unlock()
		return nil, ErrCartChanged
	}
	secret := f.secret
	f.setState(Confirming)
	f.mu.Unlock()

	conf, err := f.confirmer.Confirm(ctx, secret, paymentMethod)
	return f.afterObservation(ctx, secret, conf, err, false)
}

// Resume takes a second observation of an intent that required customer
// action and finalizes the flow when the processor reports success.
func (f *Flow) Resume(ctx context.Context) (*api.Order, error) {
	f.mu.Lock()
	switch f.state {
	case RequiresAction:
	case Confirming:
		f.mu.Unlock()
		return nil, ErrConfirmationInFlight
	default:
		f.mu.Unlock()
		return nil, ErrNotReady
	}
	secret := f.secret
	f.setState(Confirming)
	f.mu.Unlock()

	conf, err := f.confirmer.Retrieve(ctx, secret)
	return f.afterObservation(ctx, secret, conf, err, true)
}

// RetryRecord re-sends the order for a payment that already succeeded. The
// request carries the same payment intent id, so the server returns the
// existing order if an earlier attempt was in fact saved.
func (f *Flow) RetryRecord(ctx context.Context) (*api.Order, error) {
	f.mu.Lock()
	if f.state != Succeeded || f.order != nil || f.recording {
		f.mu.Unlock()
		return nil, ErrNotReady
	}
	f.recording = true
	f.mu.Unlock()
	return f.record(ctx)
}

// Abandon discards the flow. It has no side effects: an intent that was
// created stays with the processor unreconciled.
func (f *Flow) Abandon() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Confirming:
		return ErrConfirmationInFlight
	case Succeeded:
		if f.order == nil {
			return ErrOrderPending
		}
	}
	f.secret, f.intentID, f.lines, f.subtotal = "", "", nil, decimal.Zero
	f.order, f.lastErr = nil, nil
	f.setState(Idle)
	return nil
}

func (f *Flow) afterObservation(ctx context.Context, secret string, conf *Confirmation, err error, resumed bool) (*api.Order, error) {
	var declined *PaymentError
	if err != nil && !errors.As(err, &declined) {
		// The processor may have confirmed the intent before the call failed.
		if again, ok := f.recheck(ctx, secret); ok {
			f.lg.Warn("Confirm failed but intent settled",
				zap.String("status", again.Status),
				zap.Error(err),
			)
			conf, err = again, nil
		}
	}

	f.mu.Lock()
	if err != nil {
		f.lastErr = err
		f.setState(Failed)
		f.mu.Unlock()
		return nil, err
	}

	switch conf.Status {
	case StatusSucceeded:
		f.setState(Succeeded)
		f.recording = true
		f.mu.Unlock()
		return f.record(ctx)
	case StatusRequiresAction, StatusProcessing:
		actionErr := &ActionRequiredError{RedirectURL: conf.RedirectURL}
		f.lastErr = actionErr
		f.setState(RequiresAction)
		f.mu.Unlock()
		if resumed {
			return nil, ErrStillPending
		}
		return nil, actionErr
	default:
		msg := conf.Message
		if msg == "" {
			msg = "payment was not completed (status " + conf.Status + ")"
		}
		payErr := &PaymentError{Message: msg}
		f.lastErr = payErr
		f.setState(Failed)
		f.mu.Unlock()
		return nil, payErr
	}
}

// recheck retrieves the intent after a confirm whose outcome is unknown. It
// reports false unless the processor has moved the intent past confirmation.
func (f *Flow) recheck(ctx context.Context, secret string) (*Confirmation, bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recheckTimeout)
	defer cancel()

	conf, err := f.confirmer.Retrieve(ctx, secret)
	if err != nil || conf == nil {
		f.lg.Warn("Retrieve after failed confirm", zap.Error(err))
		return nil, false
	}
	switch conf.Status {
	case StatusSucceeded, StatusRequiresAction, StatusProcessing:
		return conf, true
	default:
		return nil, false
	}
}

// record sends the order. The caller sets f.recording under the lock.
func (f *Flow) record(ctx context.Context) (*api.Order, error) {
	f.mu.Lock()
	req := &api.OrderRequest{
		Items:           make([]api.OrderItemRequest, 0, len(f.lines)),
		Total:           f.subtotal,
		PaymentIntentID: f.intentID,
	}
	for _, l := range f.lines {
		req.Items = append(req.Items, api.OrderItemRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		})
	}
	f.mu.Unlock()

	o, err := f.backend.RecordOrder(ctx, req)

	f.mu.Lock()
	f.recording = false
	if err != nil {
		notSaved := &OrderNotSavedError{PaymentIntentID: req.PaymentIntentID, Err: err}
		f.lastErr = notSaved
		f.mu.Unlock()
		f.lg.Error("Order not saved after successful payment",
			zap.String("payment_intent_id", req.PaymentIntentID),
			zap.String("total", req.Total.StringFixed(2)),
			zap.Error(err),
		)
		return nil, notSaved
	}
	f.order = o
	f.lastErr = nil
	f.mu.Unlock()

	f.cart.Clear()
	return o, nil
}

func (f *Flow) setState(to State) {
	from := f.state
	f.state = to
	if f.observer != nil && from != to {
		f.observer(from, to)
	}
}

// sameLines reports whether two selections hold the same products in the
// same quantities at the same prices.
func sameLines(a, b []cart.Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ProductID != b[i].ProductID ||
			a[i].Quantity != b[i].Quantity ||
			!a[i].UnitPrice.Equal(b[i].UnitPrice) {
			return false
		}
	}
	return true
}
