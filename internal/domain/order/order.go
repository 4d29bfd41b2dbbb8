package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no order matches the lookup.
var ErrNotFound = errors.New("order not found")

// ErrDuplicatePayment is returned by Repository.Create when an order already
// exists for the payment intent.
var ErrDuplicatePayment = errors.New("order already recorded for payment intent")

// Status is the lifecycle label of an order.
type Status string

// StatusPaid is the only status an order is ever created with.
const StatusPaid Status = "pagado"

// Order is an immutable record of a completed purchase. Total and line money
// fields are frozen at creation time.
type Order struct {
	ID              int64
	UserID          int64
	Total           decimal.Decimal
	Status          Status
	PaymentIntentID string
	CreatedAt       time.Time
	Lines           []Line
}

// Line is one purchased product. Price and Quantity are snapshots;
// ProductName and ProductImage reflect the catalog when the order is read and
// are empty if the product no longer exists.
type Line struct {
	ID        int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal

	ProductName  string
	ProductImage string
}

// Subtotal returns Price × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order and all of its lines atomically, filling in the
	// generated IDs and CreatedAt. Returns ErrDuplicatePayment when an order
	// with the same non-empty PaymentIntentID exists.
	Create(ctx context.Context, o *Order) error
	// FindByPaymentIntent returns the order recorded for intentID with its lines.
	FindByPaymentIntent(ctx context.Context, intentID string) (*Order, error)
	// ListByUser returns the user's orders newest first with lines joined to
	// current product display fields.
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
}

// EventType names an order lifecycle event.
type EventType string

const (
	EventRecorded     EventType = "order.recorded"
	EventRecordFailed EventType = "order.record_failed"
)

// Event is published after every record attempt that passed validation.
type Event struct {
	Type            EventType
	OrderID         int64
	UserID          int64
	Total           decimal.Decimal
	PaymentIntentID string
	Lines           int
	Reason          string
	OccurredAt      time.Time
}

// Publisher delivers order events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
