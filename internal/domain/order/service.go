package order

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
)

// Sentinel errors for order recording.
var (
	ErrEmptyItems          = errors.New("items required")
	ErrAnonymous           = errors.New("authenticated user required")
	ErrIntentRequired      = errors.New("payment intent id required")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrPaymentMismatch     = errors.New("payment does not match order total")
	ErrIntentOwnedByOther  = errors.New("payment intent belongs to another user")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// MaxQuantity is the largest line quantity the orders table can store.
const MaxQuantity = math.MaxInt32

// InvalidQuantityError indicates a line item quantity outside 1..MaxQuantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be between 1 and %d for product %d", MaxQuantity, e.ProductID)
}

// TotalMismatchError indicates the claimed total differs from the catalog
// price of the submitted lines by more than the configured tolerance.
type TotalMismatchError struct {
	Claimed  decimal.Decimal
	Computed decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("total %s does not match computed total %s", e.Claimed.StringFixed(2), e.Computed.StringFixed(2))
}

// LineInput is one selected cart line submitted for recording. Price is the
// unit price the client saw; the recorded price always comes from the catalog.
type LineInput struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// RecordRequest holds the input for recording an order.
type RecordRequest struct {
	UserID          int64
	Items           []LineInput
	Total           decimal.Decimal
	PaymentIntentID string
}

// RecordResult holds the recorded order. Replayed is set when the order
// already existed for the payment intent and nothing new was written.
type RecordResult struct {
	Order    *Order
	Replayed bool
}

// PaymentVerifier retrieves payment intents from the processor.
type PaymentVerifier interface {
	Verify(ctx context.Context, intentID string) (*payment.Intent, error)
	Currency() string
}

// Config tunes order recording.
type Config struct {
	// RequireIntent rejects orders without a verified, succeeded payment intent.
	RequireIntent bool
	// TotalTolerance is the largest accepted difference between the claimed
	// and the computed total.
	TotalTolerance decimal.Decimal
}

// DefaultTotalTolerance is one cent.
var DefaultTotalTolerance = decimal.New(1, -2)

// Service records orders and reads order history.
type Service struct {
	products product.Repository
	orders   Repository
	payments PaymentVerifier
	events   Publisher
	cfg      Config
	now      func() time.Time

	recorded metric.Int64Counter
	replayed metric.Int64Counter
	failures metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	orders Repository,
	payments PaymentVerifier,
	events Publisher,
	meter metric.Meter,
	cfg Config,
) (*Service, error) {
	if cfg.TotalTolerance.IsNegative() || cfg.TotalTolerance.IsZero() {
		cfg.TotalTolerance = DefaultTotalTolerance
	}
	s := &Service{
		products: products,
		orders:   orders,
		payments: payments,
		events:   events,
		cfg:      cfg,
		now:      time.Now,
	}

	var err error
	if s.recorded, err = meter.Int64Counter("orders.recorded",
		metric.WithDescription("Orders persisted"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.recorded")
	}
	if s.replayed, err = meter.Int64Counter("orders.replayed",
		metric.WithDescription("Record calls answered with an existing order"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.replayed")
	}
	if s.failures, err = meter.Int64Counter("orders.record.failures",
		metric.WithDescription("Orders not persisted after payment"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.record.failures")
	}
	return s, nil
}

// Record validates the submitted lines, re-prices them from the catalog,
// verifies the payment and persists the order with all of its lines in one
// atomic write. A repeated call for the same payment intent returns the
// existing order.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	if req.UserID <= 0 {
		return nil, ErrAnonymous
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]int64, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	if req.PaymentIntentID == "" && s.cfg.RequireIntent {
		return nil, ErrIntentRequired
	}
	if req.PaymentIntentID != "" {
		existing, err := s.orders.FindByPaymentIntent(ctx, req.PaymentIntentID)
		switch {
		case err == nil:
			return s.replay(ctx, req, existing)
		case !errors.Is(err, ErrNotFound):
			return nil, errors.Wrap(err, "find order by payment intent")
		}
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	lines := make([]Line, 0, len(req.Items))
	total := decimal.Zero
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		line := Line{
			ProductID:    p.ID,
			Quantity:     item.Quantity,
			Price:        p.Price,
			ProductName:  p.Name,
			ProductImage: p.Thumbnail(),
		}
		total = total.Add(line.Subtotal())
		lines = append(lines, line)
	}
	total = total.Round(2)

	if req.Total.Sub(total).Abs().GreaterThan(s.cfg.TotalTolerance) {
		return nil, &TotalMismatchError{Claimed: req.Total, Computed: total}
	}

	if req.PaymentIntentID != "" {
		if err := s.verifyPayment(ctx, req.PaymentIntentID, total); err != nil {
			return nil, err
		}
	}

	o := &Order{
		UserID:          req.UserID,
		Total:           total,
		Status:          StatusPaid,
		PaymentIntentID: req.PaymentIntentID,
		Lines:           lines,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			// Lost a race with a concurrent call for the same intent.
			existing, findErr := s.orders.FindByPaymentIntent(ctx, req.PaymentIntentID)
			if findErr != nil {
				return nil, errors.Wrap(findErr, "find order by payment intent")
			}
			return s.replay(ctx, req, existing)
		}
		s.persistFailed(ctx, o, err)
		return nil, errors.Wrap(err, "create order")
	}

	s.recorded.Add(ctx, 1)
	s.publish(ctx, Event{
		Type:            EventRecorded,
		OrderID:         o.ID,
		UserID:          o.UserID,
		Total:           o.Total,
		PaymentIntentID: o.PaymentIntentID,
		Lines:           len(o.Lines),
		OccurredAt:      s.now(),
	})

	return &RecordResult{Order: o}, nil
}

// History returns the user's orders, newest first. A user without orders gets
// an empty slice.
func (s *Service) History(ctx context.Context, userID int64) ([]Order, error) {
	if userID <= 0 {
		return nil, ErrAnonymous
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

func (s *Service) replay(ctx context.Context, req RecordRequest, existing *Order) (*RecordResult, error) {
	if existing.UserID != req.UserID {
		return nil, ErrIntentOwnedByOther
	}
	s.replayed.Add(ctx, 1)
	zctx.From(ctx).Info("Order already recorded for payment intent",
		zap.Int64("order_id", existing.ID),
		zap.String("payment_intent_id", existing.PaymentIntentID),
	)
	return &RecordResult{Order: existing, Replayed: true}, nil
}

func (s *Service) verifyPayment(ctx context.Context, intentID string, total decimal.Decimal) error {
	intent, err := s.payments.Verify(ctx, intentID)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return errors.Wrap(ErrPaymentNotSucceeded, "intent not found")
		}
		return err
	}
	if intent.Status != payment.StatusSucceeded {
		return errors.Wrapf(ErrPaymentNotSucceeded, "status %s", intent.Status)
	}

	want, err := payment.ToMinorUnits(total)
	if err != nil {
		return errors.Wrap(ErrPaymentMismatch, err.Error())
	}
	if intent.Amount != want || intent.Currency != s.payments.Currency() {
		return errors.Wrapf(ErrPaymentMismatch, "intent %d %s, order %d %s",
			intent.Amount, intent.Currency, want, s.payments.Currency())
	}
	return nil
}

// persistFailed is the alert path for a paid order that could not be saved.
func (s *Service) persistFailed(ctx context.Context, o *Order, cause error) {
	s.failures.Add(ctx, 1)
	zctx.From(ctx).Error("Order persistence failed after payment",
		zap.String("payment_intent_id", o.PaymentIntentID),
		zap.Int64("user_id", o.UserID),
		zap.String("total", o.Total.StringFixed(2)),
		zap.Int("lines", len(o.Lines)),
		zap.Error(cause),
	)
	s.publish(ctx, Event{
		Type:            EventRecordFailed,
		UserID:          o.UserID,
		Total:           o.Total,
		PaymentIntentID: o.PaymentIntentID,
		Lines:           len(o.Lines),
		Reason:          cause.Error(),
		OccurredAt:      s.now(),
	})
}

func (s *Service) publish(ctx context.Context, e Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
	}
}
