package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[int64]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context, _ string) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	byIntent map[string]*Order
	byUser   map[int64][]Order
	created  []*Order
	nextID   int64

	createErr error
	// raceWith is stored on the first Create call to simulate a concurrent
	// writer winning the unique constraint.
	raceWith *Order
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byIntent: map[string]*Order{}, byUser: map[int64][]Order{}}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.raceWith != nil {
		m.byIntent[m.raceWith.PaymentIntentID] = m.raceWith
		m.raceWith = nil
		return ErrDuplicatePayment
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	o.ID = m.nextID
	m.created = append(m.created, o)
	if o.PaymentIntentID != "" {
		m.byIntent[o.PaymentIntentID] = o
	}
	return nil
}

func (m *mockOrderRepo) FindByPaymentIntent(_ context.Context, id string) (*Order, error) {
	o, ok := m.byIntent[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID int64) ([]Order, error) {
	return m.byUser[userID], nil
}

type mockVerifier struct {
	intents map[string]*payment.Intent
	err     error
	calls   int
}

func (m *mockVerifier) Verify(_ context.Context, id string) (*payment.Intent, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	in, ok := m.intents[id]
	if !ok {
		return nil, payment.ErrIntentNotFound
	}
	return in, nil
}

func (m *mockVerifier) Currency() string { return "mxn" }

type mockPublisher struct {
	events []Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, e Event) error {
	m.events = append(m.events, e)
	return m.err
}

// --- Helpers ---

func newTestProduct(id int64, name, price string) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Images:   []string{name + ".jpg"},
		Category: "pasteles",
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[int64]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func succeeded(id string, minor int64) *payment.Intent {
	return &payment.Intent{ID: id, Amount: minor, Currency: "mxn", Status: payment.StatusSucceeded}
}

type fixture struct {
	products *mockProductRepo
	orders   *mockOrderRepo
	payments *mockVerifier
	events   *mockPublisher
	svc      *Service
}

func newFixture(t *testing.T, cfg Config, products ...product.Product) *fixture {
	t.Helper()
	f := &fixture{
		products: newProductRepo(products...),
		orders:   newOrderRepo(),
		payments: &mockVerifier{intents: map[string]*payment.Intent{}},
		events:   &mockPublisher{},
	}
	svc, err := NewService(f.products, f.orders, f.payments, f.events, noop.NewMeterProvider().Meter("test"), cfg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

var strict = Config{RequireIntent: true}

// --- Tests ---

func TestRecord_Validation(t *testing.T) {
	x := newTestProduct(1, "Pastel de Chocolate", "280")

	tests := []struct {
		name  string
		req   RecordRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "anonymous",
			req:  RecordRequest{Items: []LineInput{{ProductID: 1, Quantity: 1}}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrAnonymous)
			},
		},
		{
			name: "empty items",
			req:  RecordRequest{UserID: 7, PaymentIntentID: "pi_1"},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrEmptyItems)
			},
		},
		{
			name: "zero quantity",
			req:  RecordRequest{UserID: 7, PaymentIntentID: "pi_1", Items: []LineInput{{ProductID: 1, Quantity: 0}}},
			check: func(t *testing.T, err error) {
				var iqErr *InvalidQuantityError
				require.ErrorAs(t, err, &iqErr)
				assert.Equal(t, int64(1), iqErr.ProductID)
			},
		},
		{
			name: "quantity beyond column range",
			req:  RecordRequest{UserID: 7, PaymentIntentID: "pi_1", Items: []LineInput{{ProductID: 1, Quantity: MaxQuantity + 1}}},
			check: func(t *testing.T, err error) {
				var iqErr *InvalidQuantityError
				require.ErrorAs(t, err, &iqErr)
				assert.Equal(t, int64(1), iqErr.ProductID)
			},
		},
		{
			name: "missing intent",
			req:  RecordRequest{UserID: 7, Items: []LineInput{{ProductID: 1, Quantity: 1}}, Total: decimal.NewFromInt(280)},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrIntentRequired)
			},
		},
		{
			name: "unknown product",
			req:  RecordRequest{UserID: 7, PaymentIntentID: "pi_1", Items: []LineInput{{ProductID: 99, Quantity: 1}}},
			check: func(t *testing.T, err error) {
				var pnfErr *ProductNotFoundError
				require.ErrorAs(t, err, &pnfErr)
				assert.Equal(t, int64(99), pnfErr.ProductID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, strict, x)
			_, err := f.svc.Record(context.Background(), tt.req)
			tt.check(t, err)
			assert.Empty(t, f.orders.created)
			assert.Zero(t, f.payments.calls)
			assert.Empty(t, f.events.events)
		})
	}
}

func TestRecord_OversizedQuantityWithoutIntent(t *testing.T) {
	f := newFixture(t, Config{}, newTestProduct(1, "Pastel de Chocolate", "280"))

	_, err := f.svc.Record(context.Background(), RecordRequest{
		UserID: 7,
		Items:  []LineInput{{ProductID: 1, Quantity: MaxQuantity + 1}},
		Total:  decimal.NewFromInt(280),
	})
	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.events.events, "no persistence failure is reported")
}

// Product X ($280, qty 2) is selected, Product Y is not and is never sent.
func TestRecord_EndToEnd(t *testing.T) {
	x := newTestProduct(1, "Pastel de Chocolate", "280")
	y := newTestProduct(2, "Cheesecake", "180")
	f := newFixture(t, strict, x, y)
	f.payments.intents["pi_1"] = succeeded("pi_1", 56000)

	res, err := f.svc.Record(context.Background(), RecordRequest{
		UserID:          7,
		Items:           []LineInput{{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(280)}},
		Total:           decimal.NewFromInt(560),
		PaymentIntentID: "pi_1",
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)

	require.Len(t, f.orders.created, 1)
	o := f.orders.created[0]
	assert.True(t, decimal.NewFromInt(560).Equal(o.Total))
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, int64(7), o.UserID)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, int64(1), o.Lines[0].ProductID)
	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(280).Equal(o.Lines[0].Price))
	assert.Equal(t, "Pastel de Chocolate", o.Lines[0].ProductName)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventRecorded, f.events.events[0].Type)
	assert.Equal(t, o.ID, f.events.events[0].OrderID)
}

func TestRecord_RepricesFromCatalog(t *testing.T) {
	x := newTestProduct(1, "Pastel", "280")
	f := newFixture(t, Config{}, x)

	res, err := f.svc.Record(context.Background(), RecordRequest{
		UserID: 7,
		Items:  []LineInput{{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(1)}},
		Total:  decimal.NewFromInt(280),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(280).Equal(res.Order.Lines[0].Price))
}

func TestRecord_TotalMismatch(t *testing.T) {
	x := newTestProduct(1, "Pastel", "280")

	tests := []struct {
		name    string
		total   string
		wantErr bool
	}{
		{name: "exact", total: "280.00"},
		{name: "within tolerance", total: "280.01"},
		{name: "below", total: "1.00", wantErr: true},
		{name: "just over tolerance", total: "280.02", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{}, x)
			_, err := f.svc.Record(context.Background(), RecordRequest{
				UserID: 7,
				Items:  []LineInput{{ProductID: 1, Quantity: 1}},
				Total:  decimal.RequireFromString(tt.total),
			})
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var tmErr *TotalMismatchError
			require.ErrorAs(t, err, &tmErr)
			assert.True(t, decimal.NewFromInt(280).Equal(tmErr.Computed))
			assert.Empty(t, f.orders.created)
		})
	}
}

func TestRecord_PaymentVerification(t *testing.T) {
	x := newTestProduct(1, "Pastel", "280")

	tests := []struct {
		name    string
		intent  *payment.Intent
		verErr  error
		wantErr error
	}{
		{
			name:    "requires action",
			intent:  &payment.Intent{ID: "pi_1", Amount: 28000, Currency: "mxn", Status: payment.StatusRequiresAction},
			wantErr: ErrPaymentNotSucceeded,
		},
		{
			name:    "unknown intent",
			wantErr: ErrPaymentNotSucceeded,
		},
		{
			name:    "amount differs",
			intent:  succeeded("pi_1", 100),
			wantErr: ErrPaymentMismatch,
		},
		{
			name:    "currency differs",
			intent:  &payment.Intent{ID: "pi_1", Amount: 28000, Currency: "usd", Status: payment.StatusSucceeded},
			wantErr: ErrPaymentMismatch,
		},
		{
			name:    "processor down",
			verErr:  payment.ErrProcessorUnavailable,
			wantErr: payment.ErrProcessorUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, strict, x)
			if tt.intent != nil {
				f.payments.intents["pi_1"] = tt.intent
			}
			f.payments.err = tt.verErr

			_, err := f.svc.Record(context.Background(), RecordRequest{
				UserID:          7,
				Items:           []LineInput{{ProductID: 1, Quantity: 1}},
				Total:           decimal.NewFromInt(280),
				PaymentIntentID: "pi_1",
			})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.orders.created)
			assert.Empty(t, f.events.events)
		})
	}
}

func TestRecord_ReplaySameUser(t *testing.T) {
	x := newTestProduct(1, "Pastel", "280")
	f := newFixture(t, strict, x)
	f.payments.intents["pi_1"] = succeeded("pi_1", 28000)

	req := RecordRequest{
		UserID:          7,
		Items:           []LineInput{{ProductID: 1, Quantity: 1}},
		Total:           decimal.NewFromInt(280),
		PaymentIntentID: "pi_1",
	}
	first, err := f.svc.Record(context.Background(), req)
	require.NoError(t, err)

	// Catalog price changes between the two calls; the replay must not care.
	f.products.byID[1].Price = decimal.NewFromInt(999)

	second, err := f.svc.Record(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Len(t, f.orders.created, 1)
	assert.Equal(t, 1, f.payments.calls)
}

func TestRecord_ReplayOtherUser(t *testing.T) {
	x := newTestProduct(1, "Pastel", "280")
	f := newFixture(t, strict, x)
	f.orders.byIntent["pi_1"] = &Order{ID: 3, UserID: 8, PaymentIntentID: "pi_1"}

	_, err := f.svc.Record(context.Background(), RecordRequest{
		UserID:          7,
		Items:           []LineInput{{ProductID: 1, Quantity: 1}},
		Total:           decimal.NewFromInt(280),
		PaymentIntentID: "pi_1",
	})
	require.ErrorIs(t, err, ErrIntentOwnedByOther)
}

func TestRecord_ConcurrentDuplicate(t *testing.T) {
	x := newTestProduct(1, "Pastel", "280")
	f := newFixture(t, strict, x)
	f.payments.intents["pi_1"] = succeeded("pi_1", 28000)
	f.orders.raceWith = &Order{ID: 42, UserID: 7, PaymentIntentID: "pi_1"}

	res, err := f.svc.Record(context.Background(), RecordRequest{
		UserID:          7,
		Items:           []LineInput{{ProductID: 1, Quantity: 1}},
		Total:           decimal.NewFromInt(280),
		PaymentIntentID: "pi_1",
	})
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, int64(42), res.Order.ID)
}

func TestRecord_PersistenceFailure(t *testing.T) {
	x := newTestProduct(1, "Pastel", "280")
	f := newFixture(t, strict, x)
	f.payments.intents["pi_1"] = succeeded("pi_1", 28000)
	f.orders.createErr = errors.New("db write failed")

	_, err := f.svc.Record(context.Background(), RecordRequest{
		UserID:          7,
		Items:           []LineInput{{ProductID: 1, Quantity: 1}},
		Total:           decimal.NewFromInt(280),
		PaymentIntentID: "pi_1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")

	require.Len(t, f.events.events, 1)
	e := f.events.events[0]
	assert.Equal(t, EventRecordFailed, e.Type)
	assert.Equal(t, "pi_1", e.PaymentIntentID)
	assert.Equal(t, "db write failed", e.Reason)
}

func TestRecord_PublishErrorIgnored(t *testing.T) {
	x := newTestProduct(1, "Pastel", "280")
	f := newFixture(t, Config{}, x)
	f.events.err = errors.New("broker down")

	_, err := f.svc.Record(context.Background(), RecordRequest{
		UserID: 7,
		Items:  []LineInput{{ProductID: 1, Quantity: 1}},
		Total:  decimal.NewFromInt(280),
	})
	require.NoError(t, err)
}

func TestRecord_ProductLookupError(t *testing.T) {
	f := newFixture(t, Config{})
	f.products.getErr = errors.New("db down")

	_, err := f.svc.Record(context.Background(), RecordRequest{
		UserID: 7,
		Items:  []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get products")
}

func TestHistory(t *testing.T) {
	f := newFixture(t, strict)
	f.orders.byUser[7] = []Order{{ID: 3}, {ID: 2}, {ID: 1}}

	got, err := f.svc.History(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)

	empty, err := f.svc.History(context.Background(), 8)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = f.svc.History(context.Background(), 0)
	require.ErrorIs(t, err, ErrAnonymous)
}
