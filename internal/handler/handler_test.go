package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/auth"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/order"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/user"
)

type mockAccounts struct {
	registerErr error
	loginErr    error
}

func (m *mockAccounts) Register(_ context.Context, name, email, _ string) (*auth.Session, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &auth.Session{
		Credential: auth.Credential{Token: "tok", ExpiresAt: time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)},
		User:       user.User{ID: 1, Name: name, Email: email},
	}, nil
}

func (m *mockAccounts) Login(_ context.Context, email, _ string) (*auth.Session, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &auth.Session{
		Credential: auth.Credential{Token: "tok", ExpiresAt: time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)},
		User:       user.User{ID: 1, Name: "Ana", Email: email},
	}, nil
}

type mockProducts struct {
	products []product.Product
	err      error
	category string
}

func (m *mockProducts) List(_ context.Context, category string) ([]product.Product, error) {
	m.category = category
	return m.products, m.err
}

func (m *mockProducts) GetByID(_ context.Context, id int64) (*product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProducts) GetByIDs(context.Context, []int64) ([]product.Product, error) {
	return m.products, m.err
}

type mockIntents struct {
	amount decimal.Decimal
	err    error
}

func (m *mockIntents) CreateIntent(_ context.Context, amount decimal.Decimal) (string, error) {
	m.amount = amount
	if m.err != nil {
		return "", m.err
	}
	return "pi_1_secret_2", nil
}

type mockOrders struct {
	got      order.RecordRequest
	result   *order.RecordResult
	err      error
	history  map[int64][]order.Order
	historyU int64
}

func (m *mockOrders) Record(_ context.Context, req order.RecordRequest) (*order.RecordResult, error) {
	m.got = req
	return m.result, m.err
}

func (m *mockOrders) History(_ context.Context, userID int64) ([]order.Order, error) {
	m.historyU = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.history[userID], nil
}

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	accounts *mockAccounts
	products *mockProducts
	intents  *mockIntents
	orders   *mockOrders
	issuer   *auth.Issuer
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issuer, err := auth.NewIssuer([]byte(testSecret), 0)
	require.NoError(t, err)

	f := &fixture{
		accounts: &mockAccounts{},
		products: &mockProducts{},
		intents:  &mockIntents{},
		orders:   &mockOrders{history: map[int64][]order.Order{}},
		issuer:   issuer,
	}
	h := New(Config{ImageBaseURL: "https://cdn.glazeepink.mx/"}, f.accounts, f.products, f.intents, f.orders, issuer)
	r := chi.NewRouter()
	h.Mount(r)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) token(t *testing.T, userID int64) string {
	t.Helper()
	c, err := f.issuer.Issue(userID, "Ana")
	require.NoError(t, err)
	return c.Token
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "OK",
			body:       `{"name":"Ana","email":"ana@example.mx","password":"secret1"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"token":"tok","expiresAt":"2026-10-23T00:00:00Z","user":{"id":1,"name":"Ana","email":"ana@example.mx"}}`,
		},
		{
			name:       "Duplicate",
			err:        user.ErrEmailTaken,
			body:       `{"name":"Ana","email":"ana@example.mx","password":"secret1"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"email already registered"}`,
		},
		{
			name:       "Validation",
			err:        &auth.ValidationError{Field: "password", Reason: "must be at least 6 characters"},
			body:       `{"name":"Ana","email":"ana@example.mx","password":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":400,"message":"password must be at least 6 characters"}`,
		},
		{
			name:       "Malformed",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Internal",
			err:        errors.New("db down"),
			body:       `{"name":"Ana","email":"ana@example.mx","password":"secret1"}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":500,"message":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.accounts.registerErr = tt.err

			w := f.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.accounts.loginErr = auth.ErrInvalidCredentials

	w := f.do(t, http.MethodPost, "/api/auth/login", `{"email":"a@b.mx","password":"nope12"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":400,"message":"invalid credentials"}`, w.Body.String())
}

func TestProducts(t *testing.T) {
	servings := 8
	f := newFixture(t)
	f.products.products = []product.Product{
		{
			ID: 1, Name: "Pastel de fresa", Price: decimal.NewFromInt(280),
			Images: []string{"/img/fresa.jpg", "https://other.example/x.jpg"}, Category: "pasteles",
			Flavors: []string{"fresa"}, Rating: 4.5, Reviews: 12, Servings: &servings,
		},
	}

	t.Run("List", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/products?category=pasteles", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pasteles", f.products.category)
		assert.Contains(t, w.Body.String(), `"https://cdn.glazeepink.mx/img/fresa.jpg"`)
		assert.Contains(t, w.Body.String(), `"https://other.example/x.jpg"`)
		assert.Contains(t, w.Body.String(), `"servings":8`)
		assert.NotContains(t, w.Body.String(), "ingredients")
	})
	t.Run("Get", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/products/1", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"Pastel de fresa"`)
	})
	t.Run("NotFound", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/products/99", "", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("BadID", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/products/abc", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreatePaymentIntent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "OK", body: `{"amount":560}`, wantStatus: http.StatusOK},
		{name: "InvalidAmount", body: `{"amount":0}`, err: payment.ErrInvalidAmount, wantStatus: http.StatusBadRequest},
		{name: "MissingAmount", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "ProcessorDown", body: `{"amount":10}`, err: payment.ErrProcessorUnavailable, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.intents.err = tt.err

			w := f.do(t, http.MethodPost, "/create-payment-intent", tt.body, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"clientSecret":"pi_1_secret_2"}`, w.Body.String())
				assert.True(t, decimal.NewFromInt(560).Equal(f.intents.amount))
			}
		})
	}
}

func TestOrders_AuthGating(t *testing.T) {
	other, err := auth.NewIssuer([]byte("ffffffffffffffffffffffffffffffff"), 0)
	require.NoError(t, err)
	forged, err := other.Issue(1, "Mallory")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "NoHeader", header: "", wantStatus: http.StatusUnauthorized},
		{name: "EmptyBearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "SchemeOnly", header: "Bearer", wantStatus: http.StatusUnauthorized},
		{name: "NoScheme", header: "abc", wantStatus: http.StatusUnauthorized},
		{name: "WrongScheme", header: "Basic abc", wantStatus: http.StatusForbidden},
		{name: "LowercaseScheme", header: "bearer not-a-jwt", wantStatus: http.StatusForbidden},
		{name: "Garbage", header: "Bearer not-a-jwt", wantStatus: http.StatusForbidden},
		{name: "WrongSecret", header: "Bearer " + forged.Token, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for _, method := range []string{http.MethodGet, http.MethodPost} {
				req := httptest.NewRequest(method, "/api/orders", strings.NewReader(`{}`))
				if tt.header != "" {
					req.Header.Set("Authorization", tt.header)
				}
				w := httptest.NewRecorder()
				f.router.ServeHTTP(w, req)
				assert.Equal(t, tt.wantStatus, w.Code, method)
			}
		})
	}
}

func TestRecordOrder(t *testing.T) {
	f := newFixture(t)
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	f.orders.result = &order.RecordResult{Order: &order.Order{
		ID: 10, UserID: 7, Total: decimal.NewFromInt(560), Status: order.StatusPaid,
		PaymentIntentID: "pi_1", CreatedAt: created,
		Lines: []order.Line{{ID: 100, ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(280), ProductName: "X", ProductImage: "/x.jpg"}},
	}}

	body := `{"items":[{"productId":1,"quantity":2,"price":280}],"total":560,"paymentIntentId":"pi_1"}`
	w := f.do(t, http.MethodPost, "/api/orders", body, f.token(t, 7))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(ReplayedHeader))
	assert.Equal(t, int64(7), f.orders.got.UserID)
	assert.Equal(t, "pi_1", f.orders.got.PaymentIntentID)
	require.Len(t, f.orders.got.Items, 1)
	assert.Equal(t, 2, f.orders.got.Items[0].Quantity)
	assert.JSONEq(t, `{
		"id":10,"userId":7,"total":560.00,"status":"pagado","paymentIntentId":"pi_1",
		"createdAt":"2026-10-01T12:00:00Z",
		"items":[{"id":100,"orderId":10,"productId":1,"quantity":2,"price":280.00,
			"product":{"id":1,"name":"X","image":"/x.jpg"}}]
	}`, w.Body.String())

	f.orders.result.Replayed = true
	w = f.do(t, http.MethodPost, "/api/orders", body, f.token(t, 7))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(ReplayedHeader))
}

func TestRecordOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "EmptyItems", err: order.ErrEmptyItems, wantStatus: http.StatusBadRequest},
		{name: "IntentRequired", err: order.ErrIntentRequired, wantStatus: http.StatusBadRequest},
		{name: "InvalidQuantity", err: &order.InvalidQuantityError{ProductID: 1}, wantStatus: http.StatusUnprocessableEntity},
		{name: "ProductNotFound", err: &order.ProductNotFoundError{ProductID: 9}, wantStatus: http.StatusUnprocessableEntity},
		{name: "TotalMismatch", err: &order.TotalMismatchError{Claimed: decimal.NewFromInt(1), Computed: decimal.NewFromInt(2)}, wantStatus: http.StatusUnprocessableEntity},
		{name: "PaymentMismatch", err: errors.Wrap(order.ErrPaymentMismatch, "amount"), wantStatus: http.StatusUnprocessableEntity},
		{name: "NotSucceeded", err: errors.Wrap(order.ErrPaymentNotSucceeded, "status processing"), wantStatus: http.StatusPaymentRequired},
		{name: "OwnedByOther", err: order.ErrIntentOwnedByOther, wantStatus: http.StatusConflict},
		{name: "ProcessorDown", err: payment.ErrProcessorUnavailable, wantStatus: http.StatusBadGateway},
		{name: "Persistence", err: errors.New("tx aborted"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.orders.err = tt.err

			w := f.do(t, http.MethodPost, "/api/orders", `{"items":[],"total":0}`, f.token(t, 7))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), `"code":`)
		})
	}
}

func TestListOrders_ScopedToCaller(t *testing.T) {
	f := newFixture(t)
	f.orders.history[7] = []order.Order{{ID: 2, UserID: 7}, {ID: 1, UserID: 7}}
	f.orders.history[8] = []order.Order{{ID: 3, UserID: 8}}

	w := f.do(t, http.MethodGet, "/api/orders", "", f.token(t, 7))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), f.orders.historyU)
	assert.Contains(t, w.Body.String(), `"id":2`)
	assert.NotContains(t, w.Body.String(), `"id":3`)

	w = f.do(t, http.MethodGet, "/api/orders", "", f.token(t, 9))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestNotFoundRoute(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"message":"not found"}`, w.Body.String())
}
