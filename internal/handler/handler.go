// Package handler exposes the storefront over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/auth"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/order"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
	"github.com/mariotejeda2001/Glazeepink/pkg/api"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Accounts registers and logs in users.
type Accounts interface {
	Register(ctx context.Context, name, email, password string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}

// IntentCreator creates payment intents.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal) (clientSecret string, err error)
}

// Orders records and lists orders.
type Orders interface {
	Record(ctx context.Context, req order.RecordRequest) (*order.RecordResult, error)
	History(ctx context.Context, userID int64) ([]order.Order, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	ImageBaseURL string
}

// Handler serves the storefront API.
type Handler struct {
	accounts     Accounts
	products     product.Repository
	intents      IntentCreator
	orders       Orders
	credentials  CredentialValidator
	imageBaseURL string
}

// New creates a Handler.
func New(
	cfg Config,
	accounts Accounts,
	products product.Repository,
	intents IntentCreator,
	orders Orders,
	credentials CredentialValidator,
) *Handler {
	return &Handler{
		accounts:     accounts,
		products:     products,
		intents:      intents,
		orders:       orders,
		credentials:  credentials,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
	}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)

	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)

	r.Post("/create-payment-intent", h.CreatePaymentIntent)

	r.Group(func(r chi.Router) {
		r.Use(Bearer(h.credentials))
		r.Post("/api/orders", h.RecordOrder)
		r.Get("/api/orders", h.ListOrders)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func decode(r *http.Request, v api.Decoder) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(data) > maxBodyBytes {
		return errors.New("request body too large")
	}
	if len(data) == 0 {
		return errors.New("request body required")
	}
	return api.Unmarshal(data, v)
}

func writeJSON(w http.ResponseWriter, status int, v api.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(api.Marshal(v))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &api.Error{Code: status, Message: msg})
}

// internalError logs err and writes a generic 500.
func internalError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	zctx.From(ctx).Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
