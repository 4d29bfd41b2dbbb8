// Package stripe adapts the Stripe API to the payment processor ports used by
// the server and by the storefront client.
package stripe

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	stripeapi "github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
)

// Config configures access to the Stripe API.
type Config struct {
	// Key is the secret key on the server and the publishable key on the client.
	Key     string
	Timeout time.Duration
	// URL overrides the API endpoint. Used by tests.
	URL string
}

func newAPI(cfg Config) *stripeclient.API {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backendCfg := &stripeapi.BackendConfig{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		// Retries would break the one-shot contract of intent creation.
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelNull},
	}
	if cfg.URL != "" {
		backendCfg.URL = stripeapi.String(cfg.URL)
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg)
	return stripeclient.New(cfg.Key, &stripeapi.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
}

var _ payment.Processor = (*Processor)(nil)

// Processor is the server-side payment.Processor backed by Stripe.
type Processor struct {
	api *stripeclient.API
}

// NewProcessor creates a Processor authenticated with a secret key.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Key == "" {
		return nil, errors.New("stripe secret key is required")
	}
	return &Processor{api: newAPI(cfg)}, nil
}

// CreateIntent creates a PaymentIntent.
func (p *Processor) CreateIntent(ctx context.Context, params payment.CreateParams) (*payment.Intent, error) {
	sp := &stripeapi.PaymentIntentParams{
		Amount:             stripeapi.Int64(params.Amount),
		Currency:           stripeapi.String(params.Currency),
		PaymentMethodTypes: stripeapi.StringSlice(params.PaymentMethodTypes),
	}
	sp.Context = ctx
	if params.IdempotencyKey != "" {
		sp.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(sp)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}
	return toIntent(pi), nil
}

// GetIntent retrieves a PaymentIntent by id.
func (p *Processor) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	sp := &stripeapi.PaymentIntentParams{}
	sp.Context = ctx

	pi, err := p.api.PaymentIntents.Get(id, sp)
	if err != nil {
		if isNotFound(err) {
			return nil, payment.ErrIntentNotFound
		}
		return nil, errors.Wrap(err, "get payment intent")
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripeapi.PaymentIntent) *payment.Intent {
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       payment.Status(pi.Status),
	}
}

func isNotFound(err error) bool {
	var se *stripeapi.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.HTTPStatusCode == http.StatusNotFound || se.Code == stripeapi.ErrorCodeResourceMissing
}
