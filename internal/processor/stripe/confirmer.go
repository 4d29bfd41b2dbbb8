package stripe

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	stripeapi "github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
	"github.com/mariotejeda2001/Glazeepink/pkg/checkout"
)

var _ checkout.Confirmer = (*Confirmer)(nil)

// Confirmer confirms intents on behalf of the customer using a publishable
// key and the intent's client secret.
type Confirmer struct {
	api       *stripeclient.API
	returnURL string
}

// NewConfirmer creates a Confirmer. returnURL is where the processor sends the
// customer after an authentication challenge.
func NewConfirmer(cfg Config, returnURL string) (*Confirmer, error) {
	if cfg.Key == "" {
		return nil, errors.New("stripe publishable key is required")
	}
	if strings.HasPrefix(cfg.Key, "sk_") {
		return nil, errors.New("refusing to use a secret key on the client")
	}
	return &Confirmer{api: newAPI(cfg), returnURL: returnURL}, nil
}

// Confirm confirms the intent identified by clientSecret with paymentMethod.
// A declined card is reported as *checkout.PaymentError.
func (c *Confirmer) Confirm(ctx context.Context, clientSecret, paymentMethod string) (*checkout.Confirmation, error) {
	id, err := intentID(clientSecret)
	if err != nil {
		return nil, err
	}
	params := &stripeapi.PaymentIntentConfirmParams{
		PaymentMethod: stripeapi.String(paymentMethod),
	}
	if c.returnURL != "" {
		params.ReturnURL = stripeapi.String(c.returnURL)
	}
	params.Context = ctx
	params.AddExtra("client_secret", clientSecret)

	pi, err := c.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return nil, paymentError(err)
	}
	return toConfirmation(pi), nil
}

// Retrieve returns the current state of the intent.
func (c *Confirmer) Retrieve(ctx context.Context, clientSecret string) (*checkout.Confirmation, error) {
	id, err := intentID(clientSecret)
	if err != nil {
		return nil, err
	}
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx
	params.AddExtra("client_secret", clientSecret)

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, paymentError(err)
	}
	return toConfirmation(pi), nil
}

func intentID(clientSecret string) (string, error) {
	id, ok := payment.IntentIDFromSecret(clientSecret)
	if !ok {
		return "", errors.New("malformed client secret")
	}
	return id, nil
}

func paymentError(err error) error {
	var se *stripeapi.Error
	if errors.As(err, &se) && (se.Type == stripeapi.ErrorTypeCard || se.HTTPStatusCode == http.StatusPaymentRequired) {
		return &checkout.PaymentError{Code: string(se.Code), Message: se.Msg}
	}
	return errors.Wrap(err, "stripe")
}

func toConfirmation(pi *stripeapi.PaymentIntent) *checkout.Confirmation {
	c := &checkout.Confirmation{
		IntentID: pi.ID,
		Status:   string(pi.Status),
	}
	if na := pi.NextAction; na != nil && na.RedirectToURL != nil {
		c.RedirectURL = na.RedirectToURL.URL
	}
	if pe := pi.LastPaymentError; pe != nil {
		c.Message = pe.Msg
	}
	return c
}
