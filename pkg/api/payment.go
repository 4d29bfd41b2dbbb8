package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// PaymentIntentRequest is the body of POST /create-payment-intent.
type PaymentIntentRequest struct {
	Amount decimal.Decimal
}

// Encode implements Encoder.
func (s *PaymentIntentRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("amount")
	encodeMoney(e, s.Amount)
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *PaymentIntentRequest) Decode(d *jx.Decoder) error {
	seen := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "amount":
			seen = true
			s.Amount, err = decodeMoney(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return err
	}
	if !seen {
		return errors.New("amount: required")
	}
	return nil
}

// PaymentIntentResponse carries the only intent value exposed to the client.
type PaymentIntentResponse struct {
	ClientSecret string
}

// Encode implements Encoder.
func (s *PaymentIntentResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("clientSecret")
	e.Str(s.ClientSecret)
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *PaymentIntentResponse) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "clientSecret":
			s.ClientSecret, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}
