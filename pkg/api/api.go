// Package api defines the JSON wire types of the storefront HTTP API with
// hand-written jx codecs shared by the server and the client.
package api

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encoder is implemented by every response type.
type Encoder interface {
	Encode(e *jx.Encoder)
}

// Decoder is implemented by every request type.
type Decoder interface {
	Decode(d *jx.Decoder) error
}

// Marshal encodes v to JSON.
func Marshal(v Encoder) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	v.Encode(e)
	return append([]byte(nil), e.Bytes()...)
}

// Unmarshal decodes JSON data into v.
func Unmarshal(data []byte, v Decoder) error {
	return v.Decode(jx.DecodeBytes(data))
}

// Error is the body of every non-2xx response.
type Error struct {
	Code    int
	Message string
}

// Encode implements Encoder.
func (s *Error) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(s.Code)
	e.FieldStart("message")
	e.Str(s.Message)
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *Error) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			s.Code, err = d.Int()
		case "message":
			s.Message, err = d.Str()
		case "error":
			// Accepted for compatibility with {"error": "..."} bodies.
			if s.Message == "" {
				s.Message, err = d.Str()
			} else {
				err = d.Skip()
			}
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// encodeMoney writes a decimal amount as a JSON number with two decimals.
func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

// decodeMoney reads a decimal amount given as a JSON number or string.
func decodeMoney(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, errors.Errorf("amount: unexpected %s", d.Next())
	}
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

func encodeStrings(e *jx.Encoder, v []string) {
	e.ArrStart()
	for _, s := range v {
		e.Str(s)
	}
	e.ArrEnd()
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// decodeOptString decodes a string that may be null.
func decodeOptString(d *jx.Decoder) (*string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// decodeInt64 accepts an integer given as a JSON number or a numeric string.
func decodeInt64(d *jx.Decoder) (int64, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil || !v.IsInteger() {
			return 0, errors.Errorf("invalid integer %q", s)
		}
		return v.IntPart(), nil
	}
	return d.Int64()
}
