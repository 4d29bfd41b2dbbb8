package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Product is a catalog item.
type Product struct {
	ID              int64
	Name            string
	Description     string
	LongDescription *string
	Price           decimal.Decimal
	Images          []string
	Category        string
	Flavors         []string
	Rating          float64
	Reviews         int
	Servings        *int
	Ingredients     *string
}

// Encode implements Encoder. Absent optional fields are omitted.
func (s *Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(s.ID)
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("description")
	e.Str(s.Description)
	if s.LongDescription != nil {
		e.FieldStart("longDescription")
		e.Str(*s.LongDescription)
	}
	e.FieldStart("price")
	encodeMoney(e, s.Price)
	e.FieldStart("images")
	encodeStrings(e, s.Images)
	e.FieldStart("category")
	e.Str(s.Category)
	e.FieldStart("flavors")
	encodeStrings(e, s.Flavors)
	e.FieldStart("rating")
	e.Float64(s.Rating)
	e.FieldStart("reviews")
	e.Int(s.Reviews)
	if s.Servings != nil {
		e.FieldStart("servings")
		e.Int(*s.Servings)
	}
	if s.Ingredients != nil {
		e.FieldStart("ingredients")
		e.Str(*s.Ingredients)
	}
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *Product) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = decodeInt64(d)
		case "name":
			s.Name, err = d.Str()
		case "description":
			s.Description, err = d.Str()
		case "longDescription":
			s.LongDescription, err = decodeOptString(d)
		case "price":
			s.Price, err = decodeMoney(d)
		case "images":
			s.Images, err = decodeStrings(d)
		case "category":
			s.Category, err = d.Str()
		case "flavors":
			s.Flavors, err = decodeStrings(d)
		case "rating":
			s.Rating, err = d.Float64()
		case "reviews":
			s.Reviews, err = d.Int()
		case "servings":
			if d.Next() == jx.Null {
				err = d.Null()
				break
			}
			var v int
			v, err = d.Int()
			s.Servings = &v
		case "ingredients":
			s.Ingredients, err = decodeOptString(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// Products is a list of catalog items.
type Products []Product

// Encode implements Encoder.
func (s Products) Encode(e *jx.Encoder) {
	e.ArrStart()
	for i := range s {
		s[i].Encode(e)
	}
	e.ArrEnd()
}

// Decode implements Decoder.
func (s *Products) Decode(d *jx.Decoder) error {
	out := Products{}
	err := d.Arr(func(d *jx.Decoder) error {
		var p Product
		if err := p.Decode(d); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	*s = out
	return err
}
