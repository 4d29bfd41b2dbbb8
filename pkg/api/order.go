package api

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// OrderItemRequest is one selected cart line.
type OrderItemRequest struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// Encode implements Encoder.
func (s *OrderItemRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Int64(s.ProductID)
	e.FieldStart("quantity")
	e.Int(s.Quantity)
	e.FieldStart("price")
	encodeMoney(e, s.Price)
	e.ObjEnd()
}

// Decode implements Decoder. "id" is accepted as an alias of "productId".
func (s *OrderItemRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId", "id":
			s.ProductID, err = decodeInt64(d)
		case "quantity":
			s.Quantity, err = d.Int()
		case "price":
			s.Price, err = decodeMoney(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// OrderRequest is the body of POST /api/orders.
type OrderRequest struct {
	Items           []OrderItemRequest
	Total           decimal.Decimal
	PaymentIntentID string
}

// Encode implements Encoder.
func (s *OrderRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for i := range s.Items {
		s.Items[i].Encode(e)
	}
	e.ArrEnd()
	e.FieldStart("total")
	encodeMoney(e, s.Total)
	if s.PaymentIntentID != "" {
		e.FieldStart("paymentIntentId")
		e.Str(s.PaymentIntentID)
	}
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *OrderRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			s.Items = s.Items[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				var item OrderItemRequest
				if err := item.Decode(d); err != nil {
					return err
				}
				s.Items = append(s.Items, item)
				return nil
			})
		case "total":
			s.Total, err = decodeMoney(d)
		case "paymentIntentId":
			var v *string
			v, err = decodeOptString(d)
			if v != nil {
				s.PaymentIntentID = *v
			}
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// OrderProduct holds the live catalog display fields of an order line.
type OrderProduct struct {
	ID    int64
	Name  string
	Image string
}

// OrderItem is a recorded order line.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Product   OrderProduct
}

// Encode implements Encoder.
func (s *OrderItem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(s.ID)
	e.FieldStart("orderId")
	e.Int64(s.OrderID)
	e.FieldStart("productId")
	e.Int64(s.ProductID)
	e.FieldStart("quantity")
	e.Int(s.Quantity)
	e.FieldStart("price")
	encodeMoney(e, s.Price)
	e.FieldStart("product")
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(s.Product.ID)
	e.FieldStart("name")
	e.Str(s.Product.Name)
	e.FieldStart("image")
	e.Str(s.Product.Image)
	e.ObjEnd()
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *OrderItem) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = decodeInt64(d)
		case "orderId":
			s.OrderID, err = decodeInt64(d)
		case "productId":
			s.ProductID, err = decodeInt64(d)
		case "quantity":
			s.Quantity, err = d.Int()
		case "price":
			s.Price, err = decodeMoney(d)
		case "product":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "id":
					s.Product.ID, err = decodeInt64(d)
				case "name":
					s.Product.Name, err = d.Str()
				case "image":
					s.Product.Image, err = d.Str()
				default:
					err = d.Skip()
				}
				return errors.Wrap(err, key)
			})
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// Order is a recorded order with its lines.
type Order struct {
	ID              int64
	UserID          int64
	Total           decimal.Decimal
	Status          string
	PaymentIntentID string
	CreatedAt       time.Time
	Items           []OrderItem
}

// Encode implements Encoder.
func (s *Order) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(s.ID)
	e.FieldStart("userId")
	e.Int64(s.UserID)
	e.FieldStart("total")
	encodeMoney(e, s.Total)
	e.FieldStart("status")
	e.Str(s.Status)
	if s.PaymentIntentID != "" {
		e.FieldStart("paymentIntentId")
		e.Str(s.PaymentIntentID)
	}
	e.FieldStart("createdAt")
	encodeTime(e, s.CreatedAt)
	e.FieldStart("items")
	e.ArrStart()
	for i := range s.Items {
		s.Items[i].Encode(e)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *Order) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = decodeInt64(d)
		case "userId":
			s.UserID, err = decodeInt64(d)
		case "total":
			s.Total, err = decodeMoney(d)
		case "status":
			s.Status, err = d.Str()
		case "paymentIntentId":
			var v *string
			v, err = decodeOptString(d)
			if v != nil {
				s.PaymentIntentID = *v
			}
		case "createdAt":
			s.CreatedAt, err = decodeTime(d)
		case "items":
			s.Items = []OrderItem{}
			err = d.Arr(func(d *jx.Decoder) error {
				var item OrderItem
				if err := item.Decode(d); err != nil {
					return err
				}
				s.Items = append(s.Items, item)
				return nil
			})
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// Orders is an order history, newest first.
type Orders []Order

// Encode implements Encoder.
func (s Orders) Encode(e *jx.Encoder) {
	e.ArrStart()
	for i := range s {
		s[i].Encode(e)
	}
	e.ArrEnd()
}

// Decode implements Decoder.
func (s *Orders) Decode(d *jx.Decoder) error {
	out := Orders{}
	err := d.Arr(func(d *jx.Decoder) error {
		var o Order
		if err := o.Decode(d); err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	*s = out
	return err
}
