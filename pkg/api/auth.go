package api

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Encode implements Encoder.
func (s *RegisterRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("email")
	e.Str(s.Email)
	e.FieldStart("password")
	e.Str(s.Password)
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *RegisterRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			s.Name, err = d.Str()
		case "email":
			s.Email, err = d.Str()
		case "password":
			s.Password, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string
	Password string
}

// Encode implements Encoder.
func (s *LoginRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("email")
	e.Str(s.Email)
	e.FieldStart("password")
	e.Str(s.Password)
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *LoginRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			s.Email, err = d.Str()
		case "password":
			s.Password, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// User is the public view of a registered user.
type User struct {
	ID    int64
	Name  string
	Email string
}

// Encode implements Encoder.
func (s *User) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(s.ID)
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("email")
	e.Str(s.Email)
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *User) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = decodeInt64(d)
		case "name":
			s.Name, err = d.Str()
		case "email":
			s.Email, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Encode implements Encoder.
func (s *AuthResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("token")
	e.Str(s.Token)
	e.FieldStart("expiresAt")
	encodeTime(e, s.ExpiresAt)
	e.FieldStart("user")
	s.User.Encode(e)
	e.ObjEnd()
}

// Decode implements Decoder.
func (s *AuthResponse) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "token":
			s.Token, err = d.Str()
		case "expiresAt":
			s.ExpiresAt, err = decodeTime(d)
		case "user":
			err = s.User.Decode(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}
