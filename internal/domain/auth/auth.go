// Package auth is the identity gate of the storefront: it issues and validates
// bearer credentials and handles registration and login.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrCredentialMissing is returned when a request carries no bearer credential.
	ErrCredentialMissing = errors.New("credential missing")
	// ErrCredentialInvalid is returned for tampered, malformed or expired credentials.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Identity is the authenticated caller resolved from a valid credential.
type Identity struct {
	UserID int64
	Name   string
}

// Credential is a signed bearer token and the moment it stops being accepted.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
