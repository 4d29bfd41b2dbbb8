package auth

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the shortest signing secret NewIssuer accepts.
const MinSecretLen = 32

// DefaultTTL is the lifetime of an issued credential.
const DefaultTTL = 7 * 24 * time.Hour

// claims is the JWT payload. The subject holds the decimal user ID.
type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Issuer signs and validates HS256 bearer credentials.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. There is no fallback secret: an empty or short
// secret is a configuration error.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) < MinSecretLen {
		return nil, errors.Errorf("credential secret must be at least %d bytes", MinSecretLen)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs a credential for the given user.
func (i *Issuer) Issue(userID int64, name string) (Credential, error) {
	now := i.now()
	exp := now.Add(i.ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return Credential{}, errors.Wrap(err, "sign credential")
	}
	return Credential{Token: signed, ExpiresAt: exp}, nil
}

// Validate resolves a credential to exactly one identity. Every failure,
// including expiry, is reported as ErrCredentialInvalid.
func (i *Issuer) Validate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrCredentialMissing
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, errors.Wrap(ErrCredentialInvalid, err.Error())
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrCredentialInvalid
	}
	return Identity{UserID: userID, Name: c.Name}, nil
}
