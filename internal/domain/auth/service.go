package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/user"
)

const (
	// MinPasswordLen is the shortest password Register accepts.
	MinPasswordLen = 6
	// MaxPasswordLen is the longest password bcrypt can hash.
	MaxPasswordLen = 72
)

// ValidationError reports a missing or malformed registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Session is the result of a successful register or login.
type Session struct {
	Credential Credential
	User       user.User
}

// Service registers users and logs them in.
type Service struct {
	users  user.Repository
	issuer *Issuer
	cost   int

	// dummyHash is compared against on unknown emails so that both login
	// failure modes cost one bcrypt comparison.
	dummyHash []byte
}

// NewService creates an auth Service. cost is the bcrypt cost; values outside
// bcrypt's range fall back to bcrypt.DefaultCost.
func NewService(users user.Repository, issuer *Issuer, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("glazeepink-dummy-password"), cost)
	return &Service{
		users:     users,
		issuer:    issuer,
		cost:      cost,
		dummyHash: dummy,
	}
}

// Register validates the input, stores a new user with a bcrypt password hash
// and issues a credential for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	if email == "" {
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, &ValidationError{Field: "email", Reason: "is malformed"}
	}
	if len(password) < MinPasswordLen {
		return nil, &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLen)}
	}
	if len(password) > MaxPasswordLen {
		return nil, &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", MaxPasswordLen)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, user.ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}

	return s.session(u)
}

// Login checks the password and issues a credential. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "find user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.session(u)
}

func (s *Service) session(u *user.User) (*Session, error) {
	cred, err := s.issuer.Issue(u.ID, u.Name)
	if err != nil {
		return nil, err
	}
	return &Session{Credential: cred, User: *u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
