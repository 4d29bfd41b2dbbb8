package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/auth"
)

// CredentialValidator resolves a bearer token to an identity.
type CredentialValidator interface {
	Validate(token string) (auth.Identity, error)
}

// Bearer rejects requests without a valid bearer credential: 401 when it is
// absent, 403 when it is present but invalid or expired. The identity is
// stored in the request context.
func Bearer(v CredentialValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id auth.Identity
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err == nil {
				id, err = v.Validate(token)
			}
			switch {
			case errors.Is(err, auth.ErrCredentialMissing):
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			case err != nil:
				writeError(w, http.StatusForbidden, auth.ErrCredentialInvalid.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken returns auth.ErrCredentialMissing when the header carries no
// credential and auth.ErrCredentialInvalid for any scheme other than Bearer.
func bearerToken(header string) (string, error) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if token == "" {
		return "", auth.ErrCredentialMissing
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", auth.ErrCredentialInvalid
	}
	return token, nil
}
