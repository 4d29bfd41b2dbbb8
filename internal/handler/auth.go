package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/auth"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/user"
	"github.com/mariotejeda2001/Glazeepink/pkg/api"
)

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		var ve *auth.ValidationError
		switch {
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Error())
		case errors.Is(err, user.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, user.ErrEmailTaken.Error())
		default:
			internalError(r.Context(), w, "Register failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(s))
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, auth.ErrInvalidCredentials.Error())
			return
		}
		internalError(r.Context(), w, "Login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(s))
}

func toAuthResponse(s *auth.Session) *api.AuthResponse {
	return &api.AuthResponse{
		Token:     s.Credential.Token,
		ExpiresAt: s.Credential.ExpiresAt,
		User: api.User{
			ID:    s.User.ID,
			Name:  s.User.Name,
			Email: s.User.Email,
		},
	}
}
