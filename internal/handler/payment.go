package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
	"github.com/mariotejeda2001/Glazeepink/pkg/api"
)

// CreatePaymentIntent handles POST /create-payment-intent.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req api.PaymentIntentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	secret, err := h.intents.CreateIntent(r.Context(), req.Amount)
	switch {
	case errors.Is(err, payment.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, payment.ErrInvalidAmount.Error())
		return
	case err != nil:
		// The broker has already logged the processor error.
		writeError(w, http.StatusBadGateway, payment.ErrProcessorUnavailable.Error())
		return
	}
	writeJSON(w, http.StatusOK, &api.PaymentIntentResponse{ClientSecret: secret})
}
