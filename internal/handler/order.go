package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/auth"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/order"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
	"github.com/mariotejeda2001/Glazeepink/pkg/api"
)

// ReplayedHeader is set on responses that return an order recorded by an
// earlier call with the same payment intent.
const ReplayedHeader = "Idempotent-Replayed"

// RecordOrder handles POST /api/orders.
func (h *Handler) RecordOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req api.OrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]order.LineInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.LineInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	res, err := h.orders.Record(r.Context(), order.RecordRequest{
		UserID:          id.UserID,
		Items:           items,
		Total:           req.Total,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		status, msg := mapOrderError(err)
		if status == http.StatusInternalServerError {
			zctx.From(r.Context()).Error("Record order failed",
				zap.Int64("user_id", id.UserID),
				zap.String("payment_intent_id", req.PaymentIntentID),
				zap.Error(err),
			)
		}
		writeError(w, status, msg)
		return
	}

	if res.Replayed {
		w.Header().Set(ReplayedHeader, "true")
	}
	writeJSON(w, http.StatusOK, toAPIOrder(res.Order))
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	orders, err := h.orders.History(r.Context(), id.UserID)
	if err != nil {
		internalError(r.Context(), w, "Order history failed", err)
		return
	}
	out := make(api.Orders, len(orders))
	for i := range orders {
		out[i] = *toAPIOrder(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// mapOrderError converts domain errors to a status and a client message.
func mapOrderError(err error) (int, string) {
	var (
		iqErr  *order.InvalidQuantityError
		pnfErr *order.ProductNotFoundError
		tmErr  *order.TotalMismatchError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrIntentRequired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, order.ErrAnonymous):
		return http.StatusUnauthorized, auth.ErrCredentialMissing.Error()
	case errors.As(err, &iqErr):
		return http.StatusUnprocessableEntity, iqErr.Error()
	case errors.As(err, &pnfErr):
		return http.StatusUnprocessableEntity, pnfErr.Error()
	case errors.As(err, &tmErr):
		return http.StatusUnprocessableEntity, tmErr.Error()
	case errors.Is(err, order.ErrPaymentMismatch):
		return http.StatusUnprocessableEntity, order.ErrPaymentMismatch.Error()
	case errors.Is(err, order.ErrPaymentNotSucceeded),
		errors.Is(err, payment.ErrIntentNotFound):
		return http.StatusPaymentRequired, order.ErrPaymentNotSucceeded.Error()
	case errors.Is(err, order.ErrIntentOwnedByOther):
		return http.StatusConflict, order.ErrIntentOwnedByOther.Error()
	case errors.Is(err, payment.ErrProcessorUnavailable):
		return http.StatusBadGateway, payment.ErrProcessorUnavailable.Error()
	default:
		return http.StatusInternalServerError, "failed to save order"
	}
}

func toAPIOrder(o *order.Order) *api.Order {
	items := make([]api.OrderItem, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = api.OrderItem{
			ID:        l.ID,
			OrderID:   o.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
			Product: api.OrderProduct{
				ID:    l.ProductID,
				Name:  l.ProductName,
				Image: l.ProductImage,
			},
		}
	}
	return &api.Order{
		ID:              o.ID,
		UserID:          o.UserID,
		Total:           o.Total,
		Status:          string(o.Status),
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       o.CreatedAt,
		Items:           items,
	}
}
