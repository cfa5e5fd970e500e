package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/farmlane/storefront/internal/commerce/checkout"
	"github.com/farmlane/storefront/internal/commerce/order"
)

// submitCheckout validates the recipient form and materializes an order from
// the current cart. The cart is NOT cleared here; the client clears it with
// DELETE /cart once the user has seen the order confirmation.
func (h *Handler) submitCheckout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if fieldErrors := h.validator.Validate(form); len(fieldErrors) > 0 {
		writeFieldErrors(w, fieldErrors)
		return
	}

	o, err := h.orders.Checkout(r.Context(), h.cart.Lines(), order.Recipient{
		Name:    form.Name,
		Address: form.Address,
		Phone:   form.Phone,
		Notes:   form.Notes,
	})
	if err != nil {
		h.mapOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var orders []order.Order
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		orders = h.orders.ListByStatus(status)
	} else {
		orders = h.orders.List()
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, o := range orders {
						encodeOrder(e, o)
					}
				})
			})
		})
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(chi.URLParam(r, "orderID"))
	if err != nil {
		h.mapOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(id string) (order.Order, error) {
		return h.orders.Pay(r.Context(), id)
	})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(id string) (order.Order, error) {
		return h.orders.Cancel(r.Context(), id)
	})
}

func (h *Handler) shipOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackingRef string `json:"tracking_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	h.applyTransition(w, r, func(id string) (order.Order, error) {
		return h.orders.MarkShipped(r.Context(), id, req.TrackingRef)
	})
}

func (h *Handler) markDelivered(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(id string) (order.Order, error) {
		return h.orders.MarkDelivered(r.Context(), id)
	})
}

func (h *Handler) confirmReceipt(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(id string) (order.Order, error) {
		return h.orders.ConfirmReceipt(r.Context(), id)
	})
}

func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating     int    `json:"rating"`
		ReviewText string `json:"review_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	h.applyTransition(w, r, func(id string) (order.Order, error) {
		return h.orders.SubmitReview(r.Context(), id, req.Rating, req.ReviewText)
	})
}

func (h *Handler) requestReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	h.applyTransition(w, r, func(id string) (order.Order, error) {
		return h.orders.RequestReturn(r.Context(), id, req.Reason)
	})
}

func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request, op func(id string) (order.Order, error)) {
	o, err := op(chi.URLParam(r, "orderID"))
	if err != nil {
		h.mapOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// mapOrderError converts engine errors to HTTP responses. Invalid transitions
// are 409: the request was well-formed but the order is not in a state that
// permits it.
func (h *Handler) mapOrderError(w http.ResponseWriter, err error) {
	var itErr *order.InvalidTransitionError
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &itErr):
		writeError(w, http.StatusConflict, itErr.Error())
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidRating),
		errors.Is(err, order.ErrTrackingRefMissing),
		errors.Is(err, order.ErrReasonMissing):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "order operation failed")
	}
}
