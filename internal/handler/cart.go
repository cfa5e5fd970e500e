package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/farmlane/storefront/internal/commerce/cart"
)

type addItemRequest struct {
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	ImageRef   string          `json:"image_ref"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Unit       string          `json:"unit"`
	SellerID   string          `json:"seller_id"`
	SellerName string          `json:"seller_name"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.encodeCart)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	// Omitted quantity means one unit, the common add-to-cart tap.
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}

	line := cart.Line{
		ProductID:  req.ProductID,
		Name:       req.Name,
		ImageRef:   req.ImageRef,
		UnitPrice:  req.UnitPrice,
		Unit:       req.Unit,
		SellerID:   req.SellerID,
		SellerName: req.SellerName,
	}
	if err := h.cart.Add(r.Context(), line, qty); err != nil {
		h.mapCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.encodeCart)
}

func (h *Handler) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	productID := chi.URLParam(r, "productID")
	if err := h.cart.SetQuantity(r.Context(), productID, req.Quantity); err != nil {
		h.mapCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.encodeCart)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if err := h.cart.Remove(r.Context(), productID); err != nil {
		h.mapCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.encodeCart)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context()); err != nil {
		h.mapCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.encodeCart)
}

func (h *Handler) mapCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "cart could not be saved")
	}
}
