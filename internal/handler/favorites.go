package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/farmlane/storefront/internal/commerce/favorites"
)

type toggleFavoriteRequest struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	ImageRef       string          `json:"image_ref"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Unit           string          `json:"unit"`
	SellerID       string          `json:"seller_id"`
	SellerName     string          `json:"seller_name"`
	SellerLocation string          `json:"seller_location"`
	Organic        bool            `json:"organic"`
}

func (h *Handler) listFavorites(w http.ResponseWriter, r *http.Request) {
	entries := h.favorites.Entries()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("entries", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, f := range entries {
						encodeFavorite(e, f)
					}
				})
			})
		})
	})
}

func (h *Handler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req toggleFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	added, err := h.favorites.Toggle(r.Context(), favorites.Entry{
		ProductID:      req.ProductID,
		Name:           req.Name,
		ImageRef:       req.ImageRef,
		UnitPrice:      req.UnitPrice,
		Unit:           req.Unit,
		SellerID:       req.SellerID,
		SellerName:     req.SellerName,
		SellerLocation: req.SellerLocation,
		Organic:        req.Organic,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "favorites could not be saved")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("product_id", func(e *jx.Encoder) { e.Str(req.ProductID) })
			e.Field("favorite", func(e *jx.Encoder) { e.Bool(added) })
		})
	})
}

func (h *Handler) favoriteStatus(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	member := h.favorites.Contains(productID)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("product_id", func(e *jx.Encoder) { e.Str(productID) })
			e.Field("favorite", func(e *jx.Encoder) { e.Bool(member) })
		})
	})
}
