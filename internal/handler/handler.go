// Package handler exposes the commerce core over HTTP. Handlers decode
// requests, delegate to the stores and the order engine, and map domain
// errors onto status codes; no business rules live here.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmlane/storefront/internal/commerce/cart"
	"github.com/farmlane/storefront/internal/commerce/checkout"
	"github.com/farmlane/storefront/internal/commerce/favorites"
	"github.com/farmlane/storefront/internal/commerce/order"
	"github.com/farmlane/storefront/internal/commerce/session"
)

// Handler wires the collaborator-facing operation set to HTTP routes.
type Handler struct {
	cart      *cart.Store
	favorites *favorites.Store
	orders    *order.Engine
	sessions  *session.Store
	validator *checkout.Validator
}

// NewHandler constructs a Handler over the given stores.
func NewHandler(
	cartStore *cart.Store,
	favoritesStore *favorites.Store,
	orders *order.Engine,
	sessions *session.Store,
	validator *checkout.Validator,
) *Handler {
	return &Handler{
		cart:      cartStore,
		favorites: favoritesStore,
		orders:    orders,
		sessions:  sessions,
		validator: validator,
	}
}

// Routes returns the API router mounted under /api by the server.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addCartItem)
	r.Put("/cart/items/{productID}", h.setCartQuantity)
	r.Delete("/cart/items/{productID}", h.removeCartItem)
	r.Delete("/cart", h.clearCart)

	r.Get("/favorites", h.listFavorites)
	r.Post("/favorites/toggle", h.toggleFavorite)
	r.Get("/favorites/{productID}", h.favoriteStatus)

	r.Post("/checkout", h.submitCheckout)

	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}/pay", h.payOrder)
	r.Post("/orders/{orderID}/cancel", h.cancelOrder)
	r.Post("/orders/{orderID}/ship", h.shipOrder)
	r.Post("/orders/{orderID}/delivered", h.markDelivered)
	r.Post("/orders/{orderID}/confirm-receipt", h.confirmReceipt)
	r.Post("/orders/{orderID}/review", h.submitReview)
	r.Post("/orders/{orderID}/return", h.requestReturn)

	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/session", h.currentSession)

	return r
}
