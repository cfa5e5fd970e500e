package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmlane/storefront/internal/commerce/cart"
	"github.com/farmlane/storefront/internal/commerce/checkout"
	"github.com/farmlane/storefront/internal/commerce/favorites"
	"github.com/farmlane/storefront/internal/commerce/order"
	"github.com/farmlane/storefront/internal/commerce/session"
	"github.com/farmlane/storefront/internal/kv"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	mem := kv.NewMemory()

	cartStore, err := cart.NewStore(ctx, mem)
	require.NoError(t, err)
	favoritesStore, err := favorites.NewStore(ctx, mem)
	require.NoError(t, err)
	engine, err := order.NewEngine(ctx, mem, order.Config{
		ShippingFee:      decimal.RequireFromString("4.90"),
		FreeShippingOver: decimal.RequireFromString("50"),
	})
	require.NoError(t, err)
	sessions, err := session.NewStore(ctx, mem)
	require.NoError(t, err)

	return NewHandler(cartStore, favoritesStore, engine, sessions, checkout.NewValidator()).Routes()
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

const addEggs = `{"product_id":"p1","name":"Free-Range Eggs","unit_price":"5.00","quantity":2,"unit":"dozen","seller_id":"s1","seller_name":"Birchwood Farm"}`

const validCheckout = `{"name":"June Meadows","address":"14 Orchard Lane, Greenfield","phone":"+31 6 1234 5678"}`

func TestCartEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items", addEggs)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(10), body["total"])

	// Same product again merges instead of duplicating.
	rec = do(t, router, http.MethodPost, "/cart/items", addEggs)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(4), body["count"])
	assert.Len(t, body["lines"], 1)

	rec = do(t, router, http.MethodPut, "/cart/items/p1", `{"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])

	rec = do(t, router, http.MethodDelete, "/cart/items/p1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["count"])
}

func TestAddCartItem_DefaultsQuantityToOne(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items",
		`{"product_id":"p1","name":"Honey","unit_price":"8.50","unit":"jar","seller_id":"s2","seller_name":"Hilltop Apiary"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
}

func TestAddCartItem_InvalidPrice(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items",
		`{"product_id":"p1","name":"Honey","unit_price":"0","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoritesToggle(t *testing.T) {
	router := newTestRouter(t)

	toggle := `{"product_id":"p9","name":"Raw Honey","unit_price":"8.50","unit":"jar","seller_id":"s2","seller_name":"Hilltop Apiary","organic":true}`

	rec := do(t, router, http.MethodPost, "/favorites/toggle", toggle)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["favorite"])

	rec = do(t, router, http.MethodGet, "/favorites/p9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["favorite"])

	rec = do(t, router, http.MethodPost, "/favorites/toggle", toggle)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["favorite"])

	rec = do(t, router, http.MethodGet, "/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["entries"])
}

func TestFavoritesToggle_RequiresProductID(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/favorites/toggle", `{"name":"Honey"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_ValidationFailure(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/checkout", `{"name":"J","address":"14 Orchard Lane","phone":"nope"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec)
	fieldErrors, ok := body["field_errors"].(map[string]any)
	require.True(t, ok, "body: %s", rec.Body.String())
	assert.Contains(t, fieldErrors, "name")
	assert.Contains(t, fieldErrors, "phone")
	assert.NotContains(t, fieldErrors, "address")
}

func TestCheckout_EmptyCart(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/checkout", validCheckout)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutAndOrderLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items", addEggs)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/checkout", validCheckout)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	orderID, _ := created["id"].(string)
	require.NotEmpty(t, orderID)
	assert.Equal(t, "awaiting_payment", created["status"])
	assert.Equal(t, float64(10), created["subtotal"])
	assert.Equal(t, 4.9, created["shipping_fee"])

	// The cart survives checkout; the client clears it separately.
	rec = do(t, router, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])

	rec = do(t, router, http.MethodPost, "/orders/"+orderID+"/pay", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "processing", decodeBody(t, rec)["status"])

	// Cancelling a paid order conflicts with its state.
	rec = do(t, router, http.MethodPost, "/orders/"+orderID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/orders/"+orderID+"/ship", `{"tracking_ref":"TRK-42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	shipped := decodeBody(t, rec)
	assert.Equal(t, "shipped", shipped["status"])
	assert.Equal(t, "TRK-42", shipped["tracking_ref"])

	rec = do(t, router, http.MethodPost, "/orders/"+orderID+"/delivered", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "awaiting_receipt", decodeBody(t, rec)["status"])

	rec = do(t, router, http.MethodPost, "/orders/"+orderID+"/confirm-receipt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decodeBody(t, rec)["status"])

	rec = do(t, router, http.MethodPost, "/orders/"+orderID+"/review", `{"rating":5,"review_text":"lovely eggs"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decodeBody(t, rec)["rating"])

	rec = do(t, router, http.MethodPost, "/orders/"+orderID+"/return", `{"reason":"broken"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListOrders_StatusFilter(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/cart/items", addEggs).Code)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/checkout", validCheckout).Code)

	rec := do(t, router, http.MethodGet, "/orders?status=awaiting_payment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	orders, ok := decodeBody(t, rec)["orders"].([]any)
	require.True(t, ok)
	assert.Len(t, orders, 1)

	rec = do(t, router, http.MethodGet, "/orders?status=shipped", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["orders"])

	rec = do(t, router, http.MethodGet, "/orders?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/orders/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/orders/ghost/pay", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/auth/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/login", `{"email":"june@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/login", `{"email":"june@example.com","password":"carrots4life"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "June Holloway", body["display_name"])
	assert.Equal(t, "buyer", body["role"])

	rec = do(t, router, http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/auth/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorEnvelopeShape(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/orders/ghost", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(http.StatusNotFound), body["code"])
	assert.NotEmpty(t, body["message"])
}
