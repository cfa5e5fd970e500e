// Package order owns the order lifecycle: checkout-time construction and the
// finite-state machine from payment through completion, cancellation or
// return. Orders are history; they are never deleted.
package order

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/farmlane/storefront/internal/commerce/cart"
)

// Sentinel errors for order operations.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidRating      = errors.New("rating must be an integer between 1 and 5")
	ErrTrackingRefMissing = errors.New("tracking reference is required")
	ErrReasonMissing      = errors.New("a reason is required")
)

// InvalidTransitionError indicates an operation was attempted from a state it
// is not defined for. The order is left unchanged; the caller has a UI-logic
// fault.
type InvalidTransitionError struct {
	OrderID string
	From    Status
	Op      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s order %s in status %s", e.Op, e.OrderID, e.From)
}

// Recipient is the delivery information captured at checkout.
type Recipient struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes,omitempty"`
}

// Order is a finalized purchase. Lines is an immutable snapshot of the cart
// taken at checkout; unlike the live cart it never changes afterwards.
type Order struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Status      Status          `json:"status"`
	Lines       []cart.Line     `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Recipient   Recipient       `json:"recipient"`
	TrackingRef string          `json:"tracking_ref,omitempty"`
	Rating      int             `json:"rating,omitempty"`
	ReviewText  string          `json:"review_text,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

// Rated reports whether a review has been attached. A rated order is closed:
// it can no longer enter the return path.
func (o Order) Rated() bool {
	return o.Rating != 0
}
