package handler

import (
	"github.com/go-faster/jx"

	"github.com/farmlane/storefront/internal/commerce/cart"
	"github.com/farmlane/storefront/internal/commerce/favorites"
	"github.com/farmlane/storefront/internal/commerce/order"
	"github.com/farmlane/storefront/internal/commerce/session"
)

// Entity encoders. Monetary values go out as JSON numbers, matching what the
// storefront UI consumed historically.

func encodeLine(e *jx.Encoder, l cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product_id", func(e *jx.Encoder) { e.Str(l.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("image_ref", func(e *jx.Encoder) { e.Str(l.ImageRef) })
		e.Field("unit_price", func(e *jx.Encoder) { e.Float64(l.UnitPrice.InexactFloat64()) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("unit", func(e *jx.Encoder) { e.Str(l.Unit) })
		e.Field("seller_id", func(e *jx.Encoder) { e.Str(l.SellerID) })
		e.Field("seller_name", func(e *jx.Encoder) { e.Str(l.SellerName) })
		e.Field("line_total", func(e *jx.Encoder) { e.Float64(l.Total().InexactFloat64()) })
	})
}

func (h *Handler) encodeCart(e *jx.Encoder) {
	lines := h.cart.Lines()
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range lines {
					encodeLine(e, l)
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { e.Float64(h.cart.Total().InexactFloat64()) })
		e.Field("count", func(e *jx.Encoder) { e.Int(h.cart.Count()) })
	})
}

func encodeFavorite(e *jx.Encoder, f favorites.Entry) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product_id", func(e *jx.Encoder) { e.Str(f.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(f.Name) })
		e.Field("image_ref", func(e *jx.Encoder) { e.Str(f.ImageRef) })
		e.Field("unit_price", func(e *jx.Encoder) { e.Float64(f.UnitPrice.InexactFloat64()) })
		e.Field("unit", func(e *jx.Encoder) { e.Str(f.Unit) })
		e.Field("seller_id", func(e *jx.Encoder) { e.Str(f.SellerID) })
		e.Field("seller_name", func(e *jx.Encoder) { e.Str(f.SellerName) })
		e.Field("seller_location", func(e *jx.Encoder) { e.Str(f.SellerLocation) })
		e.Field("organic", func(e *jx.Encoder) { e.Bool(f.Organic) })
	})
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format("2006-01-02T15:04:05Z07:00")) })
		e.Field("status", func(e *jx.Encoder) { e.Str(o.Status.String()) })
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range o.Lines {
					encodeLine(e, l)
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { e.Float64(o.Subtotal.InexactFloat64()) })
		e.Field("shipping_fee", func(e *jx.Encoder) { e.Float64(o.ShippingFee.InexactFloat64()) })
		e.Field("recipient", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(o.Recipient.Name) })
				e.Field("address", func(e *jx.Encoder) { e.Str(o.Recipient.Address) })
				e.Field("phone", func(e *jx.Encoder) { e.Str(o.Recipient.Phone) })
				if o.Recipient.Notes != "" {
					e.Field("notes", func(e *jx.Encoder) { e.Str(o.Recipient.Notes) })
				}
			})
		})
		if o.TrackingRef != "" {
			e.Field("tracking_ref", func(e *jx.Encoder) { e.Str(o.TrackingRef) })
		}
		if o.Rated() {
			e.Field("rating", func(e *jx.Encoder) { e.Int(o.Rating) })
			e.Field("review_text", func(e *jx.Encoder) { e.Str(o.ReviewText) })
		}
		if o.Reason != "" {
			e.Field("reason", func(e *jx.Encoder) { e.Str(o.Reason) })
		}
	})
}

func encodeIdentity(e *jx.Encoder, id session.Identity) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("user_id", func(e *jx.Encoder) { e.Str(id.UserID) })
		e.Field("display_name", func(e *jx.Encoder) { e.Str(id.DisplayName) })
		e.Field("email", func(e *jx.Encoder) { e.Str(id.Email) })
		e.Field("role", func(e *jx.Encoder) { e.Str(id.Role) })
	})
}
