package order

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlane/storefront/internal/commerce/cart"
	"github.com/farmlane/storefront/internal/kv"
)

const storageKey = "storefront:orders"

// Config holds checkout pricing and the simulated settlement round-trip.
type Config struct {
	// ShippingFee is the flat delivery fee added to every order.
	ShippingFee decimal.Decimal
	// FreeShippingOver waives the fee for subtotals at or above this amount.
	// Zero disables the waiver.
	FreeShippingOver decimal.Decimal
	// SettlementDelay stands in for the payment-network round-trip on
	// Checkout and Pay. There is no real gateway; the call always succeeds
	// unless the context is cancelled first.
	SettlementDelay time.Duration
}

// Engine owns the order history and enforces the lifecycle transition table.
// It consumes cart snapshots at checkout; afterwards an order is independent
// of the live cart.
type Engine struct {
	mu     sync.Mutex
	orders []Order
	store  kv.Store
	cfg    Config

	now   func() time.Time
	newID func() string
}

// NewEngine loads persisted order history from the durable store.
func NewEngine(ctx context.Context, store kv.Store, cfg Config) (*Engine, error) {
	e := &Engine{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}

	raw, err := store.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return e, nil
		}
		return nil, errors.Wrap(err, "load orders")
	}
	if err := json.Unmarshal(raw, &e.orders); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return e, nil
}

// Checkout materializes a new order in awaiting_payment from a cart snapshot
// and validated recipient info. It does NOT clear the cart: the caller clears
// it separately once the user has acknowledged the order, so a failure in
// between is recoverable by re-showing the cart.
func (e *Engine) Checkout(ctx context.Context, lines []cart.Line, recipient Recipient) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	if err := e.settle(ctx); err != nil {
		return Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	subtotal = subtotal.Round(2)

	fee := e.cfg.ShippingFee
	if e.cfg.FreeShippingOver.IsPositive() && subtotal.GreaterThanOrEqual(e.cfg.FreeShippingOver) {
		fee = decimal.Zero
	}

	o := Order{
		ID:          e.newID(),
		CreatedAt:   e.now().UTC(),
		Status:      StatusAwaitingPayment,
		Lines:       slices.Clone(lines),
		Subtotal:    subtotal,
		ShippingFee: fee,
		Recipient:   recipient,
	}

	next := append(slices.Clone(e.orders), o)
	if err := e.persist(ctx, next); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Pay settles an awaiting_payment order and moves it to processing. Payment
// is modeled as immediate success after the settlement delay.
func (e *Engine) Pay(ctx context.Context, orderID string) (Order, error) {
	if err := e.settle(ctx); err != nil {
		return Order{}, err
	}
	return e.transition(ctx, orderID, "pay", func(o *Order) error {
		if o.Status != StatusAwaitingPayment {
			return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Op: "pay"}
		}
		o.Status = StatusProcessing
		return nil
	})
}

// Cancel aborts an order that has not been paid yet.
func (e *Engine) Cancel(ctx context.Context, orderID string) (Order, error) {
	return e.transition(ctx, orderID, "cancel", func(o *Order) error {
		if o.Status != StatusAwaitingPayment {
			return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Op: "cancel"}
		}
		o.Status = StatusCancelled
		return nil
	})
}

// MarkShipped records the tracking reference and moves a processing order to
// shipped. Triggered by the shop side, not the buyer.
func (e *Engine) MarkShipped(ctx context.Context, orderID, trackingRef string) (Order, error) {
	if strings.TrimSpace(trackingRef) == "" {
		return Order{}, ErrTrackingRefMissing
	}
	return e.transition(ctx, orderID, "ship", func(o *Order) error {
		if o.Status != StatusProcessing {
			return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Op: "ship"}
		}
		o.Status = StatusShipped
		o.TrackingRef = trackingRef
		return nil
	})
}

// MarkDelivered moves a shipped order to awaiting_receipt once the carrier
// reports delivery. Also shop-side; the buyer then confirms receipt.
func (e *Engine) MarkDelivered(ctx context.Context, orderID string) (Order, error) {
	return e.transition(ctx, orderID, "mark delivered", func(o *Order) error {
		if o.Status != StatusShipped {
			return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Op: "mark delivered"}
		}
		o.Status = StatusAwaitingReceipt
		return nil
	})
}

// ConfirmReceipt completes an order once the buyer has the goods. Valid from
// shipped as well, so confirming ahead of the delivery scan still works.
func (e *Engine) ConfirmReceipt(ctx context.Context, orderID string) (Order, error) {
	return e.transition(ctx, orderID, "confirm receipt", func(o *Order) error {
		if o.Status != StatusShipped && o.Status != StatusAwaitingReceipt {
			return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Op: "confirm receipt"}
		}
		o.Status = StatusCompleted
		return nil
	})
}

// SubmitReview attaches a rating and review text to a completed, unrated
// order. The status does not change, and a second review is rejected.
func (e *Engine) SubmitReview(ctx context.Context, orderID string, rating int, reviewText string) (Order, error) {
	if rating < 1 || rating > 5 {
		return Order{}, ErrInvalidRating
	}
	return e.transition(ctx, orderID, "review", func(o *Order) error {
		if o.Status != StatusCompleted || o.Rated() {
			return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Op: "review"}
		}
		o.Rating = rating
		o.ReviewText = reviewText
		return nil
	})
}

// RequestReturn moves a completed order to return_requested. A rated order is
// closed and cannot enter the return path; resolution of the return itself is
// handled by the shop side.
func (e *Engine) RequestReturn(ctx context.Context, orderID, reason string) (Order, error) {
	if strings.TrimSpace(reason) == "" {
		return Order{}, ErrReasonMissing
	}
	return e.transition(ctx, orderID, "request return", func(o *Order) error {
		if o.Status != StatusCompleted || o.Rated() {
			return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Op: "request return"}
		}
		o.Status = StatusReturnRequested
		o.Reason = reason
		return nil
	})
}

// Get returns the order with the given ID.
func (e *Engine) Get(orderID string) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, o := range e.orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return Order{}, ErrOrderNotFound
}

// List returns the full order history, newest first.
func (e *Engine) List() []Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := slices.Clone(e.orders)
	slices.Reverse(out)
	return out
}

// ListByStatus returns orders in the given status, newest first. List views
// on top of this are read-only presentation.
func (e *Engine) ListByStatus(status Status) []Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Order
	for i := len(e.orders) - 1; i >= 0; i-- {
		if e.orders[i].Status == status {
			out = append(out, e.orders[i])
		}
	}
	return out
}

// transition applies a mutation to a single order on a staged copy of the
// history, persists, then swaps. Out-of-state calls and persistence failures
// leave the history untouched.
func (e *Engine) transition(ctx context.Context, orderID, op string, apply func(*Order) error) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i := range e.orders {
		if e.orders[i].ID == orderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Order{}, ErrOrderNotFound
	}

	next := slices.Clone(e.orders)
	o := next[idx]
	if err := apply(&o); err != nil {
		return Order{}, err
	}
	next[idx] = o

	if err := e.persist(ctx, next); err != nil {
		return Order{}, err
	}
	return o, nil
}

// settle waits out the simulated payment-network round-trip. Cancelling the
// context aborts the pending operation before any state changes.
func (e *Engine) settle(ctx context.Context) error {
	if e.cfg.SettlementDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.cfg.SettlementDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) persist(ctx context.Context, next []Order) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "encode orders")
	}
	if err := e.store.Set(ctx, storageKey, raw); err != nil {
		return errors.Wrap(err, "persist orders")
	}
	e.orders = next
	return nil
}
