// Package cart owns the shopping cart: a list of line items keyed by product,
// persisted through the durable store on every mutation.
package cart

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/farmlane/storefront/internal/kv"
)

// storageKey is the blob key for the cart snapshot.
const storageKey = "storefront:cart"

// Sentinel errors for cart validation.
var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("unit price must be greater than zero")
)

// Line is a single product-and-quantity entry in the cart. At most one Line
// exists per ProductID; adding the same product again merges quantities.
type Line struct {
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	ImageRef   string          `json:"image_ref"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Unit       string          `json:"unit"`
	SellerID   string          `json:"seller_id"`
	SellerName string          `json:"seller_name"`
}

// Total returns UnitPrice times Quantity for this line.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Store holds the live cart. The in-memory lines and the durable blob are
// consistent whenever a mutating call returns without error: mutations are
// staged on a copy, persisted, and only then swapped in.
type Store struct {
	mu    sync.Mutex
	lines []Line
	store kv.Store
}

// NewStore loads any persisted cart from the durable store. A missing blob
// means an empty cart.
func NewStore(ctx context.Context, store kv.Store) (*Store, error) {
	s := &Store{store: store}

	raw, err := store.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return s, nil
		}
		return nil, errors.Wrap(err, "load cart")
	}
	if err := json.Unmarshal(raw, &s.lines); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return s, nil
}

// Add inserts the line with the given quantity, or merges the quantity into
// an existing line for the same product. There is no upper quantity bound;
// stock limits are not this store's concern.
func (s *Store) Add(ctx context.Context, line Line, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if !line.UnitPrice.IsPositive() {
		return ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.lines)
	merged := false
	for i := range next {
		if next[i].ProductID == line.ProductID {
			next[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		line.Quantity = quantity
		next = append(next, line)
	}
	return s.persist(ctx, next)
}

// Remove deletes the line for the product. Removing an absent product is a
// no-op.
func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, productID)
}

// SetQuantity overwrites the quantity of an existing line. A quantity of zero
// or less removes the line. Unknown products are ignored: SetQuantity never
// creates a line.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, productID)
	}

	next := slices.Clone(s.lines)
	for i := range next {
		if next[i].ProductID == productID {
			next[i].Quantity = quantity
			return s.persist(ctx, next)
		}
	}
	return nil
}

// Clear empties the cart. Called by the checkout flow after the user
// acknowledges order creation.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, []Line{})
}

// Lines returns a copy of the current cart contents.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

// Total returns the sum of line totals over the whole cart.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Total())
	}
	return total
}

// Count returns the total number of units across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

func (s *Store) removeLocked(ctx context.Context, productID string) error {
	next := slices.DeleteFunc(slices.Clone(s.lines), func(l Line) bool {
		return l.ProductID == productID
	})
	if len(next) == len(s.lines) {
		return nil
	}
	return s.persist(ctx, next)
}

// persist writes the staged snapshot to the durable store and swaps it in on
// success. On failure the in-memory cart is left untouched, keeping memory
// and disk in agreement.
func (s *Store) persist(ctx context.Context, next []Line) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := s.store.Set(ctx, storageKey, raw); err != nil {
		return errors.Wrap(err, "persist cart")
	}
	s.lines = next
	return nil
}
