// Package favorites owns the saved-products set. Membership is keyed by
// product ID and flipped through a single Toggle operation.
package favorites

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/farmlane/storefront/internal/kv"
)

const storageKey = "storefront:favorites"

// Entry is a saved product reference. It carries enough detail to render the
// favorites list without a catalog lookup.
type Entry struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	ImageRef       string          `json:"image_ref"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Unit           string          `json:"unit"`
	SellerID       string          `json:"seller_id"`
	SellerName     string          `json:"seller_name"`
	SellerLocation string          `json:"seller_location"`
	Organic        bool            `json:"organic,omitempty"`
}

// Store holds the favorites set with the same persistence-after-mutation
// contract as the cart store.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	store   kv.Store
}

// NewStore loads any persisted favorites from the durable store.
func NewStore(ctx context.Context, store kv.Store) (*Store, error) {
	s := &Store{store: store}

	raw, err := store.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return s, nil
		}
		return nil, errors.Wrap(err, "load favorites")
	}
	if err := json.Unmarshal(raw, &s.entries); err != nil {
		return nil, errors.Wrap(err, "decode favorites")
	}
	return s, nil
}

// Toggle flips membership for the entry's product: present entries are
// removed, absent ones added. It reports whether the entry is a member after
// the call. Toggling twice always restores the original set.
func (s *Store) Toggle(ctx context.Context, entry Entry) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.DeleteFunc(slices.Clone(s.entries), func(e Entry) bool {
		return e.ProductID == entry.ProductID
	})
	if len(next) == len(s.entries) {
		next = append(next, entry)
		added = true
	}
	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	return added, nil
}

// Contains reports whether the product is currently saved.
func (s *Store) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

// Entries returns a copy of the saved products.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

func (s *Store) persist(ctx context.Context, next []Entry) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "encode favorites")
	}
	if err := s.store.Set(ctx, storageKey, raw); err != nil {
		return errors.Wrap(err, "persist favorites")
	}
	s.entries = next
	return nil
}
