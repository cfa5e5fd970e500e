// Package session holds the authenticated identity. Credentials are compared
// in plain text against a fixed mock list; there is no real security model
// here and none is claimed.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"

	"github.com/farmlane/storefront/internal/kv"
)

const storageKey = "storefront:session"

// ErrInvalidCredentials is returned by Login on a failed match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Identity is the persisted session blob.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

// Mock account roles.
const (
	RoleBuyer = "buyer"
	RoleShop  = "shop"
	RoleAdmin = "admin"
)

type account struct {
	password string
	identity Identity
}

var mockAccounts = []account{
	{
		password: "carrots4life",
		identity: Identity{UserID: "u-1001", DisplayName: "June Holloway", Email: "june@example.com", Role: RoleBuyer},
	},
	{
		password: "greenacres",
		identity: Identity{UserID: "u-2001", DisplayName: "Birchwood Farm", Email: "shop@birchwood.example.com", Role: RoleShop},
	},
	{
		password: "rootadmin",
		identity: Identity{UserID: "u-9001", DisplayName: "Marketplace Admin", Email: "admin@example.com", Role: RoleAdmin},
	},
}

// Store holds the current identity and mirrors it to the durable store so a
// restart keeps the user signed in.
type Store struct {
	mu      sync.Mutex
	current *Identity
	store   kv.Store
}

// NewStore loads any persisted session.
func NewStore(ctx context.Context, store kv.Store) (*Store, error) {
	s := &Store{store: store}

	raw, err := store.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return s, nil
		}
		return nil, errors.Wrap(err, "load session")
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	s.current = &id
	return s, nil
}

// Login matches against the mock account list and persists the identity.
func (s *Store) Login(ctx context.Context, email, password string) (Identity, error) {
	for _, a := range mockAccounts {
		if a.identity.Email == email && a.password == password {
			raw, err := json.Marshal(a.identity)
			if err != nil {
				return Identity{}, errors.Wrap(err, "encode session")
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if err := s.store.Set(ctx, storageKey, raw); err != nil {
				return Identity{}, errors.Wrap(err, "persist session")
			}
			id := a.identity
			s.current = &id
			return id, nil
		}
	}
	return Identity{}, ErrInvalidCredentials
}

// Logout drops the identity. Logging out while signed out is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, storageKey); err != nil {
		return errors.Wrap(err, "drop session")
	}
	s.current = nil
	return nil
}

// Current returns the signed-in identity, if any.
func (s *Store) Current() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}
