// Package kv provides durable key-value persistence for storefront state.
//
// All stores above this package serialize their collections to JSON and hand
// the blob down under a stable string key. The concrete driver (postgres,
// redis, file) is chosen at startup; tests use the in-memory driver.
package kv

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("key not found")

// Store is a durable key-value blob store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
