// Package kv provides the key-value store used for durable session records.
//
// The package includes a BadgerDB-backed implementation for production use and
// an in-memory implementation for testing. Writes overwrite wholesale: there
// is no history and no optimistic concurrency check.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Store is the interface for a key-value store with last-write-wins semantics.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
