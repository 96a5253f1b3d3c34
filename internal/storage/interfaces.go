// Package storage provides the injected key-value store the ordervox engine
// persists user profiles, adaptation rules and session history through.
//
// The engine only depends on the small KVStore interface; the concrete
// storage medium (memory, SQLite, Postgres) is chosen by the host at startup.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates that the requested key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// KVStore is the persistence boundary of the engine: get/set/remove on
// opaque JSON values. Implementations must be safe for concurrent use.
type KVStore interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with upsert semantics.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix, in unspecified order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
