package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryStoreRoundTrip verifies set/get/remove semantics.
func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "profile:alice", []byte(`{"id":"alice"}`)))

	got, err := s.Get(ctx, "profile:alice")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"alice"}`), got)

	require.NoError(t, s.Remove(ctx, "profile:alice"))
	_, err = s.Get(ctx, "profile:alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestMemoryStoreGetMissingKey verifies ErrNotFound for unknown keys.
func TestMemoryStoreGetMissingKey(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestMemoryStoreRemoveMissingKeyIsNoError verifies idempotent removal.
func TestMemoryStoreRemoveMissingKeyIsNoError(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Remove(context.Background(), "nope"))
}

// TestMemoryStoreKeysPrefix verifies prefix filtering.
func TestMemoryStoreKeysPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "rule:1", []byte("a")))
	require.NoError(t, s.Set(ctx, "rule:2", []byte("b")))
	require.NoError(t, s.Set(ctx, "profile:alice", []byte("c")))

	keys, err := s.Keys(ctx, "rule:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rule:1", "rule:2"}, keys)
}

// TestMemoryStoreCopiesValues verifies stored values cannot be mutated via
// the caller's slice.
func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	v := []byte("original")
	require.NoError(t, s.Set(ctx, "k", v))
	v[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

// TestMemoryStoreRejectsEmptyKey verifies input validation.
func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.Set(ctx, "", []byte("v")), ErrInvalidInput)
	_, err := s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
