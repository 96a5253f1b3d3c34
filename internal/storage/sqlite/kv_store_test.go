package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordervox/ordervox/internal/storage"
)

func newTestStore(t *testing.T) *KVStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := NewKVStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestKVStoreRoundTrip verifies set/get/remove against a real SQLite file.
func TestKVStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "profile:alice", []byte(`{"id":"alice"}`)))

	got, err := s.Get(ctx, "profile:alice")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"alice"}`), got)

	require.NoError(t, s.Remove(ctx, "profile:alice"))
	_, err = s.Get(ctx, "profile:alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestKVStoreUpsert verifies Set overwrites existing values.
func TestKVStoreUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

// TestKVStoreKeysPrefix verifies prefix listing.
func TestKVStoreKeysPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "rule:1", []byte("a")))
	require.NoError(t, s.Set(ctx, "rule:2", []byte("b")))
	require.NoError(t, s.Set(ctx, "profile:bob", []byte("c")))

	keys, err := s.Keys(ctx, "rule:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rule:1", "rule:2"}, keys)
}
