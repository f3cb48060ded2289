package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore_SetGet(t *testing.T) {
	store := NewKVStore(testDB(t))
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, store.Set(ctx, "k1", payload{Name: "a"}))

	var got payload
	require.NoError(t, store.Get(ctx, "k1", &got))
	assert.Equal(t, "a", got.Name)
}

func TestKVStore_GetMissing(t *testing.T) {
	store := NewKVStore(testDB(t))

	var got string
	err := store.Get(context.Background(), "missing", &got)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestKVStore_TTL(t *testing.T) {
	store := NewKVStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, store.SetTTL(ctx, "short", "v", time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	var got string
	err := store.Get(ctx, "short", &got)
	assert.True(t, IsNotFoundError(err), "expired entries are treated as missing")

	has, err := store.Has(ctx, "short")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestKVStore_Has(t *testing.T) {
	store := NewKVStore(testDB(t))
	ctx := context.Background()

	has, err := store.Has(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.Set(ctx, "yep", 1))
	has, err = store.Has(ctx, "yep")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestKVStore_ListKeys(t *testing.T) {
	store := NewKVStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "b", 1))
	require.NoError(t, store.Set(ctx, "a", 2))
	require.NoError(t, store.SetTTL(ctx, "expired", 3, time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestKVStore_Overwrite(t *testing.T) {
	store := NewKVStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "first"))
	require.NoError(t, store.Set(ctx, "k", "second"))

	var got string
	require.NoError(t, store.Get(ctx, "k", &got))
	assert.Equal(t, "second", got)
}

func TestKVStore_SweepExpired(t *testing.T) {
	store := NewKVStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "keep", 1))
	require.NoError(t, store.SetTTL(ctx, "drop", 2, time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, store.SweepExpired(ctx))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, keys)
}

func TestKVStore_GetRaw(t *testing.T) {
	store := NewKVStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, store.SetTTL(ctx, "k", "v", time.Hour))

	entry, err := store.GetRaw(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "k", entry.Key)
	assert.JSONEq(t, `"v"`, string(entry.Value))
	require.NotNil(t, entry.ExpiresAt)
	assert.True(t, entry.ExpiresAt.After(time.Now()))
}
