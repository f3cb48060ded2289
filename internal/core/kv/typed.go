package kv

import (
	"context"
	"time"
)

// TypedKV wraps a KV store with serialization for a single value type and a
// key namespace, so callers like the github tree cache and the update checker
// don't collide with each other.
type TypedKV[T any] struct {
	store     KV
	namespace string
}

// Scoped returns a TypedKV[T] whose keys live under the given namespace.
func Scoped[T any](store KV, namespace string) *TypedKV[T] {
	return &TypedKV[T]{store: store, namespace: namespace}
}

func (t *TypedKV[T]) key(k string) string {
	return t.namespace + ":" + k
}

// Get retrieves and deserializes the value stored under key.
func (t *TypedKV[T]) Get(ctx context.Context, key string) (T, error) {
	var v T
	err := t.store.Get(ctx, t.key(key), &v)
	return v, err
}

// Set stores a value that never expires.
func (t *TypedKV[T]) Set(ctx context.Context, key string, value T) error {
	return t.store.Set(ctx, t.key(key), value)
}

// SetTTL stores a value that expires after ttl.
func (t *TypedKV[T]) SetTTL(ctx context.Context, key string, value T, ttl time.Duration) error {
	return t.store.SetTTL(ctx, t.key(key), value, ttl)
}

// Delete removes the value stored under key.
func (t *TypedKV[T]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, t.key(key))
}

// Has reports whether key holds an unexpired value.
func (t *TypedKV[T]) Has(ctx context.Context, key string) (bool, error) {
	return t.store.Has(ctx, t.key(key))
}
