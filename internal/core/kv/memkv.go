package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemKV is an in-memory KV implementation used in tests and when no
// database is available.
type MemKV struct {
	mu      sync.Mutex
	entries map[string]Entry
}

var _ KV = (*MemKV)(nil)

// NewMemKV returns an empty in-memory store.
func NewMemKV() *MemKV {
	return &MemKV{entries: map[string]Entry{}}
}

// Get retrieves and deserializes a value by key.
func (m *MemKV) Get(ctx context.Context, key string, dest any) error {
	entry, err := m.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}
	return nil
}

// Set stores a value with no expiry.
func (m *MemKV) Set(_ context.Context, key string, value any) error {
	return m.put(key, value, nil)
}

// SetTTL stores a value that expires after the given duration.
func (m *MemKV) SetTTL(_ context.Context, key string, value any, ttl time.Duration) error {
	exp := time.Now().Add(ttl)
	return m.put(key, value, &exp)
}

// Delete removes a key.
func (m *MemKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Has returns whether a key exists and is not expired.
func (m *MemKV) Has(ctx context.Context, key string) (bool, error) {
	_, err := m.GetRaw(ctx, key)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ListKeys returns all non-expired keys in sorted order.
func (m *MemKV) ListKeys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	now := time.Now()
	for key, entry := range m.entries {
		if entry.ExpiresAt != nil && entry.ExpiresAt.Before(now) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetRaw retrieves a raw entry, treating expired entries as missing.
func (m *MemKV) GetRaw(_ context.Context, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("kv get %q: %w", key, sql.ErrNoRows)
	}
	if entry.ExpiresAt != nil && entry.ExpiresAt.Before(time.Now()) {
		delete(m.entries, key)
		return Entry{}, fmt.Errorf("kv get %q: %w", key, sql.ErrNoRows)
	}
	return entry, nil
}

func (m *MemKV) put(key string, value any, expiresAt *time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry := Entry{
		Key:       key,
		Value:     data,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prev, ok := m.entries[key]; ok {
		entry.CreatedAt = prev.CreatedAt
	}
	m.entries[key] = entry
	return nil
}
