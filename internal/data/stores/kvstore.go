package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/seam/internal/core/kv"
	"github.com/colonyops/seam/internal/data/db"
)

// KVStore implements kv.KV using SQLite.
type KVStore struct {
	db *db.DB
}

var _ kv.KV = (*KVStore)(nil)

// NewKVStore creates a new SQLite-backed KV store.
func NewKVStore(db *db.DB) *KVStore {
	return &KVStore{db: db}
}

type kvRow struct {
	key       string
	value     []byte
	expiresAt sql.NullInt64
	createdAt int64
	updatedAt int64
}

// Get retrieves and deserializes a value by key.
// Returns an error wrapping sql.ErrNoRows if the key does not exist.
// Expired entries are lazily deleted and treated as missing.
func (s *KVStore) Get(ctx context.Context, key string, dest any) error {
	row, err := s.get(ctx, key)
	if err != nil {
		return fmt.Errorf("kv get %q: %w", key, err)
	}

	if err := json.Unmarshal(row.value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}

	return nil
}

// Set stores a value with no expiry.
func (s *KVStore) Set(ctx context.Context, key string, value any) error {
	return s.set(ctx, key, value, sql.NullInt64{})
}

// SetTTL stores a value that expires after the given duration.
func (s *KVStore) SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).UnixNano()
	return s.set(ctx, key, value, sql.NullInt64{Int64: expiresAt, Valid: true})
}

// Delete removes a key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Conn().ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// Has returns whether a key exists (and is not expired).
func (s *KVStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.get(ctx, key)
	if IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv has %q: %w", key, err)
	}
	return true, nil
}

// ListKeys returns all non-expired keys in sorted order.
func (s *KVStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT key FROM kv_store WHERE expires_at IS NULL OR expires_at >= ? ORDER BY key`,
		time.Now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("kv list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("kv list keys scan: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list keys rows: %w", err)
	}
	return keys, nil
}

// GetRaw retrieves a raw KV entry with metadata.
// Returns an error wrapping sql.ErrNoRows if the key does not exist.
func (s *KVStore) GetRaw(ctx context.Context, key string) (kv.Entry, error) {
	row, err := s.get(ctx, key)
	if err != nil {
		return kv.Entry{}, fmt.Errorf("kv get raw %q: %w", key, err)
	}

	entry := kv.Entry{
		Key:       row.key,
		Value:     json.RawMessage(row.value),
		CreatedAt: time.Unix(0, row.createdAt),
		UpdatedAt: time.Unix(0, row.updatedAt),
	}
	if row.expiresAt.Valid {
		t := time.Unix(0, row.expiresAt.Int64)
		entry.ExpiresAt = &t
	}

	return entry, nil
}

// SweepExpired deletes all entries whose TTL has passed.
func (s *KVStore) SweepExpired(ctx context.Context) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at < ?`,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("kv sweep expired: %w", err)
	}
	return nil
}

// get fetches a row and lazily deletes it when expired.
func (s *KVStore) get(ctx context.Context, key string) (kvRow, error) {
	var row kvRow
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT key, value, expires_at, created_at, updated_at FROM kv_store WHERE key = ?`,
		key,
	).Scan(&row.key, &row.value, &row.expiresAt, &row.createdAt, &row.updatedAt)
	if err != nil {
		return kvRow{}, err
	}

	if row.expiresAt.Valid && row.expiresAt.Int64 < time.Now().UnixNano() {
		_ = s.Delete(ctx, key)
		return kvRow{}, sql.ErrNoRows
	}

	return row, nil
}

func (s *KVStore) set(ctx context.Context, key string, value any, expiresAt sql.NullInt64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}

	now := time.Now().UnixNano()
	_, err = s.db.Conn().ExecContext(ctx, `
		INSERT INTO kv_store (key, value, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		key, data, expiresAt, now, now,
	)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}

	return nil
}
