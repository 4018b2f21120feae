// Package store provides the durable device-local key/value store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound indicates the key has no value.
var ErrNotFound = errors.New("not found")

// Store is a SQLite-backed key/value store. Writes are synchronous and durable.
type Store struct {
	db *sql.DB
}

// New creates a store over db. The kv table must exist.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return []byte(value), nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix in sorted order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("kv keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("kv keys: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Move renames from to to when to is unset. It reports whether a value moved.
// An existing value at to is kept and from is left in place.
func (s *Store) Move(ctx context.Context, from, to string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var value string
	err = tx.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", from).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv move %s: %w", from, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`,
		to, value, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("kv move %s: %w", to, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", from); err != nil {
		return false, fmt.Errorf("kv move %s: %w", from, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Key names.
const (
	BookmarksKey    = "bookmarks"
	LegacyGuestKey  = "guest_library"
	libraryPrefix   = "library_"
	historyPrefix   = "history_"
	likesPrefix     = "likes_"
	identityCurrent = "identity_current"
)

// LibraryKey is the key of an identity's library snapshot.
func LibraryKey(identity string) string { return libraryPrefix + sanitize(identity) }

// HistoryKey is the key of an identity's chat history.
func HistoryKey(identity string) string { return historyPrefix + sanitize(identity) }

// LikesKey is the key of an identity's liked chat messages.
func LikesKey(identity string) string { return likesPrefix + sanitize(identity) }

// IdentityKey holds the identity last set on this device.
func IdentityKey() string { return identityCurrent }

func sanitize(identity string) string {
	return strings.TrimSpace(identity)
}
