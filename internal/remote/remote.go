// Package remote talks to the authoritative per-user document store.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/vmunix/cinesync/internal/library"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . Store

var (
	// ErrNotFound indicates the user has no stored document yet.
	ErrNotFound = errors.New("remote document not found")

	// ErrUnauthorized indicates the remote rejected the credentials.
	ErrUnauthorized = errors.New("remote unauthorized")
)

// Store is the authoritative library store. Calls are slow and may fail.
type Store interface {
	LoadLibrary(ctx context.Context, userID string) ([]library.Item, error)
	SaveLibrary(ctx context.Context, userID string, items []library.Item) error
}

// LibraryDocument is the wire form of a stored library.
type LibraryDocument struct {
	Items     []library.Item `json:"items"`
	Version   int64          `json:"version,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}
