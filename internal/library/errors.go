package library

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the item is not in the collection.
	ErrNotFound = errors.New("not found")

	// ErrInvalidItem indicates the supplied item data is unusable.
	ErrInvalidItem = errors.New("invalid item")

	// ErrUnknownOp indicates the mutation kind is not recognized.
	ErrUnknownOp = errors.New("unknown operation")

	// ErrStandaloneBookmark indicates a status operation targeted a bookmark with no library item.
	ErrStandaloneBookmark = errors.New("standalone bookmark has no library status")

	// ErrNotCompleted indicates a rewatch change on an item that is not completed.
	ErrNotCompleted = errors.New("item is not completed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidItem, fmt.Sprintf(format, args...))
}
