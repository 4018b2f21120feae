package v1

import (
	"context"
	"errors"

	"github.com/vmunix/cinesync/internal/engine"
	"github.com/vmunix/cinesync/internal/events"
	"github.com/vmunix/cinesync/internal/history"
	"github.com/vmunix/cinesync/internal/library"
	"github.com/vmunix/cinesync/internal/remote"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// Library is the sync engine surface the API uses.
type Library interface {
	View() []library.Item
	Bookmarks() []library.Bookmark
	Mutate(ctx context.Context, m library.Mutation) ([]library.Item, error)
	Search(query string, limit int) []library.Match
	Stats() library.Stats
	Export() ([]byte, error)
	Import(ctx context.Context, data []byte) (added, skipped int, err error)
	Clear(ctx context.Context) error
	Status() engine.SyncStatus
}

// History is the chat history surface the API uses.
type History interface {
	List() []history.Session
	Get(id string) (history.Session, error)
	Search(query string) []history.Session
	Save(ctx context.Context, sess history.Session) (history.SaveResult, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	ToggleLike(ctx context.Context, messageID string) (bool, error)
	Liked() []history.LikedMessage
}

// Identity switches the current caller.
type Identity interface {
	Current() string
	Set(ctx context.Context, id string) bool
}

// Subscriber delivers change notifications.
type Subscriber interface {
	SubscribeAll(fn events.Handler) func()
	SubscribeEntity(entityType, entityID string, fn events.Handler) func()
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Library  Library
	History  History
	Identity Identity

	// Optional dependencies (nil if not configured)
	EventLog *events.EventLog // event audit log
	Remote   remote.Store     // probed by /verify
	Bus      Subscriber       // feeds /events/stream
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Library == nil {
		return errors.New("library engine is required")
	}
	if d.History == nil {
		return errors.New("history store is required")
	}
	if d.Identity == nil {
		return errors.New("identity notifier is required")
	}
	return nil
}
