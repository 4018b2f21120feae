// Package engine keeps the canonical in-memory library and reconciles it
// with the local and remote stores.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vmunix/cinesync/internal/events"
	"github.com/vmunix/cinesync/internal/identity"
	"github.com/vmunix/cinesync/internal/library"
	"github.com/vmunix/cinesync/internal/remote"
	"github.com/vmunix/cinesync/internal/store"
)

// ErrNotLoaded indicates Mutate was called before any Load.
var ErrNotLoaded = errors.New("library not loaded")

// LocalStore is the durable device-local key/value store.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Move(ctx context.Context, from, to string) (bool, error)
}

// Publisher publishes change events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Config tunes remote synchronization.
type Config struct {
	// EscalateAfter is the number of consecutive remote failures that
	// publishes sync.degraded. Zero disables escalation.
	EscalateAfter int
	// WriteTimeout bounds each background remote write.
	WriteTimeout time.Duration
}

// Engine owns the library of the current identity.
type Engine struct {
	local  LocalStore
	remote remote.Store // nil when no remote is configured
	bus    Publisher
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	identity   string
	generation uint64 // bumped on every Load
	seq        uint64 // bumped on every local change
	loaded     bool
	items      []library.Item
	bookmarks  []library.Bookmark
	failures   int
	degraded   bool
	failingAt  time.Time

	writeMu sync.Mutex // orders local writes and change events; taken before mu
	saveMu  sync.Mutex // serializes remote writes
	wg     sync.WaitGroup
}

// New creates an engine. rem may be nil, in which case every identity is
// treated as local-only.
func New(local LocalStore, rem remote.Store, bus Publisher, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	return &Engine{
		local:    local,
		remote:   rem,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		identity: identity.Guest,
	}
}

// Load switches to id and returns its merged view. The local snapshot is
// read first. For an authenticated identity a successful remote read then
// replaces it wholesale. Load never fails: it degrades to the best tier
// available.
func (e *Engine) Load(ctx context.Context, id string) []library.Item {
	id = identity.Normalize(id)

	if id == identity.Guest {
		if moved, err := e.local.Move(ctx, store.LegacyGuestKey, store.LibraryKey(identity.Guest)); err != nil {
			e.logger.Warn("legacy guest library migration failed", "error", err)
		} else if moved {
			e.logger.Info("migrated legacy guest library")
		}
	}

	e.writeMu.Lock()
	items := e.readItems(ctx, store.LibraryKey(id))
	bookmarks := e.readBookmarks(ctx)

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.identity = id
	e.items = items
	e.bookmarks = bookmarks
	e.loaded = true
	e.failures = 0
	e.degraded = false
	seq := e.seq
	view := library.MergedView(e.items, e.bookmarks)
	e.mu.Unlock()

	e.logger.Debug("library loaded from local store", "identity", id, "items", len(items))
	e.publish(ctx, events.NewCollectionChanged(id, view))
	e.writeMu.Unlock()

	if !e.syncsRemotely(id) {
		return view
	}

	remoteItems, err := e.remote.LoadLibrary(ctx, id)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		e.logger.Info("no remote library, seeding from local", "identity", id)
		e.pushRemote(gen, id)
		return e.View()
	case err != nil:
		e.recordResult(gen, "load", err)
		return e.View()
	}
	e.recordResult(gen, "load", nil)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding remote library for stale identity", "identity", id)
		return e.View()
	}
	if seq != e.seq {
		// Local changes made during the read are newer than the remote copy.
		e.mu.Unlock()
		e.pushRemote(gen, id)
		return e.View()
	}
	e.items = library.Dedupe(remoteItems)
	e.seq++
	snapshot := library.Clone(e.items)
	view = library.MergedView(e.items, e.bookmarks)
	e.mu.Unlock()

	e.writeItems(ctx, store.LibraryKey(id), snapshot)
	e.logger.Debug("library replaced from remote", "identity", id, "items", len(snapshot))
	e.publish(ctx, events.NewCollectionChanged(id, view))
	return view
}

// Mutate applies m optimistically. Memory and the local snapshot change
// before Mutate returns; the remote write happens in the background and a
// failure there is reported as sync.failed without rolling back. The error
// reports invalid input only.
func (e *Engine) Mutate(ctx context.Context, m library.Mutation) ([]library.Item, error) {
	if m.Op == library.OpToggleBookmark {
		return e.toggleBookmark(ctx, m.Item)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return nil, ErrNotLoaded
	}

	if m.Op.IsStatusOp() {
		if meta, err := m.Item.Normalize(); err == nil {
			if _, ok := library.Find(e.items, meta.Key()); !ok && library.HasBookmark(e.bookmarks, meta.Key()) {
				e.mu.Unlock()
				return nil, fmt.Errorf("%s %s: %w", m.Op, meta.Key(), library.ErrStandaloneBookmark)
			}
		}
	}

	res, err := library.Apply(e.items, m, e.now())
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if !res.Changed {
		view := library.MergedView(e.items, e.bookmarks)
		e.mu.Unlock()
		return view, nil
	}

	gen, id, snapshot, view := e.commitLocked(res.Items)
	e.mu.Unlock()

	e.writeItems(ctx, store.LibraryKey(id), snapshot)
	if res.Removed != nil {
		e.publish(ctx, events.NewItemRemoved(id, *res.Removed))
	}
	e.publish(ctx, events.NewCollectionChanged(id, view))
	if e.syncsRemotely(id) {
		e.pushRemote(gen, id)
	}
	return view, nil
}

// commitLocked swaps in items. e.mu must be held.
func (e *Engine) commitLocked(items []library.Item) (gen uint64, id string, snapshot, view []library.Item) {
	e.items = items
	e.seq++
	return e.generation, e.identity, library.Clone(items), library.MergedView(e.items, e.bookmarks)
}

func (e *Engine) toggleBookmark(ctx context.Context, meta library.Metadata) ([]library.Item, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.mu.Lock()
	bookmarks, on, err := library.ToggleBookmark(e.bookmarks, meta, e.now())
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.bookmarks = bookmarks
	id := e.identity
	snapshot := append([]library.Bookmark(nil), bookmarks...)
	view := library.MergedView(e.items, e.bookmarks)
	e.mu.Unlock()

	if err := e.writeJSON(ctx, store.BookmarksKey, snapshot); err != nil {
		e.logger.Warn("failed to persist bookmarks", "error", err)
	}
	e.logger.Debug("bookmark toggled", "id", meta.ID, "media_type", meta.MediaType, "bookmarked", on)
	e.publish(ctx, events.NewBookmarksChanged())
	e.publish(ctx, events.NewCollectionChanged(id, view))
	return view, nil
}

// Import merges a JSON export into the library. Existing keys win.
func (e *Engine) Import(ctx context.Context, data []byte) (added, skipped int, err error) {
	incoming, skipped, err := library.ParseImport(data, e.now())
	if err != nil {
		return 0, 0, err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return 0, skipped, ErrNotLoaded
	}
	merged, added := library.MergeImport(e.items, incoming)
	if added == 0 {
		e.mu.Unlock()
		return 0, skipped, nil
	}
	gen, id, snapshot, view := e.commitLocked(merged)
	e.mu.Unlock()

	e.logger.Info("library imported", "identity", id, "added", added, "skipped", skipped)
	e.writeItems(ctx, store.LibraryKey(id), snapshot)
	e.publish(ctx, events.NewCollectionChanged(id, view))
	if e.syncsRemotely(id) {
		e.pushRemote(gen, id)
	}
	return added, skipped, nil
}

// Export encodes the current library.
func (e *Engine) Export() ([]byte, error) {
	return library.Export(e.Items())
}

// Clear empties the current identity's library. Bookmarks are kept.
func (e *Engine) Clear(ctx context.Context) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	gen, id, snapshot, view := e.commitLocked([]library.Item{})
	e.mu.Unlock()

	e.logger.Info("library cleared", "identity", id)
	e.writeItems(ctx, store.LibraryKey(id), snapshot)
	e.publish(ctx, events.NewCollectionChanged(id, view))
	if e.syncsRemotely(id) {
		e.pushRemote(gen, id)
	}
	return nil
}

// View returns the merged view of the current library and bookmarks.
func (e *Engine) View() []library.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return library.MergedView(e.items, e.bookmarks)
}

// Items returns a copy of the library without bookmark overlay.
func (e *Engine) Items() []library.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return library.Clone(e.items)
}

// Bookmarks returns a copy of the device bookmarks.
func (e *Engine) Bookmarks() []library.Bookmark {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]library.Bookmark(nil), e.bookmarks...)
}

// Identity returns the identity the library belongs to.
func (e *Engine) Identity() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// Stats summarizes the merged view.
func (e *Engine) Stats() library.Stats {
	return library.ComputeStats(e.View())
}

// Search ranks merged view entries by title.
func (e *Engine) Search(query string, limit int) []library.Match {
	return library.Search(e.View(), query, limit)
}

// SyncStatus reports remote health.
type SyncStatus struct {
	Identity      string    `json:"identity"`
	Authenticated bool      `json:"authenticated"`
	Remote        bool      `json:"remote"`
	Failures      int       `json:"failures"`
	Degraded      bool      `json:"degraded"`
	FailingSince  time.Time `json:"failing_since,omitempty"`
}

// Status returns the current sync status.
func (e *Engine) Status() SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SyncStatus{
		Identity:      e.identity,
		Authenticated: identity.IsAuthenticated(e.identity),
		Remote:        e.remote != nil,
		Failures:      e.failures,
		Degraded:      e.degraded,
		FailingSince:  e.failingAt,
	}
}

// Wait blocks until background remote writes finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Subscribe reloads the library whenever the identity changes.
func (e *Engine) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(events.EventIdentityChanged, func(ctx context.Context, ev events.Event) {
		if changed, ok := ev.(*events.IdentityChanged); ok {
			e.Load(ctx, changed.Current)
		}
	})
}

func (e *Engine) syncsRemotely(id string) bool {
	return e.remote != nil && identity.IsAuthenticated(id)
}

// pushRemote writes the latest collection of generation gen in the
// background. Writes are serialized and each sends the state current when it
// starts, so a slow write can never overwrite a newer one.
func (e *Engine) pushRemote(gen uint64, id string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.saveMu.Lock()
		defer e.saveMu.Unlock()

		e.mu.Lock()
		if gen != e.generation {
			e.mu.Unlock()
			return
		}
		items := library.Clone(e.items)
		e.mu.Unlock()
		if items == nil {
			items = []library.Item{}
		}

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.WriteTimeout)
		defer cancel()
		err := e.remote.SaveLibrary(ctx, id, items)
		e.recordResult(gen, "save", err)
	}()
}

// recordResult tracks consecutive remote failures for generation gen.
func (e *Engine) recordResult(gen uint64, op string, err error) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding remote result for stale identity", "operation", op)
		return
	}
	id := e.identity
	if err == nil {
		recovered := e.failures > 0
		e.failures = 0
		e.degraded = false
		e.failingAt = time.Time{}
		e.mu.Unlock()
		if recovered {
			e.logger.Info("remote sync recovered", "identity", id, "operation", op)
		}
		return
	}
	if e.failures == 0 {
		e.failingAt = e.now()
	}
	e.failures++
	failures := e.failures
	since := e.failingAt
	escalate := e.cfg.EscalateAfter > 0 && failures >= e.cfg.EscalateAfter && !e.degraded
	if escalate {
		e.degraded = true
	}
	e.mu.Unlock()

	ctx := context.Background()
	e.logger.Warn("remote sync failed", "identity", id, "operation", op, "failures", failures, "error", err)
	e.publish(ctx, &events.SyncFailed{
		BaseEvent: events.NewBaseEvent(events.EventSyncFailed, events.EntityLibrary, id),
		Operation: op,
		Error:     err.Error(),
		Failures:  failures,
	})
	if escalate {
		e.logger.Error("remote sync degraded", "identity", id, "failures", failures)
		e.publish(ctx, &events.SyncDegraded{
			BaseEvent: events.NewBaseEvent(events.EventSyncDegraded, events.EntityLibrary, id),
			Failures:  failures,
			Since:     since,
		})
	}
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.bus.Publish(ctx, ev); err != nil {
		e.logger.Error("failed to publish event", "type", ev.EventType(), "error", err)
	}
}

// readItems loads a library snapshot. Missing or malformed data yields an
// empty library.
func (e *Engine) readItems(ctx context.Context, key string) []library.Item {
	var items []library.Item
	if !e.readJSON(ctx, key, &items) {
		return []library.Item{}
	}
	for _, it := range items {
		if it.ID == "" || it.MediaType == "" {
			e.logger.Warn("discarding malformed library snapshot", "key", key, "reason", "item without key")
			return []library.Item{}
		}
	}
	return library.Dedupe(items)
}

func (e *Engine) readBookmarks(ctx context.Context) []library.Bookmark {
	var bookmarks []library.Bookmark
	if !e.readJSON(ctx, store.BookmarksKey, &bookmarks) {
		return nil
	}
	return library.DedupeBookmarks(bookmarks)
}

func (e *Engine) readJSON(ctx context.Context, key string, v any) bool {
	data, err := e.local.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		e.logger.Warn("local read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		e.logger.Warn("discarding malformed local data", "key", key, "error", err)
		return false
	}
	return true
}

func (e *Engine) writeItems(ctx context.Context, key string, items []library.Item) {
	if items == nil {
		items = []library.Item{}
	}
	if err := e.writeJSON(ctx, key, items); err != nil {
		e.logger.Warn("failed to persist library", "key", key, "error", err)
	}
}

func (e *Engine) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return e.local.Set(ctx, key, data)
}
