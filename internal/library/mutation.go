package library

import (
	"fmt"
	"time"
)

// Op names a collection mutation.
type Op string

const (
	OpAdd            Op = "add"
	OpRemove         Op = "remove"
	OpUpdate         Op = "update"
	OpSetStatus      Op = "set_status"
	OpToggleFavorite Op = "toggle_favorite"
	OpToggleBookmark Op = "toggle_bookmark"
	OpSetRewatching  Op = "set_rewatching"
)

// IsStatusOp reports whether op changes an item's watch state.
// Status ops are rejected for standalone bookmarks.
func (op Op) IsStatusOp() bool {
	return op == OpSetStatus || op == OpSetRewatching
}

// Mutation is a single change requested against a collection.
type Mutation struct {
	Op         Op       `json:"op"`
	Item       Metadata `json:"item"`
	Status     Status   `json:"status,omitempty"`
	Rewatching bool     `json:"rewatching,omitempty"`
}

// Result is the outcome of applying a mutation.
type Result struct {
	Items   []Item
	Changed bool
	Removed *Key // set when the mutation removed an item
}

// Apply computes the collection produced by m without touching items.
func Apply(items []Item, m Mutation, now time.Time) (Result, error) {
	meta, err := m.Item.Normalize()
	if err != nil {
		return Result{}, err
	}
	out := Clone(items)
	k := meta.Key()
	idx := indexOf(out, k)

	switch m.Op {
	case OpAdd:
		if idx >= 0 {
			return Result{Items: out}, nil
		}
		status := m.Status
		if status == "" {
			status = StatusWatchlist
		}
		if _, ok := ParseStatus(string(status)); !ok {
			return Result{}, invalid("unknown status %q", status)
		}
		it := newItem(meta, status, now)
		if status == StatusCompleted {
			it.DateCompleted = &now
		}
		return Result{Items: append(out, it), Changed: true}, nil

	case OpRemove:
		if idx < 0 {
			return Result{Items: out}, nil
		}
		return Result{Items: append(out[:idx], out[idx+1:]...), Changed: true, Removed: &k}, nil

	case OpUpdate:
		if idx < 0 {
			return Result{}, fmt.Errorf("update %s: %w", k, ErrNotFound)
		}
		it := &out[idx]
		if meta.Title != "" {
			it.Title = meta.Title
		}
		if meta.Image != "" {
			it.Image = meta.Image
		}
		if meta.Genres != nil {
			it.Genres = meta.Genres
		}
		if m.Item.DurationMinutes > 0 {
			it.DurationMinutes = meta.DurationMinutes
		}
		if meta.Episodes > 0 {
			it.Episodes = meta.Episodes
		}
		return Result{Items: out, Changed: true}, nil

	case OpSetStatus:
		status, ok := ParseStatus(string(m.Status))
		if !ok {
			return Result{}, invalid("unknown status %q", m.Status)
		}
		if idx < 0 {
			it := newItem(meta, status, now)
			if status == StatusCompleted {
				it.DateCompleted = &now
			}
			return Result{Items: append(out, it), Changed: true}, nil
		}
		it := &out[idx]
		if it.Status == StatusCompleted && it.IsRewatching && status == StatusCompleted {
			return Result{Items: out}, nil
		}
		if it.Status == status {
			return Result{Items: append(out[:idx], out[idx+1:]...), Changed: true, Removed: &k}, nil
		}
		setStatus(it, status, now)
		return Result{Items: out, Changed: true}, nil

	case OpToggleFavorite:
		if idx < 0 {
			it := newItem(meta, StatusWatchlist, now)
			it.Favorite = true
			return Result{Items: append(out, it), Changed: true}, nil
		}
		out[idx].Favorite = !out[idx].Favorite
		return Result{Items: out, Changed: true}, nil

	case OpSetRewatching:
		if idx < 0 {
			return Result{}, fmt.Errorf("set rewatching %s: %w", k, ErrNotFound)
		}
		it := &out[idx]
		if it.Status != StatusCompleted {
			return Result{}, fmt.Errorf("set rewatching %s: %w", k, ErrNotCompleted)
		}
		if it.IsRewatching == m.Rewatching {
			return Result{Items: out}, nil
		}
		it.IsRewatching = m.Rewatching
		return Result{Items: out, Changed: true}, nil

	case OpToggleBookmark:
		return Result{}, fmt.Errorf("%w: %s applies to bookmarks", ErrUnknownOp, m.Op)
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownOp, m.Op)
}

func setStatus(it *Item, status Status, now time.Time) {
	if it.Status == StatusCompleted && status != StatusCompleted {
		it.IsRewatching = false
	}
	if status == StatusCompleted && it.DateCompleted == nil {
		t := now
		it.DateCompleted = &t
	}
	it.Status = status
}

// ToggleBookmark adds a bookmark for meta, or removes it if present.
// It reports whether the bookmark now exists.
func ToggleBookmark(bookmarks []Bookmark, meta Metadata, now time.Time) ([]Bookmark, bool, error) {
	meta, err := meta.Normalize()
	if err != nil {
		return nil, false, err
	}
	out := make([]Bookmark, 0, len(bookmarks)+1)
	found := false
	for _, b := range bookmarks {
		if b.Key() == meta.Key() {
			found = true
			continue
		}
		out = append(out, b)
	}
	if found {
		return out, false, nil
	}
	return append(out, Bookmark{
		ID:        meta.ID,
		MediaType: meta.MediaType,
		Title:     meta.Title,
		Image:     meta.Image,
		DateAdded: now,
	}), true, nil
}

// DedupeBookmarks canonicalizes stored bookmark keys. Entries without a
// usable key and later repeats of a key are dropped.
func DedupeBookmarks(bookmarks []Bookmark) []Bookmark {
	out := make([]Bookmark, 0, len(bookmarks))
	seen := make(map[Key]bool, len(bookmarks))
	for _, b := range bookmarks {
		k, ok := NormalizeKey(b.Key())
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		b.ID, b.MediaType = k.ID, k.MediaType
		out = append(out, b)
	}
	return out
}

// HasBookmark reports whether k is bookmarked.
func HasBookmark(bookmarks []Bookmark, k Key) bool {
	for _, b := range bookmarks {
		if b.Key() == k {
			return true
		}
	}
	return false
}
