// internal/events/library.go
package events

import "github.com/vmunix/cinesync/internal/library"

// Event types.
const (
	EventCollectionChanged = "collection.changed"
	EventItemRemoved       = "item.removed"
	EventBookmarksChanged  = "bookmarks.changed"
	EventHistoryChanged    = "history.changed"
	EventSyncFailed        = "sync.failed"
	EventSyncDegraded      = "sync.degraded"
	EventIdentityChanged   = "identity.changed"
)

// Entity types. The entity id of every event is the identity it concerns.
const (
	EntityLibrary   = "library"
	EntityBookmarks = "bookmarks"
	EntityHistory   = "history"
	EntityIdentity  = "identity"
)

// CollectionChanged carries the merged view after a change.
type CollectionChanged struct {
	BaseEvent
	Items []library.Item `json:"items"`
}

// ItemRemoved is published before the CollectionChanged of the same mutation.
type ItemRemoved struct {
	BaseEvent
	ItemID    string            `json:"item_id"`
	MediaType library.MediaType `json:"media_type"`
}

// BookmarksChanged has no payload. Subscribers re-read bookmarks.
type BookmarksChanged struct {
	BaseEvent
}

// NewCollectionChanged builds a CollectionChanged for identity.
func NewCollectionChanged(identity string, items []library.Item) *CollectionChanged {
	return &CollectionChanged{
		BaseEvent: NewBaseEvent(EventCollectionChanged, EntityLibrary, identity),
		Items:     items,
	}
}

// NewItemRemoved builds an ItemRemoved for identity.
func NewItemRemoved(identity string, k library.Key) *ItemRemoved {
	return &ItemRemoved{
		BaseEvent: NewBaseEvent(EventItemRemoved, EntityLibrary, identity),
		ItemID:    k.ID,
		MediaType: k.MediaType,
	}
}

// NewBookmarksChanged builds a BookmarksChanged. Bookmarks are device scoped.
func NewBookmarksChanged() *BookmarksChanged {
	return &BookmarksChanged{BaseEvent: NewBaseEvent(EventBookmarksChanged, EntityBookmarks, "device")}
}
