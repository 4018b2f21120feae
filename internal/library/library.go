// Package library holds the media collection model and the pure functions that mutate it.
package library

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// MediaType distinguishes movies, series and anime.
type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaSeries MediaType = "series"
	MediaAnime  MediaType = "anime"
)

// ParseMediaType normalizes a media type string. "tv" is accepted as series.
func ParseMediaType(s string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return MediaMovie, true
	case "series", "tv":
		return MediaSeries, true
	case "anime":
		return MediaAnime, true
	}
	return "", false
}

// Status is the watch state of a library item. Exactly one applies at a time.
type Status string

const (
	StatusWatchlist   Status = "Watchlist"
	StatusWatching    Status = "Watching"
	StatusConsidering Status = "Considering"
	StatusCompleted   Status = "Completed"
	StatusDropped     Status = "Dropped"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusWatchlist, StatusWatching, StatusConsidering, StatusCompleted, StatusDropped}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// DefaultDuration returns the assumed runtime in minutes for a media type.
func DefaultDuration(mt MediaType) int {
	switch mt {
	case MediaMovie:
		return 120
	case MediaSeries:
		return 45
	case MediaAnime:
		return 24
	default:
		return 60
	}
}

// Key identifies an item within a collection.
type Key struct {
	ID        string    `json:"id"`
	MediaType MediaType `json:"media_type"`
}

func (k Key) String() string { return string(k.MediaType) + ":" + k.ID }

// NormalizeID trims an external id. Numeric ids keep their decimal form.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return id
}

// NormalizeKey canonicalizes a key read from storage. It reports false when
// the id is empty or the media type is unknown.
func NormalizeKey(k Key) (Key, bool) {
	id := NormalizeID(k.ID)
	mt, ok := ParseMediaType(string(k.MediaType))
	if id == "" || !ok {
		return k, false
	}
	return Key{ID: id, MediaType: mt}, true
}

// Item is a single entry in a user's library.
type Item struct {
	ID                   string     `json:"id"`
	MediaType            MediaType  `json:"media_type"`
	Title                string     `json:"title"`
	Image                string     `json:"image,omitempty"`
	Status               Status     `json:"status,omitempty"`
	IsRewatching         bool       `json:"is_rewatching,omitempty"`
	Favorite             bool       `json:"favorite,omitempty"`
	Bookmarked           bool       `json:"bookmarked,omitempty"`
	IsStandaloneBookmark bool       `json:"is_standalone_bookmark,omitempty"`
	Genres               []string   `json:"genres,omitempty"`
	DurationMinutes      int        `json:"duration_minutes"`
	Episodes             int        `json:"episodes,omitempty"`
	DateAdded            time.Time  `json:"date_added"`
	DateCompleted        *time.Time `json:"date_completed,omitempty"`
}

// Key returns the item's collection key.
func (i Item) Key() Key { return Key{ID: i.ID, MediaType: i.MediaType} }

// Bookmark is a device-scoped marker. It may exist without a library item.
type Bookmark struct {
	ID        string    `json:"id"`
	MediaType MediaType `json:"media_type"`
	Title     string    `json:"title"`
	Image     string    `json:"image,omitempty"`
	DateAdded time.Time `json:"date_added"`
}

// Key returns the bookmark's collection key.
func (b Bookmark) Key() Key { return Key{ID: b.ID, MediaType: b.MediaType} }

// Metadata is the display data supplied by the caller when an item is created.
type Metadata struct {
	ID              string    `json:"id"`
	MediaType       MediaType `json:"media_type"`
	Title           string    `json:"title"`
	Image           string    `json:"image,omitempty"`
	Genres          []string  `json:"genres,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Episodes        int       `json:"episodes,omitempty"`
}

// Key returns the metadata's collection key.
func (m Metadata) Key() Key { return Key{ID: m.ID, MediaType: m.MediaType} }

// Normalize fills defaults and canonicalizes the fields of m.
func (m Metadata) Normalize() (Metadata, error) {
	m.ID = NormalizeID(m.ID)
	if m.ID == "" {
		return m, invalid("id is required")
	}
	mt, ok := ParseMediaType(string(m.MediaType))
	if !ok {
		return m, invalid("unknown media type %q", m.MediaType)
	}
	m.MediaType = mt
	if m.DurationMinutes < 0 {
		return m, invalid("duration must not be negative")
	}
	if m.DurationMinutes == 0 {
		m.DurationMinutes = DefaultDuration(mt)
	}
	m.Genres = normalizeGenres(m.Genres)
	return m, nil
}

func normalizeGenres(genres []string) []string {
	if len(genres) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// newItem builds an item from metadata with the given status.
func newItem(m Metadata, status Status, now time.Time) Item {
	return Item{
		ID:              m.ID,
		MediaType:       m.MediaType,
		Title:           m.Title,
		Image:           m.Image,
		Status:          status,
		Genres:          m.Genres,
		DurationMinutes: m.DurationMinutes,
		Episodes:        m.Episodes,
		DateAdded:       now,
	}
}

// Clone returns a deep copy of items.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

func (i Item) clone() Item {
	if i.Genres != nil {
		i.Genres = append([]string(nil), i.Genres...)
	}
	if i.DateCompleted != nil {
		t := *i.DateCompleted
		i.DateCompleted = &t
	}
	return i
}

func indexOf(items []Item, k Key) int {
	for i := range items {
		if items[i].Key() == k {
			return i
		}
	}
	return -1
}

// Find returns the item with key k.
func Find(items []Item, k Key) (Item, bool) {
	if i := indexOf(items, k); i >= 0 {
		return items[i], true
	}
	return Item{}, false
}
