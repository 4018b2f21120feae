package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Export encodes items as an indented JSON array.
func Export(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode library: %w", err)
	}
	return data, nil
}

// importRecord accepts both the export format and the older camelCase layout.
type importRecord struct {
	ID              json.RawMessage `json:"id"`
	MediaType       string          `json:"media_type"`
	Type            string          `json:"type"`
	Title           string          `json:"title"`
	Image           string          `json:"image"`
	PosterPath      string          `json:"poster_path"`
	Status          string          `json:"status"`
	Favorite        bool            `json:"favorite"`
	IsRewatching    bool            `json:"is_rewatching"`
	IsRewatchingOld bool            `json:"isRewatching"`
	Genres          json.RawMessage `json:"genres"`
	DurationMinutes int             `json:"duration_minutes"`
	Duration        int             `json:"duration"`
	Episodes        int             `json:"episodes"`
	DateAdded       *time.Time      `json:"date_added"`
	DateAddedOld    *time.Time      `json:"dateAdded"`
	DateCompleted   *time.Time      `json:"date_completed"`
	DateComplOld    *time.Time      `json:"dateCompleted"`
}

// ParseImport decodes a JSON array of items. Entries without id, type or
// title are skipped and counted.
func ParseImport(data []byte, now time.Time) ([]Item, int, error) {
	var records []importRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, 0, fmt.Errorf("%w: import must be a JSON array: %v", ErrInvalidItem, err)
	}

	var items []Item
	skipped := 0
	for _, r := range records {
		it, ok := r.item(now)
		if !ok {
			skipped++
			continue
		}
		items = append(items, it)
	}
	return items, skipped, nil
}

func (r importRecord) item(now time.Time) (Item, bool) {
	id := rawID(r.ID)
	typ := r.MediaType
	if typ == "" {
		typ = r.Type
	}
	mt, ok := ParseMediaType(typ)
	if id == "" || !ok || strings.TrimSpace(r.Title) == "" {
		return Item{}, false
	}

	status, ok := ParseStatus(r.Status)
	if !ok {
		status = StatusWatchlist
	}
	it := Item{
		ID:              NormalizeID(id),
		MediaType:       mt,
		Title:           r.Title,
		Image:           firstNonEmpty(r.Image, r.PosterPath),
		Status:          status,
		Favorite:        r.Favorite,
		Genres:          normalizeGenres(rawGenres(r.Genres)),
		DurationMinutes: r.DurationMinutes,
		Episodes:        r.Episodes,
		DateAdded:       now,
	}
	if it.DurationMinutes <= 0 {
		it.DurationMinutes = r.Duration
	}
	if it.DurationMinutes <= 0 {
		it.DurationMinutes = DefaultDuration(mt)
	}
	if t := firstTime(r.DateAdded, r.DateAddedOld); t != nil {
		it.DateAdded = *t
	}
	if status == StatusCompleted {
		it.IsRewatching = r.IsRewatching || r.IsRewatchingOld
		if t := firstTime(r.DateCompleted, r.DateComplOld); t != nil {
			it.DateCompleted = t
		} else {
			it.DateCompleted = &now
		}
	}
	return it, true
}

func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawGenres accepts either a list of names or a list of {"name": ...} objects.
func rawGenres(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names
	}
	var objs []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &objs); err == nil {
		for _, o := range objs {
			names = append(names, o.Name)
		}
	}
	return names
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstTime(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil && !t.IsZero() {
			c := *t
			return &c
		}
	}
	return nil
}

// MergeImport appends incoming items whose key is not already present.
// The first occurrence of a key wins. It returns the merged collection and
// how many items were added.
func MergeImport(existing, incoming []Item) ([]Item, int) {
	out := Clone(existing)
	seen := make(map[Key]bool, len(out)+len(incoming))
	for _, it := range out {
		seen[it.Key()] = true
	}
	added := 0
	for _, it := range incoming {
		if seen[it.Key()] {
			continue
		}
		seen[it.Key()] = true
		out = append(out, it.clone())
		added++
	}
	return out, added
}

// Dedupe canonicalizes item keys and drops later items that repeat an
// earlier key.
func Dedupe(items []Item) []Item {
	keyed := make([]Item, len(items))
	for i, it := range items {
		if k, ok := NormalizeKey(it.Key()); ok {
			it.ID, it.MediaType = k.ID, k.MediaType
		}
		keyed[i] = it
	}
	out, _ := MergeImport(nil, keyed)
	if out == nil {
		out = []Item{}
	}
	return out
}
