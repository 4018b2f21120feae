package library

// MergedView overlays bookmarks onto items. Items keep their order with
// Bookmarked set from the bookmark list. Bookmarks without a matching item
// follow as standalone entries in bookmark order. Neither input is modified.
func MergedView(items []Item, bookmarks []Bookmark) []Item {
	marked := make(map[Key]bool, len(bookmarks))
	for _, b := range bookmarks {
		marked[b.Key()] = true
	}

	out := make([]Item, 0, len(items)+len(bookmarks))
	present := make(map[Key]bool, len(items))
	for _, it := range items {
		it = it.clone()
		it.Bookmarked = marked[it.Key()]
		it.IsStandaloneBookmark = false
		present[it.Key()] = true
		out = append(out, it)
	}

	for _, b := range bookmarks {
		if present[b.Key()] {
			continue
		}
		present[b.Key()] = true
		out = append(out, Item{
			ID:                   b.ID,
			MediaType:            b.MediaType,
			Title:                b.Title,
			Image:                b.Image,
			Bookmarked:           true,
			IsStandaloneBookmark: true,
			DurationMinutes:      DefaultDuration(b.MediaType),
			DateAdded:            b.DateAdded,
		})
	}
	return out
}

// Favorites returns the favorite items of a merged view.
func Favorites(view []Item) []Item {
	var out []Item
	for _, it := range view {
		if it.Favorite {
			out = append(out, it)
		}
	}
	return out
}

// WithStatus returns the items of a merged view in status s.
func WithStatus(view []Item, s Status) []Item {
	var out []Item
	for _, it := range view {
		if !it.IsStandaloneBookmark && it.Status == s {
			out = append(out, it)
		}
	}
	return out
}
