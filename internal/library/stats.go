package library

// Stats summarizes a merged view.
type Stats struct {
	Total       int               `json:"total"`
	Completed   int               `json:"completed"`
	Favorites   int               `json:"favorites"`
	Bookmarks   int               `json:"bookmarks"`
	Rewatching  int               `json:"rewatching"`
	ByType      map[MediaType]int `json:"by_type"`
	ByStatus    map[Status]int    `json:"by_status"`
	WatchTime   WatchTime         `json:"watch_time"`
	XP          int               `json:"xp"`
	Level       Level             `json:"level"`
	NextLevelAt int               `json:"next_level_at,omitempty"`
}

// WatchTime is the runtime of completed items.
type WatchTime struct {
	Minutes int     `json:"minutes"`
	Hours   int     `json:"hours"`
	Days    float64 `json:"days"`
}

// ComputeStats counts a merged view. Standalone bookmarks count only as bookmarks.
func ComputeStats(view []Item) Stats {
	s := Stats{
		ByType:   make(map[MediaType]int),
		ByStatus: make(map[Status]int),
	}
	var items []Item
	for _, it := range view {
		if it.Bookmarked {
			s.Bookmarks++
		}
		if it.IsStandaloneBookmark {
			continue
		}
		items = append(items, it)
		s.Total++
		s.ByType[it.MediaType]++
		s.ByStatus[it.Status]++
		if it.Favorite {
			s.Favorites++
		}
		if it.IsRewatching {
			s.Rewatching++
		}
		if it.Status == StatusCompleted {
			s.Completed++
			d := it.DurationMinutes
			if d <= 0 {
				d = DefaultDuration(it.MediaType)
			}
			s.WatchTime.Minutes += d
		}
	}
	s.WatchTime.Hours = s.WatchTime.Minutes / 60
	s.WatchTime.Days = float64(int(float64(s.WatchTime.Minutes)/(60*24)*10)) / 10

	s.XP = TotalXP(items)
	s.Level = LevelFor(s.XP)
	if next, ok := NextLevel(s.Level); ok {
		s.NextLevelAt = next.MinXP
	}
	return s
}
