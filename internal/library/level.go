package library

// XP awarded per action.
const (
	XPAddToLibrary   = 2
	XPMovieWatched   = 25
	XPEpisodeWatched = 10
	XPHourWatchTime  = 5
)

// Level is a CineLevel rank.
type Level struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	MinXP  int    `json:"min_xp"`
}

var levels = []Level{
	{1, "Casual Viewer", 0},
	{2, "Weekend Binger", 1000},
	{3, "Movie Buff", 2500},
	{4, "Cinema Enthusiast", 5000},
	{5, "CineAddict", 8500},
	{6, "Film Connoisseur", 13000},
	{7, "Critic in the Making", 18500},
	{8, "CineXphile", 25000},
	{9, "Cinema Sage", 33000},
	{10, "CineGod", 42000},
}

// TotalXP scores a set of library items.
func TotalXP(items []Item) int {
	xp := 0
	for _, it := range items {
		if it.IsStandaloneBookmark {
			continue
		}
		xp += XPAddToLibrary
		if it.Status != StatusCompleted {
			continue
		}
		switch it.MediaType {
		case MediaMovie:
			xp += XPMovieWatched
		case MediaSeries, MediaAnime:
			eps := it.Episodes
			if eps < 1 {
				eps = 1
			}
			xp += XPEpisodeWatched * eps
		}
		if it.DurationMinutes > 0 {
			xp += it.DurationMinutes * XPHourWatchTime / 60
		}
	}
	return xp
}

// LevelFor returns the level reached with xp.
func LevelFor(xp int) Level {
	lvl := levels[0]
	for _, l := range levels {
		if xp >= l.MinXP {
			lvl = l
		}
	}
	return lvl
}

// NextLevel returns the level after l, or false at the top level.
func NextLevel(l Level) (Level, bool) {
	if l.Number < 1 || l.Number >= len(levels) {
		return Level{}, false
	}
	return levels[l.Number], true
}
