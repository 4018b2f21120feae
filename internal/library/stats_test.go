package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	view := []Item{
		{ID: "1", MediaType: MediaMovie, Status: StatusCompleted, DurationMinutes: 120, Favorite: true},
		{ID: "2", MediaType: MediaSeries, Status: StatusCompleted, DurationMinutes: 45, Episodes: 10, IsRewatching: true},
		{ID: "3", MediaType: MediaAnime, Status: StatusWatching, DurationMinutes: 24, Bookmarked: true},
		{ID: "4", MediaType: MediaMovie, IsStandaloneBookmark: true, Bookmarked: true},
	}

	s := ComputeStats(view)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Favorites)
	assert.Equal(t, 2, s.Bookmarks)
	assert.Equal(t, 1, s.Rewatching)
	assert.Equal(t, 1, s.ByType[MediaMovie])
	assert.Equal(t, 1, s.ByType[MediaSeries])
	assert.Equal(t, 1, s.ByStatus[StatusWatching])
	assert.Equal(t, 165, s.WatchTime.Minutes)
	assert.Equal(t, 2, s.WatchTime.Hours)
	assert.InDelta(t, 0.1, s.WatchTime.Days, 0.0001)

	// 3 adds, movie 25 + 10 for 2h, series 10 episodes 100 + 3 for 45m.
	assert.Equal(t, 6+25+10+100+3, s.XP)
	assert.Equal(t, 1, s.Level.Number)
	assert.Equal(t, 1000, s.NextLevelAt)
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{8499, 4},
		{8500, 5},
		{41999, 9},
		{42000, 10},
		{100000, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.xp).Number, "xp=%d", tt.xp)
	}

	_, ok := NextLevel(LevelFor(50000))
	assert.False(t, ok)
	next, ok := NextLevel(LevelFor(0))
	assert.True(t, ok)
	assert.Equal(t, "Weekend Binger", next.Title)
}

func TestTotalXP_IgnoresUncompletedRuntime(t *testing.T) {
	items := []Item{{ID: "1", MediaType: MediaMovie, Status: StatusWatching, DurationMinutes: 600}}
	assert.Equal(t, XPAddToLibrary, TotalXP(items))
}
