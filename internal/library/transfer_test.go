package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImport(t *testing.T) {
	data := []byte(`[
		{"id": 550, "type": "movie", "title": "Fight Club", "status": "Completed", "isRewatching": true, "duration": 139},
		{"id": "1396", "media_type": "tv", "title": "Breaking Bad", "genres": [{"name": "Drama"}]},
		{"id": 9, "type": "anime"},
		{"type": "movie", "title": "No ID"},
		{"id": 7, "type": "book", "title": "Bad Type"}
	]`)

	items, skipped, err := ParseImport(data, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	require.Len(t, items, 2)

	fc := items[0]
	assert.Equal(t, "550", fc.ID)
	assert.Equal(t, StatusCompleted, fc.Status)
	assert.True(t, fc.IsRewatching)
	assert.Equal(t, 139, fc.DurationMinutes)
	require.NotNil(t, fc.DateCompleted)

	bb := items[1]
	assert.Equal(t, MediaSeries, bb.MediaType)
	assert.Equal(t, StatusWatchlist, bb.Status)
	assert.Equal(t, []string{"Drama"}, bb.Genres)
	assert.Equal(t, 45, bb.DurationMinutes)
}

func TestParseImport_NotArray(t *testing.T) {
	_, _, err := ParseImport([]byte(`{"id": 1}`), testNow)
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestMergeImport_FirstOccurrenceWins(t *testing.T) {
	existing := []Item{{ID: "1", MediaType: MediaMovie, Title: "Local", Status: StatusWatching}}
	incoming := []Item{
		{ID: "1", MediaType: MediaMovie, Title: "Imported", Status: StatusCompleted},
		{ID: "2", MediaType: MediaMovie, Title: "New"},
		{ID: "2", MediaType: MediaMovie, Title: "New again"},
	}

	merged, added := MergeImport(existing, incoming)
	assert.Equal(t, 1, added)
	require.Len(t, merged, 2)
	assert.Equal(t, "Local", merged[0].Title)
	assert.Equal(t, "New", merged[1].Title)
}

func TestExportImportRoundTripDedupes(t *testing.T) {
	items := []Item{
		{ID: "1", MediaType: MediaMovie, Title: "A", Status: StatusWatchlist, DurationMinutes: 120, DateAdded: testNow},
		{ID: "2", MediaType: MediaAnime, Title: "B", Status: StatusWatching, DurationMinutes: 24, DateAdded: testNow},
	}
	data, err := Export(items)
	require.NoError(t, err)

	imported, skipped, err := ParseImport(data, testNow)
	require.NoError(t, err)
	assert.Zero(t, skipped)

	merged, added := MergeImport(items, imported)
	assert.Zero(t, added)
	assert.Equal(t, items, merged)
}

func TestExport_Empty(t *testing.T) {
	data, err := Export(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestDedupe(t *testing.T) {
	items := []Item{
		{ID: "1", MediaType: MediaMovie, Title: "first"},
		{ID: "1", MediaType: MediaMovie, Title: "second"},
		{ID: "1", MediaType: MediaSeries, Title: "series"},
	}
	out := Dedupe(items)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Title)
}

func TestDedupe_NormalizesStoredKeys(t *testing.T) {
	items := []Item{
		{ID: "0042", MediaType: "tv", Title: "legacy"},
		{ID: "42", MediaType: MediaSeries, Title: "current"},
	}
	out := Dedupe(items)
	require.Len(t, out, 1)
	assert.Equal(t, Key{ID: "42", MediaType: MediaSeries}, out[0].Key())
	assert.Equal(t, "legacy", out[0].Title)
}
