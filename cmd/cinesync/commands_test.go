package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/cinesync/internal/library"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"seconds", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"one day", now.Add(-25 * time.Hour), "1 day ago"},
		{"days", now.Add(-72 * time.Hour), "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatTimeAgo(tt.t))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b\tc", 10))
	assert.Equal(t, "Amélie ...", truncate("Amélie Poulain", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestLibraryList_Human(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/library").
		RespondJSON(LibraryResponse{
			Identity: "alice",
			Items: []library.Item{
				{ID: "603", MediaType: library.MediaMovie, Title: "The Matrix", Status: library.StatusCompleted, Favorite: true, IsRewatching: true},
				{ID: "1399", MediaType: library.MediaSeries, Title: "Game of Thrones", Bookmarked: true, IsStandaloneBookmark: true},
			},
			Total: 2,
		}).
		Build()

	out, err := runCLI(t, srv.URL, "library", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Library of alice (2)")
	assert.Contains(t, out, "The Matrix")
	assert.Contains(t, out, "fav,rewatching")
	assert.Contains(t, out, "bookmark")
}

func TestLibraryList_Empty(t *testing.T) {
	srv := newMockServer(t).RespondJSON(LibraryResponse{Identity: "guest"}).Build()

	out, err := runCLI(t, srv.URL, "library", "list", "--status", "watching")
	require.NoError(t, err)
	assert.Contains(t, out, "Library is empty")
}

func TestLibraryList_JSON(t *testing.T) {
	srv := newMockServer(t).
		RespondJSON(LibraryResponse{Identity: "guest", Items: []library.Item{{ID: "1", MediaType: library.MediaAnime, Title: "Frieren"}}, Total: 1}).
		Build()

	out, err := runCLI(t, srv.URL, "--json", "library", "list")
	require.NoError(t, err)

	var got LibraryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, "Frieren", got.Items[0].Title)
}

func TestLibraryAdd_SendsMetadata(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/library/mutations").
		ExpectPOST().
		ExpectJSONBody(library.Mutation{
			Op: library.OpAdd,
			Item: library.Metadata{
				ID:              "1399",
				MediaType:       "tv",
				Title:           "Game of Thrones",
				Genres:          []string{"Drama", "Fantasy"},
				DurationMinutes: 55,
				Episodes:        73,
			},
			Status: library.StatusWatching,
		}).
		RespondJSON(LibraryResponse{
			Identity: "guest",
			Items:    []library.Item{{ID: "1399", MediaType: library.MediaSeries, Title: "Game of Thrones", Status: library.StatusWatching}},
			Total:    1,
		}).
		Build()

	out, err := runCLI(t, srv.URL, "library", "add", "1399", "Game of Thrones",
		"--type", "tv", "--status", "watching", "--genres", "Drama, Fantasy", "--duration", "55", "--episodes", "73")
	require.NoError(t, err)
	assert.Contains(t, out, `series:1399 "Game of Thrones": Watching`)
}

func TestLibraryAdd_UnknownStatus(t *testing.T) {
	srv := newMockServer(t).Handler(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	}).Build()

	_, err := runCLI(t, srv.URL, "library", "add", "603", "The Matrix", "--status", "someday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestLibraryStatus_RemovedItem(t *testing.T) {
	srv := newMockServer(t).
		ExpectJSONBody(library.Mutation{
			Op:     library.OpSetStatus,
			Item:   library.Metadata{ID: "603", MediaType: library.MediaMovie},
			Status: library.StatusWatchlist,
		}).
		RespondJSON(LibraryResponse{Identity: "guest"}).
		Build()

	out, err := runCLI(t, srv.URL, "library", "status", "603", "watchlist")
	require.NoError(t, err)
	assert.Contains(t, out, "movie:603 is not in the library")
}

func TestLibraryRewatch_Off(t *testing.T) {
	srv := newMockServer(t).
		ExpectJSONBody(library.Mutation{
			Op:   library.OpSetRewatching,
			Item: library.Metadata{ID: "603", MediaType: library.MediaMovie},
		}).
		RespondJSON(LibraryResponse{
			Items: []library.Item{{ID: "603", MediaType: library.MediaMovie, Title: "The Matrix", Status: library.StatusCompleted}},
			Total: 1,
		}).
		Build()

	out, err := runCLI(t, srv.URL, "library", "rewatch", "603", "--off")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed")
	assert.NotContains(t, out, "rewatching")
}

func TestLibraryRewatch_ServerRejects(t *testing.T) {
	srv := newMockServer(t).
		Handler(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"item is not completed","code":"NOT_COMPLETED"}`))
		}).
		Build()

	_, err := runCLI(t, srv.URL, "library", "rewatch", "603")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set_rewatching failed")
	assert.Contains(t, err.Error(), "NOT_COMPLETED")
}

func TestLibraryClear_RequiresYes(t *testing.T) {
	srv := newMockServer(t).ExpectDELETE().RespondStatus(http.StatusNoContent).Build()

	_, err := runCLI(t, srv.URL, "library", "clear")
	require.Error(t, err)

	out, err := runCLI(t, srv.URL, "library", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Library cleared")
}

func TestLibraryExportImport_Files(t *testing.T) {
	doc := `[{"id":"603","media_type":"movie","title":"The Matrix"}]`
	exportSrv := newMockServer(t).
		ExpectPath("/api/v1/library/export").
		Handler(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(doc))
		}).
		Build()

	path := filepath.Join(t.TempDir(), "library.json")
	out, err := runCLI(t, exportSrv.URL, "library", "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(data))

	importSrv := newMockServer(t).
		ExpectPath("/api/v1/library/import").
		ExpectPOST().
		Handler(func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, ImportResponse{Added: 1, Skipped: 0})
		}).
		Build()

	out, err = runCLI(t, importSrv.URL, "library", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 items")
}

func TestLibraryStats_Human(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/library/stats").
		RespondJSON(library.Stats{
			Total:       3,
			Completed:   2,
			XP:          1200,
			Level:       library.Level{Number: 2, Title: "Weekend Binger", MinXP: 1000},
			NextLevelAt: 2500,
			ByStatus:    map[library.Status]int{library.StatusCompleted: 2, library.StatusWatching: 1},
			WatchTime:   library.WatchTime{Minutes: 600, Hours: 10, Days: 0.4},
		}).
		Build()

	out, err := runCLI(t, srv.URL, "library", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Level 2: Weekend Binger (1200 XP, next at 2500)")
	assert.Contains(t, out, "Watch time: 10h")
	assert.Contains(t, out, "Completed    2")
}

func TestWhoami(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/identity").
		ExpectGET().
		RespondJSON(IdentityResponse{Identity: "alice", Authenticated: true}).
		Build()

	out, err := runCLI(t, srv.URL, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "alice (signed in)\n", out)
}

func TestLogin_Unchanged(t *testing.T) {
	srv := newMockServer(t).
		ExpectPUT().
		RespondJSON(IdentityResponse{Identity: "alice", Authenticated: true}).
		Build()

	out, err := runCLI(t, srv.URL, "login", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice (signed in), unchanged\n", out)
}

func TestStatus_WithVerify(t *testing.T) {
	verify := VerifyResponse{Identity: "alice", LocalItems: 2, Problems: []string{"movie:603 missing on remote"}}
	verify.Remote.Configured = true
	verify.Remote.Reachable = true
	verify.Remote.Items = 1

	srv := newMockServer(t).
		Handler(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v1/status":
				respondJSON(t, w, StatusResponse{
					Status:  "ok",
					Version: "1.0.0",
					Sync:    SyncStatus{Identity: "alice", Authenticated: true, Remote: true, Failures: 3, Degraded: true, FailingSince: time.Now().Add(-2 * time.Hour)},
					Items:   2,
				})
			case "/api/v1/verify":
				respondJSON(t, w, verify)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}).
		Build()

	out, err := runCLI(t, srv.URL, "status", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "cinesync v1.0.0")
	assert.Contains(t, out, "DEGRADED (3 failures since 2h ago)")
	assert.Contains(t, out, "Remote:  ok (1 items)")
	assert.Contains(t, out, "In sync: no")
	assert.Contains(t, out, "movie:603 missing on remote")
}

func TestStatus_LocalOnly(t *testing.T) {
	srv := newMockServer(t).
		RespondJSON(StatusResponse{Status: "ok", Sync: SyncStatus{Identity: "guest"}}).
		Build()

	out, err := runCLI(t, srv.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "guest (guest)")
	assert.Contains(t, out, "local only")
}

func TestEvents_Human(t *testing.T) {
	srv := newMockServer(t).
		RespondJSON(ListEventsResponse{
			Items: []EventResponse{{ID: 7, EventType: "library.changed", EntityType: "library", EntityID: "alice", OccurredAt: time.Now().UTC().Format(time.RFC3339)}},
			Total: 1,
		}).
		Build()

	out, err := runCLI(t, srv.URL, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "library.changed")
	assert.Contains(t, out, "library/alice")
	assert.Contains(t, out, "just now")
}

func TestEvents_Follow(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 30, 0, 0, time.Local)
	srv := newMockServer(t).
		ExpectPath("/api/v1/events/stream").
		Handler(func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if !assert.NoError(t, err) {
				return
			}
			ctx := context.Background()
			assert.NoError(t, wsjson.Write(ctx, conn, StreamEvent{
				EventType:  "sync.degraded",
				EntityType: "library",
				EntityID:   "alice",
				OccurredAt: at,
			}))
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}).
		Build()

	out, err := runCLI(t, srv.URL, "events", "--follow")
	require.NoError(t, err)
	assert.Contains(t, out, "12:30:00")
	assert.Contains(t, out, "sync.degraded")
	assert.Contains(t, out, "library/alice")
}

func TestEvents_EntityFilter(t *testing.T) {
	var query string
	srv := newMockServer(t).
		ExpectPath("/api/v1/events").
		CaptureQuery(&query).
		RespondJSON(ListEventsResponse{
			Items: []EventResponse{{ID: 3, EventType: "item.removed", EntityType: "library", EntityID: "alice", OccurredAt: time.Now().UTC().Format(time.RFC3339), Summary: "removed movie/603"}},
			Total: 1,
		}).
		Build()

	out, err := runCLI(t, srv.URL, "events", "--entity", "library/alice")
	require.NoError(t, err)
	assert.Equal(t, "entity_id=alice&entity_type=library&limit=20", query)
	assert.Contains(t, out, "removed movie/603")

	_, err = runCLI(t, srv.URL, "events", "--entity", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want type/id")
}

func TestEvents_FollowConnectError(t *testing.T) {
	srv := newMockServer(t).RespondStatus(http.StatusServiceUnavailable).Build()

	_, err := runCLI(t, srv.URL, "events", "-f")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect stream")
}

func TestHistoryClear_RequiresYes(t *testing.T) {
	srv := newMockServer(t).ExpectPath("/api/v1/history").ExpectDELETE().RespondStatus(http.StatusNoContent).Build()

	_, err := runCLI(t, srv.URL, "history", "clear")
	require.Error(t, err)

	out, err := runCLI(t, srv.URL, "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared")
}

func TestHistorySave_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"messages":[{"sender":"user","text":"recommend a heist movie"}]}`), 0644))

	srv := newMockServer(t).
		ExpectPath("/api/v1/history").
		ExpectPOST().
		RespondJSON(map[string]any{"status": "unchanged"}).
		Build()

	out, err := runCLI(t, srv.URL, "history", "save", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Not saved (unchanged)")
}

func TestConfigInitAndTest(t *testing.T) {
	t.Setenv("CINESYNC_REMOTE_URL", "")
	t.Setenv("CINESYNC_REMOTE_TOKEN", "")
	path := filepath.Join(t.TempDir(), "cinesync", "config.toml")

	out, err := runCLI(t, "http://unused", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = runCLI(t, "http://unused", "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = runCLI(t, "http://unused", "config", "test", path)
	require.NoError(t, err)
	assert.Contains(t, out, "127.0.0.1:8585")
	assert.Contains(t, out, "none (local only)")
	assert.Contains(t, out, "Configuration valid!")
}

func TestConfigInit_Generated(t *testing.T) {
	t.Setenv("CINESYNC_REMOTE_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "http://unused", "config", "init", "--serve", "--port", "9191", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.Contains(t, out, "CINESYNC_REMOTE_TOKEN")

	out, err = runCLI(t, "http://unused", "config", "test", path)
	require.NoError(t, err)
	assert.Contains(t, out, "127.0.0.1:9191")
	assert.Contains(t, out, "serving from this daemon")
}

func TestConfigInit_GeneratedInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "http://unused", "config", "init", "--serve", "--remote-url", "https://sync.example.com", path)
	require.Error(t, err)
	assert.Contains(t, out, "[remote]")
	assert.Contains(t, out, "cannot serve documents")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConfigTest_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 70000\n[remote]\nserve = true\n"), 0644))

	out, err := runCLI(t, "http://unused", "config", "test", path)
	require.Error(t, err)
	assert.Contains(t, out, "Validation errors:")
	assert.Contains(t, out, "port")
	assert.Contains(t, out, "token")
}
