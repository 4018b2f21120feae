package remote

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/cinesync/internal/library"
	"github.com/vmunix/cinesync/internal/migrations"
	_ "modernc.org/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Apply(db))
	return db
}

func newTestServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewServer(NewDocuments(setupTestDB(t)), token, testLogger()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientServer_RoundTrip(t *testing.T) {
	srv := newTestServer(t, "secret")
	client := NewClient(srv.URL, "secret", time.Second)
	ctx := context.Background()

	_, err := client.LoadLibrary(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	items := []library.Item{
		{ID: "550", MediaType: library.MediaMovie, Title: "Fight Club", Status: library.StatusWatchlist, DurationMinutes: 120},
		{ID: "550", MediaType: library.MediaMovie, Title: "Duplicate", Status: library.StatusDropped},
	}
	require.NoError(t, client.SaveLibrary(ctx, "alice", items))

	got, err := client.LoadLibrary(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Fight Club", got[0].Title)

	// Users are isolated.
	_, err = client.LoadLibrary(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientServer_EmptyLibrary(t *testing.T) {
	srv := newTestServer(t, "")
	client := NewClient(srv.URL, "", time.Second)
	ctx := context.Background()

	require.NoError(t, client.SaveLibrary(ctx, "alice", nil))
	got, err := client.LoadLibrary(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClientServer_Unauthorized(t *testing.T) {
	srv := newTestServer(t, "secret")
	client := NewClient(srv.URL, "wrong", time.Second)

	_, err := client.LoadLibrary(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, client.SaveLibrary(context.Background(), "alice", nil), ErrUnauthorized)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	_, err := client.LoadLibrary(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error 502")
}

func TestClient_EscapesUserID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "", time.Second)
	_, err := client.LoadLibrary(context.Background(), "a b/c")
	require.NoError(t, err)
	assert.Equal(t, "/remote/v1/users/a%20b%2Fc/library", gotPath)
}

func TestDocuments_VersionIncrements(t *testing.T) {
	docs := NewDocuments(setupTestDB(t))
	ctx := context.Background()

	v1, err := docs.Put(ctx, "alice", "library", []byte(`[]`))
	require.NoError(t, err)
	v2, err := docs.Put(ctx, "alice", "library", []byte(`[{}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)
	assert.Equal(t, int64(2), v2)

	doc, err := docs.Get(ctx, "alice", "library")
	require.NoError(t, err)
	assert.Equal(t, `[{}]`, string(doc.Body))
	assert.Equal(t, int64(2), doc.Version)
}

func TestServer_RejectsInvalidJSON(t *testing.T) {
	srv := newTestServer(t, "")
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/remote/v1/users/alice/library", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocuments_AsStore(t *testing.T) {
	var s Store = NewDocuments(setupTestDB(t))
	ctx := context.Background()

	_, err := s.LoadLibrary(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	items := []library.Item{
		{ID: "603", MediaType: library.MediaMovie, Title: "The Matrix", Status: library.StatusCompleted},
		{ID: "603", MediaType: library.MediaMovie, Title: "The Matrix (dup)", Status: library.StatusWatchlist},
	}
	require.NoError(t, s.SaveLibrary(ctx, "alice", items))

	got, err := s.LoadLibrary(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "The Matrix", got[0].Title)

	require.NoError(t, s.SaveLibrary(ctx, "alice", nil))
	got, err = s.LoadLibrary(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}
