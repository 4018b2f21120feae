package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/cinesync/internal/events"
	"github.com/vmunix/cinesync/internal/identity"
	"github.com/vmunix/cinesync/internal/migrations"
	"github.com/vmunix/cinesync/internal/store"
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

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func transcript(texts ...string) []Message {
	msgs := make([]Message, 0, len(texts))
	for i, text := range texts {
		sender := SenderUser
		if i%2 == 1 {
			sender = SenderAssistant
		}
		msgs = append(msgs, Message{Sender: sender, Text: text, Timestamp: t0.Add(time.Duration(i) * time.Minute)})
	}
	return msgs
}

func newTestStore(t *testing.T) (*Store, *store.Store, *[]*events.HistoryChanged) {
	t.Helper()
	local := store.New(setupTestDB(t))
	bus := events.NewBus(nil, testLogger())
	var changes []*events.HistoryChanged
	bus.Subscribe(events.EventHistoryChanged, func(_ context.Context, e events.Event) {
		changes = append(changes, e.(*events.HistoryChanged))
	})
	return NewStore(local, bus, testLogger()), local, &changes
}

func TestContentHash(t *testing.T) {
	a := transcript("hi", "hello")
	b := transcript("hi", "hello")
	b[0].ID = "different-id"
	assert.Equal(t, ContentHash(a), ContentHash(b))

	c := transcript("hi", "hello!")
	assert.NotEqual(t, ContentHash(a), ContentHash(c))

	d := transcript("hi", "hello")
	d[1].Timestamp = d[1].Timestamp.Add(time.Second)
	assert.NotEqual(t, ContentHash(a), ContentHash(d))

	// Same instant in another zone hashes the same.
	e := transcript("hi", "hello")
	e[0].Timestamp = e[0].Timestamp.In(time.FixedZone("X", 3600))
	assert.Equal(t, ContentHash(a), ContentHash(e))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "New conversation", Preview(nil))
	assert.Equal(t, "New conversation", Preview([]Message{{Sender: SenderAssistant, Text: "Welcome"}}))
	assert.Equal(t, "recommend a movie...", Preview([]Message{
		{Sender: SenderAssistant, Text: "Welcome"},
		{Sender: SenderUser, Text: "recommend a movie"},
	}))

	long := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50)+"...", Preview([]Message{{Sender: SenderUser, Text: long}}))
}

func TestStore_SaveTwiceStoresOnce(t *testing.T) {
	s, _, changes := newTestStore(t)
	ctx := context.Background()

	res, err := s.Save(ctx, Session{Messages: transcript("hi", "hello")})
	require.NoError(t, err)
	assert.Equal(t, SaveStored, res.Status)
	require.NotNil(t, res.Session)
	assert.NotEmpty(t, res.Session.ID)
	assert.Equal(t, "hi...", res.Session.PreviewText)

	res, err = s.Save(ctx, Session{Messages: transcript("hi", "hello")})
	require.NoError(t, err)
	assert.Equal(t, SaveUnchanged, res.Status)

	assert.Len(t, s.List(), 1)
	assert.Len(t, *changes, 1)
}

func TestStore_RetriedSaveReplacesDuplicate(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, Session{ID: "a", Messages: transcript("first")})
	require.NoError(t, err)
	_, err = s.Save(ctx, Session{ID: "b", Messages: transcript("second")})
	require.NoError(t, err)
	_, err = s.Save(ctx, Session{ID: "c", Messages: transcript("first")})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}

func TestStore_ContinuedSessionReplacesByID(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, Session{ID: "a", Messages: transcript("q1")})
	require.NoError(t, err)
	_, err = s.Save(ctx, Session{ID: "b", Messages: transcript("other")})
	require.NoError(t, err)
	_, err = s.Save(ctx, Session{ID: "a", Messages: transcript("q1", "answer")})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Len(t, list[0].Messages, 2)
}

func TestStore_SaveEmpty(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, err := s.Save(context.Background(), Session{})
	assert.ErrorIs(t, err, ErrEmptySession)
}

// blockingStore holds the first Set until released.
type blockingStore struct {
	*store.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Set(ctx context.Context, key string, value []byte) error {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.Store.Set(ctx, key, value)
}

func TestStore_ConcurrentSaveIsDropped(t *testing.T) {
	local := &blockingStore{
		Store:   store.New(setupTestDB(t)),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewStore(local, events.NewBus(nil, testLogger()), testLogger())
	ctx := context.Background()

	done := make(chan SaveResult)
	go func() {
		res, err := s.Save(ctx, Session{Messages: transcript("slow")})
		assert.NoError(t, err)
		done <- res
	}()
	<-local.entered

	res, err := s.Save(ctx, Session{Messages: transcript("fast")})
	require.NoError(t, err)
	assert.Equal(t, SaveDropped, res.Status)

	close(local.release)
	assert.Equal(t, SaveStored, (<-done).Status)
	assert.Len(t, s.List(), 1)
}

func TestStore_DeleteWaitsForSaveWrite(t *testing.T) {
	base := store.New(setupTestDB(t))
	ctx := context.Background()
	first, err := NewStore(base, events.NewBus(nil, testLogger()), testLogger()).Save(ctx, Session{Messages: transcript("one")})
	require.NoError(t, err)

	local := &blockingStore{
		Store:   base,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewStore(local, events.NewBus(nil, testLogger()), testLogger())
	require.Len(t, s.Load(ctx, identity.Guest), 1)

	saved := make(chan struct{})
	go func() {
		_, err := s.Save(ctx, Session{Messages: transcript("two")})
		assert.NoError(t, err)
		close(saved)
	}()
	<-local.entered

	deleted := make(chan error)
	go func() { deleted <- s.Delete(ctx, first.Session.ID) }()

	select {
	case <-deleted:
		t.Fatal("delete finished while save was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(local.release)
	<-saved
	require.NoError(t, <-deleted)

	raw, err := local.Get(ctx, store.HistoryKey(identity.Guest))
	require.NoError(t, err)
	var stored []Session
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	require.Len(t, s.List(), 1)
	assert.Equal(t, s.List()[0].ID, stored[0].ID)
}

// failingStore rejects Set calls while fail is set.
type failingStore struct {
	*store.Store
	fail bool
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func TestStore_RetryAfterFailedWrite(t *testing.T) {
	local := &failingStore{Store: store.New(setupTestDB(t)), fail: true}
	s := NewStore(local, events.NewBus(nil, testLogger()), testLogger())
	ctx := context.Background()

	sess := Session{Messages: transcript("hi", "hello")}
	_, err := s.Save(ctx, sess)
	require.Error(t, err)

	local.fail = false
	res, err := s.Save(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, SaveStored, res.Status)

	_, err = local.Get(ctx, store.HistoryKey(identity.Guest))
	assert.NoError(t, err)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s, local, changes := newTestStore(t)
	ctx := context.Background()

	a, err := s.Save(ctx, Session{Messages: transcript("one")})
	require.NoError(t, err)
	_, err = s.Save(ctx, Session{Messages: transcript("two")})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, a.Session.ID))
	assert.Len(t, s.List(), 1)
	assert.ErrorIs(t, s.Delete(ctx, a.Session.ID), ErrNotFound)

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.List())
	assert.Len(t, *changes, 4)
	assert.Empty(t, (*changes)[3].Sessions)

	_, err = local.Get(ctx, store.HistoryKey(identity.Guest))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_SaveAfterDeleteOfLastSession(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	res, err := s.Save(ctx, Session{Messages: transcript("one")})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, res.Session.ID))

	res, err = s.Save(ctx, Session{Messages: transcript("one")})
	require.NoError(t, err)
	assert.Equal(t, SaveStored, res.Status)
}

func TestStore_Search(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, Session{Messages: transcript("Recommend anime", "Try Cowboy Bebop")})
	require.NoError(t, err)
	_, err = s.Save(ctx, Session{Messages: transcript("Best heist movie?", "Heat")})
	require.NoError(t, err)

	assert.Len(t, s.Search("bebop"), 1)
	assert.Len(t, s.Search("HEIST"), 1)
	assert.Len(t, s.Search(""), 2)
	assert.Empty(t, s.Search("western"))
}

func TestStore_IdentityScoped(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	s.Load(ctx, "alice")
	_, err := s.Save(ctx, Session{Messages: transcript("alice asks")})
	require.NoError(t, err)

	assert.Empty(t, s.Load(ctx, "bob"))
	list := s.Load(ctx, "alice")
	require.Len(t, list, 1)
	assert.Equal(t, "alice asks...", list[0].PreviewText)
}

func TestStore_ReloadsOnIdentityChange(t *testing.T) {
	local := store.New(setupTestDB(t))
	bus := events.NewBus(nil, testLogger())
	s := NewStore(local, bus, testLogger())
	defer s.Subscribe(bus)()
	ctx := context.Background()

	notifier := identity.NewNotifier(bus, nil, store.IdentityKey(), testLogger())
	notifier.Set(ctx, "alice")
	_, err := s.Save(ctx, Session{Messages: transcript("hello")})
	require.NoError(t, err)

	notifier.Set(ctx, identity.Guest)
	assert.Empty(t, s.List())
	notifier.Set(ctx, "alice")
	assert.Len(t, s.List(), 1)
}

func TestStore_Likes(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	res, err := s.Save(ctx, Session{Messages: transcript("q", "great answer")})
	require.NoError(t, err)
	answerID := res.Session.Messages[1].ID

	liked, err := s.ToggleLike(ctx, answerID)
	require.NoError(t, err)
	assert.True(t, liked)

	likes := s.Liked()
	require.Len(t, likes, 1)
	assert.Equal(t, "great answer", likes[0].Text)
	assert.Equal(t, res.Session.ID, likes[0].SessionID)

	// Likes survive a reload.
	s.Load(ctx, identity.Guest)
	assert.Len(t, s.Liked(), 1)

	liked, err = s.ToggleLike(ctx, answerID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Empty(t, s.Liked())
}

func TestStore_MalformedHistoryStartsEmpty(t *testing.T) {
	s, local, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, local.Set(ctx, store.HistoryKey("alice"), []byte("not json")))
	assert.Empty(t, s.Load(ctx, "alice"))
}
