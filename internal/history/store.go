package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vmunix/cinesync/internal/events"
	"github.com/vmunix/cinesync/internal/identity"
	"github.com/vmunix/cinesync/internal/store"
)

var (
	// ErrNotFound indicates no stored session has the given ID.
	ErrNotFound = errors.New("session not found")

	// ErrEmptySession indicates a save with no messages.
	ErrEmptySession = errors.New("session has no messages")
)

// SaveStatus is the outcome of a Save.
type SaveStatus string

const (
	SaveStored    SaveStatus = "stored"
	SaveUnchanged SaveStatus = "unchanged" // same content as the last save
	SaveDropped   SaveStatus = "dropped"   // another save was in progress
)

// SaveResult reports what Save did.
type SaveResult struct {
	Status  SaveStatus `json:"status"`
	Session *Session   `json:"session,omitempty"`
}

// LocalStore is the durable device-local key/value store.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Publisher publishes change events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Store keeps the chat sessions of the current identity, newest first.
type Store struct {
	local  LocalStore
	bus    Publisher
	logger *slog.Logger
	now    func() time.Time

	saving  atomic.Bool
	writeMu sync.Mutex // orders local writes and change events; taken before mu

	mu       sync.Mutex
	identity string
	sessions []Session
	lastHash string
	likes    map[string]bool
}

// NewStore creates a history store for the guest identity.
func NewStore(local LocalStore, bus Publisher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		local:    local,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
		identity: identity.Guest,
		likes:    map[string]bool{},
	}
}

// Load switches to id and reads its sessions. Malformed data yields an empty history.
func (s *Store) Load(ctx context.Context, id string) []Session {
	id = identity.Normalize(id)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var sessions []Session
	if !s.readJSON(ctx, store.HistoryKey(id), &sessions) {
		sessions = nil
	}
	var likes map[string]bool
	if !s.readJSON(ctx, store.LikesKey(id), &likes) || likes == nil {
		likes = map[string]bool{}
	}

	s.mu.Lock()
	s.identity = id
	s.sessions = sessions
	s.likes = likes
	s.lastHash = ""
	out := cloneSessions(s.sessions)
	s.mu.Unlock()

	s.publish(ctx, id, out)
	return out
}

// Save stores a transcript. It is a no-op when the content matches the most
// recent save. Otherwise any stored session with the same content or the
// same ID is replaced and the new session goes first. A Save that starts
// while another is running is dropped.
func (s *Store) Save(ctx context.Context, sess Session) (SaveResult, error) {
	if len(sess.Messages) == 0 {
		return SaveResult{}, ErrEmptySession
	}
	if !s.saving.CompareAndSwap(false, true) {
		s.logger.Info("history save already in progress, dropping", "session", sess.ID)
		return SaveResult{Status: SaveDropped}, nil
	}
	defer s.saving.Store(false)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	hash := ContentHash(sess.Messages)

	s.mu.Lock()
	if hash == s.lastHash {
		s.mu.Unlock()
		return SaveResult{Status: SaveUnchanged}, nil
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.Messages = append([]Message(nil), sess.Messages...)
	for i := range sess.Messages {
		if sess.Messages[i].ID == "" {
			sess.Messages[i].ID = uuid.NewString()
		}
	}
	sess.ContentHash = hash
	sess.PreviewText = Preview(sess.Messages)
	sess.UpdatedAt = s.now()

	kept := make([]Session, 0, len(s.sessions)+1)
	kept = append(kept, sess)
	for _, existing := range s.sessions {
		if existing.ContentHash == hash || existing.ID == sess.ID {
			continue
		}
		kept = append(kept, existing)
	}
	s.sessions = kept
	s.lastHash = hash
	id := s.identity
	out := cloneSessions(s.sessions)
	s.mu.Unlock()

	if err := s.writeJSON(ctx, store.HistoryKey(id), out); err != nil {
		s.mu.Lock()
		if s.lastHash == hash {
			s.lastHash = ""
		}
		s.mu.Unlock()
		return SaveResult{}, err
	}
	s.publish(ctx, id, out)

	stored := out[0]
	return SaveResult{Status: SaveStored, Session: &stored}, nil
}

// List returns the stored sessions, newest first.
func (s *Store) List() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSessions(s.sessions)
}

// Get returns the session with the given ID.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return cloneSessions([]Session{sess})[0], nil
		}
	}
	return Session{}, ErrNotFound
}

// Search returns sessions whose preview or messages contain query, ignoring case.
func (s *Store) Search(query string) []Session {
	q := strings.ToLower(strings.TrimSpace(query))
	all := s.List()
	if q == "" {
		return all
	}
	var out []Session
	for _, sess := range all {
		if sess.matches(q) {
			out = append(out, sess)
		}
	}
	return out
}

// Delete removes one session.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	idx := -1
	for i, sess := range s.sessions {
		if sess.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete session %s: %w", id, ErrNotFound)
	}
	if s.sessions[idx].ContentHash == s.lastHash {
		s.lastHash = ""
	}
	s.sessions = append(s.sessions[:idx:idx], s.sessions[idx+1:]...)
	owner := s.identity
	out := cloneSessions(s.sessions)
	s.mu.Unlock()

	if err := s.writeJSON(ctx, store.HistoryKey(owner), out); err != nil {
		return err
	}
	s.publish(ctx, owner, out)
	return nil
}

// Clear removes every session of the current identity.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.sessions = nil
	s.lastHash = ""
	owner := s.identity
	s.mu.Unlock()

	if err := s.local.Delete(ctx, store.HistoryKey(owner)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.publish(ctx, owner, nil)
	return nil
}

// ToggleLike flips the liked state of a message and reports the new state.
func (s *Store) ToggleLike(ctx context.Context, messageID string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	liked := !s.likes[messageID]
	if liked {
		s.likes[messageID] = true
	} else {
		delete(s.likes, messageID)
	}
	owner := s.identity
	snapshot := make(map[string]bool, len(s.likes))
	for k, v := range s.likes {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := s.writeJSON(ctx, store.LikesKey(owner), snapshot); err != nil {
		return false, err
	}
	return liked, nil
}

// LikedMessage is a liked message with the preview of its session.
type LikedMessage struct {
	Message
	SessionID      string `json:"session_id"`
	SessionPreview string `json:"session_preview"`
}

// Liked returns the liked messages found in stored sessions.
func (s *Store) Liked() []LikedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LikedMessage
	for _, sess := range s.sessions {
		for _, m := range sess.Messages {
			if s.likes[m.ID] {
				out = append(out, LikedMessage{Message: m, SessionID: sess.ID, SessionPreview: sess.PreviewText})
			}
		}
	}
	return out
}

// Subscribe reloads history whenever the identity changes.
func (s *Store) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(events.EventIdentityChanged, func(ctx context.Context, ev events.Event) {
		if changed, ok := ev.(*events.IdentityChanged); ok {
			s.Load(ctx, changed.Current)
		}
	})
}

func (s *Store) publish(ctx context.Context, owner string, sessions []Session) {
	summaries := make([]events.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sess.Summary())
	}
	e := &events.HistoryChanged{
		BaseEvent: events.NewBaseEvent(events.EventHistoryChanged, events.EntityHistory, owner),
		Sessions:  summaries,
	}
	if err := s.bus.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish history change", "error", err)
	}
}

func (s *Store) readJSON(ctx context.Context, key string, v any) bool {
	data, err := s.local.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn("local read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("discarding malformed local data", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.local.Set(ctx, key, data); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func cloneSessions(in []Session) []Session {
	if in == nil {
		return nil
	}
	out := make([]Session, len(in))
	for i, sess := range in {
		sess.Messages = append([]Message(nil), sess.Messages...)
		out[i] = sess
	}
	return out
}
