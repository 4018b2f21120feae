// Package history stores chat sessions per identity with content-hash deduplication.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vmunix/cinesync/internal/events"
)

// Message senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

const previewRunes = 50

// Message is one entry of a chat transcript.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a stored chat transcript.
type Session struct {
	ID          string    `json:"id"`
	Messages    []Message `json:"messages"`
	PreviewText string    `json:"preview_text"`
	ContentHash string    `json:"content_hash"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary describes s for change notifications.
func (s Session) Summary() events.SessionSummary {
	return events.SessionSummary{
		ID:          s.ID,
		PreviewText: s.PreviewText,
		Messages:    len(s.Messages),
		UpdatedAt:   s.UpdatedAt,
	}
}

// ContentHash fingerprints a message sequence. Message IDs are not part of it.
func ContentHash(messages []Message) string {
	h := sha256.New()
	for _, m := range messages {
		h.Write([]byte(m.Sender))
		h.Write([]byte{0x1f})
		h.Write([]byte(m.Text))
		h.Write([]byte{0x1f})
		h.Write([]byte(m.Timestamp.UTC().Format(time.RFC3339Nano)))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Preview is the first user message cut to 50 runes plus "...", or
// "New conversation" when no user has spoken yet.
func Preview(messages []Message) string {
	for _, m := range messages {
		if m.Sender != SenderUser {
			continue
		}
		text := strings.TrimSpace(m.Text)
		if utf8.RuneCountInString(text) > previewRunes {
			text = string([]rune(text)[:previewRunes])
		}
		return text + "..."
	}
	return "New conversation"
}

// matches reports whether query appears in the preview or any message.
func (s Session) matches(query string) bool {
	if strings.Contains(strings.ToLower(s.PreviewText), query) {
		return true
	}
	for _, m := range s.Messages {
		if strings.Contains(strings.ToLower(m.Text), query) {
			return true
		}
	}
	return false
}
