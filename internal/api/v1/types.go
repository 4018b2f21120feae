// internal/api/v1/types.go
package v1

import (
	"time"

	"github.com/vmunix/cinesync/internal/engine"
	"github.com/vmunix/cinesync/internal/history"
	"github.com/vmunix/cinesync/internal/library"
)

// libraryResponse is the response for GET /library and POST /library/mutations.
type libraryResponse struct {
	Identity string         `json:"identity"`
	Items    []library.Item `json:"items"`
	Total    int            `json:"total"`
}

type searchResponse struct {
	Query   string          `json:"query"`
	Matches []library.Match `json:"matches"`
}

type importResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

type bookmarksResponse struct {
	Items []library.Bookmark `json:"items"`
	Total int                `json:"total"`
}

type historyResponse struct {
	Sessions []history.Session `json:"sessions"`
	Total    int               `json:"total"`
}

type likeResponse struct {
	MessageID string `json:"message_id"`
	Liked     bool   `json:"liked"`
}

type likedResponse struct {
	Messages []history.LikedMessage `json:"messages"`
	Total    int                    `json:"total"`
}

type identityRequest struct {
	Identity string `json:"identity"`
}

type identityResponse struct {
	Identity      string `json:"identity"`
	Authenticated bool   `json:"authenticated"`
	Changed       bool   `json:"changed"`
}

// EventResponse is a persisted event.
type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Summary    string `json:"summary,omitempty"`
	Payload    any    `json:"payload,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

type listEventsResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
	Limit int             `json:"limit"`
}

type statusResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Sync      engine.SyncStatus `json:"sync"`
	Items     int               `json:"items"`
	Bookmarks int               `json:"bookmarks"`
	Sessions  int               `json:"sessions"`
	Time      time.Time         `json:"time"`
}

// VerifyResponse is the response for GET /verify.
type VerifyResponse struct {
	Identity string `json:"identity"`
	Remote   struct {
		Configured bool   `json:"configured"`
		Reachable  bool   `json:"reachable"`
		Items      int    `json:"items"`
		Error      string `json:"error,omitempty"`
	} `json:"remote"`
	LocalItems int      `json:"local_items"`
	InSync     bool     `json:"in_sync"`
	Problems   []string `json:"problems"`
}
