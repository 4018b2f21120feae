// internal/events/sync.go
package events

import "time"

// SyncFailed is advisory: a remote write or read failed and local state stands.
type SyncFailed struct {
	BaseEvent
	Operation string `json:"operation"` // "load" or "save"
	Error     string `json:"error"`
	Failures  int    `json:"failures"` // consecutive failures so far
}

// SyncDegraded is published once when consecutive failures reach the threshold.
type SyncDegraded struct {
	BaseEvent
	Failures int       `json:"failures"`
	Since    time.Time `json:"since"`
}

// HistoryChanged carries summaries of the stored chat sessions.
type HistoryChanged struct {
	BaseEvent
	Sessions []SessionSummary `json:"sessions"`
}

// SessionSummary describes a stored chat session.
type SessionSummary struct {
	ID          string    `json:"id"`
	PreviewText string    `json:"preview_text"`
	Messages    int       `json:"messages"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IdentityChanged is published when the caller identity switches.
type IdentityChanged struct {
	BaseEvent
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// NewIdentityChanged builds an IdentityChanged. The entity id is the new identity.
func NewIdentityChanged(previous, current string) *IdentityChanged {
	return &IdentityChanged{
		BaseEvent: NewBaseEvent(EventIdentityChanged, EntityIdentity, current),
		Previous:  previous,
		Current:   current,
	}
}
