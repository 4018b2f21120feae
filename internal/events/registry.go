// internal/events/registry.go
package events

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Registry decodes logged payloads back into their concrete event types.
type Registry struct {
	decoders map[string]func(payload []byte) (Event, error)
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]func([]byte) (Event, error))}
}

// Register binds eventType to the concrete type E. Payloads of that type
// decode into a fresh *E.
func Register[E any, P interface {
	*E
	Event
}](r *Registry, eventType string) {
	r.decoders[eventType] = func(payload []byte) (Event, error) {
		e := P(new(E))
		if err := json.Unmarshal(payload, e); err != nil {
			return nil, err
		}
		return e, nil
	}
}

// Types returns the registered event types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.decoders))
	for t := range r.decoders {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Unmarshal decodes raw into its concrete type. A payload whose own type
// disagrees with the stored row is rejected.
func (r *Registry) Unmarshal(raw RawEvent) (Event, error) {
	decode, ok := r.decoders[raw.EventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", raw.EventType)
	}
	e, err := decode([]byte(raw.Payload))
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", raw.EventType, err)
	}
	if e.EventType() != raw.EventType {
		return nil, fmt.Errorf("event %d: payload type %q, stored as %q", raw.ID, e.EventType(), raw.EventType)
	}
	return e, nil
}

// DefaultRegistry knows every event the daemon publishes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	Register[CollectionChanged](r, EventCollectionChanged)
	Register[ItemRemoved](r, EventItemRemoved)
	Register[BookmarksChanged](r, EventBookmarksChanged)
	Register[HistoryChanged](r, EventHistoryChanged)
	Register[SyncFailed](r, EventSyncFailed)
	Register[SyncDegraded](r, EventSyncDegraded)
	Register[IdentityChanged](r, EventIdentityChanged)
	return r
}

// Summarize describes e in one line for listings.
func Summarize(e Event) string {
	switch e := e.(type) {
	case *CollectionChanged:
		return plural(len(e.Items), "item")
	case *ItemRemoved:
		return fmt.Sprintf("removed %s/%s", e.MediaType, e.ItemID)
	case *BookmarksChanged:
		return "bookmarks updated"
	case *HistoryChanged:
		return plural(len(e.Sessions), "session")
	case *SyncFailed:
		return fmt.Sprintf("%s failed (%d in a row): %s", e.Operation, e.Failures, firstLine(e.Error))
	case *SyncDegraded:
		return fmt.Sprintf("degraded after %d failures", e.Failures)
	case *IdentityChanged:
		return e.Previous + " -> " + e.Current
	}
	return ""
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
