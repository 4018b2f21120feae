package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vmunix/cinesync/internal/events"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 5 * time.Second
)

// StreamEvent is one change notification sent over /events/stream.
type StreamEvent struct {
	EventType  string    `json:"event_type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Summary    string    `json:"summary,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

// streamEvents upgrades to a websocket and forwards bus events until the
// client goes away or CloseStreams is called. ?entity_type with ?entity_id
// limits the stream to one entity. A client that falls more than
// streamBuffer events behind loses the overflow.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	entityType, entityID := r.URL.Query().Get("entity_type"), r.URL.Query().Get("entity_id")
	if (entityType == "") != (entityID == "") {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", "entity_type and entity_id must be given together")
		return
	}

	msgs := make(chan StreamEvent, streamBuffer)
	forward := func(_ context.Context, e events.Event) {
		select {
		case msgs <- StreamEvent{
			EventType:  e.EventType(),
			EntityType: e.EntityType(),
			EntityID:   e.EntityID(),
			OccurredAt: e.OccurredAt(),
			Summary:    events.Summarize(e),
			Payload:    e,
		}:
		default:
		}
	}
	var unsub func()
	if entityType != "" {
		unsub = s.deps.Bus.SubscribeEntity(entityType, entityID, forward)
	} else {
		unsub = s.deps.Bus.SubscribeAll(forward)
	}
	defer unsub()

	// Changes made after the client's Dial returns are always delivered.
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case m := <-msgs:
			wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := wsjson.Write(wctx, conn, m)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// CloseStreams ends every open event stream. It is safe to call more than once.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}
