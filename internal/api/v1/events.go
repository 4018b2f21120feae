package v1

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/vmunix/cinesync/internal/events"
)

// listEvents returns persisted events, most recent first. With ?since=<id>
// it returns the events after that id in order instead. ?type, ?entity_type
// and ?entity_id narrow the result. Each event carries a one-line summary
// when its payload decodes.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit must be non-negative")
		return
	}
	const maxLimit = 1000
	if limit > maxLimit {
		limit = maxLimit
	}

	q := r.URL.Query()
	filtered := false
	for _, k := range []string{"type", "entity_type", "entity_id", "since"} {
		filtered = filtered || q.Get(k) != ""
	}

	query := events.Query{
		EventType:   q.Get("type"),
		EntityType:  q.Get("entity_type"),
		EntityID:    q.Get("entity_id"),
		Limit:       limit,
		NewestFirst: true,
	}
	if v := q.Get("since"); v != "" {
		since, err := strconv.ParseInt(v, 10, 64)
		if err != nil || since < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be a non-negative event id")
			return
		}
		query.AfterID = since
		query.NewestFirst = false
	}

	var (
		raw []events.RawEvent
		err error
	)
	if filtered {
		raw, err = s.deps.EventLog.Find(r.Context(), query)
	} else {
		raw, err = s.deps.EventLog.Recent(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	resp := listEventsResponse{
		Items: make([]EventResponse, len(raw)),
		Total: len(raw),
		Limit: limit,
	}
	for i, e := range raw {
		resp.Items[i] = EventResponse{
			ID:         e.ID,
			EventType:  e.EventType,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			OccurredAt: e.OccurredAt.Format(time.RFC3339),
		}
		if decoded, err := s.registry.Unmarshal(e); err == nil {
			resp.Items[i].Summary = events.Summarize(decoded)
		}
		if q.Get("payload") == "true" {
			resp.Items[i].Payload = json.RawMessage(e.Payload)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
