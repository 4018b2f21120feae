package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventLog is the append-only audit trail of published changes, kept in
// the events table.
type EventLog struct {
	db *sql.DB
}

func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db}
}

// Append stores e with its JSON payload and returns the row id.
func (l *EventLog) Append(ctx context.Context, e Event) (int64, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO events (event_type, entity_type, entity_id, payload, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.EventType(), e.EntityType(), e.EntityID(), string(payload), e.OccurredAt(),
	)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", e.EventType(), err)
	}
	return res.LastInsertId()
}

// RawEvent is a stored event whose payload has not been decoded.
type RawEvent struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"event_type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Payload    string    `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Query selects stored events. Zero fields do not filter.
type Query struct {
	AfterID    int64
	EventType  string
	EntityType string
	EntityID   string
	Since      time.Time
	Limit      int
	// NewestFirst reverses the default id order.
	NewestFirst bool
}

func (q Query) sql() (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}
	if q.AfterID > 0 {
		add("id > ?", q.AfterID)
	}
	if q.EventType != "" {
		add("event_type = ?", q.EventType)
	}
	if q.EntityType != "" {
		add("entity_type = ?", q.EntityType)
	}
	if q.EntityID != "" {
		add("entity_id = ?", q.EntityID)
	}
	if !q.Since.IsZero() {
		add("occurred_at >= ?", q.Since)
	}

	var b strings.Builder
	b.WriteString("SELECT id, event_type, entity_type, entity_id, payload, occurred_at, created_at FROM events")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if q.NewestFirst {
		b.WriteString(" ORDER BY id DESC")
	} else {
		b.WriteString(" ORDER BY id ASC")
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args
}

// Find returns the events matching q.
func (l *EventLog) Find(ctx context.Context, q Query) ([]RawEvent, error) {
	stmt, args := q.sql()
	rows, err := l.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []RawEvent
	for rows.Next() {
		var e RawEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.EntityType, &e.EntityID, &e.Payload, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Recent returns the newest limit events, newest first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]RawEvent, error) {
	return l.Find(ctx, Query{Limit: limit, NewestFirst: true})
}

// Prune deletes events that occurred more than retention ago.
func (l *EventLog) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM events WHERE occurred_at < ?`, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
