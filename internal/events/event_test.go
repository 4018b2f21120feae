package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaseEvent_ImplementsEvent(t *testing.T) {
	now := time.Now()
	e := BaseEvent{
		Type:      "test.event",
		Entity:    "library",
		ID:        "user-1",
		Timestamp: now,
	}

	assert.Equal(t, "test.event", e.EventType())
	assert.Equal(t, "library", e.EntityType())
	assert.Equal(t, "user-1", e.EntityID())
	assert.Equal(t, now, e.OccurredAt())
}

func TestNewBaseEvent(t *testing.T) {
	e := NewBaseEvent(EventCollectionChanged, EntityLibrary, "guest")

	assert.Equal(t, "collection.changed", e.EventType())
	assert.Equal(t, "library", e.EntityType())
	assert.Equal(t, "guest", e.EntityID())
	assert.False(t, e.OccurredAt().IsZero())
}
