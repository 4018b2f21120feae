// Package identity tracks who the caller is and announces when that changes.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/vmunix/cinesync/internal/events"
)

// Guest is the identity of an unauthenticated caller.
const Guest = "guest"

// Normalize trims id and maps an empty id to Guest.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return Guest
	}
	return id
}

// IsAuthenticated reports whether id names a signed-in user.
func IsAuthenticated(id string) bool {
	return Normalize(id) != Guest
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Persister stores the current identity across restarts.
type Persister interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Notifier holds the current identity and publishes identity.changed on every switch.
type Notifier struct {
	mu      sync.Mutex
	current string
	bus     Publisher
	persist Persister
	key     string
	logger  *slog.Logger
}

// NewNotifier creates a notifier starting as Guest.
// persist may be nil, in which case the identity is not remembered.
func NewNotifier(bus Publisher, persist Persister, key string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		current: Guest,
		bus:     bus,
		persist: persist,
		key:     key,
		logger:  logger,
	}
}

// Restore loads the remembered identity without publishing.
func (n *Notifier) Restore(ctx context.Context) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.persist == nil {
		return n.current
	}
	data, err := n.persist.Get(ctx, n.key)
	if err != nil {
		return n.current
	}
	n.current = Normalize(string(data))
	return n.current
}

// Current returns the current identity.
func (n *Notifier) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Set switches to id. It publishes identity.changed and returns true when
// the identity actually changed.
func (n *Notifier) Set(ctx context.Context, id string) bool {
	id = Normalize(id)

	n.mu.Lock()
	previous := n.current
	if previous == id {
		n.mu.Unlock()
		return false
	}
	n.current = id
	n.mu.Unlock()

	if n.persist != nil {
		if err := n.persist.Set(ctx, n.key, []byte(id)); err != nil {
			n.logger.Warn("failed to remember identity", "error", err)
		}
	}
	n.logger.Info("identity changed", "previous", previous, "current", id)
	if err := n.bus.Publish(ctx, events.NewIdentityChanged(previous, id)); err != nil {
		n.logger.Error("failed to publish identity change", "error", err)
	}
	return true
}
