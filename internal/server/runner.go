// Package server wires the sync components together and runs them.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	v1 "github.com/vmunix/cinesync/internal/api/v1"
	"github.com/vmunix/cinesync/internal/engine"
	"github.com/vmunix/cinesync/internal/events"
	"github.com/vmunix/cinesync/internal/history"
	"github.com/vmunix/cinesync/internal/identity"
	"github.com/vmunix/cinesync/internal/remote"
	"github.com/vmunix/cinesync/internal/store"
	"golang.org/x/sync/errgroup"
)

// Config for the daemon.
type Config struct {
	Addr    string
	Version string

	// RemoteURL selects an HTTP remote. Empty keeps the library local-only
	// unless ServeRemote is set.
	RemoteURL     string
	RemoteToken   string
	RemoteTimeout time.Duration
	// ServeRemote exposes the local documents table as a remote and syncs
	// the daemon's own engine against it.
	ServeRemote bool

	EscalateAfter int
	WriteTimeout  time.Duration

	PersistEvents  bool
	EventRetention time.Duration
	PruneInterval  time.Duration

	ShutdownTimeout time.Duration
}

// Runner owns the daemon components.
type Runner struct {
	db     *sql.DB
	config Config
	logger *slog.Logger

	ready chan struct{}
	mu    sync.Mutex
	addr  net.Addr
}

// NewRunner creates a new runner.
func NewRunner(db *sql.DB, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Hour
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Runner{
		db:     db,
		config: cfg,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the HTTP listener is bound.
func (r *Runner) Ready() <-chan struct{} {
	return r.ready
}

// Addr returns the bound listener address, or nil before Ready.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

// components is everything Run wires together.
type components struct {
	bus      *events.Bus
	eventLog *events.EventLog
	engine   *engine.Engine
	history  *history.Store
	notifier *identity.Notifier
	api      *v1.Server
	mux      *http.ServeMux
	unsubs   []func()
}

func (c *components) close() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	_ = c.bus.Close()
}

func (r *Runner) build() (*components, error) {
	local := store.New(r.db)

	var eventLog *events.EventLog
	if r.config.PersistEvents {
		eventLog = events.NewEventLog(r.db)
	}
	bus := events.NewBus(eventLog, r.logger.With("component", "bus"))

	mux := http.NewServeMux()

	// remote.Store must stay a nil interface when no remote is configured.
	var rem remote.Store
	switch {
	case r.config.ServeRemote:
		docs := remote.NewDocuments(r.db)
		remote.NewServer(docs, r.config.RemoteToken, r.logger.With("component", "remote-server")).RegisterRoutes(mux)
		rem = docs
	case r.config.RemoteURL != "":
		rem = remote.NewClient(r.config.RemoteURL, r.config.RemoteToken, r.config.RemoteTimeout)
	}

	eng := engine.New(local, rem, bus, engine.Config{
		EscalateAfter: r.config.EscalateAfter,
		WriteTimeout:  r.config.WriteTimeout,
	}, r.logger.With("component", "engine"))
	hist := history.NewStore(local, bus, r.logger.With("component", "history"))
	notifier := identity.NewNotifier(bus, local, store.IdentityKey(), r.logger.With("component", "identity"))

	api, err := v1.New(v1.ServerDeps{
		Library:  eng,
		History:  hist,
		Identity: notifier,
		EventLog: eventLog,
		Remote:   rem,
		Bus:      bus,
	}, v1.Config{Version: r.config.Version})
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("api: %w", err)
	}
	api.RegisterRoutes(mux)

	return &components{
		bus:      bus,
		eventLog: eventLog,
		engine:   eng,
		history:  hist,
		notifier: notifier,
		api:      api,
		mux:      mux,
		unsubs:   []func(){eng.Subscribe(bus), hist.Subscribe(bus)},
	}, nil
}

// Run loads the remembered identity, serves HTTP and prunes the event log.
// It blocks until the context is canceled or a component fails.
func (r *Runner) Run(ctx context.Context) error {
	c, err := r.build()
	if err != nil {
		return err
	}
	defer c.close()

	id := c.notifier.Restore(ctx)
	view := c.engine.Load(ctx, id)
	c.history.Load(ctx, id)
	r.logger.Info("library loaded", "identity", id, "items", len(view))

	ln, err := net.Listen("tcp", r.config.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	r.mu.Lock()
	r.addr = ln.Addr()
	r.mu.Unlock()
	close(r.ready)

	srv := &http.Server{
		Handler:           LogRequests(c.mux, r.logger.With("component", "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(c.api.CloseStreams)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		c.engine.Wait()
		r.logger.Info("server stopped")
		return err
	})

	if c.eventLog != nil && r.config.EventRetention > 0 {
		g.Go(func() error {
			r.prune(ctx, c.eventLog)
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) prune(ctx context.Context, log *events.EventLog) {
	ticker := time.NewTicker(r.config.PruneInterval)
	defer ticker.Stop()

	for {
		n, err := log.Prune(ctx, r.config.EventRetention)
		switch {
		case err != nil && ctx.Err() == nil:
			r.logger.Warn("event prune failed", "error", err)
		case n > 0:
			r.logger.Info("pruned events", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
