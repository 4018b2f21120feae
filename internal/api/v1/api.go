// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vmunix/cinesync/internal/engine"
	"github.com/vmunix/cinesync/internal/events"
	"github.com/vmunix/cinesync/internal/identity"
	"github.com/vmunix/cinesync/internal/library"
)

const maxImportBytes = 8 << 20

// Config holds API server configuration.
type Config struct {
	Version string
}

// Server is the v1 API server.
type Server struct {
	deps     ServerDeps
	cfg      Config
	now      func() time.Time
	registry *events.Registry

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a new v1 API server.
func New(deps ServerDeps, cfg Config) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Server{
		deps:     deps,
		cfg:      cfg,
		now:      time.Now,
		registry: events.DefaultRegistry(),
		closing:  make(chan struct{}),
	}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Library
	mux.HandleFunc("GET /api/v1/library", s.listLibrary)
	mux.HandleFunc("DELETE /api/v1/library", s.clearLibrary)
	mux.HandleFunc("POST /api/v1/library/mutations", s.mutateLibrary)
	mux.HandleFunc("GET /api/v1/library/search", s.searchLibrary)
	mux.HandleFunc("GET /api/v1/library/stats", s.libraryStats)
	mux.HandleFunc("GET /api/v1/library/export", s.exportLibrary)
	mux.HandleFunc("POST /api/v1/library/import", limitBody(maxImportBytes, s.importLibrary))
	mux.HandleFunc("GET /api/v1/bookmarks", s.listBookmarks)

	// History
	mux.HandleFunc("GET /api/v1/history", s.listHistory)
	mux.HandleFunc("POST /api/v1/history", s.saveHistory)
	mux.HandleFunc("DELETE /api/v1/history", s.clearHistory)
	mux.HandleFunc("GET /api/v1/history/liked", s.listLiked)
	mux.HandleFunc("GET /api/v1/history/{id}", s.getSession)
	mux.HandleFunc("DELETE /api/v1/history/{id}", s.deleteSession)
	mux.HandleFunc("POST /api/v1/history/messages/{id}/like", s.toggleLike)

	// Identity
	mux.HandleFunc("GET /api/v1/identity", s.getIdentity)
	mux.HandleFunc("PUT /api/v1/identity", s.setIdentity)
	mux.HandleFunc("DELETE /api/v1/identity", s.clearIdentity)

	// Events
	mux.HandleFunc("GET /api/v1/events", s.requireEventLog(s.listEvents))
	mux.HandleFunc("GET /api/v1/events/stream", s.requireBus(s.streamEvents))

	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
	mux.HandleFunc("GET /api/v1/verify", s.verify)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// writeLibraryError maps engine and library errors to HTTP responses.
func writeLibraryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotLoaded):
		writeError(w, http.StatusConflict, "NOT_LOADED", err.Error())
	case errors.Is(err, library.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, "INVALID_ITEM", err.Error())
	case errors.Is(err, library.ErrUnknownOp):
		writeError(w, http.StatusBadRequest, "UNKNOWN_OP", err.Error())
	case errors.Is(err, library.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, library.ErrStandaloneBookmark):
		writeError(w, http.StatusConflict, "STANDALONE_BOOKMARK", err.Error())
	case errors.Is(err, library.ErrNotCompleted):
		writeError(w, http.StatusConflict, "NOT_COMPLETED", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func (s *Server) getIdentity(w http.ResponseWriter, r *http.Request) {
	id := s.deps.Identity.Current()
	writeJSON(w, http.StatusOK, identityResponse{Identity: id, Authenticated: identity.IsAuthenticated(id)})
}

func (s *Server) setIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	changed := s.deps.Identity.Set(r.Context(), req.Identity)
	id := s.deps.Identity.Current()
	writeJSON(w, http.StatusOK, identityResponse{
		Identity:      id,
		Authenticated: identity.IsAuthenticated(id),
		Changed:       changed,
	})
}

func (s *Server) clearIdentity(w http.ResponseWriter, r *http.Request) {
	changed := s.deps.Identity.Set(r.Context(), identity.Guest)
	writeJSON(w, http.StatusOK, identityResponse{Identity: identity.Guest, Changed: changed})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	sync := s.deps.Library.Status()
	status := "ok"
	if sync.Degraded {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    status,
		Version:   s.cfg.Version,
		Sync:      sync,
		Items:     len(s.deps.Library.View()),
		Bookmarks: len(s.deps.Library.Bookmarks()),
		Sessions:  len(s.deps.History.List()),
		Time:      s.now().UTC(),
	})
}
