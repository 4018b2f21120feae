package remote

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vmunix/cinesync/internal/library"
)

const (
	kindLibrary  = "library"
	maxBodyBytes = 8 << 20
)

// Server serves the authoritative documents over HTTP.
type Server struct {
	docs   *Documents
	token  string
	logger *slog.Logger
}

// NewServer creates a document server. An empty token disables auth.
func NewServer(docs *Documents, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{docs: docs, token: token, logger: logger}
}

// RegisterRoutes registers the document routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /remote/v1/users/{uid}/library", s.requireToken(s.getLibrary))
	mux.HandleFunc("PUT /remote/v1/users/{uid}/library", s.requireToken(s.putLibrary))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) getLibrary(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	doc, err := s.docs.Get(r.Context(), uid, kindLibrary)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no library for user")
		return
	}
	if err != nil {
		s.logger.Error("load document failed", "user", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	var items []library.Item
	if err := json.Unmarshal(doc.Body, &items); err != nil {
		s.logger.Error("stored document is malformed", "user", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "MALFORMED", "stored library is malformed")
		return
	}
	writeJSON(w, http.StatusOK, LibraryDocument{Items: items, Version: doc.Version, UpdatedAt: doc.UpdatedAt})
}

func (s *Server) putLibrary(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	var doc LibraryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if doc.Items == nil {
		doc.Items = []library.Item{}
	}
	items := library.Dedupe(doc.Items)

	encoded, err := json.Marshal(items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	version, err := s.docs.Put(r.Context(), uid, kindLibrary, encoded)
	if err != nil {
		s.logger.Error("save document failed", "user", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	s.logger.Debug("library stored", "user", uid, "items", len(items), "version", version)
	writeJSON(w, http.StatusOK, map[string]int64{"version": version})
}
