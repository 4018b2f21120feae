package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/vmunix/cinesync/internal/engine"
	"github.com/vmunix/cinesync/internal/library"
)

func (s *Server) listLibrary(w http.ResponseWriter, r *http.Request) {
	view := s.deps.Library.View()

	if st := r.URL.Query().Get("status"); st != "" {
		status, ok := library.ParseStatus(st)
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status "+st)
			return
		}
		view = library.WithStatus(view, status)
	}
	if r.URL.Query().Get("favorites") == "true" {
		view = library.Favorites(view)
	}

	writeJSON(w, http.StatusOK, libraryResponse{
		Identity: s.deps.Library.Status().Identity,
		Items:    view,
		Total:    len(view),
	})
}

func (s *Server) mutateLibrary(w http.ResponseWriter, r *http.Request) {
	var m library.Mutation
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	view, err := s.deps.Library.Mutate(r.Context(), m)
	if err != nil {
		writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, libraryResponse{
		Identity: s.deps.Library.Status().Identity,
		Items:    view,
		Total:    len(view),
	})
}

func (s *Server) searchLibrary(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "MISSING_QUERY", "q is required")
		return
	}
	limit := queryInt(r, "limit", 20)
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be non-negative")
		return
	}

	matches := s.deps.Library.Search(q, limit)
	if matches == nil {
		matches = []library.Match{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Matches: matches})
}

func (s *Server) libraryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Library.Stats())
}

func (s *Server) exportLibrary(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Library.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EXPORT_ERROR", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="cinesync-library.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) importLibrary(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "READ_ERROR", err.Error())
		return
	}

	added, skipped, err := s.deps.Library.Import(r.Context(), data)
	if err != nil {
		if errors.Is(err, engine.ErrNotLoaded) {
			writeLibraryError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_IMPORT", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Added: added, Skipped: skipped})
}

func (s *Server) clearLibrary(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Library.Clear(r.Context()); err != nil {
		writeLibraryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks := s.deps.Library.Bookmarks()
	if bookmarks == nil {
		bookmarks = []library.Bookmark{}
	}
	writeJSON(w, http.StatusOK, bookmarksResponse{Items: bookmarks, Total: len(bookmarks)})
}
