package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vmunix/cinesync/internal/identity"
	"github.com/vmunix/cinesync/internal/library"
	"github.com/vmunix/cinesync/internal/remote"
)

// verify compares the local library with the remote copy for the current
// identity without changing either.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	id := s.deps.Identity.Current()
	local := s.deps.Library.View()

	resp := VerifyResponse{Identity: id, Problems: []string{}}
	for _, it := range local {
		if !it.IsStandaloneBookmark {
			resp.LocalItems++
		}
	}

	if s.deps.Remote == nil || !identity.IsAuthenticated(id) {
		resp.InSync = true
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Remote.Configured = true

	remoteItems, err := s.deps.Remote.LoadLibrary(r.Context(), id)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		resp.Remote.Reachable = true
		resp.Problems = append(resp.Problems, "remote has no library for "+id)
		writeJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		resp.Remote.Error = err.Error()
		resp.Problems = append(resp.Problems, "remote unreachable")
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Remote.Reachable = true
	resp.Remote.Items = len(remoteItems)

	remoteKeys := make(map[library.Key]bool, len(remoteItems))
	for _, it := range remoteItems {
		remoteKeys[it.Key()] = true
	}
	for _, it := range local {
		if it.IsStandaloneBookmark {
			continue
		}
		if !remoteKeys[it.Key()] {
			resp.Problems = append(resp.Problems, fmt.Sprintf("%s missing from remote", it.Key()))
		}
		delete(remoteKeys, it.Key())
	}
	for k := range remoteKeys {
		resp.Problems = append(resp.Problems, fmt.Sprintf("%s missing locally", k))
	}
	resp.InSync = len(resp.Problems) == 0

	writeJSON(w, http.StatusOK, resp)
}
