package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vmunix/cinesync/internal/history"
)

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	sessions := s.deps.History.Search(r.URL.Query().Get("q"))
	if sessions == nil {
		sessions = []history.Session{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Sessions: sessions, Total: len(sessions)})
}

func (s *Server) saveHistory(w http.ResponseWriter, r *http.Request) {
	var sess history.Session
	if err := json.NewDecoder(r.Body).Decode(&sess); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	res, err := s.deps.History.Save(r.Context(), sess)
	if err != nil {
		if errors.Is(err, history.ErrEmptySession) {
			writeError(w, http.StatusBadRequest, "EMPTY_SESSION", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "SAVE_ERROR", err.Error())
		return
	}

	code := http.StatusOK
	if res.Status == history.SaveStored {
		code = http.StatusCreated
	}
	writeJSON(w, code, res)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.History.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.History.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "DELETE_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.History.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "CLEAR_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	liked, err := s.deps.History.ToggleLike(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "LIKE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, likeResponse{MessageID: id, Liked: liked})
}

func (s *Server) listLiked(w http.ResponseWriter, r *http.Request) {
	liked := s.deps.History.Liked()
	if liked == nil {
		liked = []history.LikedMessage{}
	}
	writeJSON(w, http.StatusOK, likedResponse{Messages: liked, Total: len(liked)})
}
