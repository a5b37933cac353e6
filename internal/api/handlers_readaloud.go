package api

import (
	"encoding/json"
	"net/http"
)

// playRequest controls where playback starts. With fromSelection, partial
// limits speech to the selected text; otherwise playback continues to the
// end of the document.
type playRequest struct {
	FromSelection bool `json:"fromSelection,omitempty"`
	Partial       bool `json:"partial,omitempty"`
}

func (s *Server) handleReadAloudPlay(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	var req playRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	os.session.ResetUserScroll()
	if req.FromSelection {
		os.player.Speak(os.session.CurrentSelectionInfo(), req.Partial)
	} else {
		os.player.SpeakPlay()
	}
	respondJSON(w, http.StatusOK, map[string]any{"state": os.player.State()})
}

func (s *Server) handleReadAloudPause(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	os.player.SpeakPause()
	respondJSON(w, http.StatusOK, map[string]any{"state": os.player.State()})
}

func (s *Server) handleReadAloudResume(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	os.player.SpeakResume()
	respondJSON(w, http.StatusOK, map[string]any{"state": os.player.State()})
}

func (s *Server) handleReadAloudStop(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	os.player.Cancel()
	respondJSON(w, http.StatusOK, map[string]any{"state": os.player.State()})
}
