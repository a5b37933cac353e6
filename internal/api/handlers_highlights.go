package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lecternhq/lectern/internal/anchor"
	"github.com/lecternhq/lectern/internal/highlight"
	"github.com/lecternhq/lectern/internal/search"
)

// handleSetSelection installs the current selection from a durable anchor.
// An anchor that no longer resolves clears the selection; that is a valid
// state, not an error.
func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	var info anchor.RangeInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	os.session.SetSelection(os.session.ResolveRangeInfo(&info))
	respondJSON(w, http.StatusOK, map[string]bool{
		"selected": os.session.CurrentSelectionInfo() != nil,
	})
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	info := os.session.CurrentSelectionInfo()
	if info == nil {
		jsonError(w, "no selection", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// createHighlightRequest paints a highlight over either an explicit anchor
// or the session's current selection.
type createHighlightRequest struct {
	RangeInfo *anchor.RangeInfo `json:"rangeInfo,omitempty"`
	Color     highlight.Color   `json:"color"`
	Marker    highlight.Marker  `json:"marker"`
	Type      highlight.Type    `json:"type,omitempty"`
}

func (s *Server) handleCreateHighlight(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	var req createHighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = highlight.TypeAnnotation
	}

	sel := os.session.CurrentSelectionInfo()
	if req.RangeInfo != nil {
		rng := os.session.ResolveRangeInfo(req.RangeInfo)
		if rng == nil {
			jsonError(w, "anchor does not resolve", http.StatusUnprocessableEntity)
			return
		}
		raw := rng.String()
		sel = &anchor.SelectionInfo{
			RangeInfo: *req.RangeInfo,
			CleanText: anchor.CleanText(raw),
			RawText:   raw,
			Range:     rng,
		}
	}
	if sel == nil {
		jsonError(w, "no selection", http.StatusBadRequest)
		return
	}

	h := os.session.CreateHighlight(r.Context(), sel, req.Color, req.Marker, req.Type)
	if h == nil {
		jsonError(w, "highlight produced no geometry", http.StatusUnprocessableEntity)
		return
	}
	respondJSON(w, http.StatusCreated, h)
}

func (s *Server) handleListHighlights(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"highlights": os.session.Highlights().All(),
	})
}

func (s *Server) handleDeleteHighlight(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "highlightID")
	if os.session.Highlights().Get(id) == nil {
		jsonError(w, "highlight not found", http.StatusNotFound)
		return
	}
	os.session.DestroyHighlight(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetHighlightColor(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	var color highlight.Color
	if err := json.NewDecoder(r.Body).Decode(&color); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "highlightID")
	if !os.session.SetColor(r.Context(), id, color) {
		jsonError(w, "highlight not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "color": color})
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	var req struct {
		Columns int `json:"columns"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Columns <= 0 {
		jsonError(w, "columns must be positive", http.StatusBadRequest)
		return
	}
	os.session.Resize(req.Columns)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	hits := search.Find(os.session.Document().Root, query, os.session.SelectorFn())
	respondJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"count": len(hits),
		"hits":  hits,
	})
}
