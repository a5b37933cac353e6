package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lecternhq/lectern/internal/layout"
	"github.com/lecternhq/lectern/internal/reader"
	"github.com/lecternhq/lectern/internal/resource"
	"github.com/lecternhq/lectern/internal/selector"
	"github.com/lecternhq/lectern/internal/tts"
)

// openSessionRequest opens a document either by URL or inline content.
type openSessionRequest struct {
	URL     string `json:"url,omitempty"`
	Href    string `json:"href,omitempty"`
	Content string `json:"content,omitempty"`
	Mode    string `json:"mode,omitempty"` // "scroll" (default) or "paginated"
}

type sessionResponse struct {
	ID          string `json:"id"`
	Href        string `json:"href"`
	MediaType   string `json:"mediaType"`
	Fingerprint string `json:"fingerprint"`
	Highlights  int    `json:"highlights"`
	QueueItems  int    `json:"queueItems"`
}

// handleOpenSession loads a resource, restores its saved annotations, and
// makes the new session the surface-event target.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, s.cfg.MaxResourceBytes)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var doc *resource.Document
	var err error
	switch {
	case req.URL != "":
		doc, err = s.fetcher.FetchDocument(r.Context(), req.URL)
	case req.Content != "" && req.Href != "":
		var loader resource.Loader
		loader, err = resource.ForFile(req.Href)
		if err == nil {
			doc, err = loader.Load(strings.NewReader(req.Content), req.Href)
		}
	default:
		jsonError(w, "url or href+content is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, "load resource: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := reader.DefaultConfig()
	cfg.Selector = selector.DefaultOptions()
	cfg.Selector.Threshold = s.cfg.SelectorThreshold
	cfg.Grid = layout.TextGridConfig{
		Columns:    s.cfg.GridColumns,
		CharWidth:  s.cfg.GridCharWidth,
		LineHeight: s.cfg.GridLineHeight,
		Viewport:   s.cfg.GridViewport,
	}
	cfg.ResizeDebounce = s.cfg.ResizeDebounce
	if req.Mode == "paginated" {
		cfg.Mode = reader.ModePaginated
	}

	session := reader.NewSession(s.log, doc, s.store, s.bus, cfg)
	if err := session.LoadAnnotations(r.Context()); err != nil {
		s.log.Warn("load annotations failed", "href", doc.Href, "error", err)
	}

	playerCfg := tts.DefaultPlayerConfig()
	playerCfg.Rate = s.cfg.TTSRate
	playerCfg.Pitch = s.cfg.TTSPitch
	playerCfg.VoicePref = s.cfg.TTSVoicePref
	playerCfg.ClickDebounce = s.cfg.ClickDebounce
	player := tts.NewPlayer(s.log, s.engine, s.bus, session, session, doc.Root, playerCfg)

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &openSession{ID: id, session: session, player: player}
	s.active = id
	s.mu.Unlock()

	s.log.Info("session opened", "session", id, "href", doc.Href)
	respondJSON(w, http.StatusCreated, sessionResponse{
		ID:          id,
		Href:        doc.Href,
		MediaType:   doc.MediaType,
		Fingerprint: doc.Fingerprint,
		Highlights:  session.Highlights().Len(),
		QueueItems:  len(tts.BuildQueue(doc.Root)),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	os := s.get(r)
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	doc := os.session.Document()
	respondJSON(w, http.StatusOK, sessionResponse{
		ID:          os.ID,
		Href:        doc.Href,
		MediaType:   doc.MediaType,
		Fingerprint: doc.Fingerprint,
		Highlights:  os.session.Highlights().Len(),
		QueueItems:  len(os.player.Queue()),
	})
}

// handleCloseSession stops playback, clears overlays, and drops the session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	os := s.sessions[id]
	delete(s.sessions, id)
	if s.active == id {
		s.active = ""
	}
	s.mu.Unlock()
	if os == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	os.player.Cancel()
	os.session.DestroyAllVisible()
	s.log.Info("session closed", "session", id)
	w.WriteHeader(http.StatusNoContent)
}
