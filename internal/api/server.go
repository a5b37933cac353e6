package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lecternhq/lectern/internal/annotations"
	"github.com/lecternhq/lectern/internal/config"
	"github.com/lecternhq/lectern/internal/event"
	"github.com/lecternhq/lectern/internal/reader"
	"github.com/lecternhq/lectern/internal/resource"
	"github.com/lecternhq/lectern/internal/tts"
)

// Server is the HTTP API server for lectern: it owns the open reading
// sessions, the event bus, and the surface hub.
type Server struct {
	router  chi.Router
	log     *slog.Logger
	cfg     config.Config
	store   annotations.Store
	engine  tts.Engine
	fetcher *resource.Fetcher
	bus     *event.Bus
	hub     *event.Hub

	mu       sync.Mutex
	sessions map[string]*openSession
	active   string // session surface events route to
}

// openSession pairs a reading session with its read-aloud player.
type openSession struct {
	ID      string
	session *reader.Session
	player  *tts.Player
}

// NewServer creates and configures the HTTP server. engine is the speech
// synthesizer shared by all sessions (platforms expose a single one); nil
// installs a RemoteEngine that ships utterances to connected surfaces.
func NewServer(log *slog.Logger, cfg config.Config, store annotations.Store, engine tts.Engine) *Server {
	s := &Server{
		log:      log,
		cfg:      cfg,
		store:    store,
		fetcher:  resource.NewFetcher(),
		bus:      event.NewBus(),
		sessions: make(map[string]*openSession),
	}
	if engine == nil {
		engine = tts.NewRemoteEngine(s.bus, nil)
	}
	s.engine = engine
	s.hub = event.NewHub(log, s.handleSurfaceEvent)
	s.hub.Attach(s.bus)
	s.setupRoutes()
	return s
}

// Bus returns the server's event bus.
func (s *Server) Bus() *event.Bus { return s.bus }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints. The websocket is public because browser clients
	// cannot attach headers to the upgrade request.
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.hub.ServeHTTP)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.LecternAPIKey, s.log))

		r.Post("/api/sessions", s.handleOpenSession)
		r.Get("/api/sessions/{sessionID}", s.handleGetSession)
		r.Delete("/api/sessions/{sessionID}", s.handleCloseSession)

		r.Put("/api/sessions/{sessionID}/selection", s.handleSetSelection)
		r.Get("/api/sessions/{sessionID}/selection", s.handleGetSelection)

		r.Post("/api/sessions/{sessionID}/highlights", s.handleCreateHighlight)
		r.Get("/api/sessions/{sessionID}/highlights", s.handleListHighlights)
		r.Delete("/api/sessions/{sessionID}/highlights/{highlightID}", s.handleDeleteHighlight)
		r.Put("/api/sessions/{sessionID}/highlights/{highlightID}/color", s.handleSetHighlightColor)

		r.Post("/api/sessions/{sessionID}/resize", s.handleResize)
		r.Get("/api/sessions/{sessionID}/search", s.handleSearch)

		r.Post("/api/sessions/{sessionID}/readaloud/play", s.handleReadAloudPlay)
		r.Post("/api/sessions/{sessionID}/readaloud/pause", s.handleReadAloudPause)
		r.Post("/api/sessions/{sessionID}/readaloud/resume", s.handleReadAloudResume)
		r.Post("/api/sessions/{sessionID}/readaloud/stop", s.handleReadAloudStop)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// get looks up an open session by request URL parameter.
func (s *Server) get(r *http.Request) *openSession {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// activeSession returns the session surface events route to.
func (s *Server) activeSession() *openSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[s.active]
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	respondJSON(w, status, map[string]string{"error": msg})
}
