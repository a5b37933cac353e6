// Package reader orchestrates one open document: selection capture,
// highlight lifecycle, annotation persistence, resize handling, pointer
// dispatch, and the view-state hooks read-aloud playback needs.
package reader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/lecternhq/lectern/internal/anchor"
	"github.com/lecternhq/lectern/internal/annotations"
	"github.com/lecternhq/lectern/internal/debounce"
	"github.com/lecternhq/lectern/internal/dom"
	"github.com/lecternhq/lectern/internal/event"
	"github.com/lecternhq/lectern/internal/highlight"
	"github.com/lecternhq/lectern/internal/layout"
	"github.com/lecternhq/lectern/internal/resource"
	"github.com/lecternhq/lectern/internal/selector"
)

// wordHighlightID is the reserved id of the transient read-aloud word
// overlay. There is at most one; repainting replaces it.
const wordHighlightID = "tts"

// resizeDebounce coalesces resize bursts before highlights are recreated.
const resizeDebounce = 500 * time.Millisecond

// ViewMode is how the document is presented.
type ViewMode int

const (
	ModeScroll ViewMode = iota
	ModePaginated
)

// Config bundles session construction settings.
type Config struct {
	Mode           ViewMode
	AutoScroll     bool
	ResizeDebounce time.Duration
	Selector       selector.Options
	Grid           layout.TextGridConfig
}

// DefaultConfig returns scroll-mode defaults.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeScroll,
		AutoScroll:     true,
		ResizeDebounce: resizeDebounce,
		Selector:       selector.DefaultOptions(),
		Grid:           layout.DefaultTextGridConfig(),
	}
}

// Session owns the highlight machinery for one loaded document.
//
// mu serializes every exported method: HTTP handlers, the surface hub's
// read goroutine, the resize debouncer's timer, and speech-engine
// callbacks all reach the session from different goroutines, and they
// share the document tree and the layout engine.
type Session struct {
	mu sync.Mutex

	log   *slog.Logger
	doc   *resource.Document
	cfg   Config
	gen   *selector.Generator
	grid  *layout.TextGrid
	store *highlight.Store
	ann   annotations.Store
	bus   *event.Bus

	container *html.Node
	resize    *debounce.Debouncer

	selection *anchor.SelectionInfo

	scrollTop    float64
	userScrolled bool
}

// NewSession opens a document for reading.
func NewSession(log *slog.Logger, doc *resource.Document, ann annotations.Store, bus *event.Bus, cfg Config) *Session {
	if cfg.ResizeDebounce <= 0 {
		cfg.ResizeDebounce = resizeDebounce
	}
	s := &Session{
		log:       log,
		doc:       doc,
		cfg:       cfg,
		gen:       selector.NewGenerator(cfg.Selector),
		grid:      layout.NewTextGrid(doc.Root, cfg.Grid),
		store:     highlight.NewStore(),
		ann:       ann,
		bus:       bus,
		container: highlight.EnsureContainer(doc.Root),
	}
	s.resize = debounce.New(cfg.ResizeDebounce, s.recreateAll)
	return s
}

// Document returns the open document.
func (s *Session) Document() *resource.Document { return s.doc }

// Layout returns the session's layout engine.
func (s *Session) Layout() layout.Engine { return s.grid }

// Highlights returns the live highlight registry.
func (s *Session) Highlights() *highlight.Store { return s.store }

// selectorFor adapts the generator to the anchor package's callback shape.
func (s *Session) selectorFor(el *html.Node) (string, error) {
	return s.gen.UniqueSelector(el, s.doc.Root)
}

func (s *Session) resolve(sel string) *html.Node {
	return selector.Query(s.doc.Root, sel)
}

// SelectorFn exposes the session's selector generation for subsystems that
// anchor ranges themselves (search). The returned callback takes the
// session lock per call.
func (s *Session) SelectorFn() anchor.SelectorFn {
	return func(el *html.Node) (string, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.selectorFor(el)
	}
}

// ResolveRangeInfo resolves a durable anchor against this session's
// document; nil when it no longer resolves.
func (s *Session) ResolveRangeInfo(info *anchor.RangeInfo) *dom.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return anchor.ConvertRangeInfo(info, s.resolve)
}

// SetSelection captures the surface's current selection. A nil or collapsed
// range clears it. The range is normalized to text-node boundaries before
// anchoring; an unanchorable selection is treated as no selection.
func (s *Session) SetSelection(r *dom.Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil || r.Collapsed() {
		s.selection = nil
		return
	}
	norm := anchor.NormalizeRange(r)
	if norm == nil || norm.Collapsed() {
		s.selection = nil
		return
	}
	info := anchor.ConvertRange(norm, s.selectorFor)
	if info == nil {
		s.selection = nil
		return
	}
	raw := norm.String()
	s.selection = &anchor.SelectionInfo{
		RangeInfo: *info,
		CleanText: anchor.CleanText(raw),
		RawText:   raw,
		Range:     norm,
	}
}

// CurrentSelectionInfo returns the captured selection, or nil when there is
// none worth acting on.
func (s *Session) CurrentSelectionInfo() *anchor.SelectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// CreateHighlight paints a highlight over the given selection and registers
// it. The id derives from the anchor, and any same-id highlight is destroyed
// first, so re-highlighting the same passage is idempotent. Annotation-typed
// highlights are persisted.
func (s *Session) CreateHighlight(ctx context.Context, sel *anchor.SelectionInfo, color highlight.Color, marker highlight.Marker, typ highlight.Type) *highlight.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createHighlightLocked(ctx, sel, color, marker, typ)
}

func (s *Session) createHighlightLocked(ctx context.Context, sel *anchor.SelectionInfo, color highlight.Color, marker highlight.Marker, typ highlight.Type) *highlight.Highlight {
	if sel == nil {
		return nil
	}
	id := highlight.ContentID(&sel.RangeInfo)
	s.destroyByID(ctx, id, false)

	h := &highlight.Highlight{
		ID:                 id,
		Color:              color,
		SelectionInfo:      *sel,
		PointerInteraction: typ == highlight.TypeAnnotation,
		Marker:             marker,
		Type:               typ,
	}
	if !s.paint(h) {
		return nil
	}
	s.store.Add(h)

	if typ == highlight.TypeAnnotation && s.ann != nil {
		a := annotations.Annotation{
			ID:        id,
			Href:      s.doc.Href,
			CreatedAt: time.Now().UTC(),
			Color:     color,
			Marker:    marker,
			Selection: *sel,
		}
		if err := s.ann.SaveAnnotation(ctx, a); err != nil {
			s.log.Warn("save annotation failed", "id", id, "error", err)
		}
	}
	s.bus.Publish(event.HighlightCreated, h.ID)
	return h
}

// paint resolves the highlight's anchor against the current document and
// renders its overlay. Resolution failures are soft: the highlight simply
// does not appear.
func (s *Session) paint(h *highlight.Highlight) bool {
	r := h.SelectionInfo.Range
	if r == nil {
		r = anchor.ConvertRangeInfo(&h.SelectionInfo.RangeInfo, s.resolve)
	}
	if r == nil {
		s.log.Debug("highlight anchor did not resolve", "id", h.ID)
		return false
	}
	return highlight.Render(h, r, s.grid, s.container) != nil
}

// DestroyHighlight removes a highlight and its persisted annotation.
func (s *Session) DestroyHighlight(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyByID(ctx, id, true)
}

func (s *Session) destroyByID(ctx context.Context, id string, publish bool) {
	h := s.store.Get(id)
	if h == nil {
		return
	}
	highlight.Unrender(s.container, id)
	s.store.Remove(id)
	if h.Type == highlight.TypeAnnotation && s.ann != nil {
		if err := s.ann.DeleteAnnotation(ctx, id); err != nil {
			s.log.Warn("delete annotation failed", "id", id, "error", err)
		}
	}
	if publish {
		s.bus.Publish(event.HighlightDestroyed, id)
	}
}

// DestroyHighlights removes every highlight of one type; other subsystems'
// overlays are untouched.
func (s *Session) DestroyHighlights(ctx context.Context, typ highlight.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.store.RemoveByType(typ) {
		highlight.Unrender(s.container, h.ID)
		if h.Type == highlight.TypeAnnotation && s.ann != nil {
			if err := s.ann.DeleteAnnotation(ctx, h.ID); err != nil {
				s.log.Warn("delete annotation failed", "id", h.ID, "error", err)
			}
		}
		s.bus.Publish(event.HighlightDestroyed, h.ID)
	}
}

// DestroyAllVisible clears every painted overlay without touching persisted
// annotations (navigation teardown).
func (s *Session) DestroyAllVisible() {
	s.mu.Lock()
	defer s.mu.Unlock()
	highlight.UnrenderAll(s.container)
	s.store.Clear()
}

// SetColor repaints an existing highlight in a new color and re-persists it.
func (s *Session) SetColor(ctx context.Context, id string, color highlight.Color) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.store.Get(id)
	if h == nil {
		return false
	}
	sel := h.SelectionInfo
	created := s.createHighlightLocked(ctx, &sel, color, h.Marker, h.Type)
	return created != nil
}

// GetColor reports a highlight's color.
func (s *Session) GetColor(id string) (highlight.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.store.Get(id)
	if h == nil {
		return highlight.Color{}, false
	}
	return h.Color, true
}

// LoadAnnotations fetches this resource's saved annotations and paints them.
// Annotations whose anchors no longer resolve are skipped, not errors: the
// resource may have changed since they were saved.
func (s *Session) LoadAnnotations(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ann == nil {
		return nil
	}
	saved, err := s.ann.GetAnnotationsByChapter(ctx, s.doc.Href)
	if err != nil {
		return err
	}
	for _, a := range saved {
		h := &highlight.Highlight{
			ID:                 a.ID,
			Color:              a.Color,
			SelectionInfo:      a.Selection,
			PointerInteraction: true,
			Marker:             a.Marker,
			Type:               highlight.TypeAnnotation,
		}
		h.SelectionInfo.Range = nil // always re-resolve against this document
		if !s.paint(h) {
			s.log.Debug("saved annotation no longer resolves", "id", a.ID, "href", a.Href)
			continue
		}
		s.store.Add(h)
	}
	return nil
}

// Resize reflows the layout and schedules highlight recreation. Bursts of
// resize events coalesce into one recreation.
func (s *Session) Resize(columns int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid.Resize(columns)
	s.resize.Trigger()
}

// recreateAll repaints every registered highlight against the current
// layout. Anchors that stopped resolving drop out of the registry. It runs
// on the debouncer's goroutine (or a FlushResize caller), never under mu.
func (s *Session) recreateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.store.All()
	highlight.UnrenderAll(s.container)
	s.store.Clear()
	for _, h := range all {
		h.SelectionInfo.Range = nil // stale after reflow; re-resolve
		if !s.paint(h) {
			continue
		}
		s.store.Add(h)
	}
}

// FlushResize forces a pending debounced recreation to run now. It must
// not hold mu: Flush runs recreateAll synchronously, and that locks.
func (s *Session) FlushResize() {
	s.resize.Flush()
}

// PointerMove hit-tests a pointer position and publishes a hover event when
// an interactive highlight is under it. Returns the hit for surface cursor
// styling.
func (s *Session) PointerMove(x, y float64) *highlight.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := highlight.HitTest(s.store, x, y)
	if h != nil {
		s.bus.Publish(event.HighlightHovered, h.ID)
	}
	return h
}

// PointerUp hit-tests a click and publishes the highlight-clicked event.
func (s *Session) PointerUp(x, y float64) *highlight.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := highlight.HitTest(s.store, x, y)
	if h != nil {
		s.bus.Publish(event.HighlightClicked, h.ID)
	}
	return h
}

// HighlightWord paints the transient read-aloud word overlay. It reuses a
// fixed id, so each word replaces the previous one.
func (s *Session) HighlightWord(r *dom.Range) (layout.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	highlight.Unrender(s.container, wordHighlightID)
	s.store.Remove(wordHighlightID)

	h := &highlight.Highlight{
		ID:     wordHighlightID,
		Color:  highlight.Color{Red: 255, Green: 180, Blue: 0},
		Marker: highlight.MarkerHighlight,
		Type:   highlight.TypeReadAloud,
	}
	if highlight.Render(h, r, s.grid, s.container) == nil {
		return layout.Rect{}, false
	}
	s.store.Add(h)
	return h.Bounding(), true
}

// ClearWord removes the read-aloud word overlay.
func (s *Session) ClearWord() {
	s.mu.Lock()
	defer s.mu.Unlock()
	highlight.Unrender(s.container, wordHighlightID)
	s.store.Remove(wordHighlightID)
}

// View-state surface used by read-aloud auto-scrolling. Mode and
// auto-scroll come from config, which is immutable after construction.

func (s *Session) IsScrollMode() bool { return s.cfg.Mode == ModeScroll }
func (s *Session) IsPaginated() bool  { return s.cfg.Mode == ModePaginated }
func (s *Session) AutoScroll() bool   { return s.cfg.AutoScroll }

func (s *Session) UserHasScrolled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userScrolled
}

func (s *Session) ScrollTop() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollTop
}

func (s *Session) ViewportHeight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.ViewportHeight()
}

// UserScrolled records that the reader moved the view themselves; automatic
// scrolling stands down until playback is restarted.
func (s *Session) UserScrolled(top float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTop = top
	s.userScrolled = true
}

// ResetUserScroll re-arms auto-scrolling (called when playback starts).
func (s *Session) ResetUserScroll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userScrolled = false
}

// ScrollToCenter scrolls so top sits at the viewport's vertical center.
func (s *Session) ScrollToCenter(top float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTop = top - s.grid.ViewportHeight()/2
	if s.scrollTop < 0 {
		s.scrollTop = 0
	}
	s.bus.Publish(event.ViewScroll, s.scrollTop)
}

// SnapToPage jumps pagination to the page containing top.
func (s *Session) SnapToPage(top float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.grid.ViewportHeight()
	if h <= 0 {
		return
	}
	page := int(top / h)
	s.scrollTop = float64(page) * h
	s.bus.Publish(event.ViewSnap, s.scrollTop)
}
