package reader

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/lecternhq/lectern/internal/anchor"
	"github.com/lecternhq/lectern/internal/annotations"
	"github.com/lecternhq/lectern/internal/dom"
	"github.com/lecternhq/lectern/internal/event"
	"github.com/lecternhq/lectern/internal/highlight"
	"github.com/lecternhq/lectern/internal/resource"
	"github.com/lecternhq/lectern/internal/selector"
)

var yellow = highlight.Color{Red: 255, Green: 235, Blue: 59}

func load(t *testing.T, src, href string) *resource.Document {
	t.Helper()
	doc, err := (&resource.HTMLLoader{}).Load(strings.NewReader(src), href)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func newSession(t *testing.T, src string, ann annotations.Store) (*Session, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := DefaultConfig()
	cfg.ResizeDebounce = 5 * time.Millisecond
	doc := load(t, src, "ch1.xhtml")
	return NewSession(log, doc, ann, bus, cfg), bus
}

func selectRunes(t *testing.T, s *Session, sel string, from, to int) *anchor.SelectionInfo {
	t.Helper()
	el := selector.Query(s.Document().Root, sel)
	if el == nil || el.FirstChild == nil {
		t.Fatalf("no text under %s", sel)
	}
	s.SetSelection(dom.NewRange(el.FirstChild, from, el.FirstChild, to))
	info := s.CurrentSelectionInfo()
	if info == nil {
		t.Fatalf("selection %s [%d,%d) did not capture", sel, from, to)
	}
	return info
}

const onePara = `<html><body><p id="p1">Hello world, friend</p></body></html>`

func TestHighlightSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := annotations.NewMemoryStore()

	s1, _ := newSession(t, onePara, store)
	info := selectRunes(t, s1, "#p1", 0, 11)
	if info.CleanText != "Hello world" {
		t.Fatalf("selection text: %q", info.CleanText)
	}
	h := s1.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)
	if h == nil {
		t.Fatal("create failed")
	}
	if store.Len() != 1 {
		t.Fatalf("annotation not persisted, store len %d", store.Len())
	}

	// A fresh session over a fresh parse of the same markup: different node
	// identities, same structure.
	s2, _ := newSession(t, onePara, store)
	if err := s2.LoadAnnotations(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	all := s2.Highlights().All()
	if len(all) != 1 {
		t.Fatalf("expected 1 restored highlight, got %d", len(all))
	}
	restored := all[0]
	if restored.ID != h.ID {
		t.Error("restored highlight has a different id")
	}
	r := anchor.ConvertRangeInfo(&restored.SelectionInfo.RangeInfo, func(sel string) *html.Node {
		return selector.Query(s2.Document().Root, sel)
	})
	if r == nil || r.String() != "Hello world" {
		t.Fatalf("restored anchor resolves to %v", r)
	}
	if len(restored.Rects()) == 0 {
		t.Error("restored highlight was not painted")
	}
}

func TestCreateHighlightIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, onePara, annotations.NewMemoryStore())
	info := selectRunes(t, s, "#p1", 0, 11)

	h1 := s.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)
	h2 := s.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)
	if h1 == nil || h2 == nil {
		t.Fatal("create failed")
	}
	if h1.ID != h2.ID {
		t.Error("same selection produced different ids")
	}
	if got := s.Highlights().Len(); got != 1 {
		t.Errorf("expected a single registered highlight, got %d", got)
	}
}

func TestDestroyHighlightRemovesPersistence(t *testing.T) {
	ctx := context.Background()
	store := annotations.NewMemoryStore()
	s, bus := newSession(t, onePara, store)
	var destroyed []string
	bus.Subscribe(event.HighlightDestroyed, func(m event.Message) {
		destroyed = append(destroyed, m.Data.(string))
	})

	info := selectRunes(t, s, "#p1", 0, 11)
	h := s.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)
	s.DestroyHighlight(ctx, h.ID)

	if s.Highlights().Len() != 0 {
		t.Error("highlight still registered")
	}
	if store.Len() != 0 {
		t.Error("annotation still persisted")
	}
	if len(destroyed) != 1 || destroyed[0] != h.ID {
		t.Errorf("destroy events: %v", destroyed)
	}
}

func TestDestroyByTypeLeavesOthers(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, onePara, annotations.NewMemoryStore())

	ann := selectRunes(t, s, "#p1", 0, 11)
	s.CreateHighlight(ctx, ann, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)
	searchSel := selectRunes(t, s, "#p1", 13, 19)
	s.CreateHighlight(ctx, searchSel, highlight.Color{Blue: 255}, highlight.MarkerHighlight, highlight.TypeSearch)

	s.DestroyHighlights(ctx, highlight.TypeSearch)
	all := s.Highlights().All()
	if len(all) != 1 || all[0].Type != highlight.TypeAnnotation {
		t.Errorf("expected the annotation to survive, got %+v", all)
	}
}

func TestSetColorRepaints(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, onePara, annotations.NewMemoryStore())
	info := selectRunes(t, s, "#p1", 0, 11)
	h := s.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)

	green := highlight.Color{Green: 200}
	if !s.SetColor(ctx, h.ID, green) {
		t.Fatal("set color failed")
	}
	got, ok := s.GetColor(h.ID)
	if !ok || got != green {
		t.Errorf("color after repaint: %+v ok=%v", got, ok)
	}
	if s.Highlights().Len() != 1 {
		t.Error("repaint duplicated the highlight")
	}

	if s.SetColor(ctx, "missing", green) {
		t.Error("set color on unknown id should fail")
	}
}

func TestSelectionSoftFailures(t *testing.T) {
	s, _ := newSession(t, onePara, annotations.NewMemoryStore())
	el := selector.Query(s.Document().Root, "#p1")

	s.SetSelection(nil)
	if s.CurrentSelectionInfo() != nil {
		t.Error("nil range should clear the selection")
	}
	s.SetSelection(dom.NewRange(el.FirstChild, 3, el.FirstChild, 3))
	if s.CurrentSelectionInfo() != nil {
		t.Error("collapsed range should clear the selection")
	}
}

func TestResizeRecreatesHighlights(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, onePara, annotations.NewMemoryStore())
	info := selectRunes(t, s, "#p1", 0, 11)
	h := s.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)
	wide := h.Bounding()

	// Narrow enough to wrap "Hello world" onto two lines.
	s.Resize(8)
	s.FlushResize()

	all := s.Highlights().All()
	if len(all) != 1 {
		t.Fatalf("expected the highlight to survive reflow, got %d", len(all))
	}
	narrow := all[0].Bounding()
	if narrow.Height <= wide.Height {
		t.Errorf("expected taller geometry after narrowing: %+v vs %+v", narrow, wide)
	}
}

func TestPointerEventsHitInteractiveHighlights(t *testing.T) {
	ctx := context.Background()
	s, bus := newSession(t, onePara, annotations.NewMemoryStore())
	var clicked, hovered []string
	bus.Subscribe(event.HighlightClicked, func(m event.Message) {
		clicked = append(clicked, m.Data.(string))
	})
	bus.Subscribe(event.HighlightHovered, func(m event.Message) {
		hovered = append(hovered, m.Data.(string))
	})

	info := selectRunes(t, s, "#p1", 0, 11)
	h := s.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)
	b := h.Bounding()
	cx, cy := b.Left+b.Width/2, b.Top+b.Height/2

	if got := s.PointerMove(cx, cy); got == nil || got.ID != h.ID {
		t.Error("hover missed the highlight")
	}
	if got := s.PointerUp(cx, cy); got == nil || got.ID != h.ID {
		t.Error("click missed the highlight")
	}
	if got := s.PointerUp(-5, -5); got != nil {
		t.Error("click outside hit something")
	}
	if len(clicked) != 1 || len(hovered) != 1 {
		t.Errorf("events: clicked=%v hovered=%v", clicked, hovered)
	}
}

func TestWordHighlightReplaces(t *testing.T) {
	s, _ := newSession(t, onePara, annotations.NewMemoryStore())
	el := selector.Query(s.Document().Root, "#p1")

	pos1, ok := s.HighlightWord(dom.NewRange(el.FirstChild, 0, el.FirstChild, 5))
	if !ok {
		t.Fatal("first word did not paint")
	}
	pos2, ok := s.HighlightWord(dom.NewRange(el.FirstChild, 6, el.FirstChild, 11))
	if !ok {
		t.Fatal("second word did not paint")
	}
	if pos1 == pos2 {
		t.Error("expected the second word at a different position")
	}
	if s.Highlights().Len() != 1 {
		t.Errorf("word repaint must replace, got %d highlights", s.Highlights().Len())
	}

	s.ClearWord()
	if s.Highlights().Len() != 0 {
		t.Error("word overlay not cleared")
	}
}

func TestViewStateScrollAndSnap(t *testing.T) {
	s, bus := newSession(t, onePara, annotations.NewMemoryStore())
	var topics []string
	bus.SubscribeAll(func(m event.Message) { topics = append(topics, m.Topic) })

	if !s.IsScrollMode() || s.IsPaginated() {
		t.Error("default mode should be scroll")
	}
	s.UserScrolled(120)
	if !s.UserHasScrolled() || s.ScrollTop() != 120 {
		t.Error("user scroll not recorded")
	}
	s.ResetUserScroll()
	if s.UserHasScrolled() {
		t.Error("user scroll not re-armed")
	}

	s.ScrollToCenter(500)
	if s.ScrollTop() >= 500 {
		t.Errorf("centering should place the target mid-viewport, top=%f", s.ScrollTop())
	}
	if len(topics) != 1 || topics[0] != event.ViewScroll {
		t.Errorf("expected a scroll event, got %v", topics)
	}
}

func TestConcurrentHighlightAndResize(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, onePara, annotations.NewMemoryStore())
	info := selectRunes(t, s, "#p1", 0, 11)

	el := selector.Query(s.Document().Root, "#p1")
	word := dom.NewRange(el.FirstChild, 6, el.FirstChild, 11)

	// Handlers, the resize debouncer, and speech-engine callbacks hit the
	// session from separate goroutines; the session must serialize them.
	var wg sync.WaitGroup
	for _, fn := range []func(){
		func() { s.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation) },
		func() { s.Resize(8); s.FlushResize() },
		func() {
			s.HighlightWord(word)
			s.ScrollToCenter(100)
			s.ClearWord()
		},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				fn()
			}
		}()
	}
	wg.Wait()
	s.FlushResize()

	s.ClearWord()
	h := s.CreateHighlight(ctx, info, yellow, highlight.MarkerHighlight, highlight.TypeAnnotation)
	if h == nil || len(h.Rects()) == 0 {
		t.Fatal("highlight lost after concurrent churn")
	}
	if s.Highlights().Len() != 1 {
		t.Errorf("expected 1 highlight, got %d", s.Highlights().Len())
	}
}
