package highlight

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/lecternhq/lectern/internal/anchor"
	"github.com/lecternhq/lectern/internal/dom"
	"github.com/lecternhq/lectern/internal/layout"
	"github.com/lecternhq/lectern/internal/selector"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func sampleInfo(sel string, start, end int) anchor.RangeInfo {
	return anchor.RangeInfo{
		StartContainerElementCSSSelector: sel,
		StartContainerChildTextNodeIndex: 0,
		StartOffset:                      start,
		EndContainerElementCSSSelector:   sel,
		EndContainerChildTextNodeIndex:   0,
		EndOffset:                        end,
	}
}

func TestContentIDDeterministic(t *testing.T) {
	a := sampleInfo("#p1", 0, 11)
	b := sampleInfo("#p1", 0, 11)
	c := sampleInfo("#p1", 0, 12)

	if ContentID(&a) != ContentID(&b) {
		t.Error("identical anchors must produce identical ids")
	}
	if ContentID(&a) == ContentID(&c) {
		t.Error("different anchors must produce different ids")
	}
	if len(ContentID(&a)) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(ContentID(&a)))
	}
}

func TestStoreReplaceByID(t *testing.T) {
	s := NewStore()
	info := sampleInfo("#p1", 0, 11)
	id := ContentID(&info)

	s.Add(&Highlight{ID: id, Type: TypeAnnotation})
	s.Add(&Highlight{ID: id, Type: TypeAnnotation, PointerInteraction: true})

	if s.Len() != 1 {
		t.Fatalf("expected 1 entry after idempotent re-add, got %d", s.Len())
	}
	if !s.Get(id).PointerInteraction {
		t.Error("second add should have replaced the first entry")
	}
}

func TestStoreRemoveByType(t *testing.T) {
	s := NewStore()
	s.Add(&Highlight{ID: "a", Type: TypeAnnotation})
	s.Add(&Highlight{ID: "b", Type: TypeSearch})
	s.Add(&Highlight{ID: "c", Type: TypeSearch})
	s.Add(&Highlight{ID: "d", Type: TypeReadAloud})

	removed := s.RemoveByType(TypeSearch)
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(removed))
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", s.Len())
	}
	if s.Get("a") == nil || s.Get("d") == nil {
		t.Error("remove-by-type clobbered another subsystem's highlight")
	}
}

func TestComputeRectsMergesSameRow(t *testing.T) {
	raw := []layout.Rect{
		{Left: 0, Top: 0, Width: 40, Height: 18},
		{Left: 40, Top: 0, Width: 8, Height: 18},  // adjacent: merges
		{Left: 48, Top: 0, Width: 40, Height: 18}, // adjacent: merges
		{Left: 0, Top: 18, Width: 30, Height: 18}, // next line
	}
	rects := ComputeRects(raw, true)
	if len(rects) != 2 {
		t.Fatalf("expected 2 rects after merge, got %d: %+v", len(rects), rects)
	}
	if rects[0].Width != 88 {
		t.Errorf("merged row width: expected 88, got %v", rects[0].Width)
	}

	unmerged := ComputeRects(raw, false)
	if len(unmerged) != 4 {
		t.Errorf("expected 4 rects without horizontal merge, got %d", len(unmerged))
	}
}

func TestComputeRectsDropsContainedAndEmpty(t *testing.T) {
	raw := []layout.Rect{
		{Left: 0, Top: 0, Width: 100, Height: 18},
		{Left: 10, Top: 0, Width: 20, Height: 18}, // contained
		{Left: 0, Top: 40, Width: 0, Height: 18},  // empty
	}
	rects := ComputeRects(raw, false)
	if len(rects) != 1 {
		t.Fatalf("expected 1 rect, got %d: %+v", len(rects), rects)
	}
}

func TestComputeRectsKeepsOneOfIdenticalPair(t *testing.T) {
	// Mutually containing rects: exactly one survives, and the other input
	// entries are still compared against the original list, not a partially
	// compacted one.
	raw := []layout.Rect{
		{Left: 0, Top: 0, Width: 100, Height: 18},
		{Left: 0, Top: 0, Width: 100, Height: 18},
		{Left: 10, Top: 0, Width: 20, Height: 18}, // contained in both
		{Left: 0, Top: 18, Width: 50, Height: 18},
	}
	rects := ComputeRects(raw, false)
	if len(rects) != 2 {
		t.Fatalf("expected 2 rects, got %d: %+v", len(rects), rects)
	}
	if rects[0].Width != 100 || rects[1].Top != 18 {
		t.Errorf("wrong survivors: %+v", rects)
	}
}

// Property: rects for a multi-line range never overlap in area.
func TestComputeRectsNonOverlapping(t *testing.T) {
	doc := parse(t, `<p>`+strings.Repeat("word ", 40)+`</p>`)
	text := selector.Query(doc, "p").FirstChild
	g := layout.NewTextGrid(doc, layout.TextGridConfig{Columns: 20, CharWidth: 8, LineHeight: 18})

	r := dom.NewRange(text, 0, text, dom.NodeLength(text))
	rects := ComputeRects(g.ClientRects(r), true)
	if len(rects) < 3 {
		t.Fatalf("expected a range wrapping 3+ lines, got %d rects", len(rects))
	}
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if rects[i].Overlaps(rects[j]) {
				t.Errorf("rects %d and %d overlap: %+v %+v", i, j, rects[i], rects[j])
			}
		}
	}
}

func TestRenderHighlightOverlay(t *testing.T) {
	doc := parse(t, `<p id="p1">Hello world, friend</p>`)
	text := selector.Query(doc, "#p1").FirstChild
	g := layout.NewTextGrid(doc, layout.DefaultTextGridConfig())
	container := EnsureContainer(doc)
	if container == nil {
		t.Fatal("no container created")
	}

	info := sampleInfo("#p1", 0, 11)
	h := &Highlight{
		ID:     ContentID(&info),
		Color:  Color{Red: 255, Green: 200, Blue: 0},
		Marker: MarkerHighlight,
		Type:   TypeAnnotation,
	}
	r := dom.NewRange(text, 0, text, 11)
	root := Render(h, r, g, container)
	if root == nil {
		t.Fatal("render returned nil")
	}
	if dom.Attr(root, "data-id") != h.ID {
		t.Error("overlay root must carry the highlight id")
	}
	out := OverlayHTML(root)
	if !strings.Contains(out, "background-color:rgba(255,200,0") {
		t.Errorf("fragment style missing fill color: %s", out)
	}
	if !strings.Contains(out, classBoundingArea) {
		t.Error("overlay missing bounding box child")
	}
	if len(h.Rects()) == 0 {
		t.Error("render must capture fragment rects for hit-testing")
	}

	// Body must be pinned for absolute positioning.
	body := dom.Body(doc)
	if !strings.Contains(dom.Attr(body, "style"), "position:relative") {
		t.Error("body not pinned to position:relative")
	}

	Unrender(container, h.ID)
	if container.FirstChild != nil {
		t.Error("unrender left overlay nodes behind")
	}
}

func TestRenderUnderlineStyle(t *testing.T) {
	doc := parse(t, `<p id="p1">Hello world</p>`)
	text := selector.Query(doc, "#p1").FirstChild
	g := layout.NewTextGrid(doc, layout.DefaultTextGridConfig())
	container := EnsureContainer(doc)

	info := sampleInfo("#p1", 0, 5)
	h := &Highlight{ID: ContentID(&info), Color: Color{Red: 10, Green: 20, Blue: 30}, Marker: MarkerUnderline}
	root := Render(h, dom.NewRange(text, 0, text, 5), g, container)
	out := OverlayHTML(root)
	if !strings.Contains(out, "border-bottom:2px solid rgb(10,20,30)") {
		t.Errorf("underline style missing bottom border: %s", out)
	}
	if !strings.Contains(out, "background-color:transparent") {
		t.Errorf("underline fill should be transparent: %s", out)
	}
}

func TestHitTestTopMostWins(t *testing.T) {
	s := NewStore()
	older := &Highlight{
		ID: "older", PointerInteraction: true,
		rects:    []layout.Rect{{Left: 0, Top: 0, Width: 100, Height: 18}},
		bounding: layout.Rect{Left: 0, Top: 0, Width: 100, Height: 18},
	}
	newer := &Highlight{
		ID: "newer", PointerInteraction: true,
		rects:    []layout.Rect{{Left: 50, Top: 0, Width: 100, Height: 18}},
		bounding: layout.Rect{Left: 50, Top: 0, Width: 100, Height: 18},
	}
	passive := &Highlight{
		ID: "passive",
		rects:    []layout.Rect{{Left: 0, Top: 0, Width: 200, Height: 18}},
		bounding: layout.Rect{Left: 0, Top: 0, Width: 200, Height: 18},
	}
	s.Add(older)
	s.Add(newer)
	s.Add(passive)

	if got := HitTest(s, 60, 9); got != newer {
		t.Errorf("overlap: expected newest highlight to win, got %v", got)
	}
	if got := HitTest(s, 10, 9); got != older {
		t.Errorf("expected older highlight outside overlap, got %v", got)
	}
	if got := HitTest(s, 180, 9); got != nil {
		t.Errorf("pointer-passive highlight must not hit, got %v", got)
	}
	if got := HitTest(s, 500, 500); got != nil {
		t.Errorf("miss: expected nil, got %v", got)
	}
}
