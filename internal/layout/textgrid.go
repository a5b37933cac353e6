package layout

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lecternhq/lectern/internal/dom"
)

// Engine measures ranges against some rendering of a document.
type Engine interface {
	// ClientRects returns one rect per laid-out fragment of the range, in
	// document order, before any merging.
	ClientRects(r *dom.Range) []Rect
	// BoundingRect returns the union of the range's client rects.
	BoundingRect(r *dom.Range) Rect
	// BodyOffset returns the document body's bounding-box origin; overlay
	// coordinates are expressed relative to it.
	BodyOffset() (x, y float64)
	// ViewportHeight returns the height of the visible area, used by the
	// read-aloud synchronizer to decide when to scroll.
	ViewportHeight() float64
}

// TextGridConfig sizes the monospace grid.
type TextGridConfig struct {
	Columns    int     // wrap width in characters
	CharWidth  float64 // advance per character
	LineHeight float64
	Viewport   float64 // viewport height; 0 means 20 lines
}

// DefaultTextGridConfig matches an 80-column page.
func DefaultTextGridConfig() TextGridConfig {
	return TextGridConfig{Columns: 80, CharWidth: 8, LineHeight: 18}
}

// blockTags starts a new line box before and after these elements.
var blockTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true,
	atom.Blockquote: true, atom.Body: true, atom.Div: true, atom.Dd: true,
	atom.Dt: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Li: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Table: true, atom.Td: true, atom.Th: true,
	atom.Tr: true, atom.Ul: true,
}

// span maps a run of runes in one text node to a grid position. width is the
// on-grid advance: equal to to-from for word runs, 1 for a collapsed
// whitespace run, 0 for whitespace dropped at a line head.
type span struct {
	from, to  int // rune offsets within the node
	line, col int
	width     int
}

// TextGrid lays out a document's text on a monospace grid, one position per
// rune, greedy word wrap at the configured column. It is deterministic: the
// same document and config always measure identically.
type TextGrid struct {
	cfg   TextGridConfig
	doc   *html.Node
	spans map[*html.Node][]span
	lines int
}

// NewTextGrid lays out doc immediately.
func NewTextGrid(doc *html.Node, cfg TextGridConfig) *TextGrid {
	if cfg.Columns <= 0 {
		cfg.Columns = 80
	}
	if cfg.CharWidth <= 0 {
		cfg.CharWidth = 8
	}
	if cfg.LineHeight <= 0 {
		cfg.LineHeight = 18
	}
	g := &TextGrid{cfg: cfg, doc: doc}
	g.reflow()
	return g
}

// Resize changes the wrap column and reflows, invalidating all previously
// measured geometry.
func (g *TextGrid) Resize(columns int) {
	if columns > 0 {
		g.cfg.Columns = columns
	}
	g.reflow()
}

func (g *TextGrid) reflow() {
	g.spans = make(map[*html.Node][]span)
	g.lines = 0
	root := dom.Body(g.doc)
	if root == nil {
		root = g.doc
	}
	line, col := 0, 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			line, col = g.layoutText(n, line, col)
			return
		}
		block := n.Type == html.ElementNode && blockTags[n.DataAtom]
		if block && col > 0 {
			line, col = line+1, 0
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block && col > 0 {
			line, col = line+1, 0
		}
	}
	walk(root)
	g.lines = line
	if col > 0 {
		g.lines++
	}
}

// layoutText places every rune of one text node, wrapping greedily at word
// boundaries. Whitespace runs occupy a single column; a space that would
// start a line is dropped, matching how rendered text collapses.
func (g *TextGrid) layoutText(n *html.Node, line, col int) (int, int) {
	runes := []rune(n.Data)
	i := 0
	for i < len(runes) {
		if isSpace(runes[i]) {
			from := i
			for i < len(runes) && isSpace(runes[i]) {
				i++
			}
			if col == 0 {
				// Leading whitespace on a line collapses away; map it to the
				// line head with zero width.
				g.spans[n] = append(g.spans[n], span{from: from, to: i, line: line, col: 0, width: 0})
				continue
			}
			g.spans[n] = append(g.spans[n], span{from: from, to: i, line: line, col: col, width: 1})
			col++
			if col >= g.cfg.Columns {
				line, col = line+1, 0
			}
			continue
		}
		from := i
		for i < len(runes) && !isSpace(runes[i]) {
			i++
		}
		word := i - from
		if col > 0 && col+word > g.cfg.Columns {
			line, col = line+1, 0
		}
		// A word longer than the wrap column hard-wraps.
		for word > 0 {
			fit := g.cfg.Columns - col
			if fit > word {
				fit = word
			}
			g.spans[n] = append(g.spans[n], span{from: from, to: from + fit, line: line, col: col, width: fit})
			col += fit
			from += fit
			word -= fit
			if col >= g.cfg.Columns {
				line, col = line+1, 0
			}
		}
	}
	return line, col
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

// ClientRects returns one rect per line fragment covered by the range.
func (g *TextGrid) ClientRects(r *dom.Range) []Rect {
	if r == nil {
		return nil
	}
	var rects []Rect
	root := g.doc
	for n := root; n != nil; n = dom.NextNode(n, root) {
		if !dom.IsText(n) {
			continue
		}
		spans, ok := g.spans[n]
		if !ok {
			continue
		}
		length := dom.NodeLength(n)
		if n != r.StartContainer && dom.ComparePoints(n, length, r.StartContainer, r.StartOffset) <= 0 {
			continue
		}
		if n != r.EndContainer && dom.ComparePoints(n, 0, r.EndContainer, r.EndOffset) >= 0 {
			break
		}
		from, to := 0, length
		if n == r.StartContainer {
			from = r.StartOffset
		}
		if n == r.EndContainer {
			to = r.EndOffset
		}
		rects = append(rects, g.spanRects(spans, from, to)...)
		if n == r.EndContainer {
			break
		}
	}
	return rects
}

// spanRects converts the [from, to) rune window of a node into grid rects.
func (g *TextGrid) spanRects(spans []span, from, to int) []Rect {
	var rects []Rect
	for _, s := range spans {
		lo, hi := s.from, s.to
		if from > lo {
			lo = from
		}
		if to < hi {
			hi = to
		}
		if lo >= hi {
			continue
		}
		startCol, width := s.col, s.width
		if s.width == s.to-s.from {
			// Word run: rune offsets map one-to-one onto columns.
			startCol = s.col + (lo - s.from)
			width = hi - lo
		}
		if width == 0 {
			continue
		}
		rects = append(rects, Rect{
			Left:   float64(startCol) * g.cfg.CharWidth,
			Top:    float64(s.line) * g.cfg.LineHeight,
			Width:  float64(width) * g.cfg.CharWidth,
			Height: g.cfg.LineHeight,
		})
	}
	return rects
}

// BoundingRect returns the union of the range's rects.
func (g *TextGrid) BoundingRect(r *dom.Range) Rect {
	rects := g.ClientRects(r)
	if len(rects) == 0 {
		return Rect{}
	}
	u := rects[0]
	for _, rc := range rects[1:] {
		u = u.Union(rc)
	}
	return u
}

// BodyOffset is the grid origin.
func (g *TextGrid) BodyOffset() (float64, float64) { return 0, 0 }

// ViewportHeight returns the configured viewport, defaulting to 20 lines.
func (g *TextGrid) ViewportHeight() float64 {
	if g.cfg.Viewport > 0 {
		return g.cfg.Viewport
	}
	return 20 * g.cfg.LineHeight
}

// Lines returns how many line boxes the current layout produced.
func (g *TextGrid) Lines() int { return g.lines }
