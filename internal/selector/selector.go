// Package selector computes the shortest CSS selector that uniquely
// identifies an element within a document, and resolves selectors back to
// elements. Generation is a bounded search over per-level candidate
// descriptors ranked by a penalty function; resolution goes through cascadia.
package selector

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/lecternhq/lectern/internal/dom"
)

// ErrExhausted is returned when no unique selector was found within the
// configured combination threshold. Callers treat it as an invariant
// violation on well-formed documents and degrade to an empty selector.
var ErrExhausted = fmt.Errorf("selector: candidate combinations exhausted")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Options configures selector generation. The zero value of each predicate
// means "accept any syntactically valid name".
type Options struct {
	// Threshold caps how many candidate combinations a single search pass
	// may try before overflowing to the next pass.
	Threshold int
	// Root bounds both the upward walk and the uniqueness checks. When nil,
	// the element's document root is used.
	Root *html.Node
	// AllowID, AllowClass and AllowTag admit or reject candidate names.
	// Engine-injected class names are rejected here so generated selectors
	// never reference highlight or read-aloud machinery.
	AllowID    func(string) bool
	AllowClass func(string) bool
	AllowTag   func(string) bool
}

// DefaultOptions returns the configuration used by the reading engine:
// a 1000-combination threshold and predicates that reject the engine's own
// injected class names.
func DefaultOptions() Options {
	return Options{
		Threshold:  1000,
		AllowID:    func(string) bool { return true },
		AllowClass: func(name string) bool { return !strings.HasPrefix(name, "lectern-") },
		AllowTag:   func(string) bool { return true },
	}
}

// Generator produces unique selectors for elements of one document.
type Generator struct {
	opts Options
}

// NewGenerator returns a Generator with the given options, defaulting any
// unset field.
func NewGenerator(opts Options) *Generator {
	if opts.Threshold <= 0 {
		opts.Threshold = 1000
	}
	if opts.AllowID == nil {
		opts.AllowID = func(string) bool { return true }
	}
	if opts.AllowClass == nil {
		opts.AllowClass = func(string) bool { return true }
	}
	if opts.AllowTag == nil {
		opts.AllowTag = func(string) bool { return true }
	}
	return &Generator{opts: opts}
}

// candidate is one way of describing a single element in a selector path.
type candidate struct {
	text    string
	penalty int
}

// UniqueSelector returns the shortest selector it can find that resolves to
// exactly el within root. It runs three passes of increasing thoroughness
// over the candidate space and optimizes the winning path by dropping
// interior segments where uniqueness and identity survive.
func (g *Generator) UniqueSelector(el *html.Node, root *html.Node) (string, error) {
	if !dom.IsElement(el) {
		return "", fmt.Errorf("selector: not an element")
	}
	if root == nil {
		root = documentRoot(el)
	}
	if !dom.Contains(root, el) {
		return "", fmt.Errorf("selector: element not under root")
	}

	levels := g.buildLevels(el, root)
	if len(levels) == 0 {
		return "", fmt.Errorf("selector: no candidates for element")
	}

	// Pass 1: first candidate per level. Pass 2: top two. Pass 3: all.
	for _, width := range []int{1, 2, 0} {
		sel, err := g.search(el, root, levels, width)
		if err == errOverflow {
			continue
		}
		if err != nil {
			return "", err
		}
		return g.optimize(el, root, sel), nil
	}
	return "", ErrExhausted
}

// buildLevels collects candidate descriptors for el and each ancestor up to
// (excluding) root, deepest first, each level sorted by ascending penalty.
func (g *Generator) buildLevels(el, root *html.Node) [][]candidate {
	var levels [][]candidate
	for n := el; n != nil && n != root; n = n.Parent {
		if !dom.IsElement(n) {
			continue
		}
		levels = append(levels, g.candidatesFor(n))
	}
	return levels
}

// candidatesFor ranks the ways of naming one element: id 0, class 1 each,
// tag 2, wildcard 3; an :nth-child suffix adds 1 and is emitted only when
// the plain descriptor is ambiguous among element siblings.
func (g *Generator) candidatesFor(n *html.Node) []candidate {
	var out []candidate
	if id := dom.Attr(n, "id"); id != "" && identRe.MatchString(id) && g.opts.AllowID(id) {
		out = append(out, candidate{text: "#" + id, penalty: 0})
	}
	for _, cls := range strings.Fields(dom.Attr(n, "class")) {
		if identRe.MatchString(cls) && g.opts.AllowClass(cls) {
			out = append(out, candidate{text: "." + cls, penalty: 1})
		}
	}
	tag := strings.ToLower(n.Data)
	if identRe.MatchString(tag) && g.opts.AllowTag(tag) {
		out = append(out, candidate{text: tag, penalty: 2})
	}
	out = append(out, candidate{text: "*", penalty: 3})

	nth := dom.ElementChildIndex(n)
	if nth > 0 {
		suffix := fmt.Sprintf(":nth-child(%d)", nth)
		base := out
		for _, c := range base {
			if !siblingMatches(n, c.text) {
				continue
			}
			out = append(out, candidate{text: c.text + suffix, penalty: c.penalty + 1})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].penalty < out[j].penalty })
	return out
}

// siblingMatches reports whether any element sibling of n also matches the
// plain descriptor desc, which is when an :nth-child suffix earns its keep.
func siblingMatches(n *html.Node, desc string) bool {
	if n.Parent == nil {
		return false
	}
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if sib == n || !dom.IsElement(sib) {
			continue
		}
		if descriptorMatches(sib, desc) {
			return true
		}
	}
	return false
}

func descriptorMatches(n *html.Node, desc string) bool {
	switch {
	case strings.HasPrefix(desc, "#"):
		return dom.Attr(n, "id") == desc[1:]
	case strings.HasPrefix(desc, "."):
		for _, cls := range strings.Fields(dom.Attr(n, "class")) {
			if cls == desc[1:] {
				return true
			}
		}
		return false
	case desc == "*":
		return true
	default:
		return strings.ToLower(n.Data) == desc
	}
}

var errOverflow = fmt.Errorf("selector: pass overflowed threshold")

// search tries candidate paths of growing depth. width limits how many
// candidates per level are considered (0 = all). Paths at each depth are
// tried in order of total penalty; the first uniquely-resolving one wins.
func (g *Generator) search(el, root *html.Node, levels [][]candidate, width int) ([]segment, error) {
	tried := 0
	for depth := 1; depth <= len(levels); depth++ {
		// Anything past the threshold would overflow anyway, so enumeration
		// is capped to keep pathological trees from exploding memory.
		paths := enumerate(levels[:depth], width, g.opts.Threshold+1)
		sort.SliceStable(paths, func(i, j int) bool { return pathPenalty(paths[i]) < pathPenalty(paths[j]) })
		for _, path := range paths {
			tried++
			if tried > g.opts.Threshold {
				return nil, errOverflow
			}
			segs := toSegments(path)
			if g.resolvesUniquely(segs, el, root) {
				return segs, nil
			}
		}
	}
	return nil, errOverflow
}

// enumerate produces combinations of one candidate per level, with at most
// width candidates considered per level and at most max paths in total.
func enumerate(levels [][]candidate, width, max int) [][]candidate {
	paths := [][]candidate{nil}
	for _, level := range levels {
		take := level
		if width > 0 && len(take) > width {
			take = take[:width]
		}
		var next [][]candidate
		for _, p := range paths {
			for _, c := range take {
				np := make([]candidate, len(p), len(p)+1)
				copy(np, p)
				next = append(next, append(np, c))
				if len(next) >= max {
					return next
				}
			}
		}
		paths = next
	}
	return paths
}

func pathPenalty(path []candidate) int {
	total := 0
	for _, c := range path {
		total += c.penalty
	}
	return total
}

// segment is one element descriptor in a selector path plus how it joins to
// its ancestor: ">" when the levels are adjacent in the parent chain, " "
// after interior segments have been dropped.
type segment struct {
	text  string
	child bool
}

// toSegments converts a deepest-first candidate path into ancestor-first
// segments joined by ">".
func toSegments(path []candidate) []segment {
	segs := make([]segment, len(path))
	for i, c := range path {
		segs[len(path)-1-i] = segment{text: c.text, child: true}
	}
	if len(segs) > 0 {
		segs[0].child = false
	}
	return segs
}

func assemble(segs []segment) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			if s.child {
				b.WriteString(" > ")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString(s.text)
	}
	return b.String()
}

// resolvesUniquely reports whether the assembled selector matches exactly el
// within root.
func (g *Generator) resolvesUniquely(segs []segment, el, root *html.Node) bool {
	matches := QueryAll(root, assemble(segs))
	return len(matches) == 1 && matches[0] == el
}

// optimize drops interior path segments while the selector keeps resolving
// uniquely to the same element. The deepest segment is never dropped.
func (g *Generator) optimize(el, root *html.Node, segs []segment) string {
	for i := 0; i < len(segs)-1; {
		trimmed := make([]segment, 0, len(segs)-1)
		trimmed = append(trimmed, segs[:i]...)
		trimmed = append(trimmed, segs[i+1:]...)
		// The segment after the gap is now a descendant, not a child.
		trimmed[i].child = false
		if i == 0 {
			trimmed[0].child = false
		}
		if g.resolvesUniquely(trimmed, el, root) {
			segs = trimmed
			continue
		}
		i++
	}
	return assemble(segs)
}

func documentRoot(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Query resolves a selector to its single match under root, or nil when the
// selector fails to compile, does not match, or matches more than once.
func Query(root *html.Node, sel string) *html.Node {
	matches := QueryAll(root, sel)
	if len(matches) != 1 {
		return nil
	}
	return matches[0]
}

// QueryAll returns every element under root matching the selector. A
// selector that fails to compile matches nothing.
func QueryAll(root *html.Node, sel string) []*html.Node {
	if sel == "" || root == nil {
		return nil
	}
	compiled, err := cascadia.Parse(sel)
	if err != nil {
		return nil
	}
	return cascadia.QueryAll(root, compiled)
}
