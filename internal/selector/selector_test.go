package selector

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/lecternhq/lectern/internal/dom"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func mustQuery(t *testing.T, root *html.Node, sel string) *html.Node {
	t.Helper()
	n := Query(root, sel)
	if n == nil {
		t.Fatalf("selector %q did not resolve", sel)
	}
	return n
}

func TestUniqueSelectorPrefersID(t *testing.T) {
	doc := parse(t, `<div><p id="p1">a</p><p>b</p></div>`)
	p := mustQuery(t, doc, "#p1")

	g := NewGenerator(DefaultOptions())
	sel, err := g.UniqueSelector(p, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel != "#p1" {
		t.Errorf("expected %q, got %q", "#p1", sel)
	}
}

func TestUniqueSelectorUsesClassWhenUnique(t *testing.T) {
	doc := parse(t, `<body><div><p class="foo">a</p><p>b</p></div></body>`)
	p := mustQuery(t, doc, "p.foo")

	g := NewGenerator(DefaultOptions())
	sel, err := g.UniqueSelector(p, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel != ".foo" {
		t.Errorf("expected %q, got %q", ".foo", sel)
	}
}

func TestUniqueSelectorDisambiguatesSiblings(t *testing.T) {
	doc := parse(t, `<div><p>a</p><p>b</p><p>c</p></div>`)
	div := mustQuery(t, doc, "div")
	second := div.FirstChild.NextSibling

	g := NewGenerator(DefaultOptions())
	sel, err := g.UniqueSelector(second, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Query(doc, sel); got != second {
		t.Errorf("selector %q resolved to wrong node", sel)
	}
	if !strings.Contains(sel, ":nth-child(") {
		t.Errorf("expected an :nth-child selector, got %q", sel)
	}
}

func TestNthChildOnlyForAmbiguousDescriptors(t *testing.T) {
	doc := parse(t, `<div><span id="s1" class="a">x</span><p class="a">y</p><p>z</p></div>`)
	span := mustQuery(t, doc, "#s1")

	g := NewGenerator(DefaultOptions())
	texts := map[string]bool{}
	for _, c := range g.candidatesFor(span) {
		texts[c.text] = true
	}
	if texts["span:nth-child(1)"] || texts["#s1:nth-child(1)"] {
		t.Errorf("descriptors unique among siblings grew :nth-child suffixes: %v", texts)
	}
	if !texts[".a:nth-child(1)"] || !texts["*:nth-child(1)"] {
		t.Errorf("descriptors shared with a sibling should get :nth-child variants: %v", texts)
	}
}

// Every element of a nontrivial document must get a selector that resolves
// to exactly itself.
func TestUniqueSelectorAllElements(t *testing.T) {
	doc := parse(t, `
		<html><body>
		<div class="chapter">
			<h1>Title</h1>
			<p>First <b>bold</b> paragraph.</p>
			<p>Second paragraph.</p>
			<ul><li>one</li><li>two</li><li>two</li></ul>
			<div><div><span>deep</span></div></div>
		</div>
		</body></html>`)

	g := NewGenerator(DefaultOptions())
	count := 0
	for n := doc; n != nil; n = dom.NextNode(n, doc) {
		if !dom.IsElement(n) {
			continue
		}
		count++
		sel, err := g.UniqueSelector(n, doc)
		if err != nil {
			t.Errorf("<%s>: %v", n.Data, err)
			continue
		}
		matches := QueryAll(doc, sel)
		if len(matches) != 1 {
			t.Errorf("<%s>: selector %q matched %d nodes", n.Data, sel, len(matches))
			continue
		}
		if matches[0] != n {
			t.Errorf("<%s>: selector %q resolved to a different node", n.Data, sel)
		}
	}
	if count < 10 {
		t.Fatalf("fixture too small: only %d elements walked", count)
	}
}

func TestUniqueSelectorRejectsBlacklistedClasses(t *testing.T) {
	doc := parse(t, `<div><p class="lectern-highlight">a</p><p>b</p></div>`)
	p := mustQuery(t, doc, ".lectern-highlight")

	g := NewGenerator(DefaultOptions())
	sel, err := g.UniqueSelector(p, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sel, "lectern-") {
		t.Errorf("selector %q references an engine-injected class", sel)
	}
	if got := Query(doc, sel); got != p {
		t.Errorf("selector %q resolved to wrong node", sel)
	}
}

func TestUniqueSelectorOptimizesInteriorSegments(t *testing.T) {
	doc := parse(t, `<body><div><div><p class="foo">x</p></div></div></body>`)
	p := mustQuery(t, doc, "p.foo")

	g := NewGenerator(DefaultOptions())
	sel, err := g.UniqueSelector(p, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// .foo is unique in the document, so no ancestor segments should remain.
	if strings.ContainsAny(sel, "> ") {
		t.Errorf("expected a single-segment selector, got %q", sel)
	}
}

func TestUniqueSelectorThresholdExhaustion(t *testing.T) {
	// Many identical nested wildcards with a threshold of 1 cannot be
	// disambiguated within budget.
	doc := parse(t, `<div><div><div><div><div>x</div></div></div></div></div>`)
	inner := mustQuery(t, doc, "div div div div div")

	g := NewGenerator(Options{Threshold: 1})
	if _, err := g.UniqueSelector(inner, doc); err == nil {
		t.Fatal("expected exhaustion error, got none")
	}
}

func TestQuerySoftFailures(t *testing.T) {
	doc := parse(t, `<div><p>a</p><p>b</p></div>`)
	if got := Query(doc, "p"); got != nil {
		t.Error("ambiguous selector should resolve to nil")
	}
	if got := Query(doc, "section"); got != nil {
		t.Error("non-matching selector should resolve to nil")
	}
	if got := Query(doc, "p["); got != nil {
		t.Error("malformed selector should resolve to nil")
	}
	if got := QueryAll(doc, ""); got != nil {
		t.Error("empty selector should match nothing")
	}
}
