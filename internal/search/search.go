// Package search finds text occurrences in a loaded document and anchors
// each hit durably, so results can be highlighted and revisited.
package search

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lecternhq/lectern/internal/anchor"
	"github.com/lecternhq/lectern/internal/dom"
	"github.com/lecternhq/lectern/internal/highlight"
)

// Hit is one match: its anchor plus a context snippet for result lists.
type Hit struct {
	Query     string           `json:"query"`
	Snippet   string           `json:"snippet"`
	RangeInfo anchor.RangeInfo `json:"rangeInfo"`
}

// snippetContext is how many runes of surrounding text a snippet carries on
// each side of the match.
const snippetContext = 30

var skipSearchTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Head: true, atom.Template: true,
}

// Find scans the document's text nodes in order and returns every
// case-insensitive occurrence of query. Matches that cannot be anchored are
// dropped rather than reported as errors. Matches spanning text-node
// boundaries are not found.
func Find(root *html.Node, query string, selectorFn anchor.SelectorFn) []Hit {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	needle := strings.ToLower(query)

	var hits []Hit
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if dom.IsElement(n) {
			if skipSearchTags[n.DataAtom] {
				return
			}
			// Overlay markup is presentation, not content.
			if dom.Attr(n, "id") == highlight.ContainerID {
				return
			}
		}
		if dom.IsText(n) {
			hits = append(hits, scanNode(n, query, needle, selectorFn)...)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return hits
}

// scanNode finds every occurrence of needle within one text node and anchors
// each as a single-node range.
func scanNode(n *html.Node, query, needle string, selectorFn anchor.SelectorFn) []Hit {
	runes := []rune(n.Data)
	folded := []rune(strings.ToLower(n.Data))
	if len(folded) != len(runes) {
		// Case folding changed the length; fall back to byte search on the
		// folded string and skip this node when offsets cannot line up.
		return nil
	}
	needleRunes := []rune(needle)
	if len(needleRunes) == 0 || len(needleRunes) > len(folded) {
		return nil
	}

	var hits []Hit
	for i := 0; i+len(needleRunes) <= len(folded); i++ {
		if string(folded[i:i+len(needleRunes)]) != needle {
			continue
		}
		r := dom.NewRange(n, i, n, i+len(needleRunes))
		info := anchor.ConvertRange(r, selectorFn)
		if info == nil {
			continue
		}
		hits = append(hits, Hit{
			Query:     query,
			Snippet:   snippet(runes, i, i+len(needleRunes)),
			RangeInfo: *info,
		})
		i += len(needleRunes) - 1
	}
	return hits
}

// snippet extracts the match with surrounding context, eliding at rune
// boundaries.
func snippet(runes []rune, from, to int) string {
	lo := from - snippetContext
	hi := to + snippetContext
	prefix, suffix := "", ""
	if lo < 0 {
		lo = 0
	} else if lo > 0 {
		prefix = "…"
	}
	if hi > len(runes) {
		hi = len(runes)
	} else if hi < len(runes) {
		suffix = "…"
	}
	return prefix + string(runes[lo:hi]) + suffix
}
