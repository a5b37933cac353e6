// Package anchor converts live DOM ranges to and from durable anchors.
//
// A RangeInfo is the sole persisted representation of "where in the text":
// each boundary is a (CSS selector, text-node index, character offset)
// tuple that survives document re-renders, since it depends only on markup
// structure and never on node identity.
package anchor

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/lecternhq/lectern/internal/dom"
)

// RangeInfo is a durable range anchor. Field names and casing are the wire
// format saved annotations were written with and must not change.
type RangeInfo struct {
	StartContainerElementCSSSelector string `json:"startContainerElementCssSelector"`
	StartContainerChildTextNodeIndex int    `json:"startContainerChildTextNodeIndex"`
	StartOffset                      int    `json:"startOffset"`
	EndContainerElementCSSSelector   string `json:"endContainerElementCssSelector"`
	EndContainerChildTextNodeIndex   int    `json:"endContainerChildTextNodeIndex"`
	EndOffset                        int    `json:"endOffset"`
}

// Key returns the concatenation of all anchor fields, used as the input of
// content-derived highlight identifiers.
func (ri *RangeInfo) Key() string {
	var b strings.Builder
	b.WriteString(ri.StartContainerElementCSSSelector)
	b.WriteString(strconv.Itoa(ri.StartContainerChildTextNodeIndex))
	b.WriteString(strconv.Itoa(ri.StartOffset))
	b.WriteString(ri.EndContainerElementCSSSelector)
	b.WriteString(strconv.Itoa(ri.EndContainerChildTextNodeIndex))
	b.WriteString(strconv.Itoa(ri.EndOffset))
	return b.String()
}

// SelectionInfo pairs a durable anchor with the selected text. Range is the
// live range it was captured from and is never persisted.
type SelectionInfo struct {
	RangeInfo RangeInfo  `json:"rangeInfo"`
	CleanText string     `json:"cleanText"`
	RawText   string     `json:"rawText"`
	Range     *dom.Range `json:"-"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace to single spaces and trims.
func CleanText(raw string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
}

// SelectorFn maps an element to a unique CSS selector, returning an error
// when none can be found within budget.
type SelectorFn func(el *html.Node) (string, error)

// boundary describes one end of a range as persisted.
type boundary struct {
	selector      string
	textNodeIndex int
	offset        int
}

// convertBoundary expresses (node, offset) as a durable boundary. An element
// boundary keeps the child offset with textNodeIndex -1; a text-node boundary
// records the node's index among its parent element's children.
func convertBoundary(n *html.Node, offset int, selectorFn SelectorFn) (boundary, bool) {
	var el *html.Node
	idx := -1
	switch {
	case dom.IsElement(n):
		el = n
	case dom.IsText(n):
		el = dom.ElementFromNode(n.Parent)
		if el == nil {
			return boundary{}, false
		}
		idx = dom.ChildIndex(n)
		if idx < 0 {
			return boundary{}, false
		}
	default:
		return boundary{}, false
	}
	sel, err := selectorFn(el)
	if err != nil || sel == "" {
		return boundary{}, false
	}
	return boundary{selector: sel, textNodeIndex: idx, offset: offset}, true
}

// ConvertRange serializes a live range into a RangeInfo. It returns nil when
// either boundary's containing element cannot be resolved to a selector;
// callers treat that as "nothing to anchor here".
func ConvertRange(r *dom.Range, selectorFn SelectorFn) *RangeInfo {
	if r == nil {
		return nil
	}
	start, ok := convertBoundary(r.StartContainer, r.StartOffset, selectorFn)
	if !ok {
		return nil
	}
	end, ok := convertBoundary(r.EndContainer, r.EndOffset, selectorFn)
	if !ok {
		return nil
	}
	return &RangeInfo{
		StartContainerElementCSSSelector: start.selector,
		StartContainerChildTextNodeIndex: start.textNodeIndex,
		StartOffset:                      start.offset,
		EndContainerElementCSSSelector:   end.selector,
		EndContainerChildTextNodeIndex:   end.textNodeIndex,
		EndOffset:                        end.offset,
	}
}

// Resolver resolves a selector to its unique element in a document. It is
// satisfied by selector.Query via a small adapter in the caller.
type Resolver func(sel string) *html.Node

// resolveBoundary turns a persisted boundary back into (node, offset).
// Resolution fails softly: the selector must match exactly one element, and
// when a text-node index was recorded the indexed child must exist and be a
// text node.
func resolveBoundary(resolve Resolver, sel string, textNodeIndex, offset int) (*html.Node, int, bool) {
	el := resolve(sel)
	if el == nil {
		return nil, 0, false
	}
	if textNodeIndex < 0 {
		return el, offset, true
	}
	child := dom.ChildAt(el, textNodeIndex)
	if child == nil || !dom.IsText(child) {
		return nil, 0, false
	}
	return child, offset, true
}

// ConvertRangeInfo reconstructs a range from a durable anchor against the
// given document. Returns nil when either boundary fails to resolve or the
// resolved boundaries collapse both ways. The document may be a different
// rendering of the same markup than the anchor was created against.
func ConvertRangeInfo(info *RangeInfo, resolve Resolver) *dom.Range {
	if info == nil {
		return nil
	}
	startNode, startOffset, ok := resolveBoundary(resolve,
		info.StartContainerElementCSSSelector, info.StartContainerChildTextNodeIndex, info.StartOffset)
	if !ok {
		return nil
	}
	endNode, endOffset, ok := resolveBoundary(resolve,
		info.EndContainerElementCSSSelector, info.EndContainerChildTextNodeIndex, info.EndOffset)
	if !ok {
		return nil
	}
	return CreateOrderedRange(startNode, startOffset, endNode, endOffset)
}
