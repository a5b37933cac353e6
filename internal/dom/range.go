package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Range is a static pair of boundary points in a document tree. Unlike a live
// browser range it does not track mutations; the engine rebuilds ranges from
// durable anchors instead.
type Range struct {
	StartContainer *html.Node
	StartOffset    int
	EndContainer   *html.Node
	EndOffset      int
}

// NewRange builds a range without validating boundary order. Callers that
// need ordering guarantees go through anchor.CreateOrderedRange.
func NewRange(startNode *html.Node, startOffset int, endNode *html.Node, endOffset int) *Range {
	return &Range{
		StartContainer: startNode,
		StartOffset:    startOffset,
		EndContainer:   endNode,
		EndOffset:      endOffset,
	}
}

// Collapsed reports whether both boundary points are the same position.
func (r *Range) Collapsed() bool {
	return r.StartContainer == r.EndContainer && r.StartOffset == r.EndOffset
}

// Clone returns a copy of the range.
func (r *Range) Clone() *Range {
	c := *r
	return &c
}

// CommonAncestor returns the deepest node containing both boundaries.
func (r *Range) CommonAncestor() *html.Node {
	seen := map[*html.Node]bool{}
	for n := r.StartContainer; n != nil; n = n.Parent {
		seen[n] = true
	}
	for n := r.EndContainer; n != nil; n = n.Parent {
		if seen[n] {
			return n
		}
	}
	return nil
}

// root returns the top of the tree the range lives in.
func (r *Range) root() *html.Node {
	n := r.StartContainer
	for n != nil && n.Parent != nil {
		n = n.Parent
	}
	return n
}

// String returns the text covered by the range, concatenating the covered
// portions of every text node between the two boundaries in document order.
func (r *Range) String() string {
	if r == nil || r.StartContainer == nil || r.EndContainer == nil {
		return ""
	}
	root := r.root()
	var b strings.Builder
	for n := root; n != nil; n = NextNode(n, root) {
		if !IsText(n) {
			continue
		}
		length := NodeLength(n)
		// Entirely before the start or after the end.
		if n != r.StartContainer && ComparePoints(n, length, r.StartContainer, r.StartOffset) <= 0 {
			continue
		}
		if n != r.EndContainer && ComparePoints(n, 0, r.EndContainer, r.EndOffset) >= 0 {
			break
		}
		from, to := 0, length
		if n == r.StartContainer {
			from = r.StartOffset
		}
		if n == r.EndContainer {
			to = r.EndOffset
		}
		b.WriteString(SliceText(n, from, to))
		if n == r.EndContainer {
			break
		}
	}
	return b.String()
}

// IntersectsNode reports whether any part of n lies within the range.
func (r *Range) IntersectsNode(n *html.Node) bool {
	if n == nil || n.Parent == nil {
		return false
	}
	i := ChildIndex(n)
	parent := n.Parent
	return ComparePoints(r.StartContainer, r.StartOffset, parent, i+1) < 0 &&
		ComparePoints(r.EndContainer, r.EndOffset, parent, i) > 0
}
