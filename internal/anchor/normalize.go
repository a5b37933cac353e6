package anchor

import (
	"golang.org/x/net/html"

	"github.com/lecternhq/lectern/internal/dom"
)

// CreateOrderedRange builds a range from two boundary points, swapping them
// when given in reverse document order. Returns nil when the points coincide
// either way (an ambiguous or zero-length selection).
func CreateOrderedRange(startNode *html.Node, startOffset int, endNode *html.Node, endOffset int) *dom.Range {
	if startNode == nil || endNode == nil {
		return nil
	}
	if dom.ComparePoints(startNode, startOffset, endNode, endOffset) < 0 {
		return dom.NewRange(startNode, startOffset, endNode, endOffset)
	}
	if dom.ComparePoints(endNode, endOffset, startNode, startOffset) < 0 {
		return dom.NewRange(endNode, endOffset, startNode, startOffset)
	}
	return nil
}

// NormalizeRange returns a copy of r whose boundary points sit on leaf
// nodes, ideally text nodes, without changing the text the range covers.
// Element boundaries strictly inside a parent's child list are pushed down
// into the adjacent sibling's leaves, then both boundaries walk inward in
// document order until they land on a genuine leaf, without crossing each
// other. A boundary that ends on a non-text leaf is re-expressed as the
// position immediately before (start) or after (end) that node.
func NormalizeRange(r *dom.Range) *dom.Range {
	if r == nil {
		return nil
	}
	n := r.Clone()
	root := r.CommonAncestor()
	if root == nil {
		return n
	}
	for root.Parent != nil {
		root = root.Parent
	}

	// An element start boundary at offset > 0 descends to the end of the
	// preceding child's last leaf: the same point, expressed as deep and as
	// late as possible.
	if dom.IsElement(n.StartContainer) && n.StartOffset > 0 {
		if prev := dom.ChildAt(n.StartContainer, n.StartOffset-1); prev != nil {
			leaf := dom.LastLeaf(prev)
			n.StartContainer, n.StartOffset = leaf, dom.NodeLength(leaf)
		}
	}
	// Symmetrically the end boundary descends into the following child.
	if dom.IsElement(n.EndContainer) && n.EndOffset < dom.NodeLength(n.EndContainer) {
		if next := dom.ChildAt(n.EndContainer, n.EndOffset); next != nil {
			leaf := dom.FirstLeaf(next)
			n.EndContainer, n.EndOffset = leaf, 0
		}
	}

	// Walk the start forward until it sits inside (or at the head of) a text
	// leaf that actually contributes to the range.
	for !startInRange(n) {
		next := nextLeafStart(n.StartContainer, root)
		if next == nil || dom.ComparePoints(next, 0, n.EndContainer, n.EndOffset) > 0 {
			break
		}
		n.StartContainer, n.StartOffset = next, 0
	}
	// And the end backward.
	for !endInRange(n) {
		prev := prevLeafEnd(n.EndContainer, root)
		if prev == nil || dom.ComparePoints(prev, dom.NodeLength(prev), n.StartContainer, n.StartOffset) < 0 {
			break
		}
		n.EndContainer, n.EndOffset = prev, dom.NodeLength(prev)
	}

	// Non-text leaves cannot carry offsets; re-express the boundary around
	// the node instead of inside it.
	if dom.IsElement(n.StartContainer) && n.StartContainer.FirstChild == nil && n.StartContainer.Parent != nil {
		idx := dom.ChildIndex(n.StartContainer)
		n.StartContainer, n.StartOffset = n.StartContainer.Parent, idx
	}
	if dom.IsElement(n.EndContainer) && n.EndContainer.FirstChild == nil && n.EndContainer.Parent != nil {
		idx := dom.ChildIndex(n.EndContainer)
		n.EndContainer, n.EndOffset = n.EndContainer.Parent, idx+1
	}
	return n
}

// startInRange reports whether the start boundary already sits at a useful
// position: inside a text leaf with characters still ahead of it.
func startInRange(r *dom.Range) bool {
	if !dom.IsText(r.StartContainer) {
		return false
	}
	if r.StartOffset >= dom.NodeLength(r.StartContainer) {
		// Exhausted node; equivalent position exists at the next leaf head.
		return r.StartContainer == r.EndContainer
	}
	return true
}

// endInRange reports whether the end boundary sits inside a text leaf with
// characters behind it.
func endInRange(r *dom.Range) bool {
	if !dom.IsText(r.EndContainer) {
		return false
	}
	if r.EndOffset == 0 {
		return r.StartContainer == r.EndContainer
	}
	return true
}

// nextLeafStart returns the next leaf after n in document order, skipping
// n's own subtree when n is not a leaf (its first leaf is returned instead).
func nextLeafStart(n, root *html.Node) *html.Node {
	if n.FirstChild != nil {
		return dom.FirstLeaf(n.FirstChild)
	}
	for cur := n; cur != nil && cur != root; cur = cur.Parent {
		if cur.NextSibling != nil {
			return dom.FirstLeaf(cur.NextSibling)
		}
	}
	return nil
}

// prevLeafEnd returns the previous leaf before n in document order, or n's
// own last leaf when n is not a leaf.
func prevLeafEnd(n, root *html.Node) *html.Node {
	if n.LastChild != nil {
		return dom.LastLeaf(n.LastChild)
	}
	for cur := n; cur != nil && cur != root; cur = cur.Parent {
		if cur.PrevSibling != nil {
			return dom.LastLeaf(cur.PrevSibling)
		}
	}
	return nil
}
