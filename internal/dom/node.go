// Package dom provides the DOM operations the reading engine needs on top of
// the node tree produced by golang.org/x/net/html: document-order traversal,
// boundary-point comparison, text measurement in runes, and a Range type.
//
// Functions take their node or document explicitly; there is no wrapper object
// holding implicit context.
package dom

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsText reports whether n is a text node.
func IsText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// NodeLength returns the length of a node as the DOM defines it: the number
// of runes for a text node, the number of children otherwise.
func NodeLength(n *html.Node) int {
	if n == nil {
		return 0
	}
	if n.Type == html.TextNode {
		return utf8.RuneCountInString(n.Data)
	}
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// ChildIndex returns the index of n among all of its parent's children, or -1
// if n has no parent.
func ChildIndex(n *html.Node) int {
	if n == nil || n.Parent == nil {
		return -1
	}
	i := 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			return i
		}
		i++
	}
	return -1
}

// ChildAt returns the i-th child of n, or nil when out of bounds.
func ChildAt(n *html.Node, i int) *html.Node {
	if n == nil || i < 0 {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if i == 0 {
			return c
		}
		i--
	}
	return nil
}

// ElementChildIndex returns the 1-based index of el among its parent's
// element children, as :nth-child counts them. Returns 0 if el is not an
// element child of its parent.
func ElementChildIndex(el *html.Node) int {
	if el == nil || el.Parent == nil {
		return 0
	}
	i := 0
	for c := el.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		i++
		if c == el {
			return i
		}
	}
	return 0
}

// ElementFromNode returns n itself when n is an element, otherwise the
// nearest element ancestor.
func ElementFromNode(n *html.Node) *html.Node {
	for n != nil {
		if n.Type == html.ElementNode {
			return n
		}
		n = n.Parent
	}
	return nil
}

// NextNode returns the node following n in document order, staying under
// root. Returns nil at the end of the subtree.
func NextNode(n, root *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil && n != root {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

// PreviousNode returns the node preceding n in document order, staying under
// root. Returns nil at the start of the subtree.
func PreviousNode(n, root *html.Node) *html.Node {
	if n == nil || n == root {
		return nil
	}
	if n.PrevSibling != nil {
		return LastLeaf(n.PrevSibling)
	}
	return n.Parent
}

// FirstLeaf descends to the first leaf under n (n itself when childless).
func FirstLeaf(n *html.Node) *html.Node {
	for n != nil && n.FirstChild != nil {
		n = n.FirstChild
	}
	return n
}

// LastLeaf descends to the last leaf under n (n itself when childless).
func LastLeaf(n *html.Node) *html.Node {
	for n != nil && n.LastChild != nil {
		n = n.LastChild
	}
	return n
}

// Contains reports whether ancestor contains n (inclusive).
func Contains(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

// nodePath returns the chain of child indexes from the document root down
// to n.
func nodePath(n *html.Node) []int {
	var path []int
	for n != nil && n.Parent != nil {
		path = append(path, ChildIndex(n))
		n = n.Parent
	}
	// Reverse into root-first order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ComparePoints compares two boundary points in document order. It returns
// -1 when (n1, o1) is before (n2, o2), 0 when equal and 1 when after.
// Both points must belong to the same tree.
func ComparePoints(n1 *html.Node, o1 int, n2 *html.Node, o2 int) int {
	if n1 == n2 {
		switch {
		case o1 < o2:
			return -1
		case o1 > o2:
			return 1
		}
		return 0
	}
	p1 := append(nodePath(n1), o1)
	p2 := append(nodePath(n2), o2)
	for i := 0; i < len(p1) && i < len(p2); i++ {
		if p1[i] != p2[i] {
			if p1[i] < p2[i] {
				return -1
			}
			return 1
		}
	}
	// One path is a prefix of the other: the shorter point is the container
	// and sorts first.
	if len(p1) < len(p2) {
		return -1
	}
	return 1
}

// TextContent returns the concatenated text of all text nodes under n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			return
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	if n != nil {
		walk(n)
	}
	return b.String()
}

// Attr returns the value of the named attribute on n, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces the named attribute on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Body returns the <body> element of doc, or nil.
func Body(doc *html.Node) *html.Node {
	for n := doc; n != nil; n = NextNode(n, doc) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			return n
		}
	}
	return nil
}

// NodeAtPath resolves a chain of child indexes starting at root. Returns nil
// when any index is out of bounds.
func NodeAtPath(root *html.Node, path []int) *html.Node {
	n := root
	for _, i := range path {
		n = ChildAt(n, i)
		if n == nil {
			return nil
		}
	}
	return n
}

// SliceText returns the rune slice [from, to) of a text node's data, clamped
// to the node's bounds.
func SliceText(n *html.Node, from, to int) string {
	if !IsText(n) {
		return ""
	}
	runes := []rune(n.Data)
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}
