package highlight

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lecternhq/lectern/internal/dom"
	"github.com/lecternhq/lectern/internal/layout"
)

// Class names injected into the document. The selector generator blacklists
// the "lectern-" prefix so anchors never reference this machinery.
const (
	ContainerID        = "lectern-highlights-container"
	classHighlight     = "lectern-highlight"
	classHighlightArea = "lectern-highlight-area"
	classBoundingArea  = "lectern-highlight-bounding"
)

const (
	fillOpacity        = "0.3"
	fillOpacityHover   = "0.45"
	underlineThickness = 2
)

// EnsureContainer returns the overlay container under body, creating it on
// first use. Creation also pins body to position:relative, which absolute
// overlay coordinates require.
func EnsureContainer(doc *html.Node) *html.Node {
	body := dom.Body(doc)
	if body == nil {
		return nil
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsElement(c) && dom.Attr(c, "id") == ContainerID {
			return c
		}
	}
	style := dom.Attr(body, "style")
	if !strings.Contains(style, "position:relative") {
		if style != "" && !strings.HasSuffix(style, ";") {
			style += ";"
		}
		dom.SetAttr(body, "style", style+"position:relative")
	}
	container := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}
	dom.SetAttr(container, "id", ContainerID)
	body.AppendChild(container)
	return container
}

// Render materializes the overlay nodes for h from the resolved range and
// appends them under the container. The fragment rects and the union box
// are captured on the highlight for later hit-testing, and the highlight's
// vertical position is recorded for gutter features. Returns the overlay
// root, or nil when the range produced no geometry.
func Render(h *Highlight, r *dom.Range, engine layout.Engine, container *html.Node) *html.Node {
	if h == nil || r == nil || container == nil {
		return nil
	}
	merge := h.Marker != MarkerUnderline
	rects := ComputeRects(engine.ClientRects(r), merge)
	if len(rects) == 0 {
		return nil
	}
	offX, offY := engine.BodyOffset()

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	dom.SetAttr(root, "class", classHighlight)
	dom.SetAttr(root, "data-id", h.ID)
	dom.SetAttr(root, "data-type", string(h.Type))

	bounding := rects[0]
	for _, rc := range rects {
		bounding = bounding.Union(rc)
		area := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
		dom.SetAttr(area, "class", classHighlightArea)
		dom.SetAttr(area, "style", areaStyle(h, rc, offX, offY))
		root.AppendChild(area)
	}

	// Coarse hit-test box covering all fragments.
	box := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	dom.SetAttr(box, "class", classBoundingArea)
	dom.SetAttr(box, "style", fmt.Sprintf(
		"position:absolute;left:%.0fpx;top:%.0fpx;width:%.0fpx;height:%.0fpx",
		bounding.Left-offX, bounding.Top-offY, bounding.Width, bounding.Height))
	root.AppendChild(box)

	container.AppendChild(root)

	h.rects = rects
	h.bounding = bounding
	h.Position = bounding.Top
	return root
}

// areaStyle renders one fragment's inline style. A plain highlight gets a
// translucent fill; an underline gets a transparent fill and a solid bottom
// border in the highlight color.
func areaStyle(h *Highlight, rc layout.Rect, offX, offY float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "position:absolute;left:%.0fpx;top:%.0fpx;width:%.0fpx;height:%.0fpx;",
		rc.Left-offX, rc.Top-offY, rc.Width, rc.Height)
	rgb := fmt.Sprintf("%d,%d,%d", h.Color.Red, h.Color.Green, h.Color.Blue)
	switch h.Marker {
	case MarkerUnderline:
		fmt.Fprintf(&b, "background-color:transparent;border-bottom:%dpx solid rgb(%s)",
			underlineThickness, rgb)
	default:
		fmt.Fprintf(&b, "background-color:rgba(%s,%s)", rgb, fillOpacity)
	}
	return b.String()
}

// Unrender removes the overlay nodes carrying the given highlight id.
func Unrender(container *html.Node, id string) {
	if container == nil {
		return
	}
	for c := container.FirstChild; c != nil; {
		next := c.NextSibling
		if dom.IsElement(c) && dom.Attr(c, "data-id") == id {
			container.RemoveChild(c)
		}
		c = next
	}
}

// UnrenderAll removes every overlay node from the container.
func UnrenderAll(container *html.Node) {
	if container == nil {
		return
	}
	for container.FirstChild != nil {
		container.RemoveChild(container.FirstChild)
	}
}

// OverlayHTML serializes an overlay subtree for shipping to the rendering
// surface.
func OverlayHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return ""
	}
	return b.String()
}
