// Package tts partitions a document into speakable utterance segments and
// drives a speech engine through them, mapping word-boundary callbacks back
// onto DOM ranges for live word highlighting.
package tts

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lecternhq/lectern/internal/dom"
)

// QueueItem is one speakable unit: contiguous text nodes sharing a direct
// speakable ancestor, language and direction. CombinedText is the raw
// concatenation of the node texts with newlines collapsed to spaces — not
// trimmed, so rune offsets stay aligned with the speech engine's character
// indices.
type QueueItem struct {
	Parent       *html.Node
	TextNodes    []*html.Node
	CombinedText string
	Lang         string
	Dir          string
}

// ItemRef is a stable handle into a queue: the queue slice may be rebuilt
// while a reference is held, so items are addressed by index, not by node
// identity.
type ItemRef struct {
	Item  *QueueItem
	Index int
}

// speakableTags are the block-level and semantic elements that start a new
// grouping boundary when entered.
var speakableTags = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.P: true, atom.Th: true,
	atom.Td: true, atom.Caption: true, atom.Li: true, atom.Blockquote: true,
	atom.Q: true, atom.Dt: true, atom.Dd: true, atom.Figcaption: true,
	atom.Div: true, atom.Pre: true,
}

// skippedTags are never recursed into: non-speakable or visually stricken
// content, media, forms and scripting.
var skippedTags = map[atom.Atom]bool{
	atom.Img: true, atom.Sup: true, atom.Sub: true, atom.Audio: true,
	atom.Video: true, atom.Source: true, atom.Button: true, atom.Canvas: true,
	atom.Del: true, atom.Dialog: true, atom.Embed: true, atom.Form: true,
	atom.Head: true, atom.Iframe: true, atom.Input: true, atom.Meter: true,
	atom.Noscript: true, atom.Object: true, atom.S: true, atom.Script: true,
	atom.Select: true, atom.Style: true, atom.Textarea: true,
}

// BuildQueue walks root depth-first in document order and produces the
// ordered utterance queue. Deterministic: the same tree always yields the
// same item sequence.
func BuildQueue(root *html.Node) []QueueItem {
	b := &queueBuilder{}
	b.walk(root)
	b.finalize()
	return b.items
}

type queueBuilder struct {
	items []QueueItem
	// includingDepth tracks how many grouping ancestors are on the stack;
	// text is only collected while at least one is open.
	includingDepth int
	firstSeen      bool
	current        *QueueItem
}

func (b *queueBuilder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if b.includingDepth > 0 {
			b.text(n)
		}
		return
	case html.ElementNode:
		if skippedTags[n.DataAtom] {
			if n.DataAtom == atom.Img {
				b.image(n)
			}
			return
		}
	case html.DocumentNode:
		// fall through to children
	default:
		return
	}

	including := false
	if n.Type == html.ElementNode {
		// The first element visited always opens a group, so content ahead
		// of any block tag is still speakable.
		if !b.firstSeen {
			b.firstSeen = true
			including = true
		} else if speakableTags[n.DataAtom] {
			including = true
		}
	}
	if including {
		b.includingDepth++
		b.current = nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
	if including {
		b.includingDepth--
		b.current = nil
	}
}

// text appends a text node to the current item when parent, language and
// direction are unchanged, otherwise starts a new item. Whitespace-only
// nodes never open an item of their own.
func (b *queueBuilder) text(n *html.Node) {
	parent := dom.ElementFromNode(n.Parent)
	if parent == nil {
		return
	}
	lang := inheritedAttr(parent, "lang")
	dir := inheritedAttr(parent, "dir")

	if b.current != nil && b.current.Parent == parent &&
		b.current.Lang == lang && b.current.Dir == dir {
		b.current.TextNodes = append(b.current.TextNodes, n)
		return
	}
	if strings.TrimSpace(n.Data) == "" {
		return
	}
	b.items = append(b.items, QueueItem{
		Parent:    parent,
		TextNodes: []*html.Node{n},
		Lang:      lang,
		Dir:       dir,
	})
	b.current = &b.items[len(b.items)-1]
}

// image emits a standalone pseudo-item for an img with non-empty alt text:
// speakable, but with no backing text nodes, so it cannot be word-
// highlighted.
func (b *queueBuilder) image(n *html.Node) {
	alt := strings.TrimSpace(dom.Attr(n, "alt"))
	if alt == "" {
		return
	}
	parent := dom.ElementFromNode(n.Parent)
	b.items = append(b.items, QueueItem{
		Parent:       parent,
		CombinedText: alt,
		Lang:         inheritedAttr(n, "lang"),
		Dir:          inheritedAttr(n, "dir"),
	})
	b.current = nil
}

// finalize computes each item's CombinedText.
func (b *queueBuilder) finalize() {
	for i := range b.items {
		item := &b.items[i]
		if len(item.TextNodes) == 0 {
			continue
		}
		var sb strings.Builder
		for _, tn := range item.TextNodes {
			sb.WriteString(tn.Data)
		}
		item.CombinedText = strings.ReplaceAll(sb.String(), "\n", " ")
	}
	// Items that collected only whitespace are dropped: nothing to speak.
	kept := b.items[:0]
	for _, item := range b.items {
		if strings.TrimSpace(item.CombinedText) == "" {
			continue
		}
		kept = append(kept, item)
	}
	b.items = kept
}

// inheritedAttr walks up from el for the nearest lang/dir attribute.
func inheritedAttr(el *html.Node, key string) string {
	for n := el; n != nil; n = n.Parent {
		if dom.IsElement(n) {
			if v := dom.Attr(n, key); v != "" {
				return v
			}
		}
	}
	return ""
}

// WordRange maps a character window of an item's CombinedText back onto a
// DOM range by accumulating text-node lengths until the offsets land inside
// nodes. Returns nil for pseudo-items and for offsets that no longer fit the
// item's nodes — word highlighting is a non-critical enhancement, so callers
// skip and continue.
func WordRange(item *QueueItem, charIndex, charLength int) *dom.Range {
	if item == nil || len(item.TextNodes) == 0 || charLength <= 0 || charIndex < 0 {
		return nil
	}
	startNode, startOff, ok := locate(item, charIndex)
	if !ok {
		return nil
	}
	endNode, endOff, ok := locate(item, charIndex+charLength)
	if !ok {
		return nil
	}
	return dom.NewRange(startNode, startOff, endNode, endOff)
}

// locate finds the text node and in-node offset for a global rune offset
// into the item's combined text. An offset equal to the total length maps to
// the end of the last node.
func locate(item *QueueItem, offset int) (*html.Node, int, bool) {
	acc := 0
	for _, tn := range item.TextNodes {
		l := dom.NodeLength(tn)
		if offset < acc+l {
			return tn, offset - acc, true
		}
		acc += l
	}
	if offset == acc && len(item.TextNodes) > 0 {
		last := item.TextNodes[len(item.TextNodes)-1]
		return last, dom.NodeLength(last), true
	}
	return nil, 0, false
}
