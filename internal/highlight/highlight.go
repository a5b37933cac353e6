// Package highlight owns the visual overlay side of the reading engine:
// the highlight model, the per-document registry, rectangle computation and
// merging, overlay DOM materialization, and pointer hit-testing.
package highlight

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/lecternhq/lectern/internal/anchor"
	"github.com/lecternhq/lectern/internal/layout"
)

// Marker is the visual kind of a highlight.
type Marker int

const (
	MarkerHighlight Marker = iota
	MarkerUnderline
	MarkerBookmark
	MarkerCustom
)

// Type tags which subsystem owns a highlight, so bulk teardown by one writer
// never clobbers another's overlays.
type Type string

const (
	TypeAnnotation Type = "annotation"
	TypeSearch     Type = "search"
	TypeDefinition Type = "definition"
	TypeReadAloud  Type = "readaloud"
	TypePageBreak  Type = "pagebreak"
)

// Color is an RGB triple.
type Color struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

// Highlight is a visual overlay plus the anchor it is tied to.
type Highlight struct {
	ID                 string               `json:"id"`
	Color              Color                `json:"color"`
	SelectionInfo      anchor.SelectionInfo `json:"selectionInfo"`
	PointerInteraction bool                 `json:"pointerInteraction"`
	Marker             Marker               `json:"marker"`
	Position           float64              `json:"position,omitempty"`
	Type               Type                 `json:"type"`

	// rects is the fragment geometry captured at render time; it is a
	// static snapshot, re-taken whenever the highlight is recreated.
	rects    []layout.Rect
	bounding layout.Rect
}

// ContentID derives the deterministic highlight identifier from an anchor:
// the hex SHA-256 of the concatenated RangeInfo fields. The same textual
// range therefore always maps to the same id, which makes re-creation
// idempotent.
func ContentID(info *anchor.RangeInfo) string {
	sum := sha256.Sum256([]byte(info.Key()))
	return hex.EncodeToString(sum[:])
}

// Rects returns the fragment geometry captured at render time.
func (h *Highlight) Rects() []layout.Rect { return h.rects }

// Bounding returns the union box captured at render time.
func (h *Highlight) Bounding() layout.Rect { return h.bounding }

// Store is the registry of currently painted highlights for one document.
// It is constructed per active-document lifetime and injected into every
// subsystem that paints; mutation is last-writer-wins by id.
type Store struct {
	mu   sync.Mutex
	list []*Highlight
}

// NewStore returns an empty registry.
func NewStore() *Store {
	return &Store{}
}

// Add registers h, replacing any existing highlight with the same id while
// keeping its original creation position in the list.
func (s *Store) Add(h *Highlight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.list {
		if existing.ID == h.ID {
			s.list[i] = h
			return
		}
	}
	s.list = append(s.list, h)
}

// Get returns the highlight with the given id, or nil.
func (s *Store) Get(id string) *Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.list {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// Remove deletes by id and reports whether anything was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.list {
		if h.ID == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveByType deletes every highlight carrying the given type tag and
// returns the removed entries.
func (s *Store) RemoveByType(t Type) []*Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*Highlight
	kept := s.list[:0]
	for _, h := range s.list {
		if h.Type == t {
			removed = append(removed, h)
		} else {
			kept = append(kept, h)
		}
	}
	s.list = kept
	return removed
}

// All returns a copy of the registry in creation order.
func (s *Store) All() []*Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Highlight, len(s.list))
	copy(out, s.list)
	return out
}

// Len returns the number of registered highlights.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

// Clear empties the registry (document teardown or navigation).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = nil
}
