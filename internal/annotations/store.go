// Package annotations persists user highlights across sessions, keyed by the
// resource they were made in.
package annotations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lecternhq/lectern/internal/anchor"
	"github.com/lecternhq/lectern/internal/highlight"
)

// Annotation is one persisted highlight: the durable selection anchor plus
// the presentation attributes needed to recreate it on reload.
type Annotation struct {
	ID        string               `json:"id"`
	Href      string               `json:"href"` // resource the selection lives in
	CreatedAt time.Time            `json:"created_at"`
	Color     highlight.Color      `json:"color"`
	Marker    highlight.Marker     `json:"marker"`
	Selection anchor.SelectionInfo `json:"selection"`
}

// NewID returns a fresh annotation identifier.
func NewID() string {
	return uuid.NewString()
}

// Store is the persistence boundary. Implementations must tolerate saves
// that reuse an existing ID (overwrite) and deletes of unknown IDs (no-op).
type Store interface {
	SaveAnnotation(ctx context.Context, a Annotation) error
	DeleteAnnotation(ctx context.Context, id string) error
	GetAnnotationsByChapter(ctx context.Context, href string) ([]Annotation, error)
}

// MemoryStore keeps annotations in process memory. Used in tests and as the
// fallback when no store URL is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Annotation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Annotation)}
}

func (s *MemoryStore) SaveAnnotation(_ context.Context, a Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[a.ID] = a
	return nil
}

func (s *MemoryStore) DeleteAnnotation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) GetAnnotationsByChapter(_ context.Context, href string) ([]Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Annotation
	for _, a := range s.byID {
		if a.Href == href {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
