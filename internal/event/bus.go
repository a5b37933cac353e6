// Package event carries the engine's lifecycle signals: an in-process bus
// the subsystems publish to, and a WebSocket hub that fans those signals out
// to connected rendering surfaces.
package event

import (
	"sync"
	"time"
)

// Read-aloud lifecycle topics, consumed by UI chrome.
const (
	ReadAloudStarted  = "readaloud.started"
	ReadAloudPaused   = "readaloud.paused"
	ReadAloudResumed  = "readaloud.resumed"
	ReadAloudFinished = "readaloud.finished"
	ReadAloudStopped  = "readaloud.stopped"
)

// Speech transport topics: the engine ships utterances to the surface's
// synthesizer and tells it when to drop the current one.
const (
	ReadAloudUtterance = "readaloud.utterance"
	ReadAloudCancel    = "readaloud.cancel"
)

// Highlight and overlay topics, consumed by the rendering surface.
const (
	HighlightCreated   = "highlight.created"
	HighlightDestroyed = "highlight.destroyed"
	HighlightClicked   = "highlight.clicked"
	HighlightHovered   = "highlight.hovered"
	ViewScroll         = "view.scroll"
	ViewSnap           = "view.snap"
)

// Message is one event on the bus.
type Message struct {
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Handler receives published messages.
type Handler func(Message)

// Bus is a synchronous publish/subscribe fan-out. Handlers run on the
// publisher's goroutine; anything slow belongs behind a channel on the
// subscriber side.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler // topic -> id -> handler
	all      map[int]Handler            // wildcard subscribers
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string]map[int]Handler),
		all:      make(map[int]Handler),
	}
}

// Subscribe registers a handler for one topic and returns an unsubscribe
// function.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[int]Handler)
	}
	b.handlers[topic][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[topic], id)
	}
}

// SubscribeAll registers a handler for every topic.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish delivers a message to the topic's subscribers and the wildcard
// subscribers.
func (b *Bus) Publish(topic string, data any) {
	msg := Message{Topic: topic, Timestamp: time.Now().UTC(), Data: data}
	b.mu.RLock()
	subs := make([]Handler, 0, len(b.handlers[topic])+len(b.all))
	for _, h := range b.handlers[topic] {
		subs = append(subs, h)
	}
	for _, h := range b.all {
		subs = append(subs, h)
	}
	b.mu.RUnlock()
	for _, h := range subs {
		h(msg)
	}
}
