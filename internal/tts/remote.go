package tts

import (
	"sync"

	"github.com/lecternhq/lectern/internal/event"
)

// RemoteEngine is the server-side half of a split synthesizer: utterances
// are shipped to the rendering surface over the event bus, and the surface
// reports word boundaries and utterance ends back through Boundary and End.
// Pause and resume are carried by the player's own lifecycle events, so here
// they are no-ops.
type RemoteEngine struct {
	mu         sync.Mutex
	bus        *event.Bus
	voices     []Voice
	onBoundary func(charIndex, charLength int)
	onEnd      func()
}

// NewRemoteEngine builds a remote engine. voices is the surface's reported
// voice inventory; it may be empty until the surface connects.
func NewRemoteEngine(bus *event.Bus, voices []Voice) *RemoteEngine {
	return &RemoteEngine{bus: bus, voices: voices}
}

func (e *RemoteEngine) Speak(u Utterance) {
	e.bus.Publish(event.ReadAloudUtterance, u)
}

func (e *RemoteEngine) Pause()  {}
func (e *RemoteEngine) Resume() {}

func (e *RemoteEngine) Cancel() {
	e.bus.Publish(event.ReadAloudCancel, nil)
}

func (e *RemoteEngine) Voices() []Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voices
}

// SetVoices replaces the voice inventory (surface reconnect).
func (e *RemoteEngine) SetVoices(voices []Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voices = voices
}

func (e *RemoteEngine) SetCallbacks(onBoundary func(charIndex, charLength int), onEnd func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onBoundary = onBoundary
	e.onEnd = onEnd
}

// Boundary forwards a surface word-boundary report to the player.
func (e *RemoteEngine) Boundary(charIndex, charLength int) {
	e.mu.Lock()
	cb := e.onBoundary
	e.mu.Unlock()
	if cb != nil {
		cb(charIndex, charLength)
	}
}

// End forwards a surface utterance-end report to the player.
func (e *RemoteEngine) End() {
	e.mu.Lock()
	cb := e.onEnd
	e.mu.Unlock()
	if cb != nil {
		cb()
	}
}
