package tts

import (
	"log/slog"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/lecternhq/lectern/internal/anchor"
	"github.com/lecternhq/lectern/internal/debounce"
	"github.com/lecternhq/lectern/internal/dom"
	"github.com/lecternhq/lectern/internal/event"
	"github.com/lecternhq/lectern/internal/layout"
)

// State is the playback state machine position.
type State int

const (
	StateIdle State = iota
	StateSpeaking
	StatePaused
)

// WordHighlighter renders the transient "currently speaking" highlight. The
// reader session implements it; rendering failures are reported through ok
// and never interrupt speech.
type WordHighlighter interface {
	HighlightWord(r *dom.Range) (pos layout.Rect, ok bool)
	ClearWord()
}

// View is what the player needs from the active view strategy to keep the
// spoken word visible.
type View interface {
	IsScrollMode() bool
	IsPaginated() bool
	AutoScroll() bool
	UserHasScrolled() bool
	ScrollTop() float64
	ViewportHeight() float64
	ScrollToCenter(top float64)
	SnapToPage(top float64)
}

// unit is one utterance of a playback session: a window into a queue item.
type unit struct {
	itemIndex int
	base      int // rune offset of the window within the item's text
	text      string
}

// PlayerConfig bundles the player's construction-time settings, validated
// once at the boundary.
type PlayerConfig struct {
	Rate          float64
	Pitch         float64
	VoicePref     string // preferred voice language tag, e.g. "en-US"
	ClickDebounce time.Duration
}

// DefaultPlayerConfig returns the engine defaults.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{Rate: 1.0, Pitch: 1.0, ClickDebounce: 150 * time.Millisecond}
}

// Player drives the speech engine utterance-by-utterance through the queue
// and synchronizes the word highlight with the engine's boundary callbacks.
type Player struct {
	mu sync.Mutex

	log    *slog.Logger
	engine Engine
	bus    *event.Bus
	wh     WordHighlighter
	view   View
	cfg    PlayerConfig

	root  *html.Node
	queue []QueueItem
	units []unit
	pos   int
	state State
	voice Voice

	clickRestart *debounce.Debouncer
	pendingClick struct {
		node   *html.Node
		offset int
	}
}

// NewPlayer wires a player. The queue is built lazily per session from the
// current DOM state of root.
func NewPlayer(log *slog.Logger, engine Engine, bus *event.Bus, wh WordHighlighter, view View, root *html.Node, cfg PlayerConfig) *Player {
	if cfg.Rate <= 0 {
		cfg.Rate = 1.0
	}
	if cfg.Pitch <= 0 {
		cfg.Pitch = 1.0
	}
	if cfg.ClickDebounce <= 0 {
		cfg.ClickDebounce = 150 * time.Millisecond
	}
	p := &Player{
		log:    log,
		engine: engine,
		bus:    bus,
		wh:     wh,
		view:   view,
		cfg:    cfg,
		root:   root,
	}
	p.voice = MatchVoice(engine.Voices(), cfg.VoicePref)
	engine.SetCallbacks(p.onBoundary, p.onEnd)
	p.clickRestart = debounce.New(cfg.ClickDebounce, p.restartFromPendingClick)
	return p
}

// State returns the current playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Queue returns the current session's queue; empty outside a session.
func (p *Player) Queue() []QueueItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue
}

// SpeakPlay starts a full-document session from the first queue item. Any
// in-flight session is cancelled first, so at most one utterance is ever
// active.
func (p *Player) SpeakPlay() {
	p.mu.Lock()
	p.cancelLocked(false)
	p.queue = BuildQueue(p.root)
	p.units = fullUnits(p.queue, 0, 0)
	p.startLocked()
	p.mu.Unlock()
}

// Speak starts a session over a selection. When partial is true only the
// selected text is spoken: a prefix window into the first touched item, the
// in-between items whole, and a suffix window into the last. When partial is
// false playback runs from the item containing the selection start to the
// end of the document.
func (p *Player) Speak(sel *anchor.SelectionInfo, partial bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked(false)
	p.queue = BuildQueue(p.root)
	if sel == nil || sel.Range == nil {
		p.units = fullUnits(p.queue, 0, 0)
		p.startLocked()
		return
	}
	startItem, startOff := locatePoint(p.queue, sel.Range.StartContainer, sel.Range.StartOffset)
	if startItem < 0 {
		p.units = fullUnits(p.queue, 0, 0)
		p.startLocked()
		return
	}
	if !partial {
		p.units = fullUnits(p.queue, startItem, startOff)
		p.startLocked()
		return
	}
	endItem, endOff := locatePoint(p.queue, sel.Range.EndContainer, sel.Range.EndOffset)
	if endItem < 0 {
		endItem, endOff = startItem, runeLen(p.queue[startItem].CombinedText)
	}
	p.units = partialUnits(p.queue, startItem, startOff, endItem, endOff)
	p.startLocked()
}

// SpeakPause pauses the engine and removes the word highlight.
func (p *Player) SpeakPause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateSpeaking {
		return
	}
	p.state = StatePaused
	p.engine.Pause()
	p.wh.ClearWord()
	p.bus.Publish(event.ReadAloudPaused, nil)
}

// SpeakResume resumes a paused session.
func (p *Player) SpeakResume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePaused {
		return
	}
	p.state = StateSpeaking
	p.engine.Resume()
	p.bus.Publish(event.ReadAloudResumed, nil)
}

// Cancel stops the session. Idempotent: cancelling when idle is a no-op.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle {
		return
	}
	p.cancelLocked(true)
}

// PlayFromClick restarts the session at the word containing the clicked
// point, debounced to coalesce rapid re-clicks. Ignored while idle.
func (p *Player) PlayFromClick(node *html.Node, offset int) {
	p.mu.Lock()
	if p.state == StateIdle {
		p.mu.Unlock()
		return
	}
	p.pendingClick.node = node
	p.pendingClick.offset = offset
	p.mu.Unlock()
	p.clickRestart.Trigger()
}

func (p *Player) restartFromPendingClick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	node, offset := p.pendingClick.node, p.pendingClick.offset
	if node == nil || p.state == StateIdle {
		return
	}
	itemIdx, itemOff := locatePoint(p.queue, node, offset)
	if itemIdx < 0 {
		return
	}
	wordStart, _ := wordBounds(p.queue[itemIdx].CombinedText, itemOff)
	p.engine.Cancel()
	p.units = fullUnits(p.queue, itemIdx, wordStart)
	p.pos = 0
	p.state = StateSpeaking
	p.speakCurrentLocked()
}

// startLocked begins speaking the prepared units. An empty session is a
// natural end, not an error.
func (p *Player) startLocked() {
	p.pos = 0
	if len(p.units) == 0 {
		p.finishLocked()
		return
	}
	p.state = StateSpeaking
	p.bus.Publish(event.ReadAloudStarted, nil)
	p.speakCurrentLocked()
}

func (p *Player) speakCurrentLocked() {
	u := p.units[p.pos]
	lang := ""
	if u.itemIndex >= 0 && u.itemIndex < len(p.queue) {
		lang = p.queue[u.itemIndex].Lang
	}
	p.engine.Speak(Utterance{
		Text:  u.text,
		Lang:  lang,
		Voice: p.voice.Name,
		Rate:  p.cfg.Rate,
		Pitch: p.cfg.Pitch,
	})
}

// onEnd advances to the next utterance; exhausting the queue ends the
// session naturally.
func (p *Player) onEnd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateSpeaking {
		return
	}
	p.pos++
	if p.pos >= len(p.units) {
		p.finishLocked()
		return
	}
	p.speakCurrentLocked()
}

// onBoundary maps the engine's character window back onto the DOM and
// repaints the transient word highlight. Every failure here is soft: speech
// continues without the highlight.
func (p *Player) onBoundary(charIndex, charLength int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateSpeaking || p.pos >= len(p.units) {
		return
	}
	u := p.units[p.pos]
	if u.itemIndex < 0 || u.itemIndex >= len(p.queue) {
		return
	}
	item := &p.queue[u.itemIndex]
	r := WordRange(item, u.base+charIndex, charLength)
	if r == nil {
		return
	}
	pos, ok := p.wh.HighlightWord(r)
	if !ok {
		return
	}
	p.revealLocked(pos)
}

// revealLocked keeps the spoken word visible: smooth-scroll to center in
// scroll mode when the word falls below the visual midpoint (unless the
// user took over scrolling), snap the page in paginated mode.
func (p *Player) revealLocked(pos layout.Rect) {
	if p.view == nil {
		return
	}
	switch {
	case p.view.IsScrollMode():
		if !p.view.AutoScroll() || p.view.UserHasScrolled() {
			return
		}
		mid := p.view.ScrollTop() + p.view.ViewportHeight()/2
		if pos.Top > mid {
			p.view.ScrollToCenter(pos.Top)
		}
	case p.view.IsPaginated():
		p.view.SnapToPage(pos.Top)
	}
}

func (p *Player) finishLocked() {
	p.engine.Cancel()
	p.wh.ClearWord()
	p.state = StateIdle
	p.units = nil
	p.pos = 0
	p.bus.Publish(event.ReadAloudFinished, nil)
}

// cancelLocked stops everything; publish reports a user/API stop rather
// than a natural finish.
func (p *Player) cancelLocked(publish bool) {
	p.clickRestart.Cancel()
	if p.state != StateIdle {
		p.engine.Cancel()
		p.wh.ClearWord()
	}
	p.state = StateIdle
	p.units = nil
	p.pos = 0
	if publish {
		p.bus.Publish(event.ReadAloudStopped, nil)
	}
}

// fullUnits builds a session from item startItem at rune offset startOff
// through the end of the queue.
func fullUnits(queue []QueueItem, startItem, startOff int) []unit {
	var units []unit
	for i := startItem; i < len(queue); i++ {
		base := 0
		text := queue[i].CombinedText
		if i == startItem && startOff > 0 {
			runes := []rune(text)
			if startOff >= len(runes) {
				continue
			}
			base = startOff
			text = string(runes[startOff:])
		}
		if text == "" {
			continue
		}
		units = append(units, unit{itemIndex: i, base: base, text: text})
	}
	return units
}

// partialUnits builds a selection-only session: prefix window, whole middle
// items, suffix window.
func partialUnits(queue []QueueItem, startItem, startOff, endItem, endOff int) []unit {
	if startItem > endItem || startItem < 0 || endItem >= len(queue) {
		return nil
	}
	if startItem == endItem {
		text := sliceRunes(queue[startItem].CombinedText, startOff, endOff)
		if text == "" {
			return nil
		}
		return []unit{{itemIndex: startItem, base: startOff, text: text}}
	}
	var units []unit
	if text := sliceRunes(queue[startItem].CombinedText, startOff, runeLen(queue[startItem].CombinedText)); text != "" {
		units = append(units, unit{itemIndex: startItem, base: startOff, text: text})
	}
	for i := startItem + 1; i < endItem; i++ {
		if queue[i].CombinedText != "" {
			units = append(units, unit{itemIndex: i, text: queue[i].CombinedText})
		}
	}
	if text := sliceRunes(queue[endItem].CombinedText, 0, endOff); text != "" {
		units = append(units, unit{itemIndex: endItem, text: text})
	}
	return units
}

// locatePoint finds the queue item containing a DOM point and the point's
// rune offset within the item's combined text. Returns (-1, 0) when the
// node is not part of any item — stale references after a DOM change land
// here and the caller degrades gracefully.
func locatePoint(queue []QueueItem, node *html.Node, offset int) (int, int) {
	for i := range queue {
		acc := 0
		for _, tn := range queue[i].TextNodes {
			if tn == node {
				return i, acc + offset
			}
			acc += dom.NodeLength(tn)
		}
	}
	// Element containers: fall back to the first item under that element.
	for i := range queue {
		for _, tn := range queue[i].TextNodes {
			if dom.Contains(node, tn) {
				return i, 0
			}
		}
	}
	return -1, 0
}

// wordBounds expands a rune offset to the enclosing word by scanning left
// and right for whitespace.
func wordBounds(text string, offset int) (int, int) {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0, 0
	}
	if offset >= len(runes) {
		offset = len(runes) - 1
	}
	if offset < 0 {
		offset = 0
	}
	start := offset
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	end := offset
	for end < len(runes) && !unicode.IsSpace(runes[end]) {
		end++
	}
	return start, end
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func sliceRunes(s string, from, to int) string {
	runes := []rune(s)
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
