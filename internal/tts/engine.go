package tts

import "strings"

// Voice describes one voice the speech engine offers.
type Voice struct {
	Name    string
	Lang    string
	Default bool
}

// Utterance is one unit of speech handed to the engine.
type Utterance struct {
	Text  string
	Lang  string
	Voice string // engine voice name; empty picks the engine default
	Rate  float64
	Pitch float64
}

// Engine is the narrow surface of a platform speech synthesizer. The
// platform owns a single global engine instance, so implementations are
// single-flight: Speak replaces any in-progress utterance.
//
// Callbacks fire on the engine's own goroutine; the Player serializes them.
type Engine interface {
	Speak(u Utterance)
	Pause()
	Resume()
	Cancel()
	Voices() []Voice
	// SetCallbacks installs the word-boundary and utterance-end handlers.
	// charIndex and charLength are rune offsets into the utterance text.
	SetCallbacks(onBoundary func(charIndex, charLength int), onEnd func())
}

// MatchVoice picks the best voice for a language preference: exact tag
// match first, then primary-language prefix, then the engine default, then
// the first voice. Tags are compared case-insensitively with underscores
// normalized to hyphens. Returns the zero Voice when none exist.
func MatchVoice(voices []Voice, pref string) Voice {
	if len(voices) == 0 {
		return Voice{}
	}
	want := normalizeTag(pref)
	if want != "" {
		for _, v := range voices {
			if normalizeTag(v.Lang) == want {
				return v
			}
		}
		primary := want
		if i := strings.IndexByte(primary, '-'); i > 0 {
			primary = primary[:i]
		}
		for _, v := range voices {
			got := normalizeTag(v.Lang)
			if got == primary || strings.HasPrefix(got, primary+"-") {
				return v
			}
		}
	}
	for _, v := range voices {
		if v.Default {
			return v
		}
	}
	return voices[0]
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}
