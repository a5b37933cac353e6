package api

import (
	"github.com/lecternhq/lectern/internal/dom"
	"github.com/lecternhq/lectern/internal/event"
	"github.com/lecternhq/lectern/internal/tts"
)

// handleSurfaceEvent routes messages from connected rendering surfaces to
// the active session. Events arriving with no session open are dropped.
func (s *Server) handleSurfaceEvent(ev event.SurfaceEvent) {
	os := s.activeSession()
	if os == nil {
		return
	}
	root := os.session.Document().Root

	switch ev.Kind {
	case "selection":
		start := dom.NodeAtPath(root, ev.StartPath)
		end := dom.NodeAtPath(root, ev.EndPath)
		if start == nil || end == nil {
			os.session.SetSelection(nil)
			return
		}
		os.session.SetSelection(dom.NewRange(start, ev.StartOff, end, ev.EndOff))
	case "pointermove":
		os.session.PointerMove(ev.X, ev.Y)
	case "pointerup":
		os.session.PointerUp(ev.X, ev.Y)
	case "click":
		if n := dom.NodeAtPath(root, ev.StartPath); n != nil {
			os.player.PlayFromClick(n, ev.StartOff)
		}
	case "resize":
		os.session.Resize(ev.Columns)
	case "scroll":
		os.session.UserScrolled(ev.Y)
	case "boundary":
		if re, ok := s.engine.(*tts.RemoteEngine); ok {
			re.Boundary(ev.CharIndex, ev.CharLength)
		}
	case "end":
		if re, ok := s.engine.(*tts.RemoteEngine); ok {
			re.End()
		}
	default:
		s.log.Debug("unknown surface event", "kind", ev.Kind)
	}
}
