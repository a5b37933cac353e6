package highlight

// PointerEventKind distinguishes the pointer events the surface forwards.
type PointerEventKind int

const (
	PointerMove PointerEventKind = iota
	PointerUp
)

// HitTest finds the highlight under the pointer. The registry is scanned in
// reverse creation order so the most recently painted overlay wins when
// fragments stack. Only highlights opted into pointer interaction are
// considered. The scan is rect comparisons against the static snapshots
// captured at render time; no layout queries happen per event, which keeps
// re-testing on every pointer move cheap.
func HitTest(store *Store, x, y float64) *Highlight {
	all := store.All()
	for i := len(all) - 1; i >= 0; i-- {
		h := all[i]
		if !h.PointerInteraction {
			continue
		}
		// Coarse check against the union box first.
		if !h.bounding.Contains(x, y) {
			continue
		}
		for _, rc := range h.rects {
			if rc.Contains(x, y) {
				return h
			}
		}
	}
	return nil
}
