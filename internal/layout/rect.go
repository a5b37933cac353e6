// Package layout abstracts client-rect measurement behind an Engine
// interface and provides TextGrid, a deterministic monospace layout used
// wherever a browser's layout engine is not available: geometry tests, the
// standalone server, and hit-testing on the engine side of the surface
// bridge.
package layout

// Rect is an axis-aligned box in document coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) Area() float64   { return r.Width * r.Height }

// Contains reports whether the point (x, y) lies inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x < r.Right() && y >= r.Top && y < r.Bottom()
}

// Overlaps reports whether two rects share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.Left < o.Right() && o.Left < r.Right() &&
		r.Top < o.Bottom() && o.Top < r.Bottom()
}

// Union returns the smallest rect covering both.
func (r Rect) Union(o Rect) Rect {
	left := min(r.Left, o.Left)
	top := min(r.Top, o.Top)
	right := max(r.Right(), o.Right())
	bottom := max(r.Bottom(), o.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// SameRow reports whether two rects sit on the same line box.
func (r Rect) SameRow(o Rect) bool {
	return r.Top == o.Top && r.Height == o.Height
}
