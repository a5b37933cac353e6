package highlight

import (
	"sort"

	"github.com/lecternhq/lectern/internal/layout"
)

// ComputeRects reduces a range's raw client rects to a non-overlapping set
// in document order. Same-row fragments that touch or overlap are merged
// unless mergeHorizontal is false, which underline and strikethrough markers
// use so each fragment keeps its own border edge. Rects fully contained in
// another are always dropped.
func ComputeRects(raw []layout.Rect, mergeHorizontal bool) []layout.Rect {
	rects := make([]layout.Rect, 0, len(raw))
	for _, r := range raw {
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		rects = append(rects, r)
	}
	rects = dropContained(rects)
	if mergeHorizontal {
		rects = mergeRows(rects)
	}
	sort.SliceStable(rects, func(i, j int) bool {
		if rects[i].Top != rects[j].Top {
			return rects[i].Top < rects[j].Top
		}
		return rects[i].Left < rects[j].Left
	})
	return rects
}

// dropContained removes any rect entirely inside another.
func dropContained(rects []layout.Rect) []layout.Rect {
	out := make([]layout.Rect, 0, len(rects))
	for i, r := range rects {
		contained := false
		for j, o := range rects {
			if i == j {
				continue
			}
			if contains(o, r) && !(contains(r, o) && i < j) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, r)
		}
	}
	return out
}

func contains(outer, inner layout.Rect) bool {
	return inner.Left >= outer.Left && inner.Right() <= outer.Right() &&
		inner.Top >= outer.Top && inner.Bottom() <= outer.Bottom()
}

// mergeRows merges overlapping or adjacent fragments sharing a line box.
func mergeRows(rects []layout.Rect) []layout.Rect {
	byRow := map[float64][]layout.Rect{}
	var rows []float64
	for _, r := range rects {
		if _, seen := byRow[r.Top]; !seen {
			rows = append(rows, r.Top)
		}
		byRow[r.Top] = append(byRow[r.Top], r)
	}
	sort.Float64s(rows)

	var out []layout.Rect
	for _, top := range rows {
		row := byRow[top]
		sort.SliceStable(row, func(i, j int) bool { return row[i].Left < row[j].Left })
		cur := row[0]
		for _, r := range row[1:] {
			// Touching counts as adjacent; a sub-pixel gap does not split.
			if r.Left <= cur.Right()+0.5 && r.Height == cur.Height {
				if r.Right() > cur.Right() {
					cur.Width = r.Right() - cur.Left
				}
				continue
			}
			out = append(out, cur)
			cur = r
		}
		out = append(out, cur)
	}
	return out
}
