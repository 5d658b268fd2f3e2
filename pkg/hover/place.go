package hover

import "github.com/arshiaxbt/Aura/pkg/dom"

const (
	// Margin keeps the tooltip off the viewport edges.
	Margin = 8.0
	// Gap separates the tooltip from its marker.
	Gap = 6.0
)

// Place positions a tip of the given size below anchor, or above it when
// there is no room below, clamped inside viewport.
func Place(anchor dom.Rect, tipW, tipH float64, viewport dom.Rect) dom.Rect {
	x := anchor.X
	y := anchor.Bottom() + Gap

	if y+tipH > viewport.Bottom()-Margin {
		if above := anchor.Y - Gap - tipH; above >= viewport.Y+Margin {
			y = above
		}
	}

	x = clamp(x, viewport.X+Margin, viewport.Right()-Margin-tipW)
	y = clamp(y, viewport.Y+Margin, viewport.Bottom()-Margin-tipH)
	return dom.Rect{X: x, Y: y, W: tipW, H: tipH}
}

// clamp prefers lo when the range is empty, so an oversized tip keeps its
// top-left corner visible.
func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
