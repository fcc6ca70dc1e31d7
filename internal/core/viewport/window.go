// Package viewport computes which slice of a long list is materialized for a
// scroll container, given its geometry. Units are abstract (pixels in a
// browser, lines in a terminal) as long as they are consistent.
package viewport

const (
	// Overscan is the number of rows rendered beyond each edge of the
	// visible area.
	Overscan = 5
	// DefaultVisibleRows is used when the geometry cannot be measured.
	DefaultVisibleRows = 50
)

// Geometry describes a scroll container.
type Geometry struct {
	ScrollTop       int
	ItemHeight      int
	ContainerHeight int
}

// Known reports whether the geometry can be used to derive a row count.
func (g Geometry) Known() bool {
	return g.ItemHeight > 0 && g.ContainerHeight > 0
}

// VisibleRows returns the number of rows that fit the container.
func (g Geometry) VisibleRows() int {
	if !g.Known() {
		return DefaultVisibleRows
	}
	return (g.ContainerHeight + g.ItemHeight - 1) / g.ItemHeight
}

// MaxScrollTop returns the largest scroll offset for a list of length rows.
func (g Geometry) MaxScrollTop(length int) int {
	if g.ItemHeight <= 0 {
		return 0
	}
	return max(0, length*g.ItemHeight-max(g.ContainerHeight, 0))
}

// ClampScroll returns scrollTop limited to the scrollable range.
func (g Geometry) ClampScroll(scrollTop, length int) int {
	return max(0, min(scrollTop, g.MaxScrollTop(length)))
}

// Window is the half open index range [Start, End) to materialize.
type Window struct {
	Start int
	End   int
}

// Len returns the number of rows in the window.
func (w Window) Len() int { return w.End - w.Start }

// Contains reports whether index i is inside the window.
func (w Window) Contains(i int) bool { return i >= w.Start && i < w.End }

// Compute derives the window for a list of length rows.
//
//	start = max(0, floor(scrollTop/itemHeight) - Overscan)
//	end   = min(length, start + ceil(containerHeight/itemHeight) + 2*Overscan)
//
// The scroll offset is clamped to the scrollable range first. Unknown
// geometry uses DefaultVisibleRows from the top of the list.
func Compute(g Geometry, length int) Window {
	if length <= 0 {
		return Window{}
	}

	first := 0
	if g.ItemHeight > 0 {
		first = g.ClampScroll(g.ScrollTop, length) / g.ItemHeight
	}

	start := max(0, first-Overscan)
	end := min(length, start+g.VisibleRows()+2*Overscan)
	return Window{Start: start, End: end}
}

// Layout is the rendering contract for a window: reserve SpacerHeight for
// the whole list and draw the materialized slice Offset from the top.
type Layout struct {
	SpacerHeight int
	Offset       int
}

// LayoutFor returns the layout of w over a list of length rows.
func LayoutFor(w Window, itemHeight, length int) Layout {
	itemHeight = max(itemHeight, 0)
	return Layout{
		SpacerHeight: length * itemHeight,
		Offset:       w.Start * itemHeight,
	}
}

// DistanceToBottom returns the remaining scroll distance to the end of the
// list.
func DistanceToBottom(g Geometry, length int) int {
	return max(0, length*max(g.ItemHeight, 0)-g.ScrollTop-max(g.ContainerHeight, 0))
}

// NearBottom reports whether the list overflows the container and the
// remaining distance to its end is below threshold.
func NearBottom(g Geometry, length, threshold int) bool {
	if !g.Known() || length*g.ItemHeight <= g.ContainerHeight {
		return false
	}
	return DistanceToBottom(g, length) < threshold
}
