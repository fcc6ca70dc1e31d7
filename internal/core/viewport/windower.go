package viewport

import "time"

const (
	// FrameInterval bounds window recomputation to one pass per frame.
	FrameInterval = 16 * time.Millisecond
	// SettleDelay is the wait before measuring a container again when it
	// could not be measured on mount.
	SettleDelay = 100 * time.Millisecond
	// MaxMountAttempts bounds the number of measurements made on mount.
	MaxMountAttempts = 3
)

// Container is a node of the host layout tree that may scroll.
type Container interface {
	// Height returns the client height, or false when not laid out yet.
	Height() (int, bool)
	// Scrollable reports whether the node is the element that scrolls.
	Scrollable() bool
	// Parent returns the enclosing node, or nil at the root.
	Parent() Container
}

// ScrollableAncestor walks up from c to the first scrollable node. When no
// node scrolls, c itself is returned.
func ScrollableAncestor(c Container) Container {
	for n := c; n != nil; n = n.Parent() {
		if n.Scrollable() {
			return n
		}
	}
	return c
}

// Windower keeps a Window in sync with a scroll container. It holds no
// timers: methods report when the caller must schedule a frame or a settle
// retry, and the caller calls Frame or Remeasure when it elapses.
type Windower struct {
	geom   Geometry
	length int
	window Window

	container    Container
	mounted      bool
	attempts     int
	framePending bool
	pendingTop   int
}

// NewWindower returns an unmounted windower for rows of itemHeight.
func NewWindower(itemHeight int) *Windower {
	w := &Windower{geom: Geometry{ItemHeight: itemHeight}}
	w.window = Compute(w.geom, 0)
	return w
}

// Mount attaches the windower to the scrollable ancestor of c and measures
// it. It reports false when the container cannot be measured yet, in which
// case the caller should call Remeasure after SettleDelay.
func (w *Windower) Mount(c Container) bool {
	w.container = ScrollableAncestor(c)
	w.mounted = true
	w.attempts = 0
	w.framePending = false
	return w.measure()
}

// Remeasure retries the mount measurement. It reports whether the container
// was measured and whether another retry should be scheduled.
func (w *Windower) Remeasure() (measured, retry bool) {
	if !w.mounted || w.container == nil {
		return false, false
	}
	if w.measure() {
		return true, false
	}
	return false, w.attempts < MaxMountAttempts
}

func (w *Windower) measure() bool {
	w.attempts++
	h, ok := w.container.Height()
	if !ok || h <= 0 {
		w.recompute()
		return false
	}
	w.geom.ContainerHeight = h
	w.recompute()
	return true
}

// Unmount detaches the windower. Scroll and resize are ignored until the
// next Mount.
func (w *Windower) Unmount() {
	w.mounted = false
	w.container = nil
	w.framePending = false
}

// Mounted reports whether the windower is attached to a container.
func (w *Windower) Mounted() bool { return w.mounted }

// Scroll records a new scroll offset. Only the first scroll of a frame asks
// the caller to schedule Frame; later ones just replace the pending offset.
func (w *Windower) Scroll(scrollTop int) (scheduleFrame bool) {
	if !w.mounted {
		return false
	}
	w.pendingTop = scrollTop
	if w.framePending {
		return false
	}
	w.framePending = true
	return true
}

// FramePending reports whether a frame has been requested and not run.
func (w *Windower) FramePending() bool { return w.framePending }

// Frame applies the pending scroll offset and recomputes the window. It
// reports whether the window changed.
func (w *Windower) Frame() bool {
	if !w.framePending {
		return false
	}
	w.framePending = false
	w.geom.ScrollTop = w.pendingTop
	return w.recompute()
}

// Resize records a new container height. A grown container widens the window
// immediately; a shrunk one asks the caller for a frame.
func (w *Windower) Resize(height int) (changed, scheduleFrame bool) {
	if !w.mounted || height == w.geom.ContainerHeight {
		return false, false
	}
	grew := height > w.geom.ContainerHeight
	w.geom.ContainerHeight = height
	if grew {
		return w.recompute(), false
	}
	if w.framePending {
		return false, false
	}
	w.framePending = true
	w.pendingTop = w.geom.ScrollTop
	return false, true
}

// SetLength records a new dataset length and recomputes the window at once
// so a grown dataset never leaves the window short of the visible rows.
func (w *Windower) SetLength(n int) bool {
	n = max(n, 0)
	if n == w.length {
		return false
	}
	w.length = n
	w.geom.ScrollTop = w.geom.ClampScroll(w.geom.ScrollTop, n)
	if w.framePending {
		w.pendingTop = w.geom.ClampScroll(w.pendingTop, n)
	}
	return w.recompute()
}

func (w *Windower) recompute() bool {
	next := Compute(w.geom, w.length)
	if next == w.window {
		return false
	}
	w.window = next
	return true
}

// Window returns the current window.
func (w *Windower) Window() Window { return w.window }

// Geometry returns the current geometry.
func (w *Windower) Geometry() Geometry { return w.geom }

// Length returns the dataset length.
func (w *Windower) Length() int { return w.length }

// Layout returns the spacer and offset for the current window.
func (w *Windower) Layout() Layout {
	return LayoutFor(w.window, w.geom.ItemHeight, w.length)
}

// NearBottom reports whether the viewport is within threshold of the end.
func (w *Windower) NearBottom(threshold int) bool {
	return NearBottom(w.geom, w.length, threshold)
}
