package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	height     int
	measured   bool
	scrollable bool
	parent     *node
}

func (n *node) Height() (int, bool) { return n.height, n.measured }
func (n *node) Scrollable() bool    { return n.scrollable }
func (n *node) Parent() Container {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func mounted(t *testing.T, height, length int) *Windower {
	t.Helper()
	w := NewWindower(1)
	w.SetLength(length)
	require.True(t, w.Mount(&node{height: height, measured: true, scrollable: true}))
	return w
}

func TestScrollableAncestor(t *testing.T) {
	root := &node{scrollable: true, height: 40, measured: true}
	mid := &node{parent: root}
	leaf := &node{parent: mid}

	assert.Same(t, root, ScrollableAncestor(leaf))

	lone := &node{}
	assert.Same(t, lone, ScrollableAncestor(lone))
}

func TestWindower_Mount(t *testing.T) {
	t.Run("measures the scrollable ancestor", func(t *testing.T) {
		root := &node{scrollable: true, height: 20, measured: true}
		w := NewWindower(1)
		w.SetLength(1000)

		require.True(t, w.Mount(&node{parent: root}))
		assert.Equal(t, 20, w.Geometry().ContainerHeight)
		assert.Equal(t, Window{Start: 0, End: 30}, w.Window())
	})

	t.Run("retries until measured", func(t *testing.T) {
		root := &node{scrollable: true}
		w := NewWindower(1)
		w.SetLength(1000)

		assert.False(t, w.Mount(root))
		assert.Equal(t, Window{Start: 0, End: DefaultVisibleRows + 2*Overscan}, w.Window(), "falls back while unmeasured")

		measured, retry := w.Remeasure()
		assert.False(t, measured)
		assert.True(t, retry)

		root.height, root.measured = 10, true
		measured, retry = w.Remeasure()
		assert.True(t, measured)
		assert.False(t, retry)
		assert.Equal(t, Window{Start: 0, End: 20}, w.Window())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		w := NewWindower(1)
		w.Mount(&node{scrollable: true})

		var retry bool
		for range MaxMountAttempts - 1 {
			_, retry = w.Remeasure()
		}
		assert.False(t, retry)
	})
}

func TestWindower_ScrollCoalescing(t *testing.T) {
	w := mounted(t, 20, 1000)

	assert.True(t, w.Scroll(100), "first scroll schedules a frame")
	assert.False(t, w.Scroll(200), "second scroll reuses the pending frame")
	assert.False(t, w.Scroll(300))
	assert.Equal(t, Window{Start: 0, End: 30}, w.Window(), "window waits for the frame")

	assert.True(t, w.Frame())
	assert.Equal(t, Window{Start: 295, End: 325}, w.Window(), "frame applies the latest offset")
	assert.False(t, w.Frame(), "no frame pending")

	assert.True(t, w.Scroll(300))
	assert.False(t, w.Frame(), "same offset is not a change")
}

func TestWindower_Resize(t *testing.T) {
	t.Run("growth widens immediately", func(t *testing.T) {
		w := mounted(t, 20, 1000)

		changed, frame := w.Resize(40)
		assert.True(t, changed)
		assert.False(t, frame)
		assert.Equal(t, Window{Start: 0, End: 50}, w.Window())
	})

	t.Run("shrink waits for a frame", func(t *testing.T) {
		w := mounted(t, 40, 1000)

		changed, frame := w.Resize(20)
		assert.False(t, changed)
		assert.True(t, frame)
		assert.True(t, w.Frame())
		assert.Equal(t, Window{Start: 0, End: 30}, w.Window())
	})

	t.Run("same height is ignored", func(t *testing.T) {
		w := mounted(t, 20, 1000)

		changed, frame := w.Resize(20)
		assert.False(t, changed)
		assert.False(t, frame)
	})
}

func TestWindower_SetLength(t *testing.T) {
	t.Run("growth raises the end", func(t *testing.T) {
		w := mounted(t, 20, 5)
		assert.Equal(t, Window{Start: 0, End: 5}, w.Window())

		assert.True(t, w.SetLength(100))
		assert.Equal(t, Window{Start: 0, End: 30}, w.Window())
	})

	t.Run("shrink clamps the scroll offset", func(t *testing.T) {
		w := mounted(t, 20, 1000)
		w.Scroll(900)
		w.Frame()

		assert.True(t, w.SetLength(50))
		assert.Equal(t, 30, w.Geometry().ScrollTop)
		assert.Equal(t, Window{Start: 25, End: 50}, w.Window())
	})

	t.Run("empty dataset", func(t *testing.T) {
		w := mounted(t, 20, 1000)

		w.SetLength(0)
		assert.Equal(t, Window{}, w.Window())
		assert.Equal(t, Layout{}, w.Layout())
	})
}

func TestWindower_Unmount(t *testing.T) {
	w := mounted(t, 20, 1000)
	w.Scroll(10)
	w.Unmount()

	assert.False(t, w.FramePending())
	assert.False(t, w.Scroll(50))
	changed, frame := w.Resize(80)
	assert.False(t, changed)
	assert.False(t, frame)
}
