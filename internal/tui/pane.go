package tui

import (
	"sync/atomic"

	"github.com/colonyops/loupe/internal/core/viewport"
)

// pane is a node of the result layout handed to the grid engine. The engine
// reads it from its own goroutine, so the height is atomic.
type pane struct {
	height     atomic.Int64
	scrollable bool
	parent     *pane
}

// newPanes returns the rows node and its scrolling parent.
func newPanes() (rows, scroller *pane) {
	scroller = &pane{scrollable: true}
	rows = &pane{parent: scroller}
	return rows, scroller
}

func (p *pane) setHeight(h int) { p.height.Store(int64(h)) }

func (p *pane) Height() (int, bool) {
	h := int(p.height.Load())
	return h, h > 0
}

func (p *pane) Scrollable() bool { return p.scrollable }

func (p *pane) Parent() viewport.Container {
	if p.parent == nil {
		return nil
	}
	return p.parent
}
