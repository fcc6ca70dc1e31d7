package grid

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/loupe/internal/core/record"
	"github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/core/viewport"
)

type pane struct {
	height atomic.Int64
}

func newPane(h int) *pane {
	p := &pane{}
	p.height.Store(int64(h))
	return p
}

func (p *pane) Height() (int, bool) {
	h := int(p.height.Load())
	return h, h > 0
}
func (p *pane) Scrollable() bool           { return true }
func (p *pane) Parent() viewport.Container { return nil }

type harness struct {
	t      *testing.T
	clock  *clockwork.FakeClock
	engine *Engine
	last   Snapshot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	e := New(Config{ItemHeight: 1, LoadMoreThreshold: 5, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errc)
	})

	return &harness{t: t, clock: clock, engine: e}
}

// await reads snapshots until cond holds.
func (h *harness) await(cond func(Snapshot) bool) Snapshot {
	h.t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		if cond(h.last) {
			return h.last
		}
		select {
		case s := <-h.engine.Updates():
			h.last = s
		case <-timeout:
			h.t.Fatalf("timed out waiting for snapshot, last: %+v", h.last)
		}
	}
}

func rows(n int, prefix string) []map[string]any {
	out := make([]map[string]any, n)
	for i := range n {
		out[i] = map[string]any{
			"log_time": fmt.Sprintf("2025-01-01 00:00:%02d", i%60),
			"host":     fmt.Sprintf("%s-%d", prefix, i),
		}
	}
	return out
}

func (h *harness) replace(n int, at int64) record.Dataset {
	h.t.Helper()
	ds := record.NewDataset(rows(n, "h"), "", time.UnixMilli(at))
	h.engine.Replace(ds, 0)
	h.await(func(s Snapshot) bool {
		return s.Length == n && (n == 0 || s.Visible[0].Key == ds.At(s.Window.Start).Key)
	})
	return ds
}

func TestEngine_WindowFollowsScroll(t *testing.T) {
	h := newHarness(t)
	h.engine.Mount(newPane(20))
	h.replace(1000, 1)

	snap := h.last
	assert.Equal(t, viewport.Window{Start: 0, End: 30}, snap.Window)
	assert.Len(t, snap.Visible, 30)
	assert.Equal(t, viewport.Layout{SpacerHeight: 1000, Offset: 0}, snap.Layout)

	h.engine.Scroll(100)
	h.engine.Scroll(500)
	require.NoError(t, h.clock.BlockUntilContext(context.Background(), 2))
	h.clock.Advance(viewport.FrameInterval)

	snap = h.await(func(s Snapshot) bool { return s.Geometry.ScrollTop == 500 })
	assert.Equal(t, viewport.Window{Start: 495, End: 525}, snap.Window)
	assert.Equal(t, 495, snap.Layout.Offset)

	row, ok := snap.Row(500)
	require.True(t, ok)
	assert.Equal(t, "h-500", row.String("host"))
}

func TestEngine_ExpandedRowsSurviveRefetch(t *testing.T) {
	h := newHarness(t)
	h.engine.Mount(newPane(20))
	first := h.replace(50, 1)

	key := first.At(3).Key
	_, err := h.engine.Toggle(context.Background(), key, true)
	require.NoError(t, err)
	h.await(func(s Snapshot) bool { return s.IsExpanded(key) })

	second := h.replace(50, 2)
	successor := second.At(3).Key
	require.NotEqual(t, key, successor)

	require.NoError(t, h.clock.BlockUntilContext(context.Background(), 1))
	h.clock.Advance(DefaultReconcileDelay)

	snap := h.await(func(s Snapshot) bool { return s.IsExpanded(successor) })
	assert.Len(t, snap.Expanded, 1)
	assert.False(t, snap.IsExpanded(key))
}

func TestEngine_ReconcileDebounce(t *testing.T) {
	h := newHarness(t)
	h.engine.Mount(newPane(20))
	first := h.replace(10, 1)

	key := first.At(0).Key
	_, err := h.engine.Toggle(context.Background(), key, true)
	require.NoError(t, err)

	h.replace(10, 2)
	h.clock.Advance(60 * time.Millisecond)
	third := h.replace(10, 3)
	h.clock.Advance(60 * time.Millisecond)

	assert.True(t, h.last.IsExpanded(key), "superseded pass must not run")

	h.clock.Advance(40 * time.Millisecond)
	snap := h.await(func(s Snapshot) bool { return s.IsExpanded(third.At(0).Key) })
	assert.Len(t, snap.Expanded, 1)
}

func TestEngine_SuppressedReplacement(t *testing.T) {
	h := newHarness(t)
	h.engine.Mount(newPane(20))
	first := h.replace(10, 1)

	key := first.At(0).Key
	tok, err := h.engine.Toggle(context.Background(), key, true)
	require.NoError(t, err)

	next := record.NewDataset(rows(10, "h"), "", time.UnixMilli(2))
	h.engine.Replace(next, tok)
	h.await(func(s Snapshot) bool { return s.Reconciling && len(s.Visible) > 0 && s.Visible[0].Key == next.At(0).Key })

	require.NoError(t, h.clock.BlockUntilContext(context.Background(), 1))
	h.clock.Advance(DefaultReconcileDelay)

	snap := h.await(func(s Snapshot) bool { return !s.Reconciling })
	assert.True(t, snap.IsExpanded(key), "skipped pass leaves the toggled key")
	assert.False(t, snap.IsExpanded(next.At(0).Key))
}

func TestEngine_ParamsChanged(t *testing.T) {
	h := newHarness(t)
	h.engine.Mount(newPane(20))
	first := h.replace(10, 1)

	prev := search.Params{Module: "nginx"}
	_, err := h.engine.Toggle(context.Background(), first.At(0).Key, true)
	require.NoError(t, err)
	h.await(func(s Snapshot) bool { return len(s.Expanded) == 1 })

	fieldsOnly := prev.Clone()
	fieldsOnly.Fields = []string{"host"}
	h.engine.ParamsChanged(prev, fieldsOnly)

	moduleChange := prev.Clone()
	moduleChange.Module = "app"
	h.engine.ParamsChanged(prev, moduleChange)

	snap := h.await(func(s Snapshot) bool { return len(s.Expanded) == 0 })
	assert.Empty(t, snap.Expanded)
}

func TestEngine_ToggleUnknownKey(t *testing.T) {
	h := newHarness(t)
	h.engine.Mount(newPane(20))
	h.replace(10, 1)

	_, err := h.engine.Toggle(context.Background(), "missing", true)
	assert.Error(t, err)
}

func TestEngine_ScrollToBottom(t *testing.T) {
	h := newHarness(t)
	h.engine.Mount(newPane(20))
	h.replace(100, 1)
	h.engine.SetPaging(true, false)
	h.await(func(s Snapshot) bool { return s.HasMore })

	h.engine.Scroll(78)
	require.NoError(t, h.clock.BlockUntilContext(context.Background(), 2))
	h.clock.Advance(viewport.FrameInterval)

	snap := h.await(func(s Snapshot) bool { return s.ScrollToBottom })
	assert.True(t, snap.Loading, "engine marks the page as loading")

	t.Run("fires again after the next page arrives", func(t *testing.T) {
		h.replace(120, 2)
		h.engine.SetPaging(false, false)
		snap := h.await(func(s Snapshot) bool { return !s.Loading })
		assert.False(t, snap.ScrollToBottom, "no more pages")
	})
}

func TestEngine_MountSettleRetry(t *testing.T) {
	h := newHarness(t)
	p := newPane(0)
	h.engine.Mount(p)
	h.replace(1000, 1)

	assert.Equal(t, viewport.DefaultVisibleRows+2*viewport.Overscan, h.last.Window.End)

	p.height.Store(10)
	h.clock.Advance(viewport.SettleDelay)

	snap := h.await(func(s Snapshot) bool { return s.Geometry.ContainerHeight == 10 })
	assert.Equal(t, viewport.Window{Start: 0, End: 20}, snap.Window)
}

func TestEngine_StoppedCalls(t *testing.T) {
	e := New(Config{Clock: clockwork.NewFakeClock()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))

	_, err := e.Toggle(context.Background(), "k", true)
	assert.ErrorIs(t, err, ErrStopped)
}
