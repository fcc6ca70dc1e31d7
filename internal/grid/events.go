package grid

import (
	"github.com/colonyops/loupe/internal/core/expansion"
	"github.com/colonyops/loupe/internal/core/record"
	"github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/core/viewport"
)

type event interface {
	apply(e *Engine)
}

type mountEvent struct{ container viewport.Container }

func (ev mountEvent) apply(e *Engine) {
	if !e.windower.Mount(ev.container) {
		e.log.Debug().Msg("container not measured on mount, waiting to settle")
		e.settle.Debounce(e.cfg.SettleDelay, func() { e.post(remeasureEvent{}) })
	}
	e.publish()
}

type remeasureEvent struct{}

func (remeasureEvent) apply(e *Engine) {
	measured, retry := e.windower.Remeasure()
	if retry {
		e.settle.Debounce(e.cfg.SettleDelay, func() { e.post(remeasureEvent{}) })
	}
	if !measured && !retry {
		e.log.Warn().Msg("container never measured, using default row count")
	}
	e.publish()
}

type unmountEvent struct{}

func (unmountEvent) apply(e *Engine) {
	e.windower.Unmount()
	e.stopTimers()
	e.reconciler.Cancel()
	e.publish()
}

type scrollEvent struct{ top int }

func (ev scrollEvent) apply(e *Engine) {
	if e.windower.Scroll(ev.top) {
		e.frame.Coalesce(e.cfg.FrameInterval, func() { e.post(frameEvent{}) })
	}
}

type resizeEvent struct{ height int }

func (ev resizeEvent) apply(e *Engine) {
	changed, frame := e.windower.Resize(ev.height)
	if frame {
		e.frame.Coalesce(e.cfg.FrameInterval, func() { e.post(frameEvent{}) })
	}
	if changed {
		e.publish()
	}
}

type frameEvent struct{}

func (frameEvent) apply(e *Engine) {
	g := e.windower.Geometry()
	e.windower.Frame()
	// Geometry moves even when the overscanned window does not.
	if e.windower.Geometry() != g || e.shouldLoadMore() {
		e.publish()
	}
}

type replaceEvent struct {
	ds  record.Dataset
	tok expansion.Suppression
}

func (ev replaceEvent) apply(e *Engine) {
	if ev.ds.Len() != e.dataset.Len() {
		e.bottomFired = false
	}
	e.dataset = ev.ds
	e.windower.SetLength(ev.ds.Len())

	gen := e.reconciler.Schedule(ev.ds, ev.tok)
	e.reconcile.Debounce(e.cfg.ReconcileDelay, func() { e.post(settleEvent{gen}) })
	e.publish()
}

type settleEvent struct{ gen uint64 }

func (ev settleEvent) apply(e *Engine) {
	out := e.reconciler.Settle(ev.gen)
	if out.Superseded {
		return
	}

	if out.Skipped {
		e.log.Debug().Msg("reconciliation suppressed by toggle")
	} else {
		e.log.Debug().
			Int("kept", out.Kept).
			Int("remapped", out.Remapped).
			Int("dropped", out.Dropped).
			Bool("changed", out.Changed).
			Msg("reconciled expanded rows")
	}
	e.publish()
}

type paramsEvent struct{ prev, next search.Params }

func (ev paramsEvent) apply(e *Engine) {
	if e.reconciler.ParamsChanged(ev.prev, ev.next) {
		e.reconcile.Cancel()
		e.log.Debug().Str("params", ev.next.Summary()).Msg("search changed, expanded rows cleared")
		e.publish()
	}
}

type pagingEvent struct{ hasMore, loading bool }

func (ev pagingEvent) apply(e *Engine) {
	e.hasMore, e.loading = ev.hasMore, ev.loading
	e.publish()
}

type toggleResult struct {
	tok expansion.Suppression
	err error
}

type toggleEvent struct {
	key    record.Key
	expand bool
	reply  chan<- toggleResult
}

func (ev toggleEvent) apply(e *Engine) {
	tok, err := e.reconciler.Toggle(ev.key, ev.expand)
	ev.reply <- toggleResult{tok, err}
	if err != nil {
		e.log.Warn().Err(err).Str("key", string(ev.key)).Msg("toggle ignored")
		return
	}
	e.publish()
}
