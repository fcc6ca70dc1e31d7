// Package grid runs the row lifecycle of a virtualized result grid. An Engine
// owns a viewport windower and an expansion reconciler on a single event loop;
// host calls and timers only post events to it, and every state change is
// published as an immutable Snapshot.
package grid

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/colonyops/loupe/internal/core/expansion"
	"github.com/colonyops/loupe/internal/core/logging"
	"github.com/colonyops/loupe/internal/core/record"
	"github.com/colonyops/loupe/internal/core/sched"
	"github.com/colonyops/loupe/internal/core/search"
	"github.com/colonyops/loupe/internal/core/viewport"
)

// ErrStopped is returned by calls made after the event loop exited.
var ErrStopped = errors.New("grid: engine stopped")

const (
	DefaultReconcileDelay    = 100 * time.Millisecond
	DefaultLoadMoreThreshold = 20
	eventBufferSize          = 64
)

// Config configures an Engine. Zero durations use the package defaults.
type Config struct {
	ItemHeight        int
	LoadMoreThreshold int
	ReconcileDelay    time.Duration
	FrameInterval     time.Duration
	SettleDelay       time.Duration
	Clock             clockwork.Clock
}

func (c *Config) applyDefaults() {
	if c.ItemHeight <= 0 {
		c.ItemHeight = 1
	}
	if c.LoadMoreThreshold <= 0 {
		c.LoadMoreThreshold = DefaultLoadMoreThreshold
	}
	if c.ReconcileDelay <= 0 {
		c.ReconcileDelay = DefaultReconcileDelay
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = viewport.FrameInterval
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = viewport.SettleDelay
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
}

// Snapshot is the grid state after an event. Visible and Expanded are owned by
// the snapshot and safe to read from any goroutine.
type Snapshot struct {
	Version  uint64
	Window   viewport.Window
	Layout   viewport.Layout
	Geometry viewport.Geometry
	Length   int
	Visible  []record.Record
	Expanded map[record.Key]struct{}
	HasMore  bool
	Loading  bool

	// Reconciling is set while a dataset replacement awaits its debounced
	// reconciliation.
	Reconciling bool

	// ScrollToBottom asks the host to load the next page.
	ScrollToBottom bool
}

// Row returns the visible record at dataset index i.
func (s Snapshot) Row(i int) (record.Record, bool) {
	if !s.Window.Contains(i) || i-s.Window.Start >= len(s.Visible) {
		return record.Record{}, false
	}
	return s.Visible[i-s.Window.Start], true
}

// IsExpanded reports whether key is expanded.
func (s Snapshot) IsExpanded(key record.Key) bool {
	_, ok := s.Expanded[key]
	return ok
}

// Engine is the event loop. The zero value is not usable; call New.
type Engine struct {
	cfg    Config
	log    zerolog.Logger
	events chan event
	update chan Snapshot
	done   chan struct{}

	windower   *viewport.Windower
	reconciler *expansion.Reconciler
	frame      *sched.Task
	reconcile  *sched.Task
	settle     *sched.Task

	dataset     record.Dataset
	hasMore     bool
	loading     bool
	bottomFired bool
	version     uint64
}

// New returns an Engine. Call Run to start it.
func New(cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:        cfg,
		log:        logging.Component("grid"),
		events:     make(chan event, eventBufferSize),
		update:     make(chan Snapshot, 1),
		done:       make(chan struct{}),
		windower:   viewport.NewWindower(cfg.ItemHeight),
		reconciler: expansion.New(),
		frame:      sched.NewTask(cfg.Clock),
		reconcile:  sched.NewTask(cfg.Clock),
		settle:     sched.NewTask(cfg.Clock),
	}
}

// Updates returns the snapshot channel. It holds at most the latest snapshot;
// a slow reader only misses intermediate states.
func (e *Engine) Updates() <-chan Snapshot {
	return e.update
}

// Run processes events until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-e.events:
			ev.apply(e)
		}
	}
}

func (e *Engine) post(ev event) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.done:
		return false
	}
}

// Mount attaches the grid to a container.
func (e *Engine) Mount(c viewport.Container) { e.post(mountEvent{c}) }

// Unmount detaches the grid and cancels every pending timer.
func (e *Engine) Unmount() { e.post(unmountEvent{}) }

// Scroll reports a new scroll offset.
func (e *Engine) Scroll(scrollTop int) { e.post(scrollEvent{scrollTop}) }

// Resize reports a new container height.
func (e *Engine) Resize(height int) { e.post(resizeEvent{height}) }

// Replace swaps the dataset. The window follows immediately; expanded rows are
// reconciled after the reconcile delay. A non-zero token from Toggle skips the
// reconciliation of this replacement.
func (e *Engine) Replace(ds record.Dataset, tok expansion.Suppression) {
	e.post(replaceEvent{ds, tok})
}

// Append replaces the dataset with the next page built on it. Keys of the
// records already loaded persist, so reconciliation keeps every expanded row.
func (e *Engine) Append(ds record.Dataset) {
	e.post(replaceEvent{ds, 0})
}

// ParamsChanged must be called before the Replace of the fetch the change
// caused. It clears expanded rows when the change invalidates them.
func (e *Engine) ParamsChanged(prev, next search.Params) {
	e.post(paramsEvent{prev.Clone(), next.Clone()})
}

// SetPaging reports whether more pages exist and whether a fetch is running.
func (e *Engine) SetPaging(hasMore, loading bool) {
	e.post(pagingEvent{hasMore, loading})
}

// Toggle expands or collapses a row and returns its suppression token.
func (e *Engine) Toggle(ctx context.Context, key record.Key, expand bool) (expansion.Suppression, error) {
	reply := make(chan toggleResult, 1)
	if !e.post(toggleEvent{key, expand, reply}) {
		return 0, ErrStopped
	}
	select {
	case res := <-reply:
		return res.tok, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-e.done:
		return 0, ErrStopped
	}
}

func (e *Engine) stopTimers() {
	e.frame.Cancel()
	e.reconcile.Cancel()
	e.settle.Cancel()
}

func (e *Engine) publish() {
	e.version++
	w := e.windower.Window()
	snap := Snapshot{
		Version:  e.version,
		Window:   w,
		Layout:   e.windower.Layout(),
		Geometry: e.windower.Geometry(),
		Length:   e.dataset.Len(),
		Visible:  e.dataset.Slice(w.Start, w.End),
		Expanded: e.reconciler.KeySet(),
		HasMore:  e.hasMore,
		Loading:  e.loading,

		Reconciling: e.reconciler.Pending(),
	}

	if e.shouldLoadMore() {
		e.bottomFired = true
		e.loading = true
		snap.Loading = true
		snap.ScrollToBottom = true
		e.log.Debug().Int("length", snap.Length).Msg("scrolled near bottom")
	}

	for {
		select {
		case e.update <- snap:
			return
		default:
		}
		select {
		case old := <-e.update:
			snap.ScrollToBottom = snap.ScrollToBottom || old.ScrollToBottom
		default:
		}
	}
}

func (e *Engine) shouldLoadMore() bool {
	return e.windower.Mounted() &&
		e.hasMore && !e.loading && !e.bottomFired &&
		e.windower.NearBottom(e.cfg.LoadMoreThreshold*e.cfg.ItemHeight)
}
