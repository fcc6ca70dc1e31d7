// Package sched provides a replaceable, cancellable delayed task.
package sched

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Task runs at most one delayed function at a time. Replacing or cancelling a
// task guarantees the superseded function never runs, even when its timer
// already fired and is waiting on the lock.
type Task struct {
	clock clockwork.Clock

	mu    sync.Mutex
	timer clockwork.Timer
	gen   uint64
}

// NewTask returns a Task driven by clock. A nil clock uses the real clock.
func NewTask(clock clockwork.Clock) *Task {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Task{clock: clock}
}

// Debounce cancels any pending function and schedules fn to run after d.
func (t *Task) Debounce(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.startLocked(d, fn)
}

// Coalesce schedules fn after d unless a function is already pending. It
// reports whether fn was scheduled.
func (t *Task) Coalesce(d time.Duration, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		return false
	}
	t.startLocked(d, fn)
	return true
}

// Cancel stops the pending function. It reports whether one was pending.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.timer != nil
	t.stopLocked()
	return pending
}

// Pending reports whether a function is scheduled and has not started.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *Task) startLocked(d time.Duration, fn func()) {
	t.gen++
	gen := t.gen
	t.timer = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.mu.Unlock()
		fn()
	})
}

func (t *Task) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}
