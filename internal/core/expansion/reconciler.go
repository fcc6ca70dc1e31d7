// Package expansion tracks which rows of a result grid are expanded and
// carries that state across dataset replacements whose keys are regenerated
// on every fetch.
//
// The Reconciler is pure state: it owns no timers and no goroutines. Callers
// schedule the debounced pass themselves using the generation returned by
// Schedule and hand it back to Settle.
package expansion

import (
	"errors"
	"slices"

	"github.com/colonyops/loupe/internal/core/record"
	"github.com/colonyops/loupe/internal/core/search"
)

// ErrUnknownKey is returned when toggling a key that is not part of the
// latest dataset.
var ErrUnknownKey = errors.New("expansion: key not in dataset")

// Suppression is a single-use token returned by Toggle. A replacement that
// carries an armed token is skipped once. The zero value never suppresses.
type Suppression uint64

// Outcome summarizes one reconciliation pass.
type Outcome struct {
	Kept       int
	Remapped   int
	Dropped    int
	Changed    bool
	Skipped    bool
	Superseded bool
}

// Reconciler owns the expanded key set and the record snapshots that let a
// key be followed to its successor in the next dataset.
type Reconciler struct {
	keys     []record.Key
	snapshot map[record.Key]record.Record

	// latest is the most recent dataset seen, pending or settled. It is the
	// dataset the host renders and therefore the one toggles refer to.
	latest record.Dataset

	pending    *record.Dataset
	pendingTok Suppression
	generation uint64

	armed     map[Suppression]struct{}
	nextToken Suppression
}

// New returns an empty Reconciler.
func New() *Reconciler {
	return &Reconciler{
		snapshot: make(map[record.Key]record.Record),
		armed:    make(map[Suppression]struct{}),
	}
}

// Keys returns a copy of the expanded keys in expansion order.
func (r *Reconciler) Keys() []record.Key {
	return slices.Clone(r.keys)
}

// KeySet returns a copy of the expanded keys as a set.
func (r *Reconciler) KeySet() map[record.Key]struct{} {
	set := make(map[record.Key]struct{}, len(r.keys))
	for _, k := range r.keys {
		set[k] = struct{}{}
	}
	return set
}

// Expanded reports whether key is expanded.
func (r *Reconciler) Expanded(key record.Key) bool {
	_, ok := r.snapshot[key]
	return ok
}

// Snapshot returns the record captured for an expanded key.
func (r *Reconciler) Snapshot(key record.Key) (record.Record, bool) {
	rec, ok := r.snapshot[key]
	return rec, ok
}

// Len returns the number of expanded keys.
func (r *Reconciler) Len() int { return len(r.keys) }

// Observe records ds as the dataset currently shown without reconciling it.
// Schedule calls it implicitly.
func (r *Reconciler) Observe(ds record.Dataset) {
	r.latest = ds
}

// Toggle expands or collapses key. The record is looked up in the latest
// dataset and stored as the key's snapshot. Collapsing an expanded key whose
// record is gone is allowed. The returned token suppresses the next
// replacement that carries it.
func (r *Reconciler) Toggle(key record.Key, expand bool) (Suppression, error) {
	rec, ok := r.latest.Lookup(key)
	switch {
	case expand && !ok:
		return 0, ErrUnknownKey
	case expand:
		if _, exists := r.snapshot[key]; !exists {
			r.keys = append(r.keys, key)
		}
		r.snapshot[key] = rec
	case !ok && !r.Expanded(key):
		return 0, ErrUnknownKey
	default:
		r.remove(key)
	}

	r.nextToken++
	tok := r.nextToken
	r.armed[tok] = struct{}{}
	return tok, nil
}

func (r *Reconciler) remove(key record.Key) {
	if _, ok := r.snapshot[key]; !ok {
		return
	}
	delete(r.snapshot, key)
	r.keys = slices.DeleteFunc(r.keys, func(k record.Key) bool { return k == key })
}

// Schedule registers ds as the pending replacement and returns the generation
// the caller must pass to Settle once the debounce delay elapses. Scheduling
// again before Settle supersedes the earlier replacement.
func (r *Reconciler) Schedule(ds record.Dataset, tok Suppression) uint64 {
	r.latest = ds
	r.pending = &ds
	r.pendingTok = tok
	r.generation++
	return r.generation
}

// Pending reports whether a scheduled replacement has not been settled yet.
func (r *Reconciler) Pending() bool { return r.pending != nil }

// Settle runs the pending replacement for generation gen. A stale generation
// is ignored.
func (r *Reconciler) Settle(gen uint64) Outcome {
	if gen != r.generation || r.pending == nil {
		return Outcome{Superseded: true}
	}
	ds, tok := *r.pending, r.pendingTok
	r.pending = nil
	r.pendingTok = 0

	if _, ok := r.armed[tok]; ok && tok != 0 {
		delete(r.armed, tok)
		return Outcome{Skipped: true}
	}

	return r.Reconcile(ds)
}

// Cancel drops the pending replacement, if any.
func (r *Reconciler) Cancel() {
	r.pending = nil
	r.pendingTok = 0
	r.generation++
}

// Reconcile remaps the expanded keys onto ds immediately.
//
// Keys still present in ds are kept and their snapshots refreshed. Other keys
// are followed through the identity of their snapshot to the last record of
// ds sharing it; a successor claimed earlier in the same pass is not reused
// and the key is dropped. The state only changes when the resulting key set
// differs from the current one.
func (r *Reconciler) Reconcile(ds record.Dataset) Outcome {
	r.latest = ds
	if len(r.keys) == 0 {
		return Outcome{}
	}

	if ds.Len() == 0 {
		out := Outcome{Dropped: len(r.keys), Changed: true}
		r.keys = nil
		clear(r.snapshot)
		return out
	}

	stillValid := 0
	for _, k := range r.keys {
		if ds.Contains(k) {
			stillValid++
		}
	}
	if stillValid == len(r.keys) {
		return Outcome{Kept: stillValid}
	}

	hashToKey := make(map[record.Identity]record.Key, ds.Len())
	for _, rec := range ds.Records() {
		hashToKey[rec.Identity] = rec.Key
	}

	var (
		out      Outcome
		keys     = make([]record.Key, 0, len(r.keys))
		snapshot = make(map[record.Key]record.Record, len(r.keys))
	)
	for _, k := range r.keys {
		if rec, ok := ds.Lookup(k); ok {
			if _, claimed := snapshot[k]; claimed {
				continue
			}
			keys = append(keys, k)
			snapshot[k] = rec
			out.Kept++
			continue
		}

		old, ok := r.snapshot[k]
		if !ok {
			out.Dropped++
			continue
		}
		identity := old.Identity
		if identity == "" {
			identity = record.Hash(old.Fields, ds.TimeField())
		}
		newKey, found := hashToKey[identity]
		if !found {
			out.Dropped++
			continue
		}
		if _, claimed := snapshot[newKey]; claimed {
			out.Dropped++
			continue
		}
		rec, _ := ds.Lookup(newKey)
		keys = append(keys, newKey)
		snapshot[newKey] = rec
		out.Remapped++
	}

	if sameKeys(r.keys, keys) {
		return out
	}

	r.keys = keys
	r.snapshot = snapshot
	out.Changed = true
	return out
}

// ParamsChanged clears the state when the change from prev to next
// invalidates expanded rows. It reports whether a reset happened.
func (r *Reconciler) ParamsChanged(prev, next search.Params) bool {
	if !search.ShouldResetExpansion(prev, next) {
		return false
	}
	r.Reset()
	return true
}

// Reset clears every expanded key, cancels the pending replacement and
// disarms all suppression tokens.
func (r *Reconciler) Reset() {
	r.keys = nil
	clear(r.snapshot)
	clear(r.armed)
	r.Cancel()
}

func sameKeys(a, b []record.Key) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[record.Key]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	for _, k := range b {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}
