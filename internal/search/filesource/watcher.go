package filesource

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/colonyops/loupe/internal/core/sched"
)

// DebounceDelay is how long the watcher waits for writes to settle before
// reporting a change.
const DebounceDelay = 50 * time.Millisecond

// Watch reports changes to files matched by the configured globs. Bursts of
// filesystem events are debounced into a single signal. The returned channel
// is closed when ctx is done.
//
// Only the static base directory of each glob is watched, so files created
// in new subdirectories are not noticed until the next search.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	patterns := make([]string, 0, len(s.paths))
	dirs := map[string]struct{}{}
	for _, p := range s.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("resolve %q: %w", p, err)
		}
		pattern := filepath.ToSlash(abs)
		patterns = append(patterns, pattern)

		base, _ := doublestar.SplitPattern(pattern)
		dirs[filepath.FromSlash(base)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	out := make(chan struct{}, 1)
	debounce := sched.NewTask(s.clock)

	var (
		mu     sync.Mutex
		closed bool
	)
	notify := func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- struct{}{}:
		default:
			// a change is already pending
		}
	}
	stop := func() {
		debounce.Cancel()
		_ = w.Close()

		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}

	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
					!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				if !matchAny(patterns, ev.Name) {
					continue
				}
				debounce.Debounce(DebounceDelay, notify)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("watch error")
			}
		}
	}()

	return out, nil
}

func matchAny(patterns []string, name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	abs = filepath.ToSlash(abs)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, abs); ok {
			return true
		}
	}
	return false
}
