// Package watch re-runs analysis when a capture file changes on disk. It is
// the glue behind `protoview watch`: a rotating capture written by dumpcap
// or tcpdump gets re-dissected into a fresh trace each time it settles.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a capture file must be quiet before a
// re-analysis is triggered. Capture writers flush in bursts.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors capture files and invokes OnChange when one settles
// after a modification.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]*captureState
	mu       sync.RWMutex
	debounce time.Duration

	// OnChange is called with the capture path after a debounced change.
	// An error from OnChange is reported through OnError; watching
	// continues.
	OnChange func(path string) error
	// OnError is called for watch and analysis failures. path may be
	// empty for watcher-level errors.
	OnError func(path string, err error)
}

type captureState struct {
	path       string
	modTime    time.Time
	size       int64
	processing bool
}

// New creates a capture watcher with the given debounce interval; zero
// means DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	return &Watcher{
		fs:       fs,
		files:    make(map[string]*captureState),
		debounce: debounce,
	}, nil
}

// Watch registers a capture file. The containing directory is watched so
// atomic rewrites (write to temp, rename over) are seen too.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: resolve %s: %w", path, err)
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch: stat %s: %w", abs, err)
	}

	w.mu.Lock()
	w.files[abs] = &captureState{
		path:    abs,
		modTime: stat.ModTime(),
		size:    stat.Size(),
	}
	w.mu.Unlock()

	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}
	return nil
}

// Run blocks processing change events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	timers := make(map[string]*time.Timer)
	var timerMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			w.fs.Close()
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}

			w.mu.RLock()
			state, watched := w.files[abs]
			w.mu.RUnlock()
			if !watched {
				continue
			}

			timerMu.Lock()
			if t, ok := timers[abs]; ok {
				t.Stop()
			}
			timers[abs] = time.AfterFunc(w.debounce, func() {
				w.handleChange(abs, state)
			})
			timerMu.Unlock()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

func (w *Watcher) handleChange(path string, state *captureState) {
	w.mu.Lock()
	if state.processing {
		w.mu.Unlock()
		return
	}
	state.processing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		state.processing = false
		w.mu.Unlock()
	}()

	stat, err := os.Stat(path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(path, err)
		}
		return
	}
	if stat.ModTime().Equal(state.modTime) && stat.Size() == state.size {
		return
	}

	w.mu.Lock()
	state.modTime = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()

	if w.OnChange != nil {
		if err := w.OnChange(path); err != nil && w.OnError != nil {
			w.OnError(path, err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
