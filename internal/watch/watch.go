package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"craftcheck/pkg/logging"
)

// debounceWindow coalesces the event bursts editors produce on save into a
// single trigger.
const debounceWindow = 300 * time.Millisecond

// Watcher triggers a callback whenever scenario YAML files under a path
// change. Events are debounced so one save fires one run.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
}

// New creates a watcher over a scenario file or directory. Directories are
// watched recursively.
func New(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{fsw: fsw, path: path, debounce: debounceWindow}
	if err := w.addRecursive(path); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch: stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return w.fsw.Add(filepath.Dir(path))
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.fsw.Add(p); err != nil {
				return fmt.Errorf("watch: add %s: %w", p, err)
			}
		}
		return nil
	})
}

// Run blocks, invoking onChange after each debounced burst of relevant
// events, until the context is cancelled.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}

			logging.Debug("Watch", "Change detected: %s %s", event.Op, event.Name)

			// New directories need to be picked up for recursive watching.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fsw.Add(event.Name); err != nil {
						logging.Warn("Watch", "Failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			onChange()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Watch", "Watcher error: %v", err)
		}
	}
}

// relevant keeps YAML writes, creates, removes, and renames; directory
// creations pass through so they can be added to the watch set.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op.Has(fsnotify.Chmod) {
		return false
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".yaml" || ext == ".yml"
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
