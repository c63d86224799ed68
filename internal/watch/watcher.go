// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package watch turns filesystem events into debounced batches of
// changed and removed source paths, the trigger for the incremental
// reindex a long-running coderefd process drives without a caller
// re-invoking the `index` tool.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/coderef-dev/coderef/internal/parser"
)

// DefaultDebounce batches rapid-fire events (editors that write a file
// several times per save, git checkouts touching many files at once)
// into a single reindex call.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree for source-file changes and
// delivers them to OnBatch as debounced change/remove path lists.
// Grounded on the teacher's recursive fsnotify setup; the
// event-coalescing in flush is the same shape as a code-intelligence
// indexer watching its own source tree needs.
type Watcher struct {
	Root            string
	ExcludePatterns []string
	Debounce        time.Duration
	Logger          *slog.Logger

	// OnBatch is invoked after each debounce window with the set of
	// paths that changed (created or written) and the set removed.
	// Called on a time.AfterFunc timer goroutine, not the event loop; a
	// call that outlasts Debounce can overlap the next one.
	OnBatch func(changed, removed []string)

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]bool // path -> true (changed) / false (removed)
	timer   *time.Timer
}

// Start begins watching Root and its subdirectories and returns once
// the initial watch set has been established. Events are processed on
// a background goroutine until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.pending = make(map[string]bool)
	if w.Debounce <= 0 {
		w.Debounce = DefaultDebounce
	}

	if err := w.addTree(w.Root); err != nil {
		_ = fsw.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(runCtx)
	return nil
}

// Stop closes the underlying fsnotify watcher and waits for the event
// loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.wg.Wait()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil && w.Logger != nil {
			w.Logger.Warn("watch.add.error", "path", path, "err", err)
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		rel = path
	}
	for _, p := range w.ExcludePatterns {
		if matched, _ := doublestar.Match(p, path); matched {
			return true
		}
		if matched, _ := doublestar.Match(p, rel); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.Logger != nil {
				w.Logger.Warn("watch.fsnotify.error", "err", err)
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	info, statErr := os.Stat(ev.Name)
	isDir := statErr == nil && info.IsDir()

	if isDir {
		if ev.Op&fsnotify.Create != 0 && !w.excluded(ev.Name) {
			if err := w.fsw.Add(ev.Name); err != nil && w.Logger != nil {
				w.Logger.Warn("watch.add.error", "path", ev.Name, "err", err)
			}
		}
		return
	}

	if w.excluded(ev.Name) {
		return
	}
	if _, ok := parser.LanguageForExtension(filepath.Ext(ev.Name)); !ok {
		return
	}

	removed := statErr != nil && ev.Op&fsnotify.Remove != 0
	w.mu.Lock()
	w.pending[ev.Name] = !removed
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, w.flush)
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(pending) == 0 || w.OnBatch == nil {
		return
	}
	var changed, removed []string
	for path, isChange := range pending {
		if isChange {
			changed = append(changed, path)
		} else {
			removed = append(removed, path)
		}
	}
	w.OnBatch(changed, removed)
}
