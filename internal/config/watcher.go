// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// DefaultDebounce is how long the watcher waits after the last write before
// reporting a change. Editors often write a file several times in quick
// succession; one reload per burst is enough.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports external edits to the config file. Each settled change
// produces one value on Changes; consumers typically reload the config and
// trigger a connectivity re-check.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending time.Time

	changes chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher for the given config file path. A zero
// debounce takes the default.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		watcher:  fsw,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	return w, nil
}

// Changes returns the debounced change channel. Bursts of writes coalesce
// into a single value.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Watch starts watching. The parent directory is watched rather than the
// file itself because atomic saves replace the file by rename, which would
// otherwise drop the watch.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents()
	go w.processPending()
	return nil
}

// processEvents records write/create/rename events touching the config file.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watcher errors are non-fatal; polling the pending state
			// continues regardless.
		}
	}
}

// processPending emits one change once writes have settled for the debounce
// interval.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if ready {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if ready {
				select {
				case w.changes <- struct{}{}:
				default:
				}
			}
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
