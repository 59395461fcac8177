// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package manifestwatch reloads apps when their build artifacts change
// on disk.
package manifestwatch

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/aileron/services/renderer/apploader"
)

// CacheInvalidator drops cached responses after a reload.
type CacheInvalidator interface {
	InvalidateAll() error
}

// Watcher watches app directories and reloads their artifacts on change.
//
// # Description
//
// Build tools rewrite loader-tree.json and the manifests in place; when
// any of them changes, the app is reloaded into the registry and the
// response cache is invalidated. Writes are debounced because a build
// touches several files in quick succession.
//
// # Thread Safety
//
// Safe for concurrent use. Start should only be called once.
type Watcher struct {
	registry *apploader.Registry
	cache    CacheInvalidator
	watcher  *fsnotify.Watcher
	debounce time.Duration
	callback func(app string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	appDirs map[string]string
}

// New creates a watcher over the registry's apps.
//
// # Inputs
//
//   - registry: Registry to reload apps into.
//   - cache: Cache invalidator (may be nil).
//   - callback: Optional callback after a successful reload (in addition
//     to cache invalidation). Receives the app name.
//
// # Outputs
//
//   - *Watcher: Ready-to-start watcher.
//   - error: Non-nil if watcher creation fails.
func New(registry *apploader.Registry, cache CacheInvalidator, callback func(app string)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		registry: registry,
		cache:    cache,
		watcher:  watcher,
		debounce: 100 * time.Millisecond,
		callback: callback,
		pending:  make(map[string]*time.Timer),
		appDirs:  make(map[string]string),
	}, nil
}

// Watch adds an app directory to the watch set. The app must already be
// registered under the given name.
func (w *Watcher) Watch(name, dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.mu.Lock()
	w.appDirs[dir] = name
	w.mu.Unlock()
	return nil
}

// Start begins watching for artifact changes.
//
// # Description
//
// Blocks until the context is cancelled or the watcher is stopped.
// Should be run in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	slog.Debug("Started watching app artifacts")

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Artifact watcher error",
				"error", err)

		case <-ctx.Done():
			slog.Debug("Artifact watcher stopping")
			return
		}
	}
}

// handleEvent schedules a debounced reload for the app owning the file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Builds write and rename; ignore chmod and removal noise.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	name, ok := w.appForPath(event.Name)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[name]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()
		w.reload(name)
	})
}

func (w *Watcher) appForPath(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for dir, name := range w.appDirs {
		// The prefix must end on a separator: /apps/foo must not claim
		// events under a sibling /apps/foobar.
		if len(path) > len(dir) && path[:len(dir)] == dir && path[len(dir)] == os.PathSeparator {
			return name, true
		}
	}
	return "", false
}

func (w *Watcher) reload(name string) {
	app, err := w.registry.Reload(name)
	if err != nil {
		// A half-written artifact decodes as garbage; keep serving the
		// previous snapshot and wait for the next event.
		slog.Warn("App reload failed, keeping previous artifacts",
			"app", name,
			"error", err)
		return
	}

	slog.Info("App artifacts reloaded",
		"app", name,
		"version", app.Version)

	if w.cache != nil {
		if err := w.cache.InvalidateAll(); err != nil {
			slog.Warn("Failed to invalidate render cache after reload",
				"app", name,
				"error", err)
		}
	}

	if w.callback != nil {
		w.callback(name)
	}
}

// Stop stops the watcher.
//
// # Description
//
// Stops watching and releases resources. Safe to call multiple times.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
