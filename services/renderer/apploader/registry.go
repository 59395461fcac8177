// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package apploader

import (
	"fmt"
	"sync"
)

// Registry holds loaded apps keyed by name. Safe for concurrent use;
// request handlers read while the manifest watcher reloads.
type Registry struct {
	mu   sync.RWMutex
	apps map[string]*App
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{apps: make(map[string]*App)}
}

// Get returns the app by name.
func (r *Registry) Get(name string) (*App, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[name]
	return app, ok
}

// Put registers or replaces an app.
func (r *Registry) Put(app *App) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.Name] = app
}

// Names returns the registered app names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.apps))
	for name := range r.apps {
		names = append(names, name)
	}
	return names
}

// Reload re-reads an app's artifacts from its directory and swaps the
// registry entry atomically. In-flight requests holding the old *App
// keep a consistent snapshot.
func (r *Registry) Reload(name string) (*App, error) {
	r.mu.RLock()
	current, ok := r.apps[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reload: app %q is not registered", name)
	}

	app, err := Load(current.Dir)
	if err != nil {
		return nil, fmt.Errorf("reload app %q: %w", name, err)
	}
	app.Name = name

	r.mu.Lock()
	r.apps[name] = app
	r.mu.Unlock()
	return app, nil
}
