// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routetree

// ChildMap is a string-keyed map that remembers insertion order.
//
// Go's built-in maps randomize iteration, but parallel-route output order
// must be reproducible: the client merges flight paths positionally. Both
// tree types therefore carry their children in a ChildMap and iterate via
// Keys().
//
// The zero value is an empty, ready-to-use map. Not safe for concurrent
// mutation; trees are immutable once built.
type ChildMap[T any] struct {
	keys []string
	m    map[string]T
}

// Set inserts or replaces the value for key. First insertion fixes the
// key's iteration position.
func (c *ChildMap[T]) Set(key string, v T) {
	if c.m == nil {
		c.m = make(map[string]T)
	}
	if _, ok := c.m[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.m[key] = v
}

// Get returns the value for key and whether it was present.
func (c *ChildMap[T]) Get(key string) (T, bool) {
	v, ok := c.m[key]
	return v, ok
}

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not modify it.
func (c *ChildMap[T]) Keys() []string {
	return c.keys
}

// Len returns the number of entries.
func (c *ChildMap[T]) Len() int {
	return len(c.keys)
}

// ModuleRef identifies a component module by its build path, e.g.
// "app/blog/[slug]/layout". The renderer and the asset manifests key off
// this path; the tree itself treats it as opaque.
type ModuleRef struct {
	Path string
}

// Modules holds the component modules attached to one loader-tree node.
// Any field may be nil.
type Modules struct {
	Layout   *ModuleRef
	Loading  *ModuleRef
	Page     *ModuleRef
	Template *ModuleRef
	NotFound *ModuleRef
}

// LoaderTree is the server-side description of the nested layout
// hierarchy. It is immutable during a walk.
type LoaderTree struct {
	// Segment identifies this node's route position. Dynamic segments are
	// unresolved here; resolution happens per request.
	Segment Segment

	// Parallel maps slot names ("children", named slots) to subtrees, in
	// a stable order.
	Parallel ChildMap[*LoaderTree]

	// Modules are the component modules mounted at this node.
	Modules Modules
}

// HasLoadingInTree reports whether a loading boundary exists at or below
// the given node. Prefetches may expand past a node only when a loading
// boundary gives the client something to paint in the meantime.
func HasLoadingInTree(t *LoaderTree) bool {
	if t == nil {
		return false
	}
	if t.Modules.Loading != nil {
		return true
	}
	for _, key := range t.Parallel.Keys() {
		child, _ := t.Parallel.Get(key)
		if HasLoadingInTree(child) {
			return true
		}
	}
	return false
}
