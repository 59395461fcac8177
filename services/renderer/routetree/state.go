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

// Router-state markers. Only MarkerRefetch affects the walk: it forces a
// re-render of the marked branch even when segments match.
const (
	MarkerRefetch = "refetch"
)

// RouterState is the client's snapshot of what it currently has mounted
// for one route position. It arrives with the request, is matched against
// the loader tree, and is never mutated by the server.
//
// A nil *RouterState means "the client has nothing here"; the walk treats
// that branch as needing a full render. An indexing miss on a parallel key
// is treated the same way - client-submitted state is never trusted to be
// shape-compatible with the tree.
type RouterState struct {
	// Segment the client believes is mounted at this position.
	Segment Segment

	// Parallel holds the client's state for each named slot, in the order
	// the client sent them.
	Parallel ChildMap[*RouterState]

	// Marker is an explicit client instruction; MarkerRefetch forces a
	// cache-busting re-render of this branch.
	Marker string

	// IsRootLayout is set on the node whose layout is the application's
	// root layout.
	IsRootLayout bool
}

// Child returns the client state for a parallel slot, or nil if the
// client has none (absent key or nil entry - both mean the same thing).
func (s *RouterState) Child(key string) *RouterState {
	if s == nil {
		return nil
	}
	child, ok := s.Parallel.Get(key)
	if !ok {
		return nil
	}
	return child
}

// WantsRefetch reports whether this node carries the refetch marker.
func (s *RouterState) WantsRefetch() bool {
	return s != nil && s.Marker == MarkerRefetch
}
