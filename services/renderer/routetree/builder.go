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

// Slot pairs a parallel-route key with its subtree for programmatic tree
// construction.
type Slot struct {
	Key  string
	Tree *LoaderTree
}

// NewTree builds a loader-tree node from a raw segment name, modules, and
// ordered slots. Slot order becomes iteration order.
func NewTree(segment string, mods Modules, slots ...Slot) *LoaderTree {
	t := &LoaderTree{Segment: ParseSegmentName(segment), Modules: mods}
	for _, s := range slots {
		t.Parallel.Set(s.Key, s.Tree)
	}
	return t
}

// Children is shorthand for the conventional "children" slot.
func Children(tree *LoaderTree) Slot {
	return Slot{Key: "children", Tree: tree}
}

// NewState builds a router-state node from a segment and ordered slots.
func NewState(seg Segment, slots ...StateSlot) *RouterState {
	s := &RouterState{Segment: seg}
	for _, slot := range slots {
		s.Parallel.Set(slot.Key, slot.State)
	}
	return s
}

// StateSlot pairs a parallel-route key with client state.
type StateSlot struct {
	Key   string
	State *RouterState
}
