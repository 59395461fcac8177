// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assets

import "sort"

// Set tracks injected asset paths along one render branch. Sets are
// cloned at every branch point so sibling subtrees never alias each
// other's injections; a branch still sees everything its ancestors
// injected because the clone is seeded from the parent's set.
type Set map[string]struct{}

// NewSet builds a set from initial members.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Add inserts a path. Returns false if it was already present.
func (s Set) Add(path string) bool {
	if _, ok := s[path]; ok {
		return false
	}
	s[path] = struct{}{}
	return true
}

// Has reports membership.
func (s Set) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the members in sorted order, for deterministic output.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
