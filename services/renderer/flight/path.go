// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package flight

import (
	"bytes"
	"encoding/json"

	"github.com/AleutianAI/aileron/services/renderer/routetree"
)

// FlightDataSegment is the payload at the end of one flight data path:
// the segment the client should store, the projected router state below
// it, and the rendered seed data (nil when the prefetch short-circuit
// skipped rendering).
type FlightDataSegment struct {
	Segment      routetree.Segment
	Tree         *routetree.RouterState
	Seed         SeedData
	Head         SeedData
	IsRootLayout bool
}

// PathStep is one branch decision on the way down: the segment at a
// level and the parallel-route key taken from it.
type PathStep struct {
	Segment     routetree.Segment
	ParallelKey string
}

// FlightDataPath describes the route from the walk's entry point down to
// a subtree that needed (re)rendering, ending in that subtree's payload.
type FlightDataPath struct {
	Steps []PathStep
	Leaf  FlightDataSegment
}

// FirstSegment returns the path's leading segment: the first step's
// segment, or the leaf's when rendering happened at the entry level.
// Default-route suppression keys off it.
func (p FlightDataPath) FirstSegment() routetree.Segment {
	if len(p.Steps) > 0 {
		return p.Steps[0].Segment
	}
	return p.Leaf.Segment
}

// prepend returns a copy of the path with one step added at the front.
func (p FlightDataPath) prepend(seg routetree.Segment, key string) FlightDataPath {
	steps := make([]PathStep, 0, len(p.Steps)+1)
	steps = append(steps, PathStep{Segment: seg, ParallelKey: key})
	steps = append(steps, p.Steps...)
	return FlightDataPath{Steps: steps, Leaf: p.Leaf}
}

// MarshalJSON flattens the path into its positional wire form:
//
//	[seg, key, seg, key, ..., leafSeg, routerState, seed|null, head|null, isRootLayout]
//
// Internally the path is named structs; the flat array exists only at
// the boundary, where clients consume it positionally.
func (p FlightDataPath) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for _, step := range p.Steps {
		seg, err := json.Marshal(step.Segment)
		if err != nil {
			return nil, err
		}
		buf.Write(seg)
		buf.WriteByte(',')
		key, err := json.Marshal(step.ParallelKey)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(',')
	}
	for i, elem := range []any{p.Leaf.Segment, p.Leaf.Tree, p.Leaf.Seed, p.Leaf.Head, p.Leaf.IsRootLayout} {
		if i > 0 {
			buf.WriteByte(',')
		}
		raw, err := json.Marshal(elem)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
