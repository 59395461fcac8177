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

import "slices"

// MatchSegments reports whether two segments refer to the same logical
// route position.
//
// Static segments match on name and merged query. Dynamic segments match
// on param name, kind, and resolved value(s). A static segment never
// matches a dynamic one.
func MatchSegments(a, b Segment) bool {
	if a.IsDynamic() != b.IsDynamic() {
		return false
	}
	if !a.IsDynamic() {
		return a.Name == b.Name && a.Query == b.Query
	}
	return a.Param == b.Param &&
		a.Kind == b.Kind &&
		a.Value == b.Value &&
		slices.Equal(a.Values, b.Values)
}

// CanSegmentBeOverridden reports whether the client's segment is a
// legitimate richer representation of the server's segment and should be
// kept in the response.
//
// This happens when the server could not resolve a dynamic parameter (the
// loader tree still holds the bare "[slug]" declaration) while the client
// already carries the resolved binding from an earlier navigation. Erasing
// the client's version would lose the resolved value.
func CanSegmentBeOverridden(server, client Segment) bool {
	if !server.IsDynamic() || server.IsResolved() {
		return false
	}
	return client.IsDynamic() &&
		client.Param == server.Param &&
		client.Kind == server.Kind &&
		client.IsResolved()
}
