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

import "net/url"

// ProjectRouterState builds the router-state subtree the client should
// hold after mounting the given loader-tree slice. Dynamic segments are
// resolved through the resolver and the request query is merged into page
// segments, so the projection matches what a later request's diff will
// compare against.
//
// The node carrying the first layout on the path is flagged as the root
// layout.
func ProjectRouterState(tree *LoaderTree, resolver DynamicParamResolver, query url.Values) *RouterState {
	return projectState(tree, resolver, query, false)
}

func projectState(tree *LoaderTree, resolver DynamicParamResolver, query url.Values, rootLayoutIncluded bool) *RouterState {
	seg := tree.Segment
	if resolver != nil {
		if dp := resolver(seg); dp != nil {
			seg = dp.TreeSegment
		}
	}
	seg = AddSearchParamsToPageSegment(seg, query)

	st := &RouterState{Segment: seg}
	if !rootLayoutIncluded && tree.Modules.Layout != nil {
		st.IsRootLayout = true
		rootLayoutIncluded = true
	}
	for _, key := range tree.Parallel.Keys() {
		child, _ := tree.Parallel.Get(key)
		st.Parallel.Set(key, projectState(child, resolver, query, rootLayoutIncluded))
	}
	return st
}
