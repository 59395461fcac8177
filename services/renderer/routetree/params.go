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

import "strings"

// ParamValue is the binding for one dynamic parameter: a single value for
// "[slug]" segments, an ordered sequence for catch-alls.
type ParamValue struct {
	Value  string
	Values []string
}

// IsMulti reports whether the binding is a catch-all sequence.
func (p ParamValue) IsMulti() bool {
	return p.Values != nil
}

// Params maps parameter names to their bindings. The bag grows
// monotonically as the walk descends: a child inherits its parent's bag
// and may extend it, never shrink it.
type Params map[string]ParamValue

// With returns a copy of the bag extended with one binding. The receiver
// is left untouched so sibling branches never observe each other's
// extensions.
func (p Params) With(name string, v ParamValue) Params {
	out := make(Params, len(p)+1)
	for k, pv := range p {
		out[k] = pv
	}
	out[name] = v
	return out
}

// DynamicParam is the per-level resolution of a dynamic segment: the
// parameter name, its bound value (absent for unmatched optional
// segments), and the resolved segment to use in place of the raw
// declaration.
type DynamicParam struct {
	Param       string
	Value       ParamValue
	HasValue    bool
	TreeSegment Segment
}

// DynamicParamResolver resolves the dynamic parameter binding for a
// segment, or returns nil for static segments. Implementations must be
// pure: same segment in, same binding out, for the lifetime of a request.
type DynamicParamResolver func(seg Segment) *DynamicParam

// NewParamResolver builds a resolver over a fixed per-request bag,
// typically produced by ExtractPathParams.
//
// Dynamic segments found in the bag resolve to their bound value. Dynamic
// segments missing from the bag resolve with HasValue false and the raw
// declaration as the tree segment; this is the unmatched optional
// catch-all case.
func NewParamResolver(params Params) DynamicParamResolver {
	return func(seg Segment) *DynamicParam {
		if !seg.IsDynamic() {
			return nil
		}
		pv, ok := params[seg.Param]
		if !ok {
			return &DynamicParam{Param: seg.Param, TreeSegment: seg}
		}
		resolved := seg
		resolved.Value = pv.Value
		resolved.Values = pv.Values
		return &DynamicParam{Param: seg.Param, Value: pv, HasValue: true, TreeSegment: resolved}
	}
}

// ExtractPathParams walks the loader tree against a request path and
// collects every dynamic parameter binding on any matching branch.
//
// Static segments consume one path part when equal; dynamic segments
// consume and bind one part; catch-alls bind the whole remainder; page,
// default, and empty ("" route group) segments consume nothing. Parallel
// slots all see the same remaining path, matching how named slots share
// the URL.
func ExtractPathParams(tree *LoaderTree, path string) Params {
	parts := splitPath(path)
	out := make(Params)
	extractInto(tree, parts, out)
	return out
}

// isRouteGroup reports whether a segment name is a route group like
// "(marketing)". Route groups organize the tree without contributing a
// URL part.
func isRouteGroup(name string) bool {
	return strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")")
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func extractInto(t *LoaderTree, parts []string, out Params) {
	if t == nil {
		return
	}
	rest := parts
	seg := t.Segment
	switch {
	case seg.IsPage() || seg.IsDefault() || seg.Name == "" || isRouteGroup(seg.Name):
		// consumes nothing
	case seg.Kind == KindCatchAll || seg.Kind == KindOptionalCatchAll:
		if seg.IsDynamic() && len(parts) > 0 {
			out[seg.Param] = ParamValue{Values: append([]string(nil), parts...)}
		}
		rest = nil
	case seg.IsDynamic():
		if len(parts) == 0 {
			return
		}
		out[seg.Param] = ParamValue{Value: parts[0]}
		rest = parts[1:]
	default:
		if len(parts) == 0 || parts[0] != seg.Name {
			return
		}
		rest = parts[1:]
	}
	for _, key := range t.Parallel.Keys() {
		child, _ := t.Parallel.Get(key)
		extractInto(child, rest, out)
	}
}
