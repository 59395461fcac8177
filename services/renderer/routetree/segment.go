// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routetree models the server-side loader tree, the client-side
// router state, and the segment algebra shared by both.
//
// The loader tree describes the nested layout hierarchy an app serves
// (layouts, pages, loading boundaries, named parallel slots). The router
// state is the client's snapshot of what it currently has mounted. The
// renderer diffs one against the other; everything it needs for that diff
// (segment matching, dynamic param resolution, router-state projection)
// lives here.
package routetree

import (
	"net/url"
	"strings"
)

// Well-known segment names.
const (
	// PageSegmentName marks the leaf position a page module renders into.
	PageSegmentName = "__PAGE__"

	// DefaultSegmentName is the synthesized filler for an unmatched
	// parallel slot. Paths starting with it are suppressed from responses
	// unless the client explicitly asked for a refetch.
	DefaultSegmentName = "__DEFAULT__"
)

// SegmentKind classifies how a segment binds to the request URL.
type SegmentKind int

const (
	// KindStatic is a literal path segment ("dashboard").
	KindStatic SegmentKind = iota

	// KindDynamic is a single dynamic segment ("[slug]").
	KindDynamic

	// KindCatchAll matches one or more trailing segments ("[...rest]").
	KindCatchAll

	// KindOptionalCatchAll matches zero or more trailing segments
	// ("[[...rest]]").
	KindOptionalCatchAll
)

// wireCode returns the wire-format code for a dynamic segment kind.
func (k SegmentKind) wireCode() string {
	switch k {
	case KindCatchAll:
		return "c"
	case KindOptionalCatchAll:
		return "oc"
	default:
		return "d"
	}
}

// kindFromWireCode is the inverse of wireCode.
func kindFromWireCode(code string) SegmentKind {
	switch code {
	case "c":
		return KindCatchAll
	case "oc":
		return KindOptionalCatchAll
	default:
		return KindDynamic
	}
}

// Segment identifies one position in the route hierarchy.
//
// A static segment carries only Name (and, for page segments, the request
// query merged in). A dynamic segment additionally carries the param name,
// its kind, and - once resolved against a request - the bound value(s).
//
// Segments are small value types; copy freely.
type Segment struct {
	// Name is the raw segment name as it appears in the loader tree,
	// e.g. "dashboard", "[slug]", "__PAGE__".
	Name string

	// Param is the dynamic parameter name ("slug" for "[slug]").
	// Empty for static segments.
	Param string

	// Kind is meaningful only when Param is non-empty.
	Kind SegmentKind

	// Value is the resolved single value of a dynamic segment.
	Value string

	// Values holds the resolved values of a catch-all segment.
	Values []string

	// Query is the encoded request query merged into page segments.
	Query string
}

// StaticSegment builds a static segment with the given name.
func StaticSegment(name string) Segment {
	return Segment{Name: name}
}

// PageSegment returns the page marker segment.
func PageSegment() Segment {
	return Segment{Name: PageSegmentName}
}

// DefaultSegment returns the default-slot filler segment.
func DefaultSegment() Segment {
	return Segment{Name: DefaultSegmentName}
}

// IsDynamic reports whether the segment declares a dynamic parameter.
func (s Segment) IsDynamic() bool {
	return s.Param != ""
}

// IsResolved reports whether a dynamic segment carries a bound value.
// Static segments are always resolved.
func (s Segment) IsResolved() bool {
	if !s.IsDynamic() {
		return true
	}
	return s.Value != "" || len(s.Values) > 0
}

// IsPage reports whether this is the page marker segment.
func (s Segment) IsPage() bool {
	return s.Name == PageSegmentName
}

// IsDefault reports whether this is the default-slot filler segment.
func (s Segment) IsDefault() bool {
	return s.Name == DefaultSegmentName
}

// IsEmpty reports whether the segment is the zero segment. The router
// state uses an empty own segment to mark a slot the client has never
// populated.
func (s Segment) IsEmpty() bool {
	return s.Name == "" && s.Param == ""
}

// String renders the segment for logs and path assembly.
func (s Segment) String() string {
	if s.IsDynamic() {
		v := s.Value
		if len(s.Values) > 0 {
			v = strings.Join(s.Values, "/")
		}
		if v == "" {
			return s.Name
		}
		return s.Param + "=" + v
	}
	if s.Query != "" {
		return s.Name + "?" + s.Query
	}
	return s.Name
}

// AddSearchParamsToPageSegment merges the request query into a page
// segment. Non-page segments and empty queries pass through unchanged.
// url.Values.Encode sorts keys, so the merged form is canonical.
func AddSearchParamsToPageSegment(seg Segment, query url.Values) Segment {
	if !seg.IsPage() || len(query) == 0 {
		return seg
	}
	seg.Query = query.Encode()
	return seg
}

// ParseSegmentName classifies a raw loader-tree segment name into a
// Segment, extracting the dynamic parameter declaration if present.
//
// Recognized shapes:
//
//	"blog"        -> static
//	"[slug]"      -> dynamic param "slug"
//	"[...rest]"   -> catch-all param "rest"
//	"[[...rest]]" -> optional catch-all param "rest"
func ParseSegmentName(name string) Segment {
	if strings.HasPrefix(name, "[[...") && strings.HasSuffix(name, "]]") {
		return Segment{Name: name, Param: name[5 : len(name)-2], Kind: KindOptionalCatchAll}
	}
	if strings.HasPrefix(name, "[...") && strings.HasSuffix(name, "]") {
		return Segment{Name: name, Param: name[4 : len(name)-1], Kind: KindCatchAll}
	}
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		return Segment{Name: name, Param: name[1 : len(name)-1], Kind: KindDynamic}
	}
	return Segment{Name: name}
}
