// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package flight computes the minimal set of subtrees that must be
// re-rendered and streamed to a client, given the server's loader tree
// and the client's router-state snapshot.
//
// The walk is a depth-first diff of the two trees. At each level it
// decides: does the client already have this position (recurse), or does
// rendering start here (render the slice, emit a flight data path, stop)?
// Prefetches additionally stop expanding where no loading boundary could
// give the client something to paint.
package flight

import (
	"context"
	"net/url"
	"sync"

	"github.com/AleutianAI/aileron/services/renderer/assets"
	"github.com/AleutianAI/aileron/services/renderer/routetree"
)

// SeedData is the opaque rendered payload for one subtree. The walk
// forwards it untouched; only the component renderer and the client give
// it meaning.
type SeedData any

// RenderRequest is everything the component renderer needs to produce
// seed data for one loader-tree slice.
type RenderRequest struct {
	// Tree is the slice to render, rooted at the level that decided to
	// render.
	Tree *routetree.LoaderTree

	// Params are the dynamic bindings accumulated down to this level.
	Params routetree.Params

	// CSS, JS, and Fonts are the asset paths ancestors already injected.
	// The renderer must not emit these again, and may extend its own
	// copies as it descends.
	CSS, JS, Fonts assets.Set

	// RootLayoutIncluded tells the renderer whether a root layout exists
	// above this slice; the renderer re-derives "am I the root layout"
	// for its own levels from it.
	RootLayoutIncluded bool

	// MetadataReady resolves when head metadata for the request is
	// complete. Forwarded opaquely.
	MetadataReady <-chan struct{}

	// Preloads collects preload emissions discovered during rendering.
	Preloads *PreloadCollector
}

// ComponentRenderer produces the rendered payload for a slice. It may
// block; failures (including navigation signals such as *RedirectError)
// propagate through the walk verbatim.
type ComponentRenderer func(ctx context.Context, req RenderRequest) (SeedData, error)

// RenderContext is the immutable per-request context threaded through
// a walk. One instance serves exactly one traversal; nothing here is
// shared across requests.
type RenderContext struct {
	// Query is the request's search parameters, merged into page
	// segments before matching.
	Query url.Values

	// IsPrefetch marks speculative requests that must not expand past a
	// missing loading boundary.
	IsPrefetch bool

	// RouteTreeOnly requests the router-state shape with no rendered
	// payloads at all.
	RouteTreeOnly bool

	// PPREnabled disables the prefetch short-circuit: with partial
	// prerendering, expanding is safe because rendering suspends at
	// dynamic holes instead.
	PPREnabled bool

	// BuildManifest and FontManifest back asset collection for layouts
	// passed through without rendering.
	BuildManifest *assets.BuildManifest
	FontManifest  *assets.FontManifest

	// GetDynamicParam resolves dynamic segments for this request.
	GetDynamicParam routetree.DynamicParamResolver

	// Render produces seed data once the walk decides rendering happens
	// at a level. Required.
	Render ComponentRenderer

	// MetadataReady and Preloads pass through to every render call.
	MetadataReady <-chan struct{}
	Preloads      *PreloadCollector
}

// PreloadCollector accumulates resources the client should start
// fetching before paint. Renderers append as they discover references;
// the HTTP layer drains it once the walk completes. Safe for concurrent
// appends.
type PreloadCollector struct {
	mu    sync.Mutex
	fonts []assets.FontPreload
}

// AddFont records a font preload.
func (p *PreloadCollector) AddFont(f assets.FontPreload) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fonts = append(p.fonts, f)
}

// Fonts returns the recorded font preloads.
func (p *PreloadCollector) Fonts() []assets.FontPreload {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]assets.FontPreload(nil), p.fonts...)
}
