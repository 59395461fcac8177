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
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/aileron/services/renderer/assets"
	"github.com/AleutianAI/aileron/services/renderer/routetree"
)

// Walker performs one depth-first diff of a loader tree against a
// client's router state. A Walker serves exactly one request; it holds no
// state shared across traversals.
//
// Parallel-route children are visited sequentially in slot order, and
// sub-paths concatenate in that same order - the client merges paths
// positionally.
type Walker struct {
	rc *RenderContext
}

// NewWalker creates a walker for one request.
func NewWalker(rc *RenderContext) (*Walker, error) {
	if rc == nil {
		return nil, errors.New("render context must not be nil")
	}
	if rc.Render == nil {
		return nil, errors.New("render context needs a component renderer")
	}
	return &Walker{rc: rc}, nil
}

// WalkInput carries the per-branch state of the recursion. The exported
// entry point seeds it; recursion extends it level by level.
type WalkInput struct {
	// Tree is the loader-tree slice at this level. Required.
	Tree *routetree.LoaderTree

	// State is the client's router state for this position; nil means
	// the client has nothing here.
	State *routetree.RouterState

	// Params are the dynamic bindings accumulated above this level.
	Params routetree.Params

	// ParentRendered is true once an ancestor level already rendered;
	// below that point the walk only descends to keep bookkeeping
	// consistent, it never renders again.
	ParentRendered bool

	// SharedHead is the head payload attached to whichever segment ends
	// up rendering.
	SharedHead SeedData

	// CSS, JS, Fonts are the asset paths injected by ancestors. Each
	// branch gets its own copies; see the descent step.
	CSS, JS, Fonts assets.Set

	// RootLayoutIncluded is true once any ancestor level carried a
	// layout. Monotone along every root-to-leaf path.
	RootLayoutIncluded bool
}

// Walk runs the traversal and returns the flight data paths to stream to
// the client. Renderer failures propagate verbatim; the walk neither
// catches nor retries.
func (w *Walker) Walk(ctx context.Context, in WalkInput) (paths []FlightDataPath, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "flight.walk", trace.WithAttributes(
		attribute.Bool("prefetch", w.rc.IsPrefetch),
		attribute.Bool("route_tree_only", w.rc.RouteTreeOnly),
	))
	defer func() {
		recordWalk(ctx, start, len(paths), w.rc.IsPrefetch, err)
		span.End()
	}()

	if in.CSS == nil {
		in.CSS = assets.NewSet()
	}
	if in.JS == nil {
		in.JS = assets.NewSet()
	}
	if in.Fonts == nil {
		in.Fonts = assets.NewSet()
	}
	if in.Params == nil {
		in.Params = routetree.Params{}
	}
	return w.walk(ctx, in)
}

func (w *Walker) walk(ctx context.Context, in WalkInput) ([]FlightDataPath, error) {
	tree, state := in.Tree, in.State

	isLayout := tree.Modules.Layout != nil
	rootLayoutAtThisLevel := isLayout && !in.RootLayoutIncluded
	rootLayoutIncludedHere := in.RootLayoutIncluded || rootLayoutAtThisLevel

	// Resolve this level's dynamic parameter. An unmatched optional
	// segment resolves without a value: the bag stays as-is and the
	// unresolved declaration remains the actual segment.
	currentParams := in.Params
	actualSegment := tree.Segment
	if dp := w.rc.GetDynamicParam(tree.Segment); dp != nil {
		if dp.HasValue {
			currentParams = in.Params.With(dp.Param, dp.Value)
		}
		actualSegment = dp.TreeSegment
	}
	actualSegment = routetree.AddSearchParamsToPageSegment(actualSegment, w.rc.Query)

	// Rendering starts here when there is nothing to diff against, the
	// client is looking at a different route shape, there is nothing
	// left to recurse into, or the client forced a refetch.
	renderHere := state == nil ||
		!routetree.MatchSegments(actualSegment, state.Segment) ||
		tree.Parallel.Len() == 0 ||
		state.WantsRefetch()

	// Without PPR, a prefetch must not expand into expensive content
	// unless a loading boundary somewhere below gives the client a safe
	// placeholder to paint.
	skipComponentTree := false
	if !w.rc.PPREnabled {
		switch {
		case w.rc.RouteTreeOnly:
			skipComponentTree = true
		case w.rc.IsPrefetch && tree.Modules.Loading == nil:
			skipComponentTree = !anyChildHasLoading(tree)
		}
	}

	if !in.ParentRendered && renderHere {
		// Keep the client's segment when it is a richer representation
		// of ours (a resolved param we only know as a declaration).
		overriddenSegment := actualSegment
		if state != nil && routetree.CanSegmentBeOverridden(actualSegment, state.Segment) {
			overriddenSegment = state.Segment
		}

		projected := routetree.ProjectRouterState(tree, w.rc.GetDynamicParam, w.rc.Query)

		if skipComponentTree {
			if initMetrics() == nil {
				shortCircuitTotal.Add(ctx, 1)
			}
			return []FlightDataPath{{Leaf: FlightDataSegment{
				Segment: overriddenSegment,
				Tree:    projected,
			}}}, nil
		}

		seed, err := w.rc.Render(ctx, RenderRequest{
			Tree:   tree,
			Params: currentParams,
			CSS:    in.CSS,
			JS:     in.JS,
			Fonts:  in.Fonts,
			// Pre-level value: the renderer re-derives root-layout
			// status for its own slice.
			RootLayoutIncluded: in.RootLayoutIncluded,
			MetadataReady:      w.rc.MetadataReady,
			Preloads:           w.rc.Preloads,
		})
		if err != nil {
			return nil, err
		}
		if initMetrics() == nil {
			rendersTotal.Add(ctx, 1)
		}
		return []FlightDataPath{{Leaf: FlightDataSegment{
			Segment: overriddenSegment,
			Tree:    projected,
			Seed:    seed,
			Head:    in.SharedHead,
		}}}, nil
	}

	// Pass-through level: inject this layout's assets into level copies,
	// then give every parallel branch its own clone so siblings never
	// alias one another.
	levelCSS, levelJS, levelFonts := in.CSS.Clone(), in.JS.Clone(), in.Fonts.Clone()
	if isLayout {
		assets.CollectLayoutAssets(w.rc.BuildManifest, tree.Modules.Layout.Path, levelCSS, levelJS, true)
		assets.CollectPreloadableFonts(w.rc.FontManifest, tree.Modules.Layout.Path, levelFonts)
	}

	var out []FlightDataPath
	for _, key := range tree.Parallel.Keys() {
		child, _ := tree.Parallel.Get(key)
		childState := state.Child(key)

		subPaths, err := w.walk(ctx, WalkInput{
			Tree:               child,
			State:              childState,
			Params:             currentParams,
			ParentRendered:     in.ParentRendered || renderHere,
			SharedHead:         in.SharedHead,
			CSS:                levelCSS.Clone(),
			JS:                 levelJS.Clone(),
			Fonts:              levelFonts.Clone(),
			RootLayoutIncluded: rootLayoutIncludedHere,
		})
		if err != nil {
			return nil, err
		}

		for _, sub := range subPaths {
			// A default slot is server-side filler the client ignores
			// while it holds real content for the slot - unless it
			// explicitly asked for a refetch.
			if sub.FirstSegment().IsDefault() && state != nil {
				if cs := state.Child(key); cs != nil && !cs.Segment.IsEmpty() && !cs.WantsRefetch() {
					if initMetrics() == nil {
						suppressedTotal.Add(ctx, 1)
					}
					continue
				}
			}
			out = append(out, sub.prepend(actualSegment, key))
		}
	}
	return out, nil
}

// anyChildHasLoading reports whether a loading boundary exists strictly
// below the given node.
func anyChildHasLoading(tree *routetree.LoaderTree) bool {
	for _, key := range tree.Parallel.Keys() {
		child, _ := tree.Parallel.Get(key)
		if routetree.HasLoadingInTree(child) {
			return true
		}
	}
	return false
}
