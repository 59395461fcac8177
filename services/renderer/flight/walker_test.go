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
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/aileron/services/renderer/assets"
	"github.com/AleutianAI/aileron/services/renderer/routetree"
)

// recordingRenderer captures every render request and returns the
// rendered module path as seed data.
type recordingRenderer struct {
	requests []RenderRequest
	err      error
}

func (r *recordingRenderer) render(_ context.Context, req RenderRequest) (SeedData, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return map[string]any{"rendered": req.Tree.Segment.Name}, nil
}

func newTestContext(rec *recordingRenderer, params routetree.Params) *RenderContext {
	return &RenderContext{
		GetDynamicParam: routetree.NewParamResolver(params),
		Render:          rec.render,
	}
}

// page returns a page leaf under the given segment name chain.
func page(module string) *routetree.LoaderTree {
	return routetree.NewTree(routetree.PageSegmentName,
		routetree.Modules{Page: &routetree.ModuleRef{Path: module}})
}

func TestWalk_NoRouterStateRendersFromRoot(t *testing.T) {
	rec := &recordingRenderer{}
	tree := routetree.NewTree("", routetree.Modules{Layout: &routetree.ModuleRef{Path: "app/layout"}},
		routetree.Children(routetree.NewTree("blog", routetree.Modules{},
			routetree.Children(page("app/blog/page")),
		)),
	)
	w, err := NewWalker(newTestContext(rec, nil))
	require.NoError(t, err)

	paths, err := w.Walk(context.Background(), WalkInput{Tree: tree})
	require.NoError(t, err)

	require.Len(t, paths, 1, "whole tree renders as one path")
	assert.Empty(t, paths[0].Steps)
	assert.NotNil(t, paths[0].Leaf.Seed)
	assert.NotNil(t, paths[0].Leaf.Tree)
	require.Len(t, rec.requests, 1)
	assert.Same(t, tree, rec.requests[0].Tree)
}

func TestWalk_LeafForcesRenderEvenOnMatch(t *testing.T) {
	rec := &recordingRenderer{}
	leaf := page("app/page")
	tree := routetree.NewTree("", routetree.Modules{}, routetree.Children(leaf))

	// Client state matches everywhere, including the leaf.
	state := routetree.NewState(routetree.StaticSegment(""),
		routetree.StateSlot{Key: "children", State: routetree.NewState(routetree.PageSegment())},
	)
	w, _ := NewWalker(newTestContext(rec, nil))

	paths, err := w.Walk(context.Background(), WalkInput{Tree: tree, State: state})
	require.NoError(t, err)

	require.Len(t, paths, 1)
	require.Len(t, paths[0].Steps, 1, "render happened below the matched root")
	assert.Equal(t, "children", paths[0].Steps[0].ParallelKey)
	assert.NotNil(t, paths[0].Leaf.Seed)
}

func TestWalk_RefetchMarkerForcesRenderOnMatch(t *testing.T) {
	rec := &recordingRenderer{}
	tree := routetree.NewTree("", routetree.Modules{},
		routetree.Children(routetree.NewTree("blog", routetree.Modules{},
			routetree.Children(page("app/blog/page")),
		)),
	)
	blogState := routetree.NewState(routetree.StaticSegment("blog"),
		routetree.StateSlot{Key: "children", State: routetree.NewState(routetree.PageSegment())},
	)
	blogState.Marker = routetree.MarkerRefetch
	state := routetree.NewState(routetree.StaticSegment(""),
		routetree.StateSlot{Key: "children", State: blogState},
	)
	w, _ := NewWalker(newTestContext(rec, nil))

	paths, err := w.Walk(context.Background(), WalkInput{Tree: tree, State: state})
	require.NoError(t, err)

	require.Len(t, paths, 1)
	assert.Equal(t, "blog", paths[0].Leaf.Segment.Name,
		"render restarts at the refetch-marked level despite the match")
	assert.NotNil(t, paths[0].Leaf.Seed)
}

func TestWalk_RootLayoutMonotone(t *testing.T) {
	rec := &recordingRenderer{}
	// Layout at root, render decision two levels down.
	tree := routetree.NewTree("", routetree.Modules{Layout: &routetree.ModuleRef{Path: "app/layout"}},
		routetree.Children(routetree.NewTree("docs", routetree.Modules{},
			routetree.Children(routetree.NewTree("guides", routetree.Modules{},
				routetree.Children(page("app/docs/guides/page")),
			)),
		)),
	)
	state := routetree.NewState(routetree.StaticSegment(""),
		routetree.StateSlot{Key: "children", State: routetree.NewState(routetree.StaticSegment("docs"),
			routetree.StateSlot{Key: "children", State: routetree.NewState(routetree.StaticSegment("stale"))},
		)},
	)
	w, _ := NewWalker(newTestContext(rec, nil))

	_, err := w.Walk(context.Background(), WalkInput{Tree: tree, State: state})
	require.NoError(t, err)

	require.Len(t, rec.requests, 1)
	assert.True(t, rec.requests[0].RootLayoutIncluded,
		"layout passed above must stay visible at the render level")
}

func TestWalk_AssetIsolationBetweenSiblings(t *testing.T) {
	manifest := &assets.BuildManifest{Entries: map[string]assets.ManifestEntry{
		"app/layout":        {CSSFiles: []string{"shared.css"}},
		"app/@a/sec/layout": {CSSFiles: []string{"a.css"}},
		"app/@b/sec/layout": {CSSFiles: []string{"b.css"}},
	}}

	branch := func(slot string) *routetree.LoaderTree {
		return routetree.NewTree("sec", routetree.Modules{
			Layout: &routetree.ModuleRef{Path: "app/@" + slot + "/sec/layout"},
		}, routetree.Children(page("app/@"+slot+"/sec/page")))
	}
	tree := routetree.NewTree("", routetree.Modules{Layout: &routetree.ModuleRef{Path: "app/layout"}},
		routetree.Slot{Key: "a", Tree: branch("a")},
		routetree.Slot{Key: "b", Tree: branch("b")},
	)

	// Root and both slot levels match; rendering happens below each
	// slot's layout, after the slot's assets were injected.
	stale := routetree.NewState(routetree.StaticSegment("stale"))
	slotState := func() *routetree.RouterState {
		return routetree.NewState(routetree.StaticSegment("sec"),
			routetree.StateSlot{Key: "children", State: stale})
	}
	state := routetree.NewState(routetree.StaticSegment(""),
		routetree.StateSlot{Key: "a", State: slotState()},
		routetree.StateSlot{Key: "b", State: slotState()},
	)

	rec := &recordingRenderer{}
	rc := newTestContext(rec, nil)
	rc.BuildManifest = manifest
	w, _ := NewWalker(rc)

	paths, err := w.Walk(context.Background(), WalkInput{Tree: tree, State: state})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	require.Len(t, rec.requests, 2)

	cssA, cssB := rec.requests[0].CSS, rec.requests[1].CSS
	assert.True(t, cssA.Has("shared.css"), "branch sees ancestor injections")
	assert.True(t, cssB.Has("shared.css"))
	assert.True(t, cssA.Has("a.css"))
	assert.False(t, cssA.Has("b.css"), "sibling injections must not leak")
	assert.True(t, cssB.Has("b.css"))
	assert.False(t, cssB.Has("a.css"))
}

func TestWalk_DefaultRouteSuppression(t *testing.T) {
	makeTree := func() *routetree.LoaderTree {
		return routetree.NewTree("", routetree.Modules{},
			routetree.Slot{Key: "modal", Tree: routetree.NewTree(routetree.DefaultSegmentName, routetree.Modules{})},
			routetree.Slot{Key: "children", Tree: routetree.NewTree("blog", routetree.Modules{},
				routetree.Children(page("app/blog/page")),
			)},
		)
	}

	makeState := func(marker string) *routetree.RouterState {
		modal := routetree.NewState(routetree.StaticSegment("photo"))
		modal.Marker = marker
		return routetree.NewState(routetree.StaticSegment(""),
			routetree.StateSlot{Key: "modal", State: modal},
			routetree.StateSlot{Key: "children", State: routetree.NewState(routetree.StaticSegment("stale"))},
		)
	}

	t.Run("suppressed when client holds real content", func(t *testing.T) {
		rec := &recordingRenderer{}
		w, _ := NewWalker(newTestContext(rec, nil))

		paths, err := w.Walk(context.Background(), WalkInput{Tree: makeTree(), State: makeState("")})
		require.NoError(t, err)

		require.Len(t, paths, 1, "only the children slot survives")
		assert.Equal(t, "children", paths[0].Steps[0].ParallelKey)
	})

	t.Run("kept when refetch requested", func(t *testing.T) {
		rec := &recordingRenderer{}
		w, _ := NewWalker(newTestContext(rec, nil))

		paths, err := w.Walk(context.Background(), WalkInput{Tree: makeTree(), State: makeState(routetree.MarkerRefetch)})
		require.NoError(t, err)

		require.Len(t, paths, 2)
		assert.Equal(t, "modal", paths[0].Steps[0].ParallelKey)
	})
}

func TestWalk_PrefetchShortCircuit(t *testing.T) {
	deep := func(loading bool) *routetree.LoaderTree {
		var mods routetree.Modules
		if loading {
			mods.Loading = &routetree.ModuleRef{Path: "app/a/b/loading"}
		}
		leaf := routetree.NewTree("b", mods, routetree.Children(page("app/a/b/page")))
		return routetree.NewTree("", routetree.Modules{},
			routetree.Children(routetree.NewTree("a", routetree.Modules{},
				routetree.Children(leaf),
			)),
		)
	}

	t.Run("no loading boundary: tree only", func(t *testing.T) {
		rec := &recordingRenderer{}
		rc := newTestContext(rec, nil)
		rc.IsPrefetch = true
		w, _ := NewWalker(rc)

		paths, err := w.Walk(context.Background(), WalkInput{Tree: deep(false)})
		require.NoError(t, err)

		require.Len(t, paths, 1)
		assert.Nil(t, paths[0].Leaf.Seed)
		assert.Nil(t, paths[0].Leaf.Head)
		assert.NotNil(t, paths[0].Leaf.Tree, "router-state shape still ships")
		assert.Empty(t, rec.requests, "renderer must not run")
	})

	t.Run("loading boundary below: renders", func(t *testing.T) {
		rec := &recordingRenderer{}
		rc := newTestContext(rec, nil)
		rc.IsPrefetch = true
		w, _ := NewWalker(rc)

		paths, err := w.Walk(context.Background(), WalkInput{Tree: deep(true)})
		require.NoError(t, err)

		require.Len(t, paths, 1)
		assert.NotNil(t, paths[0].Leaf.Seed)
	})

	t.Run("route tree only skips even with loading", func(t *testing.T) {
		rec := &recordingRenderer{}
		rc := newTestContext(rec, nil)
		rc.RouteTreeOnly = true
		w, _ := NewWalker(rc)

		paths, err := w.Walk(context.Background(), WalkInput{Tree: deep(true)})
		require.NoError(t, err)
		assert.Nil(t, paths[0].Leaf.Seed)
	})

	t.Run("ppr disables the short-circuit", func(t *testing.T) {
		rec := &recordingRenderer{}
		rc := newTestContext(rec, nil)
		rc.IsPrefetch = true
		rc.PPREnabled = true
		w, _ := NewWalker(rc)

		paths, err := w.Walk(context.Background(), WalkInput{Tree: deep(false)})
		require.NoError(t, err)
		assert.NotNil(t, paths[0].Leaf.Seed)
	})
}

func TestWalk_ParamsAccumulateAcrossLevels(t *testing.T) {
	rec := &recordingRenderer{}
	tree := routetree.NewTree("", routetree.Modules{},
		routetree.Children(routetree.NewTree("a", routetree.Modules{},
			routetree.Children(routetree.NewTree("[x]", routetree.Modules{},
				routetree.Children(routetree.NewTree("[y]", routetree.Modules{},
					routetree.Children(routetree.NewTree("[z]", routetree.Modules{},
						routetree.Children(page("app/a/page")),
					)),
				)),
			)),
		)),
	)
	params := routetree.Params{
		"x": {Value: "1"},
		"y": {Value: "2"},
		"z": {Value: "3"},
	}
	w, _ := NewWalker(newTestContext(rec, params))

	_, err := w.Walk(context.Background(), WalkInput{Tree: tree})
	require.NoError(t, err)

	require.Len(t, rec.requests, 1)
	got := rec.requests[0].Params
	assert.Empty(t, got, "render at root sees the pre-root bag")

	// Force the render decision to the deepest level so the bag must
	// have accumulated through all three dynamic segments.
	rec2 := &recordingRenderer{}
	w2, _ := NewWalker(newTestContext(rec2, params))
	resolver := routetree.NewParamResolver(params)
	state := routetree.ProjectRouterState(tree, resolver, nil)
	// Invalidate only the leaf page so everything above matches.
	zState := state.Child("children").Child("children").Child("children").Child("children")
	pageState := zState.Child("children")
	pageState.Segment = routetree.StaticSegment("stale")

	_, err = w2.Walk(context.Background(), WalkInput{Tree: tree, State: state})
	require.NoError(t, err)

	require.Len(t, rec2.requests, 1)
	got = rec2.requests[0].Params
	assert.Equal(t, "1", got["x"].Value)
	assert.Equal(t, "2", got["y"].Value)
	assert.Equal(t, "3", got["z"].Value)
}

func TestWalk_SegmentOverrideKeepsClientBinding(t *testing.T) {
	rec := &recordingRenderer{}
	// Resolver has no binding: the server only knows "[slug]".
	tree := routetree.NewTree("[slug]", routetree.Modules{})

	clientSeg := routetree.ParseSegmentName("[slug]")
	clientSeg.Value = "kept"
	state := routetree.NewState(clientSeg)

	w, _ := NewWalker(newTestContext(rec, nil))
	paths, err := w.Walk(context.Background(), WalkInput{Tree: tree, State: state})
	require.NoError(t, err)

	require.Len(t, paths, 1)
	assert.Equal(t, "kept", paths[0].Leaf.Segment.Value,
		"client's resolved segment survives the response")
}

func TestWalk_ParallelOrderIsSlotOrder(t *testing.T) {
	rec := &recordingRenderer{}
	tree := routetree.NewTree("", routetree.Modules{},
		routetree.Slot{Key: "z", Tree: routetree.NewTree("zz", routetree.Modules{})},
		routetree.Slot{Key: "a", Tree: routetree.NewTree("aa", routetree.Modules{})},
	)
	state := routetree.NewState(routetree.StaticSegment(""),
		routetree.StateSlot{Key: "z", State: routetree.NewState(routetree.StaticSegment("stale"))},
		routetree.StateSlot{Key: "a", State: routetree.NewState(routetree.StaticSegment("stale"))},
	)
	w, _ := NewWalker(newTestContext(rec, nil))

	paths, err := w.Walk(context.Background(), WalkInput{Tree: tree, State: state})
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Equal(t, "z", paths[0].Steps[0].ParallelKey)
	assert.Equal(t, "a", paths[1].Steps[0].ParallelKey)
}

func TestWalk_RendererErrorPropagatesVerbatim(t *testing.T) {
	sentinel := &RedirectError{Location: "/login"}
	rec := &recordingRenderer{err: sentinel}
	w, _ := NewWalker(newTestContext(rec, nil))

	_, err := w.Walk(context.Background(), WalkInput{Tree: page("app/page")})
	require.Error(t, err)

	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Same(t, sentinel, redirect, "no wrapping, no interpretation")
}

func TestWalk_MalformedStateTreatedAsAbsent(t *testing.T) {
	rec := &recordingRenderer{}
	tree := routetree.NewTree("", routetree.Modules{},
		routetree.Children(routetree.NewTree("blog", routetree.Modules{},
			routetree.Children(page("app/blog/page")),
		)),
	)
	// State matches the root but has no entry for "children".
	state := routetree.NewState(routetree.StaticSegment(""),
		routetree.StateSlot{Key: "unrelated", State: routetree.NewState(routetree.StaticSegment("x"))},
	)
	w, _ := NewWalker(newTestContext(rec, nil))

	paths, err := w.Walk(context.Background(), WalkInput{Tree: tree, State: state})
	require.NoError(t, err, "shape mismatch must never panic or fail")
	require.Len(t, paths, 1)
	assert.NotNil(t, paths[0].Leaf.Seed, "absent branch state forces a render")
}

func TestNewWalker_Validation(t *testing.T) {
	_, err := NewWalker(nil)
	assert.Error(t, err)

	_, err = NewWalker(&RenderContext{})
	assert.Error(t, err, "renderer is required")
}

func TestWalk_RendererFailureSurfaced(t *testing.T) {
	rec := &recordingRenderer{err: errors.New("boom")}
	rc := newTestContext(rec, nil)
	rc.Query = url.Values{"q": {"1"}}
	w, _ := NewWalker(rc)

	_, err := w.Walk(context.Background(), WalkInput{Tree: page("app/page")})
	assert.ErrorContains(t, err, "boom")
}
