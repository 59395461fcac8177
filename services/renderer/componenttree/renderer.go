// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package componenttree is the default component renderer: it turns a
// loader-tree slice into the seed-data node tree the client mounts.
//
// Each node records its module, resolved segment, the assets that became
// newly visible at its level, and its nested slots. The walk treats the
// result as opaque seed data; the wire shape here is the contract with
// the client runtime, not with the walk.
package componenttree

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AleutianAI/aileron/services/renderer/assets"
	"github.com/AleutianAI/aileron/services/renderer/flight"
	"github.com/AleutianAI/aileron/services/renderer/routetree"
)

// NodeKind labels what a seed node represents.
type NodeKind string

const (
	KindLayout  NodeKind = "layout"
	KindPage    NodeKind = "page"
	KindSegment NodeKind = "segment"
	KindLoading NodeKind = "loading"
	KindHead    NodeKind = "head"
)

// SlotNode pairs a parallel-route key with its rendered subtree,
// preserving slot order in the marshaled output.
type SlotNode struct {
	Key  string `json:"key"`
	Node *Node  `json:"node"`
}

// Node is one rendered level of the component tree.
type Node struct {
	Kind    NodeKind          `json:"kind"`
	Module  string            `json:"module,omitempty"`
	Segment routetree.Segment `json:"segment"`
	Params  routetree.Params  `json:"params,omitempty"`

	// Styles, Scripts, and Fonts are the asset paths that became newly
	// visible at this level; everything an ancestor already injected is
	// omitted.
	Styles  []string             `json:"styles,omitempty"`
	Scripts []string             `json:"scripts,omitempty"`
	Fonts   []assets.FontPreload `json:"fonts,omitempty"`

	// Loading is the suspense fallback boundary mounted at this level,
	// if any.
	Loading *Node `json:"loading,omitempty"`

	// NotFound is the not-found boundary mounted at this level, if any.
	NotFound *Node `json:"notFound,omitempty"`

	// Title is set on head nodes only.
	Title string `json:"title,omitempty"`

	Slots []SlotNode `json:"slots,omitempty"`
}

// NewHead builds the shared head node attached to rendered segments.
func NewHead(title string) *Node {
	return &Node{Kind: KindHead, Title: title}
}

// Renderer builds seed-data trees against a fixed pair of manifests.
// Safe for concurrent use; per-request state lives in the closure
// returned by Bind.
type Renderer struct {
	build *assets.BuildManifest
	fonts *assets.FontManifest
}

// New creates a renderer over the given manifests. Either may be nil.
func New(build *assets.BuildManifest, fonts *assets.FontManifest) *Renderer {
	return &Renderer{build: build, fonts: fonts}
}

// Bind returns the per-request ComponentRenderer the walk invokes,
// closing over the request's param resolver and query.
func (r *Renderer) Bind(resolver routetree.DynamicParamResolver, query url.Values) flight.ComponentRenderer {
	return func(ctx context.Context, req flight.RenderRequest) (flight.SeedData, error) {
		if req.MetadataReady != nil {
			select {
			case <-req.MetadataReady:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		node, err := r.renderNode(ctx, req.Tree, req.Params, resolver, query,
			req.CSS.Clone(), req.JS.Clone(), req.Fonts.Clone(), req.Preloads)
		if err != nil {
			return nil, err
		}
		return node, nil
	}
}

func (r *Renderer) renderNode(
	ctx context.Context,
	tree *routetree.LoaderTree,
	params routetree.Params,
	resolver routetree.DynamicParamResolver,
	query url.Values,
	css, js, fonts assets.Set,
	preloads *flight.PreloadCollector,
) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seg := tree.Segment
	if resolver != nil {
		if dp := resolver(seg); dp != nil {
			if dp.HasValue {
				params = params.With(dp.Param, dp.Value)
			}
			seg = dp.TreeSegment
		}
	}
	seg = routetree.AddSearchParamsToPageSegment(seg, query)

	node := &Node{Kind: KindSegment, Segment: seg, Params: params}

	switch {
	case tree.Modules.Layout != nil:
		node.Kind = KindLayout
		node.Module = tree.Modules.Layout.Path
		node.Styles, node.Scripts = assets.CollectLayoutAssets(r.build, node.Module, css, js, true)
		newFonts := assets.CollectPreloadableFonts(r.fonts, node.Module, fonts)
		node.Fonts = newFonts
		for _, f := range newFonts {
			preloads.AddFont(f)
		}
	case tree.Modules.Page != nil:
		node.Kind = KindPage
		node.Module = tree.Modules.Page.Path
		node.Styles, _ = assets.CollectLayoutAssets(r.build, node.Module, css, js, false)
	case seg.IsPage():
		return nil, fmt.Errorf("segment %s: %w", seg, flight.ErrNotFound)
	}

	if tree.Modules.Loading != nil {
		node.Loading = &Node{Kind: KindLoading, Module: tree.Modules.Loading.Path}
	}
	if tree.Modules.NotFound != nil {
		node.NotFound = &Node{Kind: KindSegment, Module: tree.Modules.NotFound.Path}
	}

	for _, key := range tree.Parallel.Keys() {
		child, _ := tree.Parallel.Get(key)
		childNode, err := r.renderNode(ctx, child, params, resolver, query,
			css.Clone(), js.Clone(), fonts.Clone(), preloads)
		if err != nil {
			return nil, err
		}
		node.Slots = append(node.Slots, SlotNode{Key: key, Node: childNode})
	}
	return node, nil
}
