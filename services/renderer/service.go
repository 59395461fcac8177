// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package renderer serves flight data over HTTP: it reconciles an app's
// loader tree against the client's router state and streams back the
// minimal set of subtrees the client is missing.
package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/AleutianAI/aileron/services/renderer/apploader"
	"github.com/AleutianAI/aileron/services/renderer/assets"
	"github.com/AleutianAI/aileron/services/renderer/componenttree"
	"github.com/AleutianAI/aileron/services/renderer/flight"
	"github.com/AleutianAI/aileron/services/renderer/observability"
	"github.com/AleutianAI/aileron/services/renderer/rendercache"
	"github.com/AleutianAI/aileron/services/renderer/routetree"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Registry holds the loaded apps. Required.
	Registry *apploader.Registry

	// Cache holds prefetch and route-tree responses. Optional; nil
	// disables caching.
	Cache *rendercache.Cache

	// Metrics records request metrics. Optional.
	Metrics *observability.RendererMetrics

	// Logger for request logging. Defaults to slog.Default().
	Logger *slog.Logger

	// PPREnabled turns on partial prerendering semantics: prefetches
	// render full subtrees instead of stopping at loading boundaries.
	PPREnabled bool
}

// Service renders flight responses for registered apps.
//
// # Thread Safety
//
// Safe for concurrent use.
type Service struct {
	registry *apploader.Registry
	cache    *rendercache.Cache
	metrics  *observability.RendererMetrics
	logger   *slog.Logger
	ppr      bool
}

// NewService creates a Service from options.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("renderer: registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: opts.Registry,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		logger:   logger,
		ppr:      opts.PPREnabled,
	}, nil
}

// Registry exposes the app registry, mainly for admin handlers.
func (s *Service) Registry() *apploader.Registry {
	return s.registry
}

// RenderOptions describes one flight request.
type RenderOptions struct {
	// App names the registered app to render from.
	App string

	// Path is the request URL path, e.g. "/blog/hello".
	Path string

	// Query is the request's search parameters.
	Query url.Values

	// RouterState is the client's current router state in wire form.
	// Empty means the client has no state (initial load).
	RouterState []byte

	// Prefetch marks a speculative request.
	Prefetch bool

	// RouteTreeOnly requests only the router-state shape, no rendered
	// payloads.
	RouteTreeOnly bool
}

func (o RenderOptions) kind() observability.RenderKind {
	switch {
	case o.RouteTreeOnly:
		return observability.KindRouteTree
	case o.Prefetch:
		return observability.KindPrefetch
	default:
		return observability.KindRender
	}
}

// FlightResponse is the JSON body returned for a render request.
type FlightResponse struct {
	// Paths are the flight data paths the client is missing, in wire
	// form.
	Paths []flight.FlightDataPath `json:"paths"`

	// Preloads are resources the client should start fetching before
	// paint, collected while the paths rendered.
	Preloads []assets.FontPreload `json:"preloads"`
}

// RenderFlight produces the marshaled flight response for a request.
//
// # Description
//
// Looks up the app, reconciles its loader tree against the client's
// router state and renders whatever subtrees the walk decides the
// client needs. Prefetch and route-tree-only responses are served from
// the render cache when possible.
//
// # Inputs
//
//   - ctx: Context for cancellation; rendering aborts when it ends.
//   - opts: The request.
//
// # Outputs
//
//   - []byte: Marshaled FlightResponse.
//   - error: ErrAppNotFound for unknown apps; flight.ErrNotFound and
//     flight.RedirectError pass through from rendering.
func (s *Service) RenderFlight(ctx context.Context, opts RenderOptions) ([]byte, error) {
	app, ok := s.registry.Get(opts.App)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppNotFound, opts.App)
	}

	kind := opts.kind()
	cacheable := s.cache != nil && (opts.Prefetch || opts.RouteTreeOnly)
	var cacheKey rendercache.Key
	if cacheable {
		cacheKey = rendercache.Key{
			AppVersion:    app.Version,
			Path:          opts.Path,
			Query:         opts.Query.Encode(),
			StateDigest:   rendercache.DigestState(opts.RouterState),
			Prefetch:      opts.Prefetch,
			RouteTreeOnly: opts.RouteTreeOnly,
		}
		body, hit, err := s.cache.Get(cacheKey)
		if err != nil {
			s.logger.Warn("Render cache lookup failed",
				"app", opts.App,
				"error", err)
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(hit)
		}
		if hit {
			return body, nil
		}
	}

	// A state the client sent but we cannot decode is treated as no
	// state at all: the full tree renders and the client resyncs.
	var state *routetree.RouterState
	if len(opts.RouterState) > 0 {
		decoded := &routetree.RouterState{}
		if err := json.Unmarshal(opts.RouterState, decoded); err != nil {
			s.logger.Warn("Malformed router state, rendering from root",
				"app", opts.App,
				"path", opts.Path,
				"error", err)
		} else {
			state = decoded
		}
	}

	params := routetree.ExtractPathParams(app.Tree, opts.Path)
	resolver := routetree.NewParamResolver(params)

	ready := make(chan struct{})
	close(ready)

	preloads := &flight.PreloadCollector{}
	rc := &flight.RenderContext{
		Query:           opts.Query,
		IsPrefetch:      opts.Prefetch,
		RouteTreeOnly:   opts.RouteTreeOnly,
		PPREnabled:      s.ppr,
		BuildManifest:   app.Build,
		FontManifest:    app.Fonts,
		GetDynamicParam: resolver,
		Render:          componenttree.New(app.Build, app.Fonts).Bind(resolver, opts.Query),
		MetadataReady:   ready,
		Preloads:        preloads,
	}
	walker, err := flight.NewWalker(rc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	paths, err := walker.Walk(ctx, flight.WalkInput{
		Tree:   app.Tree,
		State:  state,
		Params: params,
	})
	if s.metrics != nil {
		s.metrics.RecordWalk(opts.App, kind, time.Since(start).Seconds(), len(paths))
	}
	if err != nil {
		return nil, err
	}

	if paths == nil {
		paths = []flight.FlightDataPath{}
	}
	fonts := preloads.Fonts()
	if fonts == nil {
		fonts = []assets.FontPreload{}
	}
	body, err := json.Marshal(FlightResponse{Paths: paths, Preloads: fonts})
	if err != nil {
		return nil, fmt.Errorf("marshal flight response: %w", err)
	}

	if cacheable {
		if err := s.cache.Put(cacheKey, body); err != nil {
			s.logger.Warn("Render cache store failed",
				"app", opts.App,
				"error", err)
		}
	}
	return body, nil
}
