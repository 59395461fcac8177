// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the renderer.
//
// # Description
//
// This package implements Prometheus metrics for monitoring flight
// rendering. Metrics include:
//   - Request counters (by app, render kind, status)
//   - Latency histograms (walk duration)
//   - Response shape (flight paths per response)
//   - Render cache hit rates
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aileron"

// Subsystem for renderer metrics
const rendererSubsystem = "renderer"

// RendererMetrics holds all Prometheus metrics for flight rendering.
//
// # Description
//
// Provides counters and histograms for monitoring render throughput,
// latency and cache effectiveness. Initialize once at startup via
// InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type RendererMetrics struct {
	// RequestsTotal counts render requests by app, kind and status.
	// Labels: app, kind (render, prefetch, route_tree), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// WalkDurationSeconds measures tree walk plus render duration.
	// Labels: app, kind
	WalkDurationSeconds *prometheus.HistogramVec

	// PathsPerResponse measures flight paths emitted per response.
	// Labels: app, kind
	PathsPerResponse *prometheus.HistogramVec

	// CacheRequestsTotal counts render cache lookups.
	// Labels: result (hit, miss)
	CacheRequestsTotal *prometheus.CounterVec

	// ReloadsTotal counts app artifact reloads.
	// Labels: app
	ReloadsTotal *prometheus.CounterVec

	// ErrorsTotal counts render errors by type.
	// Labels: app, error_code (not_found, redirect, render_failed, bad_request)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of RendererMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *RendererMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *RendererMetrics {
	DefaultMetrics = &RendererMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: rendererSubsystem,
				Name:      "requests_total",
				Help:      "Total number of render requests by app, kind and status",
			},
			[]string{"app", "kind", "status"},
		),

		WalkDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: rendererSubsystem,
				Name:      "walk_duration_seconds",
				Help:      "Tree walk and render duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"app", "kind"},
		),

		PathsPerResponse: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: rendererSubsystem,
				Name:      "paths_per_response",
				Help:      "Flight data paths emitted per response",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
			},
			[]string{"app", "kind"},
		),

		CacheRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: rendererSubsystem,
				Name:      "cache_requests_total",
				Help:      "Total render cache lookups by result",
			},
			[]string{"result"},
		),

		ReloadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: rendererSubsystem,
				Name:      "reloads_total",
				Help:      "Total app artifact reloads",
			},
			[]string{"app"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: rendererSubsystem,
				Name:      "errors_total",
				Help:      "Total render errors by app and type",
			},
			[]string{"app", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeNotFound indicates no route matched the request path.
	ErrorCodeNotFound ErrorCode = "not_found"

	// ErrorCodeRedirect indicates rendering resolved to a redirect.
	ErrorCodeRedirect ErrorCode = "redirect"

	// ErrorCodeRenderFailed indicates the component renderer failed.
	ErrorCodeRenderFailed ErrorCode = "render_failed"

	// ErrorCodeBadRequest indicates request validation failure.
	ErrorCodeBadRequest ErrorCode = "bad_request"
)

// =============================================================================
// Render Kinds
// =============================================================================

// RenderKind labels the shape of a render request for metrics.
type RenderKind string

const (
	// KindRender is a full render with component payloads.
	KindRender RenderKind = "render"

	// KindPrefetch is a prefetch request.
	KindPrefetch RenderKind = "prefetch"

	// KindRouteTree is a route-tree-only request.
	KindRouteTree RenderKind = "route_tree"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed render request.
func (m *RendererMetrics) RecordRequest(app string, kind RenderKind, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(app, string(kind), status).Inc()
}

// RecordWalk records walk duration and response shape for a request.
func (m *RendererMetrics) RecordWalk(app string, kind RenderKind, seconds float64, paths int) {
	m.WalkDurationSeconds.WithLabelValues(app, string(kind)).Observe(seconds)
	m.PathsPerResponse.WithLabelValues(app, string(kind)).Observe(float64(paths))
}

// RecordCacheLookup records a render cache hit or miss.
func (m *RendererMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordReload increments the artifact reload counter.
func (m *RendererMetrics) RecordReload(app string) {
	m.ReloadsTotal.WithLabelValues(app).Inc()
}

// RecordError records a render error.
func (m *RendererMetrics) RecordError(app string, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(app, string(code)).Inc()
}
