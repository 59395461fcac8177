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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for walk operations.
var (
	tracer = otel.Tracer("aileron.flight")
	meter  = otel.Meter("aileron.flight")
)

// Metrics for walk operations.
var (
	walkLatency       metric.Float64Histogram
	walkTotal         metric.Int64Counter
	rendersTotal      metric.Int64Counter
	shortCircuitTotal metric.Int64Counter
	suppressedTotal   metric.Int64Counter
	pathsEmitted      metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		walkLatency, err = meter.Float64Histogram(
			"flight_walk_duration_seconds",
			metric.WithDescription("Duration of flight tree walks"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		walkTotal, err = meter.Int64Counter(
			"flight_walk_total",
			metric.WithDescription("Total number of flight tree walks"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rendersTotal, err = meter.Int64Counter(
			"flight_renders_total",
			metric.WithDescription("Total number of component-tree renders triggered by walks"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		shortCircuitTotal, err = meter.Int64Counter(
			"flight_prefetch_short_circuits_total",
			metric.WithDescription("Walks that skipped rendering due to the prefetch short-circuit"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		suppressedTotal, err = meter.Int64Counter(
			"flight_default_paths_suppressed_total",
			metric.WithDescription("Default-slot paths dropped from responses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pathsEmitted, err = meter.Int64Histogram(
			"flight_paths_per_walk",
			metric.WithDescription("Flight data paths emitted per walk"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordWalk records the outcome of one complete walk.
func recordWalk(ctx context.Context, start time.Time, paths int, prefetch bool, err error) {
	if initMetrics() != nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.Bool("prefetch", prefetch),
		attribute.String("status", status),
	)
	walkTotal.Add(ctx, 1, attrs)
	walkLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	if err == nil {
		pathsEmitted.Record(ctx, int64(paths), attrs)
	}
}
