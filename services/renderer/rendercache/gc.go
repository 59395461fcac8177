// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rendercache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// GCRunner periodically runs BadgerDB value log garbage collection.
// TTL'd entries only reclaim disk space after GC runs.
type GCRunner struct {
	cache    *Cache
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

// NewGCRunner creates a GC runner for the cache. A non-positive
// interval defaults to five minutes.
func NewGCRunner(cache *Cache, interval time.Duration, logger *slog.Logger) *GCRunner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCRunner{
		cache:    cache,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the GC loop until the context is canceled or Stop is
// called. Blocks; run it in a goroutine.
func (g *GCRunner) Start(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.done:
			return
		case <-ticker.C:
			g.runOnce()
		}
	}
}

// Stop signals the GC loop to exit.
func (g *GCRunner) Stop() {
	close(g.done)
}

// maxGCPassesPerTick bounds the rewrite loop so a pathological value
// log cannot keep a tick spinning; leftovers wait for the next tick.
const maxGCPassesPerTick = 8

func (g *GCRunner) runOnce() {
	// Badger recommends looping while GC reports progress.
	for i := 0; i < maxGCPassesPerTick; i++ {
		err := g.cache.db.RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if errors.Is(err, badger.ErrNoRewrite) {
			return
		}
		g.logger.Warn("render cache value log GC failed", "error", err)
		return
	}
}
