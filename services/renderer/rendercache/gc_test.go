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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGCRunner_RunOnceReturns(t *testing.T) {
	cache, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "cache")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	gc := NewGCRunner(cache, time.Minute, nil)
	done := make(chan struct{})
	go func() {
		gc.runOnce()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("value log GC pass did not finish")
	}
}

func TestGCRunner_StopEndsLoop(t *testing.T) {
	cache := openTestCache(t)

	gc := NewGCRunner(cache, 10*time.Millisecond, nil)
	finished := make(chan struct{})
	go func() {
		gc.Start(context.Background())
		close(finished)
	}()
	gc.Stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("GC loop did not exit after Stop")
	}
}
