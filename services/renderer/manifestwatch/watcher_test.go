// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package manifestwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/aileron/services/renderer/apploader"
)

const testLoaderTree = `{
  "segment": "",
  "modules": {"layout": "app/layout"},
  "parallel": {
    "children": {"segment": "__PAGE__", "modules": {"page": "app/page"}}
  }
}`

type countingInvalidator struct {
	calls atomic.Int64
}

func (c *countingInvalidator) InvalidateAll() error {
	c.calls.Add(1)
	return nil
}

func writeApp(t *testing.T, dir, buildManifest string) {
	t.Helper()
	files := map[string]string{
		apploader.LoaderTreeFile:    testLoaderTree,
		apploader.BuildManifestFile: buildManifest,
		apploader.FontManifestFile:  `{"appFonts": {}}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
}

func TestWatcher_ReloadsOnArtifactChange(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeApp(t, dir, `{"entries": {"app/layout": {"cssFiles": ["v1.css"]}}}`)

	registry := apploader.NewRegistry()
	app, err := apploader.Load(dir)
	require.NoError(t, err)
	registry.Put(app)

	invalidator := &countingInvalidator{}
	reloaded := make(chan string, 1)
	watcher, err := New(registry, invalidator, func(name string) {
		reloaded <- name
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Stop() })
	require.NoError(t, watcher.Watch("shop", dir))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go watcher.Start(ctx)

	changed := `{"entries": {"app/layout": {"cssFiles": ["v2.css"]}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, apploader.BuildManifestFile), []byte(changed), 0644))

	select {
	case name := <-reloaded:
		assert.Equal(t, "shop", name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	got, ok := registry.Get("shop")
	require.True(t, ok)
	assert.NotEqual(t, app.Version, got.Version)
	assert.Equal(t, []string{"v2.css"}, got.Build.Entries["app/layout"].CSSFiles)
	assert.GreaterOrEqual(t, invalidator.calls.Load(), int64(1))
}

func TestWatcher_KeepsSnapshotOnBrokenArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeApp(t, dir, `{"entries": {}}`)

	registry := apploader.NewRegistry()
	app, err := apploader.Load(dir)
	require.NoError(t, err)
	registry.Put(app)

	watcher, err := New(registry, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Stop() })
	require.NoError(t, watcher.Watch("shop", dir))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go watcher.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, apploader.LoaderTreeFile), []byte(`{broken`), 0644))

	// Give the debounced reload time to run and fail.
	time.Sleep(500 * time.Millisecond)

	got, ok := registry.Get("shop")
	require.True(t, ok)
	assert.Equal(t, app.Version, got.Version, "broken artifact must not replace the loaded app")
}

func TestWatcher_IgnoresUnwatchedPaths(t *testing.T) {
	registry := apploader.NewRegistry()
	watcher, err := New(registry, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Stop() })

	_, ok := watcher.appForPath("/somewhere/else/loader-tree.json")
	assert.False(t, ok)
}

func TestWatcher_SiblingPrefixDirsResolveIndependently(t *testing.T) {
	base := t.TempDir()
	registry := apploader.NewRegistry()
	watcher, err := New(registry, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Stop() })

	for _, name := range []string{"shop", "shopfront"} {
		dir := filepath.Join(base, name)
		require.NoError(t, os.MkdirAll(dir, 0755))
		writeApp(t, dir, `{"entries": {}}`)
		require.NoError(t, watcher.Watch(name, dir))
	}

	name, ok := watcher.appForPath(filepath.Join(base, "shopfront", apploader.LoaderTreeFile))
	require.True(t, ok)
	assert.Equal(t, "shopfront", name, "event inside shopfront must resolve to shopfront")

	name, ok = watcher.appForPath(filepath.Join(base, "shop", apploader.LoaderTreeFile))
	require.True(t, ok)
	assert.Equal(t, "shop", name)

	// A dir that merely shares a watched dir's name as a string prefix
	// must not resolve to it.
	solo, err := New(registry, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = solo.Stop() })
	require.NoError(t, solo.Watch("shop", filepath.Join(base, "shop")))

	_, ok = solo.appForPath(filepath.Join(base, "shopfront", apploader.LoaderTreeFile))
	assert.False(t, ok)
}
