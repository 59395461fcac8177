// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package apploader reads an app's build artifacts (loader tree plus
// asset manifests) from disk and keeps the loaded apps in a registry.
package apploader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"

	"github.com/AleutianAI/aileron/services/renderer/assets"
	"github.com/AleutianAI/aileron/services/renderer/routetree"
)

// Artifact file names inside an app directory.
const (
	LoaderTreeFile    = "loader-tree.json"
	BuildManifestFile = "build-manifest.json"
	FontManifestFile  = "font-manifest.json"
)

// App is one loaded application: its route tree and the manifests the
// renderer resolves assets against.
type App struct {
	// Name is the registry key, taken from the app directory name.
	Name string

	// Dir is the directory the artifacts were loaded from.
	Dir string

	// Tree is the root of the loader tree.
	Tree *routetree.LoaderTree

	// Build maps module paths to their CSS and JS chunks.
	Build *assets.BuildManifest

	// Fonts maps layout paths to preloadable fonts.
	Fonts *assets.FontManifest

	// Version is a digest of the artifact bytes. It changes on every
	// reload, so cache keys built with it never serve stale manifests.
	Version string
}

// Load reads an app's artifacts from dir.
//
// Description: Reads and decodes loader-tree.json, build-manifest.json
//
//	and font-manifest.json from the directory, computing a
//	content version over the raw bytes.
//
// Inputs: dir - the app directory containing the artifact files.
// Outputs: *App - the loaded app, named after the directory.
//
//	error - when any artifact is missing or fails to decode.
func Load(dir string) (*App, error) {
	treeRaw, err := os.ReadFile(filepath.Join(dir, LoaderTreeFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", LoaderTreeFile, err)
	}
	tree := &routetree.LoaderTree{}
	if err := json.Unmarshal(treeRaw, tree); err != nil {
		return nil, fmt.Errorf("decode %s: %w", LoaderTreeFile, err)
	}

	build, err := assets.LoadBuildManifest(filepath.Join(dir, BuildManifestFile))
	if err != nil {
		return nil, err
	}
	fonts, err := assets.LoadFontManifest(filepath.Join(dir, FontManifestFile))
	if err != nil {
		return nil, err
	}

	h := xxh3.New()
	_, _ = h.Write(treeRaw)
	for _, name := range []string{BuildManifestFile, FontManifestFile} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		_, _ = h.Write(raw)
	}

	return &App{
		Name:    filepath.Base(filepath.Clean(dir)),
		Dir:     dir,
		Tree:    tree,
		Build:   build,
		Fonts:   fonts,
		Version: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}
