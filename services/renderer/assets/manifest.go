// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assets maps component modules to the CSS, JS, and font files
// they need, and tracks which of those have already been injected on a
// render path so each asset is emitted exactly once per branch.
package assets

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry lists the build outputs attached to one component module.
type ManifestEntry struct {
	// CSSFiles are stylesheet paths emitted for the module.
	CSSFiles []string `json:"css,omitempty"`

	// JSFiles are script chunk paths emitted for the module.
	JSFiles []string `json:"js,omitempty"`
}

// BuildManifest maps module paths (as referenced by the loader tree) to
// their build outputs. Immutable after load.
type BuildManifest struct {
	Entries map[string]ManifestEntry `json:"entries"`
}

// FontPreload describes one font file a module needs preloaded.
type FontPreload struct {
	// Path is the font file path.
	Path string `json:"path"`

	// Type is the MIME subtype, e.g. "woff2".
	Type string `json:"type"`
}

// FontManifest maps module paths to the fonts they reference.
type FontManifest struct {
	AppFonts map[string][]FontPreload `json:"appFonts"`
}

// LoadBuildManifest reads a build manifest from disk.
func LoadBuildManifest(path string) (*BuildManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read build manifest: %w", err)
	}
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse build manifest %s: %w", path, err)
	}
	return &m, nil
}

// LoadFontManifest reads a font manifest from disk.
func LoadFontManifest(path string) (*FontManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font manifest: %w", err)
	}
	var m FontManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse font manifest %s: %w", path, err)
	}
	return &m, nil
}
