// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assets

// CollectLayoutAssets appends the module's stylesheet and script paths
// into the provided sets and returns the paths that were new at this
// level. Paths already injected by an ancestor are skipped, which is what
// keeps a stylesheet from being emitted twice on one branch.
//
// Script chunks are collected for layouts only: page-level chunks ship
// with the page payload itself.
func CollectLayoutAssets(m *BuildManifest, modulePath string, css, js Set, isLayout bool) (newCSS, newJS []string) {
	if m == nil {
		return nil, nil
	}
	entry, ok := m.Entries[modulePath]
	if !ok {
		return nil, nil
	}
	for _, f := range entry.CSSFiles {
		if css.Add(f) {
			newCSS = append(newCSS, f)
		}
	}
	if isLayout {
		for _, f := range entry.JSFiles {
			if js.Add(f) {
				newJS = append(newJS, f)
			}
		}
	}
	return newCSS, newJS
}

// CollectPreloadableFonts appends the module's font preload paths into
// the provided set and returns the ones that were new at this level.
func CollectPreloadableFonts(m *FontManifest, modulePath string, fonts Set) (newFonts []FontPreload) {
	if m == nil {
		return nil
	}
	for _, f := range m.AppFonts[modulePath] {
		if fonts.Add(f.Path) {
			newFonts = append(newFonts, f)
		}
	}
	return newFonts
}
