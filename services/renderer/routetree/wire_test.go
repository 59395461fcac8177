// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routetree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterStateWire_PreservesSlotOrder(t *testing.T) {
	raw := `["", {"sidebar": ["nav", {}, null, null], "children": ["blog", {}, null, null]}, null, null, true]`

	var state RouterState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))

	assert.Equal(t, []string{"sidebar", "children"}, state.Parallel.Keys(),
		"slot order must survive decoding")
	assert.True(t, state.IsRootLayout)

	out, err := json.Marshal(&state)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))

	// Order must also survive byte-for-byte, not just structurally.
	var re RouterState
	require.NoError(t, json.Unmarshal(out, &re))
	assert.Equal(t, []string{"sidebar", "children"}, re.Parallel.Keys())
}

func TestRouterStateWire_Markers(t *testing.T) {
	raw := `["blog", {}, null, "refetch"]`

	var state RouterState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))
	assert.True(t, state.WantsRefetch())

	out, err := json.Marshal(&state)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestRouterStateWire_DynamicSegmentTuple(t *testing.T) {
	raw := `[["slug", "hello", "d"], {}, null, null]`

	var state RouterState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))
	assert.Equal(t, "slug", state.Segment.Param)
	assert.Equal(t, "hello", state.Segment.Value)
	assert.Equal(t, KindDynamic, state.Segment.Kind)

	out, err := json.Marshal(&state)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestRouterStateWire_CatchAllTuple(t *testing.T) {
	raw := `[["rest", "a/b", "c"], {}, null, null]`

	var state RouterState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))
	assert.Equal(t, []string{"a", "b"}, state.Segment.Values)
	assert.Equal(t, KindCatchAll, state.Segment.Kind)
}

func TestRouterStateWire_PageSegmentWithQuery(t *testing.T) {
	raw := `["__PAGE__?a=1", {}, null, null]`

	var state RouterState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))
	assert.True(t, state.Segment.IsPage())
	assert.Equal(t, "a=1", state.Segment.Query)

	out, err := json.Marshal(&state)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestRouterStateWire_ShortTupleTolerated(t *testing.T) {
	var state RouterState
	require.NoError(t, json.Unmarshal([]byte(`["blog", {}]`), &state))
	assert.Equal(t, "blog", state.Segment.Name)
	assert.False(t, state.WantsRefetch())
}

func TestLoaderTreeWire_RoundTrip(t *testing.T) {
	raw := `{
		"segment": "",
		"modules": {"layout": "app/layout"},
		"parallel": {
			"sidebar": {"segment": "nav", "modules": {"page": "app/@sidebar/nav/page"}},
			"children": {
				"segment": "blog",
				"modules": {"loading": "app/blog/loading"},
				"parallel": {
					"children": {"segment": "__PAGE__", "modules": {"page": "app/blog/page"}}
				}
			}
		}
	}`

	var tree LoaderTree
	require.NoError(t, json.Unmarshal([]byte(raw), &tree))

	assert.Equal(t, []string{"sidebar", "children"}, tree.Parallel.Keys())
	require.NotNil(t, tree.Modules.Layout)
	assert.Equal(t, "app/layout", tree.Modules.Layout.Path)

	blog, ok := tree.Parallel.Get("children")
	require.True(t, ok)
	require.NotNil(t, blog.Modules.Loading)

	out, err := json.Marshal(&tree)
	require.NoError(t, err)

	var re LoaderTree
	require.NoError(t, json.Unmarshal(out, &re))
	assert.Equal(t, []string{"sidebar", "children"}, re.Parallel.Keys())
	reblog, ok := re.Parallel.Get("children")
	require.True(t, ok)
	require.NotNil(t, reblog.Modules.Loading)
	assert.Equal(t, "app/blog/loading", reblog.Modules.Loading.Path)
}

func TestLoaderTreeWire_UnknownModuleKind(t *testing.T) {
	raw := `{"segment": "x", "modules": {"widget": "app/widget"}}`

	var tree LoaderTree
	err := json.Unmarshal([]byte(raw), &tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget")
}
