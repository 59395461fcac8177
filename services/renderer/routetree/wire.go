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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Wire formats.
//
// Segments travel as either a plain string ("dashboard", "__PAGE__?a=b")
// or a three-element array ["slug", "123", "d"] for resolved dynamic
// segments ("d" dynamic, "c" catch-all, "oc" optional catch-all).
//
// Router state travels as the positional tuple
//
//	[segment, {slot: state, ...}, null, marker|null, isRootLayout?]
//
// matching what clients already exchange. Parallel-slot objects preserve
// key order on both marshal and unmarshal; encoding/json's map handling
// would sort them, so both directions are hand-rolled.

// MarshalJSON renders the segment in wire form.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.IsDynamic() && s.IsResolved() {
		v := s.Value
		if len(s.Values) > 0 {
			v = strings.Join(s.Values, "/")
		}
		return json.Marshal([3]string{s.Param, v, s.Kind.wireCode()})
	}
	name := s.Name
	if s.Query != "" {
		name = s.Name + "?" + s.Query
	}
	return json.Marshal(name)
}

// UnmarshalJSON parses either wire form of a segment.
func (s *Segment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("segment: empty input")
	}
	if data[0] == '[' {
		var tuple [3]string
		if err := json.Unmarshal(data, &tuple); err != nil {
			return fmt.Errorf("segment: %w", err)
		}
		kind := kindFromWireCode(tuple[2])
		out := Segment{Param: tuple[0], Kind: kind}
		switch kind {
		case KindCatchAll, KindOptionalCatchAll:
			out.Name = "[..." + tuple[0] + "]"
			if kind == KindOptionalCatchAll {
				out.Name = "[" + out.Name + "]"
			}
			if tuple[1] != "" {
				out.Values = strings.Split(tuple[1], "/")
			}
		default:
			out.Name = "[" + tuple[0] + "]"
			out.Value = tuple[1]
		}
		*s = out
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	name, query, _ := strings.Cut(raw, "?")
	out := ParseSegmentName(name)
	out.Query = query
	*s = out
	return nil
}

// MarshalJSON renders the router state as its positional tuple.
func (s *RouterState) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	seg, err := json.Marshal(s.Segment)
	if err != nil {
		return nil, err
	}
	buf.Write(seg)
	buf.WriteByte(',')

	if err := marshalOrderedStates(&buf, &s.Parallel); err != nil {
		return nil, err
	}

	buf.WriteString(",null,")
	if s.Marker != "" {
		marker, err := json.Marshal(s.Marker)
		if err != nil {
			return nil, err
		}
		buf.Write(marker)
	} else {
		buf.WriteString("null")
	}
	if s.IsRootLayout {
		buf.WriteString(",true")
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalOrderedStates(buf *bytes.Buffer, cm *ChildMap[*RouterState]) error {
	buf.WriteByte('{')
	for i, key := range cm.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		child, _ := cm.Get(key)
		v, err := json.Marshal(child)
		if err != nil {
			return err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON parses the positional tuple, tolerating short tuples and
// null members - client-submitted state is best-effort, never fatal
// beyond basic JSON validity.
func (s *RouterState) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("router state: %w", err)
	}
	out := RouterState{}
	if len(elems) > 0 && !isJSONNull(elems[0]) {
		if err := json.Unmarshal(elems[0], &out.Segment); err != nil {
			return fmt.Errorf("router state: %w", err)
		}
	}
	if len(elems) > 1 && !isJSONNull(elems[1]) {
		if err := unmarshalOrderedStates(elems[1], &out.Parallel); err != nil {
			return fmt.Errorf("router state: %w", err)
		}
	}
	// elems[2] is a reserved slot on the wire; ignored.
	if len(elems) > 3 && !isJSONNull(elems[3]) {
		if err := json.Unmarshal(elems[3], &out.Marker); err != nil {
			return fmt.Errorf("router state: %w", err)
		}
	}
	if len(elems) > 4 && !isJSONNull(elems[4]) {
		if err := json.Unmarshal(elems[4], &out.IsRootLayout); err != nil {
			return fmt.Errorf("router state: %w", err)
		}
	}
	*s = out
	return nil
}

// unmarshalOrderedStates decodes a {slot: state, ...} object preserving
// key order via the token stream.
func unmarshalOrderedStates(data []byte, cm *ChildMap[*RouterState]) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var child *RouterState
		if err := dec.Decode(&child); err != nil {
			return err
		}
		cm.Set(key, child)
	}
	_, err = dec.Token() // closing '}'
	return err
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// loaderTreeWire is the on-disk manifest shape for one loader-tree node.
type loaderTreeWire struct {
	Segment  string            `json:"segment"`
	Modules  map[string]string `json:"modules,omitempty"`
	Parallel json.RawMessage   `json:"parallel,omitempty"`
}

// UnmarshalJSON parses the manifest form of a loader tree. The "parallel"
// object's key order becomes the node's slot iteration order.
func (t *LoaderTree) UnmarshalJSON(data []byte) error {
	var wire loaderTreeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("loader tree: %w", err)
	}
	out := LoaderTree{Segment: ParseSegmentName(wire.Segment)}
	for name, path := range wire.Modules {
		ref := &ModuleRef{Path: path}
		switch name {
		case "layout":
			out.Modules.Layout = ref
		case "loading":
			out.Modules.Loading = ref
		case "page":
			out.Modules.Page = ref
		case "template":
			out.Modules.Template = ref
		case "not-found":
			out.Modules.NotFound = ref
		default:
			return fmt.Errorf("loader tree: unknown module kind %q", name)
		}
	}
	if len(wire.Parallel) > 0 && !isJSONNull(wire.Parallel) {
		if err := unmarshalOrderedTrees(wire.Parallel, &out.Parallel); err != nil {
			return fmt.Errorf("loader tree: %w", err)
		}
	}
	*t = out
	return nil
}

func unmarshalOrderedTrees(data []byte, cm *ChildMap[*LoaderTree]) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var child *LoaderTree
		if err := dec.Decode(&child); err != nil {
			return err
		}
		cm.Set(key, child)
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON renders the manifest form, preserving slot order.
func (t *LoaderTree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"segment":`)
	name, err := json.Marshal(t.Segment.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(name)

	modules := map[string]string{}
	for name, ref := range map[string]*ModuleRef{
		"layout":    t.Modules.Layout,
		"loading":   t.Modules.Loading,
		"page":      t.Modules.Page,
		"template":  t.Modules.Template,
		"not-found": t.Modules.NotFound,
	} {
		if ref != nil {
			modules[name] = ref.Path
		}
	}
	if len(modules) > 0 {
		buf.WriteString(`,"modules":`)
		m, err := json.Marshal(modules)
		if err != nil {
			return nil, err
		}
		buf.Write(m)
	}
	if t.Parallel.Len() > 0 {
		buf.WriteString(`,"parallel":{`)
		for i, key := range t.Parallel.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			child, _ := t.Parallel.Get(key)
			v, err := json.Marshal(child)
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
