package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// MetaKind discriminates the variants a metadata node can hold.
type MetaKind int

const (
	MetaInvalid MetaKind = iota
	MetaString
	MetaNumber
	MetaBool
	MetaList
	MetaMap
)

// MetaValue is one node of a record's metadata document. Metadata is a
// bounded tree of strings, numbers, booleans, lists and maps; exactly one
// variant is populated per node, selected by Kind.
type MetaValue struct {
	Kind MetaKind
	Str  string
	Num  float64
	Bool bool
	List []MetaValue
	Map  map[string]MetaValue
}

// MetaStr wraps a string leaf.
func MetaStr(s string) MetaValue { return MetaValue{Kind: MetaString, Str: s} }

// MetaNum wraps a numeric leaf.
func MetaNum(n float64) MetaValue { return MetaValue{Kind: MetaNumber, Num: n} }

// MetaBoolVal wraps a boolean leaf.
func MetaBoolVal(b bool) MetaValue { return MetaValue{Kind: MetaBool, Bool: b} }

// MarshalJSON renders the populated variant as plain JSON.
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case MetaString:
		return json.Marshal(v.Str)
	case MetaNumber:
		return json.Marshal(v.Num)
	case MetaBool:
		return json.Marshal(v.Bool)
	case MetaList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case MetaMap:
		if len(v.Map) == 0 {
			return []byte("{}"), nil
		}
		// Deterministic key order so stored documents are stable.
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf := []byte("{")
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(v.Map[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = append(buf, vb...)
		}
		return append(buf, '}'), nil
	default:
		return nil, fmt.Errorf("cannot marshal metadata node of kind %d", v.Kind)
	}
}

// Depth reports the nesting depth of the node. Leaves are depth 1.
func (v MetaValue) Depth() int {
	switch v.Kind {
	case MetaList:
		max := 0
		for _, item := range v.List {
			if d := item.Depth(); d > max {
				max = d
			}
		}
		return max + 1
	case MetaMap:
		max := 0
		for _, item := range v.Map {
			if d := item.Depth(); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 1
	}
}
