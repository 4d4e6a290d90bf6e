// Package binfmt implements the binary field codec: a deterministic,
// sorted-map-key encoding of values used for grouping and duplicate-
// elimination keys, and a fixed-size key-compaction helper for RECEIVE's
// dedup set. Plan deserialization's wire format lives in pkgs/queryplan,
// since that format must match an external server protocol bit-for-bit
// while this one only needs internal determinism.
package binfmt

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// sentinel tags distinguish SQL NULL / JSON NULL / EMPTY / Enum in the
// canonical CBOR form, where a Go "nil" alone can't tell them apart.
type sentinel struct {
	Tag string `cbor:"t"`
	Ord int    `cbor:"o,omitempty"`
}

var canonicalMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("binfmt: building canonical CBOR encode mode: %v", err))
	}
	canonicalMode = m
}

// GroupKey encodes v deterministically, as required for grouping and dedup
// keys: map entries are written in sorted key order (the library's
// Canonical CBOR mode, RFC 7049 §3.9, sorts encoded map keys shorter-first,
// then bytewise) and numerics are normalized so a
// decimal equal to its double form encodes identically to that double.
func GroupKey(v value.Value, numHandler value.NumberHandler) ([]byte, error) {
	iface, err := toCanonical(v, numHandler)
	if err != nil {
		return nil, err
	}
	return canonicalMode.Marshal(iface)
}

// CompositeGroupKey encodes an ordered list of grouping values as one key.
// EMPTY excludes the row from non-DISTINCT grouping (the caller checks this
// before calling); DISTINCT represents EMPTY as SQL NULL in the key instead.
func CompositeGroupKey(vals []value.Value, distinct bool, numHandler value.NumberHandler) ([]byte, error) {
	parts := make([]interface{}, len(vals))
	for i, v := range vals {
		if distinct && v.IsEmpty() {
			v = value.SQLNull
		}
		iface, err := toCanonical(v, numHandler)
		if err != nil {
			return nil, fmt.Errorf("composite group key field %d: %w", i, err)
		}
		parts[i] = iface
	}
	return canonicalMode.Marshal(parts)
}

func toCanonical(v value.Value, numHandler value.NumberHandler) (interface{}, error) {
	switch v.Kind() {
	case value.KindSQLNull:
		return sentinel{Tag: "sql_null"}, nil
	case value.KindJSONNull:
		return sentinel{Tag: "json_null"}, nil
	case value.KindEmpty:
		return sentinel{Tag: "empty"}, nil
	case value.KindBoolean:
		return v.Bool(), nil
	case value.KindInteger:
		return v.Int(), nil
	case value.KindLong:
		return v.Long(), nil
	case value.KindFloat:
		return float64(v.Float32()), nil
	case value.KindDouble:
		return v.Double(), nil
	case value.KindNumber:
		norm := value.NormalizeForKey(v)
		if norm.Kind() == value.KindDouble {
			return norm.Double(), nil
		}
		return norm.Decimal().String(), nil
	case value.KindString:
		return v.String(), nil
	case value.KindBinary:
		return v.Bytes(), nil
	case value.KindTimestamp:
		return v.Time().UTC().Format("2006-01-02T15:04:05.999999999Z"), nil
	case value.KindEnum:
		return sentinel{Tag: "enum", Ord: v.Enum().Ordinal}, nil
	case value.KindArray:
		out := make([]interface{}, len(v.Elems()))
		for i, e := range v.Elems() {
			c, err := toCanonical(e, numHandler)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case value.KindMap:
		out := make(map[string]interface{}, len(v.MapKeys()))
		for _, k := range v.MapKeys() {
			mv, _ := v.MapGet(k)
			c, err := toCanonical(mv, numHandler)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case value.KindRecord:
		// Field order is part of a Record's identity, so encode as an
		// ordered list of [name, value] pairs rather than a sorted map.
		out := make([][2]interface{}, len(v.Fields()))
		for i, f := range v.Fields() {
			c, err := toCanonical(f.Value, numHandler)
			if err != nil {
				return nil, err
			}
			out[i] = [2]interface{}{f.Name, c}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("binfmt: unsupported value kind %v in key encoding", v.Kind())
	}
}

// sortedMapKeys is retained for callers that need a deterministic key order
// outside of CBOR's own canonical sort, e.g. when logging a group key.
func sortedMapKeys(keys []string) []string {
	out := make([]string, len(keys))
	copy(out, keys)
	sort.Strings(out)
	return out
}
