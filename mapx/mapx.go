// Package mapx evaluates small jq-style paths over JSON-shaped data
// (map[string]any, []any and primitives).
//
// Supported syntax:
//
//	.foo.bar         object field access
//	.foo[0]          array index, negative counts from the end
//	.foo[*] / .*     wildcard over arrays / objects
//	.["odd key"]     quoted keys
//	..foo            recursive descent, then continue
package mapx

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrNoMatch = errors.New("no value found for path")

type segmentKind int

const (
	segField segmentKind = iota
	segIndex
	segWildcard
	segRecursive
)

type segment struct {
	kind  segmentKind
	field string
	index int
}

// Normalize turns any JSON-encodable value into its generic form so paths
// can address struct fields by their JSON names.
func Normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not normalize value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("could not normalize value: %w", err)
	}
	return out, nil
}

// Get returns all values matching path. Missing parts yield no results;
// only a malformed path is an error.
func Get(root any, path string) ([]any, error) {
	segs, err := parse(path)
	if err != nil {
		return nil, err
	}
	frontier := []any{root}
	for _, s := range segs {
		var next []any
		for _, node := range frontier {
			next = append(next, apply(node, s)...)
		}
		frontier = next
	}
	return frontier, nil
}

// GetOne expects exactly one match.
func GetOne(root any, path string) (any, error) {
	vals, err := Get(root, path)
	if err != nil {
		return nil, err
	}
	switch len(vals) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		return vals[0], nil
	default:
		return nil, fmt.Errorf("path matched %d values; expected one", len(vals))
	}
}

func apply(node any, s segment) []any {
	switch s.kind {
	case segField:
		if m, ok := node.(map[string]any); ok {
			if v, ok := m[s.field]; ok {
				return []any{v}
			}
		}
	case segIndex:
		if arr, ok := node.([]any); ok {
			i := s.index
			if i < 0 {
				i += len(arr)
			}
			if i >= 0 && i < len(arr) {
				return []any{arr[i]}
			}
		}
	case segWildcard:
		switch t := node.(type) {
		case []any:
			return append([]any(nil), t...)
		case map[string]any:
			out := make([]any, 0, len(t))
			for _, k := range sortedKeys(t) {
				out = append(out, t[k])
			}
			return out
		}
	case segRecursive:
		return descendants(node)
	}
	return nil
}

// descendants lists node and everything below it, depth first, object
// members in key order.
func descendants(node any) []any {
	out := []any{node}
	switch t := node.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			out = append(out, descendants(t[k])...)
		}
	case []any:
		for _, v := range t {
			out = append(out, descendants(v)...)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ----------------- parser -----------------

func parse(path string) ([]segment, error) {
	p := strings.TrimSpace(path)
	if p == "" || p == "." {
		return nil, nil
	}
	var segs []segment
	i := 0
	for i < len(p) {
		switch {
		case strings.HasPrefix(p[i:], ".."):
			segs = append(segs, segment{kind: segRecursive})
			i += 2
			if i < len(p) && isIdentStart(p[i]) {
				name, n := readIdent(p[i:])
				segs = append(segs, segment{kind: segField, field: name})
				i += n
			}
		case p[i] == '.':
			i++
			switch {
			case i < len(p) && p[i] == '*':
				segs = append(segs, segment{kind: segWildcard})
				i++
			case i < len(p) && isIdentStart(p[i]):
				name, n := readIdent(p[i:])
				segs = append(segs, segment{kind: segField, field: name})
				i += n
			case i < len(p) && p[i] == '[':
			default:
				return nil, fmt.Errorf("parse error at %d: field name expected after '.'", i)
			}
		case p[i] == '[':
			end := strings.IndexByte(p[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("parse error at %d: unclosed '['", i)
			}
			seg, err := parseBracket(strings.TrimSpace(p[i+1 : i+end]))
			if err != nil {
				return nil, fmt.Errorf("parse error at %d: %w", i, err)
			}
			segs = append(segs, seg)
			i += end + 1
		case isIdentStart(p[i]) && len(segs) == 0:
			name, n := readIdent(p[i:])
			segs = append(segs, segment{kind: segField, field: name})
			i += n
		default:
			return nil, fmt.Errorf("parse error at %d: unexpected character %q", i, p[i])
		}
	}
	return segs, nil
}

func parseBracket(inner string) (segment, error) {
	if inner == "*" {
		return segment{kind: segWildcard}, nil
	}
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		if inner[0] == '"' {
			key, err := strconv.Unquote(inner)
			if err != nil {
				return segment{}, fmt.Errorf("invalid quoted key: %w", err)
			}
			return segment{kind: segField, field: key}, nil
		}
		return segment{kind: segField, field: inner[1 : len(inner)-1]}, nil
	}
	idx, err := strconv.Atoi(inner)
	if err != nil {
		return segment{}, fmt.Errorf("number, '*' or quoted key expected inside []")
	}
	return segment{kind: segIndex, index: idx}, nil
}

func readIdent(s string) (string, int) {
	n := 0
	for n < len(s) && isIdentPart(s[n]) {
		n++
	}
	return s[:n], n
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || b == '-' || (b >= '0' && b <= '9')
}
