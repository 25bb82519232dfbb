// Package protocol models the parsed Siemens raw-data protocol tree and
// extracts acquisition parameters from it. A Protocol is an opaque nested
// mapping produced by the header parser (or supplied directly by a caller);
// this package never mutates it.
package protocol

// Protocol is a parsed protocol tree: string keys mapping to scalars
// (int64, float64, string), nested maps, or ordered []any sequences.
//
// All accessors are nil-safe and absence-tolerant: a missing key at any
// level resolves to the caller's default rather than an error, which is the
// documented behavior for optional header substructures.
type Protocol map[string]any

// Has reports whether the key exists at the top level.
func (p Protocol) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Map resolves a nested sub-tree, returning nil if any path element is
// missing or not a mapping.
func (p Protocol) Map(path ...string) Protocol {
	v, ok := p.lookup(path...)
	if !ok {
		return nil
	}
	return asMap(v)
}

// Float resolves a numeric leaf, returning def if the path is missing or the
// value is not numeric.
func (p Protocol) Float(def float64, path ...string) float64 {
	v, ok := p.lookup(path...)
	if !ok {
		return def
	}
	f, ok := asFloat(v)
	if !ok {
		return def
	}
	return f
}

// Int resolves an integer leaf, returning def if the path is missing or the
// value is not numeric. Float values truncate.
func (p Protocol) Int(def int, path ...string) int {
	v, ok := p.lookup(path...)
	if !ok {
		return def
	}
	f, ok := asFloat(v)
	if !ok {
		return def
	}
	return int(f)
}

// String resolves a string leaf, returning def if the path is missing or the
// value is not a string.
func (p Protocol) String(def string, path ...string) string {
	v, ok := p.lookup(path...)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Slice resolves an ordered sequence, returning nil if the path is missing
// or the value is not a sequence.
func (p Protocol) Slice(path ...string) []any {
	v, ok := p.lookup(path...)
	if !ok {
		return nil
	}
	s, ok := v.([]any)
	if !ok {
		return nil
	}
	return s
}

// SliceLen returns the length of the sequence at path, zero if absent.
func (p Protocol) SliceLen(path ...string) int {
	return len(p.Slice(path...))
}

// FloatAt resolves element i of the sequence at path as a number, returning
// def when the sequence is absent, too short, or holds a non-number.
func (p Protocol) FloatAt(def float64, i int, path ...string) float64 {
	s := p.Slice(path...)
	if i < 0 || i >= len(s) {
		return def
	}
	f, ok := asFloat(s[i])
	if !ok {
		return def
	}
	return f
}

// MapAt resolves element i of the sequence at path as a sub-tree, returning
// nil when the sequence is absent, too short, or holds a non-mapping.
func (p Protocol) MapAt(i int, path ...string) Protocol {
	s := p.Slice(path...)
	if i < 0 || i >= len(s) {
		return nil
	}
	return asMap(s[i])
}

func (p Protocol) lookup(path ...string) (any, bool) {
	var cur any = p
	for _, key := range path {
		m := asMap(cur)
		if m == nil {
			return nil, false
		}
		v, ok := m[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asMap(v any) Protocol {
	switch m := v.(type) {
	case Protocol:
		return m
	case map[string]any:
		return Protocol(m)
	default:
		return nil
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
