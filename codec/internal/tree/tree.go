// Package tree converts between shaped values and the generic trees wire
// libraries produce and consume.
//
// Trees are built from nil, bool, int64, uint64, float64, string, []any
// and Object. Decoding also accepts the other numeric kinds, []byte,
// map[string]any and map[any]any, and values of the exact target type.
//
// Object members missing from the input decode as none for options and as
// empty lists and maps.
//
// Enums are externally tagged: a unit variant is its name, any other
// variant is a one-member Object mapping the name to its payload. A tuple
// variant with one field carries the field directly.
package tree

import (
	"cmp"
	"slices"
)

// Member is one key of an Object.
type Member struct {
	Key   string
	Value any
}

// Object is a string-keyed map that keeps its member order.
type Object []Member

func (o Object) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Map returns the members as a plain map, recursively.
func (o Object) Map() map[string]any {
	m := make(map[string]any, len(o))
	for _, mem := range o {
		m[mem.Key] = Plain(mem.Value)
	}
	return m
}

// Plain replaces every Object in node with a map[string]any, for libraries
// that cannot encode Object.
func Plain(node any) any {
	switch n := node.(type) {
	case Object:
		return n.Map()
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = Plain(v)
		}
		return out
	default:
		return node
	}
}

func sortMembers(o Object) {
	slices.SortFunc(o, func(a, b Member) int { return cmp.Compare(a.Key, b.Key) })
}

// Options tunes encoding and decoding. A nil Options selects the defaults.
type Options struct {
	// DisallowUnknownFields rejects object keys that name no field.
	DisallowUnknownFields bool
	// MaxDepth bounds nesting. Defaults to DefaultMaxDepth.
	MaxDepth int
}

const DefaultMaxDepth = 256

func (o *Options) maxDepth() int {
	if o == nil || o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o *Options) strict() bool { return o != nil && o.DisallowUnknownFields }
