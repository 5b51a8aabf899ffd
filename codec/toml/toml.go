// Package toml encodes shaped values as TOML using github.com/BurntSushi/toml.
//
// A TOML document is a table, so only values encoding to an object (structs,
// struct-like enum payloads and string-keyed maps) can be marshaled at the
// top level. TOML has no null: absent options are left out.
package toml

import (
	"bytes"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/codec/internal/tree"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

// Marshal encodes *v.
func Marshal[T any](v *T) ([]byte, error) {
	return MarshalValue(reader.Of(v))
}

// MarshalValue encodes the value v reads.
func MarshalValue(v reader.Value) ([]byte, error) {
	node, err := tree.Encode(v, nil)
	if err != nil {
		return nil, err
	}
	obj, ok := node.(tree.Object)
	if !ok {
		return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Expected("table").
			Actual(v.Shape().Name()).
			Detail("a TOML document must be a table").
			Build()
	}
	doc, err := table(obj)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "toml")
	}
	return buf.Bytes(), nil
}

func table(obj tree.Object) (map[string]any, error) {
	m := make(map[string]any, len(obj))
	for _, mem := range obj {
		if mem.Value == nil {
			continue
		}
		v, err := item(mem.Value)
		if err != nil {
			return nil, err
		}
		m[mem.Key] = v
	}
	return m, nil
}

func item(node any) (any, error) {
	switch n := node.(type) {
	case tree.Object:
		return table(n)
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			if v == nil {
				return nil, errors.Unsupported(errors.PhaseEncode, "TOML arrays cannot hold null")
			}
			iv, err := item(v)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	}
	return node, nil
}

// Unmarshal decodes data into a new T.
func Unmarshal[T any](data []byte) (T, error) {
	var zero T
	v, err := UnmarshalShape(data, shape.Of[T]())
	if err != nil {
		return zero, err
	}
	return builder.Materialize[T](v)
}

// UnmarshalShape decodes data into a new value of s.
func UnmarshalShape(data []byte, s *shape.Shape) (*builder.Value, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "toml")
	}
	return tree.DecodeShape(s, doc, nil)
}
