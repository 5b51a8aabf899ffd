// Package json encodes shaped values as JSON using github.com/goccy/go-json.
package json

import (
	"bytes"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/codec/internal/tree"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

// Config tunes encoding and decoding. A nil Config selects compact output
// and ignores unknown fields.
type Config struct {
	// Indent, when set, pretty-prints with this per-level indent.
	Indent string
	// DisallowUnknownFields rejects object keys that name no field.
	DisallowUnknownFields bool
}

func (c *Config) tree() *tree.Options {
	if c == nil {
		return nil
	}
	return &tree.Options{DisallowUnknownFields: c.DisallowUnknownFields}
}

// Marshal encodes *v.
func Marshal[T any](v *T) ([]byte, error) {
	return (*Config)(nil).Marshal(reader.Of(v))
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
	return (*Config)(nil).UnmarshalShape(data, s)
}

func (c *Config) Marshal(v reader.Value) ([]byte, error) {
	node, err := tree.Encode(v, c.tree())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := write(&buf, node); err != nil {
		return nil, err
	}
	if c == nil || c.Indent == "" {
		return buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := gojson.Indent(&out, buf.Bytes(), "", c.Indent); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "indent")
	}
	return out.Bytes(), nil
}

func (c *Config) UnmarshalShape(data []byte, s *shape.Shape) (*builder.Value, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var node any
	if err := dec.Decode(&node); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "json")
	}
	if dec.More() {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "trailing data after JSON value")
	}
	return tree.DecodeShape(s, numbers(node), c.tree())
}

// write emits node keeping the member order of objects.
func write(buf *bytes.Buffer, node any) error {
	switch n := node.(type) {
	case tree.Object:
		buf.WriteByte('{')
		for i, m := range n {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := gojson.Marshal(m.Key)
			if err != nil {
				return errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "key "+m.Key)
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := write(buf, m.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range n {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := gojson.Marshal(n)
		if err != nil {
			return errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "json")
		}
		buf.Write(b)
	}
	return nil
}

// numbers replaces each json.Number with the narrowest of int64, uint64 and
// float64 that holds it.
func numbers(node any) any {
	switch n := node.(type) {
	case gojson.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return u
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return string(n)
	case map[string]any:
		for k, v := range n {
			n[k] = numbers(v)
		}
	case []any:
		for i, v := range n {
			n[i] = numbers(v)
		}
	}
	return node
}
