// Package msgpack encodes shaped values as MessagePack using
// github.com/vmihailenco/msgpack/v5.
package msgpack

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

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
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := write(enc, node); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "msgpack")
	}
	return buf.Bytes(), nil
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
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	dec.SetMapDecoder(func(d *msgpack.Decoder) (any, error) {
		return d.DecodeUntypedMap()
	})
	node, err := dec.DecodeInterface()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "msgpack")
	}
	return tree.DecodeShape(s, node, nil)
}

// write emits node keeping the member order of objects.
func write(enc *msgpack.Encoder, node any) error {
	switch n := node.(type) {
	case tree.Object:
		if err := enc.EncodeMapLen(len(n)); err != nil {
			return err
		}
		for _, m := range n {
			if err := enc.EncodeString(m.Key); err != nil {
				return err
			}
			if err := write(enc, m.Value); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if err := enc.EncodeArrayLen(len(n)); err != nil {
			return err
		}
		for _, item := range n {
			if err := write(enc, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(n)
	}
}
