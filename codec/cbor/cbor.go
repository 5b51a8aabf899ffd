// Package cbor encodes shaped values as CBOR using github.com/fxamacker/cbor/v2.
// Map keys are written in canonical order.
package cbor

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/codec/internal/tree"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

var (
	encMode = mustEncMode(cbor.EncOptions{Sort: cbor.SortCanonical})
	decMode = mustDecMode(cbor.DecOptions{MaxNestedLevels: tree.DefaultMaxDepth})
)

func mustEncMode(o cbor.EncOptions) cbor.EncMode {
	em, err := o.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode(o cbor.DecOptions) cbor.DecMode {
	dm, err := o.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

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
	data, err := encMode.Marshal(tree.Plain(node))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "cbor")
	}
	return data, nil
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
	var node any
	if err := decMode.Unmarshal(data, &node); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "cbor")
	}
	return tree.DecodeShape(s, node, nil)
}
