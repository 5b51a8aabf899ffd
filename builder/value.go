package builder

import (
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

// Value is a fully built value owned by the caller. Use Materialize to move
// it into a typed Go variable, or Drop to release it.
type Value struct {
	shape    *shape.Shape
	data     ptr.Mut
	consumed bool
}

func (v *Value) Shape() *shape.Shape { return v.shape }

// Ptr returns the address of the value. It must not be used after the
// value was materialized or dropped.
func (v *Value) Ptr() ptr.Const { return v.data.AsConst() }

// Reader returns a read-only cursor over the value.
func (v *Value) Reader() reader.Value {
	return reader.New(v.shape, v.data.AsConst())
}

// Interface returns a copy of the value as an any.
func (v *Value) Interface() any {
	return v.data.Value(v.shape.Type).Interface()
}

// Drop runs the value's drop operation. Later calls do nothing.
func (v *Value) Drop() {
	if v.consumed {
		return
	}
	v.consumed = true
	dropWhole(v.shape, v.data)
}

// Materialize moves the value out as a T. The Value is consumed.
func Materialize[T any](v *Value) (T, error) {
	var zero T
	if v.consumed {
		return zero, errors.InvalidState(errors.PhaseBuild, nil, "value was already consumed")
	}
	if !shape.IsType[T](v.shape) {
		return zero, errors.WrongShape(errors.PhaseBuild, nil, shape.Of[T]().Name(), v.shape.Name())
	}
	out, _ := ptr.Read[T](v.data)
	v.consumed = true
	return out, nil
}
