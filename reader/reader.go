package reader

import (
	"iter"
	"reflect"
	"strings"
	"unsafe"

	"github.com/zeebo/xxh3"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// Value is a read-only cursor over a valid value of a shape.
type Value struct {
	shape *shape.Shape
	ptr   ptr.Const
}

// New returns a cursor over the value of shape s at p.
func New(s *shape.Shape, p ptr.Const) Value {
	if s == nil {
		panic("reader: nil shape")
	}
	return Value{shape: s, ptr: p}
}

// Of returns a cursor over *v.
func Of[T any](v *T) Value {
	return New(shape.Of[T](), ptr.To(v))
}

func (v Value) Shape() *shape.Shape { return v.shape }
func (v Value) Ptr() ptr.Const      { return v.ptr }
func (v Value) Kind() shape.DefKind { return v.shape.Kind() }

// Identity names a value by its type and address. Traversals of
// self-referential data use it to detect cycles.
type Identity struct {
	Type reflect.Type
	Addr unsafe.Pointer
}

func (v Value) Identity() Identity {
	return Identity{Type: v.shape.Type, Addr: v.ptr.Pointer()}
}

// Interface returns a copy of the value.
func (v Value) Interface() any {
	return v.ptr.Value(v.shape.Type).Interface()
}

// Reflect returns the value as an unaddressable reflect.Value.
func (v Value) Reflect() reflect.Value {
	return reflect.ValueOf(v.Interface())
}

// Get returns a copy of the value as a T.
func Get[T any](v Value) (T, error) {
	var zero T
	if !shape.IsType[T](v.shape) {
		return zero, errors.WrongShape(errors.PhaseRead, nil, shape.Of[T]().Name(), v.shape.Name())
	}
	return *ptr.Deref[T](v.ptr), nil
}

func (v Value) missing(capability string) error {
	return errors.MissingCapability(errors.PhaseRead, v.shape.Name(), capability)
}

func (v Value) Display() (string, error) {
	if v.shape.Ops.Display == nil {
		return "", v.missing("display")
	}
	var b strings.Builder
	err := v.shape.Ops.Display(v.ptr, &b)
	return b.String(), err
}

func (v Value) Debug() (string, error) {
	if v.shape.Ops.Debug == nil {
		return "", v.missing("debug")
	}
	var b strings.Builder
	err := v.shape.Ops.Debug(v.ptr, &b)
	return b.String(), err
}

func (v Value) sameShape(o Value) error {
	if !v.shape.Is(o.shape) {
		return errors.WrongShape(errors.PhaseRead, nil, v.shape.Name(), o.shape.Name())
	}
	return nil
}

func (v Value) Equal(o Value) (bool, error) {
	if err := v.sameShape(o); err != nil {
		return false, err
	}
	if v.shape.Ops.Equal == nil {
		return false, v.missing("equal")
	}
	return v.shape.Ops.Equal(v.ptr, o.ptr), nil
}

func (v Value) Compare(o Value) (int, error) {
	if err := v.sameShape(o); err != nil {
		return 0, err
	}
	if v.shape.Ops.Compare == nil {
		return 0, v.missing("compare")
	}
	return v.shape.Ops.Compare(v.ptr, o.ptr), nil
}

// Hash returns the XXH3 hash of the value.
func (v Value) Hash() (uint64, error) {
	if v.shape.Ops.Hash == nil {
		return 0, v.missing("hash")
	}
	h := xxh3.New()
	v.shape.Ops.Hash(v.ptr, h)
	return h.Sum64(), nil
}

// Invariants reports whether the value satisfies its invariants. Values
// without an invariant check always do.
func (v Value) Invariants() bool {
	if v.shape.Ops.Invariants == nil {
		return true
	}
	return v.shape.Ops.Invariants(v.ptr)
}

func (v Value) wasNotA(expected string) error {
	return errors.WasNotA(errors.PhaseRead, nil, expected, v.shape.Kind().String())
}

func fieldValues(fields []shape.Field, base ptr.Const) iter.Seq2[shape.Field, Value] {
	return func(yield func(shape.Field, Value) bool) {
		for i := range fields {
			f := fields[i]
			if !yield(f, New(f.Shape(), base.Field(f.Offset))) {
				return
			}
		}
	}
}
