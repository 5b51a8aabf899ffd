package typeshape

import (
	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

// ShapeOf returns the shape of T, deriving and caching it on first use.
func ShapeOf[T any]() *shape.Shape {
	return shape.Of[T]()
}

// Construct builds a T by letting fill drive a builder over fresh memory.
// Whatever fill leaves initialized is dropped when it fails or when the
// value is incomplete.
func Construct[T any](fill func(b *builder.Builder) error) (T, error) {
	var zero T
	b, g := builder.AllocateFor[T]()
	defer g.Close()

	if err := fill(b); err != nil {
		return zero, err
	}
	v, err := b.Build()
	if err != nil {
		return zero, err
	}
	return builder.Materialize[T](v)
}

// Inspect returns a read-only view of *v.
func Inspect[T any](v *T) reader.Value {
	return reader.Of(v)
}
