// Package layout computes size, alignment and field offsets for Go types.
//
// The calculator follows the gc compiler's layout rules so that shapes
// declared by hand can be checked against the real type:
//   - Scalars: size equals alignment, except complex numbers which align to
//     their component
//   - Structs: fields laid out in order with padding for alignment; a
//     trailing zero-size field gets one byte of padding
//   - Arrays: element size times length, element alignment
//   - Slices, strings, interfaces: fixed headers of pointer-sized words
//
// # Usage
//
//	info := layout.NewCalculator().Calculate(reflect.TypeFor[T]())
//	// info.Size, info.Align, info.FieldOffs available
//
// This package is internal to shape.
package layout
