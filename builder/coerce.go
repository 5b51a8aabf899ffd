package builder

import (
	"fmt"
	"math"
	"reflect"

	"fortio.org/safecast"

	"github.com/wippyai/typeshape/errors"
)

type number interface {
	int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// Coerce writes v converted to the current frame's type. Numbers convert
// when the value survives the conversion unchanged, strings go through the
// shape's Parse operation, and integers select the variant of a unit enum
// by discriminant. Values of the exact type, and values implementing an
// interface type, are written as with Put.
func (b *Builder) Coerce(v any) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	t := f.shape.Type
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return errors.WrongShape(errors.PhaseBuild, f.segs, f.shape.Name(), "nil")
	}
	if rv.Type() == t || t.Kind() == reflect.Interface && rv.Type().Implements(t) {
		b.write(f, rv)
		return nil
	}

	if ed := f.shape.Enum(); ed != nil && isInteger(rv.Kind()) {
		disc, err := convert[int64](rv)
		if err != nil {
			return errors.Overflow(errors.PhaseBuild, f.segs, v, "int64")
		}
		i, ok := ed.VariantByDiscriminant(disc)
		if !ok {
			return errors.Variant(errors.PhaseBuild, f.segs, f.shape.Name(), errors.NoSuchVariant, fmt.Sprint(v))
		}
		return b.SelectVariantByIndex(i)
	}

	if rv.Kind() == reflect.String && f.shape.Ops.Parse != nil {
		return b.Parse(rv.String())
	}

	if isNumber(rv.Kind()) && isNumber(t.Kind()) {
		out, err := convertKind(rv, t)
		if err != nil {
			return errors.New(errors.PhaseBuild, errors.KindOverflow).
				Path(b.Path()...).
				Expected(f.shape.Name()).
				Actual(rv.Type().String()).
				Value(v).
				Cause(err).
				Build()
		}
		b.write(f, out)
		return nil
	}

	if rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t) {
		b.write(f, rv.Convert(t))
		return nil
	}
	return errors.WrongShape(errors.PhaseBuild, f.segs, f.shape.Name(), rv.Type().String())
}

func isInteger(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Uintptr
}

func isNumber(k reflect.Kind) bool {
	return isInteger(k) || k == reflect.Float32 || k == reflect.Float64
}

func convertKind(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	var out any
	var err error
	switch t.Kind() {
	case reflect.Int:
		out, err = convert[int](rv)
	case reflect.Int8:
		out, err = convert[int8](rv)
	case reflect.Int16:
		out, err = convert[int16](rv)
	case reflect.Int32:
		out, err = convert[int32](rv)
	case reflect.Int64:
		out, err = convert[int64](rv)
	case reflect.Uint:
		out, err = convert[uint](rv)
	case reflect.Uint8:
		out, err = convert[uint8](rv)
	case reflect.Uint16:
		out, err = convert[uint16](rv)
	case reflect.Uint32:
		out, err = convert[uint32](rv)
	case reflect.Uint64, reflect.Uintptr:
		out, err = convert[uint64](rv)
	case reflect.Float32:
		out, err = narrowFloat(rv)
	case reflect.Float64:
		out, err = convert[float64](rv)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(out).Convert(t), nil
}

// narrowFloat converts to float32. Floats round to the nearest float32 and
// only fail when the value is out of float32 range.
func narrowFloat(rv reflect.Value) (float32, error) {
	if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
		return convert[float32](rv)
	}
	f := rv.Float()
	if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
		return 0, safecast.ErrOutOfRange
	}
	return float32(f), nil
}

// convert narrows or widens the number held by rv to T, failing when the
// value would change.
func convert[T number](rv reflect.Value) (T, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return safecast.Convert[T](rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return safecast.Convert[T](rv.Uint())
	default:
		return safecast.Convert[T](rv.Float())
	}
}
