package shape

import (
	"reflect"
	"strconv"

	"fortio.org/safecast"

	"github.com/wippyai/typeshape/ptr"
)

// Integer is the set of types usable as enum discriminants.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// WriteDiscriminant stores disc at the discriminant offset using the enum's
// representation width. A discriminant that does not fit is a contract
// violation and panics.
func (d *EnumDef) WriteDiscriminant(v ptr.Uninit, disc int64) {
	p := v.Field(d.DiscOffset).Pointer()
	switch d.Repr {
	case ReprU8:
		*(*uint8)(p) = safecast.MustConvert[uint8](disc)
	case ReprU16:
		*(*uint16)(p) = safecast.MustConvert[uint16](disc)
	case ReprU32:
		*(*uint32)(p) = safecast.MustConvert[uint32](disc)
	case ReprU64:
		*(*uint64)(p) = safecast.MustConvert[uint64](disc)
	case ReprI8:
		*(*int8)(p) = safecast.MustConvert[int8](disc)
	case ReprI16:
		*(*int16)(p) = safecast.MustConvert[int16](disc)
	case ReprI32:
		*(*int32)(p) = safecast.MustConvert[int32](disc)
	case ReprI64:
		*(*int64)(p) = disc
	case ReprUint:
		*(*uint)(p) = safecast.MustConvert[uint](disc)
	case ReprInt:
		*(*int)(p) = safecast.MustConvert[int](disc)
	case ReprUintptr:
		*(*uintptr)(p) = safecast.MustConvert[uintptr](disc)
	default:
		panic("shape: unknown enum representation " + d.Repr.String())
	}
}

// ReadDiscriminant loads the discriminant and widens it to int64. Unsigned
// values above MaxInt64 keep their bits and read negative. No declared
// variant can match them, since discriminants are int64 and unsigned
// representations reject negative ones at derivation.
func (d *EnumDef) ReadDiscriminant(v ptr.Const) int64 {
	p := v.Field(d.DiscOffset).Pointer()
	switch d.Repr {
	case ReprU8:
		return int64(*(*uint8)(p))
	case ReprU16:
		return int64(*(*uint16)(p))
	case ReprU32:
		return int64(*(*uint32)(p))
	case ReprU64:
		return int64(*(*uint64)(p))
	case ReprI8:
		return int64(*(*int8)(p))
	case ReprI16:
		return int64(*(*int16)(p))
	case ReprI32:
		return int64(*(*int32)(p))
	case ReprI64:
		return *(*int64)(p)
	case ReprUint:
		return int64(*(*uint)(p))
	case ReprInt:
		return int64(*(*int)(p))
	case ReprUintptr:
		return int64(*(*uintptr)(p))
	default:
		panic("shape: unknown enum representation " + d.Repr.String())
	}
}

// FormatDiscriminant renders the stored discriminant in decimal, reading
// unsigned representations as unsigned.
func (d *EnumDef) FormatDiscriminant(v ptr.Const) string {
	disc := d.ReadDiscriminant(v)
	if d.Repr.Signed() {
		return strconv.FormatInt(disc, 10)
	}
	return strconv.FormatUint(uint64(disc), 10)
}

// UnitVariant declares a payload-free variant for UnitEnum.
func UnitVariant(name string, disc int64) Variant {
	return Variant{Name: name, Discriminant: disc, Explicit: true, Kind: VariantUnit}
}

// UnitEnum registers and returns the shape of a named integer type whose
// values are the given variants.
//
//	type Color uint8
//	shape.UnitEnum[Color](shape.UnitVariant("Red", 0), shape.UnitVariant("Green", 1))
func UnitEnum[T Integer](variants ...Variant) *Shape {
	t := reflect.TypeFor[T]()
	repr, _ := reprOf(t.Kind())
	if len(variants) == 0 {
		panic("shape: UnitEnum " + t.String() + " needs at least one variant")
	}

	def := &EnumDef{Repr: repr, Variants: variants}
	seen := make(map[int64]struct{}, len(variants))
	for _, v := range variants {
		if v.Kind != VariantUnit || len(v.Fields) != 0 {
			panic("shape: UnitEnum variant " + v.Name + " has a payload")
		}
		if !fitsRepr(v.Discriminant, repr) {
			panic("shape: UnitEnum discriminant of " + v.Name + " does not fit " + repr.String())
		}
		if _, dup := seen[v.Discriminant]; dup {
			panic("shape: UnitEnum discriminant of " + v.Name + " is already used")
		}
		seen[v.Discriminant] = struct{}{}
	}

	s := NewBuilder().
		Type(t).
		Layout(LayoutOf(t)).
		Operations(operationsFor(t, def)).
		Definition(def).
		Build()
	Register(s)
	return s
}
