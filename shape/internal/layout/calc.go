package layout

import (
	"reflect"
	"unsafe"
)

const (
	ptrSize  = unsafe.Sizeof(uintptr(0))
	ptrAlign = unsafe.Alignof(uintptr(0))
	u64Align = unsafe.Alignof(uint64(0))
	f64Align = unsafe.Alignof(float64(0))
)

// Info is the computed layout of one type.
type Info struct {
	FieldOffs []uintptr
	Size      uintptr
	Align     uintptr
}

type Calculator struct {
	cache map[reflect.Type]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[reflect.Type]Info),
	}
}

func (c *Calculator) Calculate(t reflect.Type) Info {
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return Info{Size: 1, Align: 1}
	case reflect.Int16, reflect.Uint16:
		return Info{Size: 2, Align: 2}
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return Info{Size: 4, Align: 4}
	case reflect.Int64, reflect.Uint64:
		return Info{Size: 8, Align: u64Align}
	case reflect.Float64:
		return Info{Size: 8, Align: f64Align}
	case reflect.Complex64:
		return Info{Size: 8, Align: 4}
	case reflect.Complex128:
		return Info{Size: 16, Align: f64Align}
	case reflect.Int, reflect.Uint, reflect.Uintptr,
		reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func:
		return Info{Size: ptrSize, Align: ptrAlign}
	case reflect.String, reflect.Interface:
		return Info{Size: 2 * ptrSize, Align: ptrAlign}
	case reflect.Slice:
		return Info{Size: 3 * ptrSize, Align: ptrAlign}
	case reflect.Array, reflect.Struct:
		return c.calculateComposite(t)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateComposite(t reflect.Type) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info
	if t.Kind() == reflect.Array {
		info = c.calculateArray(t)
	} else {
		info = c.calculateStruct(t)
	}

	c.cache[t] = info
	return info
}

func (c *Calculator) calculateArray(t reflect.Type) Info {
	elem := c.Calculate(t.Elem())
	return Info{
		Size:  elem.Size * uintptr(t.Len()),
		Align: elem.Align,
	}
}

func (c *Calculator) calculateStruct(t reflect.Type) Info {
	n := t.NumField()
	if n == 0 {
		return Info{Size: 0, Align: 1}
	}

	fieldOffs := make([]uintptr, n)
	maxAlign := uintptr(1)
	offset := uintptr(0)
	lastSize := uintptr(0)

	for i := range n {
		fieldLayout := c.Calculate(t.Field(i).Type)

		offset = AlignTo(offset, fieldLayout.Align)
		fieldOffs[i] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
		lastSize = fieldLayout.Size
	}

	// a pointer past a trailing zero-size field must stay inside the object
	if lastSize == 0 && offset > 0 {
		offset++
	}

	return Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
}

// Sequential lays out fields of the given layouts in order, the way a struct
// with those fields would be laid out.
func Sequential(fields ...Info) Info {
	if len(fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	fieldOffs := make([]uintptr, len(fields))
	maxAlign := uintptr(1)
	offset := uintptr(0)

	for i, f := range fields {
		offset = AlignTo(offset, f.Align)
		fieldOffs[i] = offset
		if f.Align > maxAlign {
			maxAlign = f.Align
		}
		offset += f.Size
	}

	if fields[len(fields)-1].Size == 0 && offset > 0 {
		offset++
	}

	return Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
}

func AlignTo(offset, align uintptr) uintptr {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// DiscriminantSize returns the byte width of an integer discriminant kind,
// or 0 if k is not an integer kind.
func DiscriminantSize(k reflect.Kind) uintptr {
	switch k {
	case reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32:
		return 4
	case reflect.Int64, reflect.Uint64:
		return 8
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return ptrSize
	default:
		return 0
	}
}
