package ptr

import (
	"reflect"
	"unsafe"
)

// Uninit addresses memory that does not hold a valid value yet.
type Uninit struct {
	p unsafe.Pointer
}

// Mut addresses memory holding a valid value that may be written or moved out.
type Mut struct {
	p unsafe.Pointer
}

// Const addresses memory holding a valid value for reading only.
type Const struct {
	p unsafe.Pointer
}

// New allocates zeroed, GC-visible memory for a value of type t.
func New(t reflect.Type) Uninit {
	return Uninit{p: reflect.New(t).UnsafePointer()}
}

// UninitOf wraps a raw address. The caller guarantees the address is valid
// for the shape it will be used with.
func UninitOf(p unsafe.Pointer) Uninit { return Uninit{p: p} }

// MutOf wraps a raw address holding an initialized value.
func MutOf(p unsafe.Pointer) Mut { return Mut{p: p} }

// ConstOf wraps a raw address holding an initialized value.
func ConstOf(p unsafe.Pointer) Const { return Const{p: p} }

// To returns a Const pointing at v.
func To[T any](v *T) Const { return Const{p: unsafe.Pointer(v)} }

// ToMut returns a Mut pointing at v.
func ToMut[T any](v *T) Mut { return Mut{p: unsafe.Pointer(v)} }

func (u Uninit) Pointer() unsafe.Pointer { return u.p }
func (u Uninit) IsNil() bool             { return u.p == nil }

// Field returns the sub-location at byte offset off.
func (u Uninit) Field(off uintptr) Uninit {
	return Uninit{p: unsafe.Add(u.p, off)}
}

// AssumeInit promotes the location without writing. The caller asserts that
// a valid value is already present.
func (u Uninit) AssumeInit() Mut { return Mut{p: u.p} }

// Zero clears the location as a value of type t.
func (u Uninit) Zero(t reflect.Type) {
	reflect.NewAt(t, u.p).Elem().SetZero()
}

// Write stores v, which must be assignable to t, and promotes the location.
func (u Uninit) Write(t reflect.Type, v reflect.Value) Mut {
	reflect.NewAt(t, u.p).Elem().Set(v)
	return Mut{p: u.p}
}

// Put writes v and promotes the location.
func Put[T any](u Uninit, v T) Mut {
	*(*T)(u.p) = v
	return Mut{p: u.p}
}

func (m Mut) Pointer() unsafe.Pointer { return m.p }
func (m Mut) IsNil() bool             { return m.p == nil }

func (m Mut) Field(off uintptr) Mut {
	return Mut{p: unsafe.Add(m.p, off)}
}

func (m Mut) AsConst() Const { return Const{p: m.p} }

// AsUninit demotes the location. Only valid once the value has been moved
// out or dropped.
func (m Mut) AsUninit() Uninit { return Uninit{p: m.p} }

// Value returns an addressable reflect.Value of type t over the location.
func (m Mut) Value(t reflect.Type) reflect.Value {
	return reflect.NewAt(t, m.p).Elem()
}

// MoveTo copies the value of type t into dst and clears the source.
// Ownership moves to dst; the source must not be dropped afterwards.
func (m Mut) MoveTo(t reflect.Type, dst Uninit) Mut {
	src := reflect.NewAt(t, m.p).Elem()
	reflect.NewAt(t, dst.p).Elem().Set(src)
	src.SetZero()
	return Mut{p: dst.p}
}

// Read moves the value out and leaves the location logically empty.
func Read[T any](m Mut) (T, Uninit) {
	p := (*T)(m.p)
	v := *p
	var zero T
	*p = zero
	return v, Uninit{p: m.p}
}

// Replace writes v and returns the previous value. The previous value is
// owned by the caller.
func Replace[T any](m Mut, v T) T {
	p := (*T)(m.p)
	old := *p
	*p = v
	return old
}

// Get returns a typed pointer to the value.
func Get[T any](m Mut) *T { return (*T)(m.p) }

func (c Const) Pointer() unsafe.Pointer { return c.p }
func (c Const) IsNil() bool             { return c.p == nil }

func (c Const) Field(off uintptr) Const {
	return Const{p: unsafe.Add(c.p, off)}
}

// Value returns a reflect.Value of type t over the location.
func (c Const) Value(t reflect.Type) reflect.Value {
	return reflect.NewAt(t, c.p).Elem()
}

// Deref returns a typed pointer to the value. Callers must not write through it.
func Deref[T any](c Const) *T { return (*T)(c.p) }
