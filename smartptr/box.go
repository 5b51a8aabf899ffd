package smartptr

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// Box owns a single heap allocated T. The zero Box is empty.
type Box[T any] struct {
	p *T
}

func NewBox[T any](v T) Box[T] {
	return Box[T]{p: &v}
}

// Get returns the boxed value, or nil for an empty box.
func (b Box[T]) Get() *T { return b.p }

func (b Box[T]) IsNil() bool { return b.p == nil }

// Drop releases the pointee and leaves the box empty.
func (b *Box[T]) Drop() {
	if b.p == nil {
		return
	}
	dropValue(b.p)
	b.p = nil
}

func (Box[T]) SmartPointerDef() *shape.SmartPointerDef {
	pt := reflect.TypeFor[T]()
	return &shape.SmartPointerDef{
		Pointee:     shape.Lazy(pt),
		PointeeType: pt,
		Known:       shape.PointerBox,
		Ops: shape.SmartPointerOps{
			New: func(dst ptr.Uninit, pointee ptr.Mut) ptr.Mut {
				return ptr.Put(dst, Box[T]{p: ptr.Get[T](pointee)})
			},
			Borrow: func(sp ptr.Const) (ptr.Const, bool) {
				return borrow(ptr.Deref[Box[T]](sp).p)
			},
		},
	}
}

func borrow[T any](p *T) (ptr.Const, bool) {
	if p == nil {
		return ptr.Const{}, false
	}
	return ptr.ConstOf(unsafe.Pointer(p)), true
}

// dropValue runs the drop operation of T on *p.
func dropValue[T any](p *T) {
	if drop := shape.Of[T]().Ops.Drop; drop != nil {
		drop(ptr.ToMut(p))
	}
}
