package smartptr

import (
	"reflect"
	"sync/atomic"
	"weak"

	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// Shared is a reference counted pointer. Copies made with Clone share the
// value; the value is dropped when the last owner is dropped.
type Shared[T any] struct {
	c *sharedCell[T]
}

type sharedCell[T any] struct {
	value  T
	strong atomic.Int64
}

func NewShared[T any](v T) Shared[T] {
	c := &sharedCell[T]{value: v}
	c.strong.Store(1)
	return Shared[T]{c: c}
}

func (s Shared[T]) Get() *T {
	if s.c == nil {
		return nil
	}
	return &s.c.value
}

func (s Shared[T]) IsNil() bool { return s.c == nil }

// Count returns the number of live owners.
func (s Shared[T]) Count() int64 {
	if s.c == nil {
		return 0
	}
	return s.c.strong.Load()
}

// Clone returns a new owner of the same value.
func (s Shared[T]) Clone() Shared[T] {
	if s.c != nil {
		s.c.strong.Add(1)
	}
	return s
}

// Downgrade returns a weak pointer to the value. It does not count as an
// owner and reports nil once the value has been collected.
func (s Shared[T]) Downgrade() weak.Pointer[T] {
	if s.c == nil {
		return weak.Pointer[T]{}
	}
	return weak.Make(&s.c.value)
}

// Drop gives up this owner. The value is dropped with the last one.
func (s *Shared[T]) Drop() {
	c := s.c
	if c == nil {
		return
	}
	s.c = nil
	if c.strong.Add(-1) == 0 {
		dropValue(&c.value)
	}
}

func (s *Shared[T]) CloneTo(dst ptr.Uninit) ptr.Mut {
	return ptr.Put(dst, s.Clone())
}

func (Shared[T]) SmartPointerDef() *shape.SmartPointerDef {
	pt := reflect.TypeFor[T]()
	return &shape.SmartPointerDef{
		Pointee:     shape.Lazy(pt),
		PointeeType: pt,
		Flags:       shape.FlagAtomic,
		Known:       shape.PointerShared,
		Ops: shape.SmartPointerOps{
			New: func(dst ptr.Uninit, pointee ptr.Mut) ptr.Mut {
				v, _ := ptr.Read[T](pointee)
				return ptr.Put(dst, NewShared(v))
			},
			Borrow: func(sp ptr.Const) (ptr.Const, bool) {
				return borrow(ptr.Deref[Shared[T]](sp).Get())
			},
		},
	}
}
