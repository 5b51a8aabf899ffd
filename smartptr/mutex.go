package smartptr

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// LockGuard grants access to a locked value until Release.
type LockGuard[T any] struct {
	value    *T
	unlock   func()
	released atomic.Bool
}

func newGuard[T any](v *T, unlock func()) *LockGuard[T] {
	return &LockGuard[T]{value: v, unlock: unlock}
}

// Value returns the guarded value. It must not be used after Release.
func (g *LockGuard[T]) Value() *T { return g.value }

// Release unlocks. Only the first call has an effect.
func (g *LockGuard[T]) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.value = nil
		g.unlock()
	}
}

// Mutex guards a T with a sync.Mutex. The zero Mutex holds the zero T and
// must not be copied after first use.
type Mutex[T any] struct {
	mu    sync.Mutex
	value T
}

func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{value: v}
}

func (m *Mutex[T]) Lock() *LockGuard[T] {
	m.mu.Lock()
	return newGuard(&m.value, m.mu.Unlock)
}

// TryLock is like Lock but returns nil instead of blocking.
func (m *Mutex[T]) TryLock() *LockGuard[T] {
	if !m.mu.TryLock() {
		return nil
	}
	return newGuard(&m.value, m.mu.Unlock)
}

func (m *Mutex[T]) Drop() {
	g := m.Lock()
	defer g.Release()
	dropValue(g.Value())
}

func (*Mutex[T]) SmartPointerDef() *shape.SmartPointerDef {
	pt := reflect.TypeFor[T]()
	return &shape.SmartPointerDef{
		Pointee:     shape.Lazy(pt),
		PointeeType: pt,
		Flags:       shape.FlagLock,
		Known:       shape.PointerMutex,
		Ops: shape.SmartPointerOps{
			New: func(dst ptr.Uninit, pointee ptr.Mut) ptr.Mut {
				dst.Zero(reflect.TypeFor[Mutex[T]]())
				m := ptr.Get[Mutex[T]](dst.AssumeInit())
				m.value, _ = ptr.Read[T](pointee)
				return dst.AssumeInit()
			},
			Lock: func(sp ptr.Const) (ptr.Mut, func()) {
				g := ptr.Deref[Mutex[T]](sp).Lock()
				return ptr.ToMut(g.Value()), g.Release
			},
		},
	}
}

// RWMutex guards a T with a sync.RWMutex.
type RWMutex[T any] struct {
	mu    sync.RWMutex
	value T
}

func NewRWMutex[T any](v T) *RWMutex[T] {
	return &RWMutex[T]{value: v}
}

func (m *RWMutex[T]) Lock() *LockGuard[T] {
	m.mu.Lock()
	return newGuard(&m.value, m.mu.Unlock)
}

// RLock takes a shared lock. The guarded value must only be read.
func (m *RWMutex[T]) RLock() *LockGuard[T] {
	m.mu.RLock()
	return newGuard(&m.value, m.mu.RUnlock)
}

func (m *RWMutex[T]) Drop() {
	g := m.Lock()
	defer g.Release()
	dropValue(g.Value())
}

func (*RWMutex[T]) SmartPointerDef() *shape.SmartPointerDef {
	pt := reflect.TypeFor[T]()
	return &shape.SmartPointerDef{
		Pointee:     shape.Lazy(pt),
		PointeeType: pt,
		Flags:       shape.FlagLock,
		Known:       shape.PointerRWMutex,
		Ops: shape.SmartPointerOps{
			New: func(dst ptr.Uninit, pointee ptr.Mut) ptr.Mut {
				dst.Zero(reflect.TypeFor[RWMutex[T]]())
				m := ptr.Get[RWMutex[T]](dst.AssumeInit())
				m.value, _ = ptr.Read[T](pointee)
				return dst.AssumeInit()
			},
			Lock: func(sp ptr.Const) (ptr.Mut, func()) {
				g := ptr.Deref[RWMutex[T]](sp).Lock()
				return ptr.ToMut(g.Value()), g.Release
			},
			RLock: func(sp ptr.Const) (ptr.Const, func()) {
				g := ptr.Deref[RWMutex[T]](sp).RLock()
				return ptr.To(g.Value()), g.Release
			},
		},
	}
}
