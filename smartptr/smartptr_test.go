package smartptr_test

import (
	"bytes"
	"reflect"
	"runtime"
	"testing"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
	"github.com/wippyai/typeshape/smartptr"
)

type tracked struct {
	ID    int
	drops *int
}

func (t *tracked) Drop() {
	if t.drops != nil {
		*t.drops++
	}
}

func debug(t *testing.T, s *shape.Shape, v ptr.Const) string {
	t.Helper()
	require.NotNil(t, s.Ops.Debug)
	var buf bytes.Buffer
	require.NoError(t, s.Ops.Debug(v, &buf))
	return buf.String()
}

func TestBoxShape(t *testing.T) {
	s := shape.Of[smartptr.Box[int]]()
	def := s.SmartPointer()
	require.NotNil(t, def)
	assert.Equal(t, shape.PointerBox, def.Known)
	assert.Same(t, shape.Of[int](), def.Pointee())
	assert.True(t, s.Ops.Has(shape.CapDebug|shape.CapEqual|shape.CapCompare|shape.CapDisplay))
	assert.False(t, s.Ops.Has(shape.CapClone))

	a, b := smartptr.NewBox(5), smartptr.NewBox(5)
	var empty smartptr.Box[int]
	assert.True(t, s.Ops.Equal(ptr.To(&a), ptr.To(&b)))
	assert.False(t, s.Ops.Equal(ptr.To(&a), ptr.To(&empty)))
	assert.Equal(t, 1, s.Ops.Compare(ptr.To(&a), ptr.To(&empty)))
	assert.Equal(t, "Box(5)", debug(t, s, ptr.To(&a)))
	assert.Equal(t, "Box(nil)", debug(t, s, ptr.To(&empty)))

	p, ok := def.Ops.Borrow(ptr.To(&a))
	require.True(t, ok)
	assert.Equal(t, 5, *ptr.Deref[int](p))
}

func TestBoxNewTakesOwnership(t *testing.T) {
	def := shape.Of[smartptr.Box[string]]().SmartPointer()

	pointee := ptr.Put(ptr.New(reflect.TypeFor[string]()), "hello")
	var box smartptr.Box[string]
	def.Ops.New(ptr.UninitOf(ptr.ToMut(&box).Pointer()), pointee)

	require.False(t, box.IsNil())
	assert.Equal(t, "hello", *box.Get())
	assert.Same(t, ptr.Get[string](pointee), box.Get())
}

func TestBoxDropsPointeeOnce(t *testing.T) {
	drops := 0
	box := smartptr.NewBox(tracked{ID: 1, drops: &drops})

	s := shape.Of[smartptr.Box[tracked]]()
	s.Ops.Drop(ptr.ToMut(&box))
	assert.Equal(t, 1, drops)
	assert.True(t, box.IsNil())

	box.Drop()
	assert.Equal(t, 1, drops)
}

func TestSharedCounting(t *testing.T) {
	drops := 0
	a := smartptr.NewShared(tracked{ID: 7, drops: &drops})
	b := a.Clone()
	assert.Equal(t, int64(2), a.Count())
	assert.Same(t, a.Get(), b.Get())

	s := shape.Of[smartptr.Shared[tracked]]()
	require.True(t, s.Ops.Has(shape.CapClone))
	var c smartptr.Shared[tracked]
	s.Ops.Clone(ptr.To(&a), ptr.UninitOf(ptr.ToMut(&c).Pointer()))
	assert.Equal(t, int64(3), a.Count())

	b.Drop()
	s.Ops.Drop(ptr.ToMut(&c))
	assert.Equal(t, 0, drops)
	assert.Equal(t, int64(1), a.Count())
	assert.True(t, c.IsNil())

	a.Drop()
	assert.Equal(t, 1, drops)
	assert.Zero(t, a.Count())
}

func TestSharedShape(t *testing.T) {
	def := shape.Of[smartptr.Shared[int]]().SmartPointer()
	require.NotNil(t, def)
	assert.Equal(t, shape.PointerShared, def.Known)
	assert.NotZero(t, def.Flags&shape.FlagAtomic)

	pointee := ptr.Put(ptr.New(reflect.TypeFor[int]()), 9)
	var sp smartptr.Shared[int]
	def.Ops.New(ptr.UninitOf(ptr.ToMut(&sp).Pointer()), pointee)
	assert.Equal(t, 9, *sp.Get())
	assert.Equal(t, int64(1), sp.Count())
}

func TestSharedDowngrade(t *testing.T) {
	s := smartptr.NewShared(42)
	w := s.Downgrade()

	got := w.Value()
	require.NotNil(t, got)
	assert.Equal(t, 42, *got)

	ws := shape.Of[weak.Pointer[int]]()
	p, ok := ws.SmartPointer().Ops.Upgrade(ptr.To(&w))
	require.True(t, ok)
	assert.Same(t, s.Get(), ptr.Deref[int](p))
	runtime.KeepAlive(s)

	var empty smartptr.Shared[int]
	assert.Nil(t, empty.Downgrade().Value())
}

func TestMutexGuard(t *testing.T) {
	m := smartptr.NewMutex(1)

	g := m.Lock()
	*g.Value() = 2
	assert.Nil(t, m.TryLock())
	g.Release()
	g.Release()

	g2 := m.TryLock()
	require.NotNil(t, g2)
	assert.Equal(t, 2, *g2.Value())
	g2.Release()
}

func TestMutexShape(t *testing.T) {
	s := shape.Of[smartptr.Mutex[int]]()
	def := s.SmartPointer()
	require.NotNil(t, def)
	assert.Equal(t, shape.PointerMutex, def.Known)
	assert.NotZero(t, def.Flags&shape.FlagLock)
	assert.False(t, s.Ops.Has(shape.CapEqual))

	m := smartptr.NewMutex(3)
	assert.Equal(t, "Mutex(3)", debug(t, s, ptr.To(m)))

	g := m.TryLock()
	require.NotNil(t, g, "debug must release its lock")
	g.Release()

	pointee := ptr.Put(ptr.New(reflect.TypeFor[int]()), 11)
	var built smartptr.Mutex[int]
	def.Ops.New(ptr.UninitOf(ptr.ToMut(&built).Pointer()), pointee)
	v, release := def.Ops.Lock(ptr.To(&built))
	assert.Equal(t, 11, *ptr.Get[int](v))
	release()
}

func TestRWMutexReaders(t *testing.T) {
	m := smartptr.NewRWMutex("shared")

	r1 := m.RLock()
	r2 := m.RLock()
	assert.Equal(t, "shared", *r1.Value())
	r1.Release()
	r2.Release()

	s := shape.Of[smartptr.RWMutex[string]]()
	assert.Equal(t, `RWMutex("shared")`, debug(t, s, ptr.To(m)))

	w := m.Lock()
	*w.Value() = "changed"
	w.Release()
	r := m.RLock()
	assert.Equal(t, "changed", *r.Value())
	r.Release()
}

func TestMutexDropsValue(t *testing.T) {
	drops := 0
	m := smartptr.NewMutex(tracked{ID: 1, drops: &drops})
	shape.Of[smartptr.Mutex[tracked]]().Ops.Drop(ptr.ToMut(m))
	assert.Equal(t, 1, drops)

	g := m.TryLock()
	require.NotNil(t, g)
	assert.Zero(t, g.Value().ID)
	g.Release()
}
