package ptr

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A uint8
	B string
}

func TestPutAndRead(t *testing.T) {
	u := New(reflect.TypeFor[int32]())
	m := Put(u, int32(7))
	assert.Equal(t, int32(7), *Get[int32](m))

	v, back := Read[int32](m)
	assert.Equal(t, int32(7), v)
	assert.Equal(t, int32(0), *Deref[int32](back.AssumeInit().AsConst()))
}

func TestFieldOffsets(t *testing.T) {
	p := pair{A: 1, B: "x"}
	c := To(&p)

	off := unsafe.Offsetof(p.B)
	assert.Equal(t, "x", *Deref[string](c.Field(off)))

	m := ToMut(&p)
	*Get[string](m.Field(off)) = "y"
	assert.Equal(t, "y", p.B)
}

func TestReplace(t *testing.T) {
	s := "old"
	old := Replace(ToMut(&s), "new")
	assert.Equal(t, "old", old)
	assert.Equal(t, "new", s)
}

func TestMoveTo(t *testing.T) {
	typ := reflect.TypeFor[pair]()
	src := Put(New(typ), pair{A: 3, B: "moved"})
	dst := New(typ)

	m := src.MoveTo(typ, dst)
	require.Equal(t, dst.Pointer(), m.Pointer())
	assert.Equal(t, pair{A: 3, B: "moved"}, *Get[pair](m))
	assert.Equal(t, pair{}, *Get[pair](src))
}

func TestWriteAndZero(t *testing.T) {
	typ := reflect.TypeFor[[]int]()
	u := New(typ)
	m := u.Write(typ, reflect.ValueOf([]int{1, 2}))
	assert.Equal(t, []int{1, 2}, *Get[[]int](m))

	m.AsUninit().Zero(typ)
	assert.Nil(t, *Get[[]int](m))
}

func TestValue(t *testing.T) {
	p := pair{A: 9}
	v := To(&p).Value(reflect.TypeFor[pair]())
	assert.Equal(t, uint64(9), v.Field(0).Uint())
	assert.True(t, ToMut(&p).Value(reflect.TypeFor[pair]()).CanSet())
}
