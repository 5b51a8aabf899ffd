package reader_test

import (
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
	"github.com/wippyai/typeshape/smartptr"
)

type point struct {
	X, Y int
}

type event struct {
	Kind  uint8 `shape:",discriminant"`
	Click struct{ X, Y int }
	Key   struct{ Code string }
	Quit  struct{}
}

func requireKind(t *testing.T, err error, kind errors.Kind) *errors.Error {
	t.Helper()
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, kind, e.Kind, "error: %v", err)
	return e
}

func TestStructFields(t *testing.T) {
	p := point{X: 1, Y: 2}
	s, err := reader.Of(&p).IntoStruct()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	y, err := s.Field(1)
	require.NoError(t, err)
	got, err := reader.Get[int](y)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	x, err := s.FieldByName("x")
	require.NoError(t, err)
	got, err = reader.Get[int](x)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	var names []string
	for f, v := range s.Fields() {
		names = append(names, f.Name)
		assert.Equal(t, shape.KindScalar, v.Kind())
	}
	assert.Equal(t, []string{"X", "Y"}, names)

	_, err = s.Field(2)
	e := requireKind(t, err, errors.KindFieldError)
	assert.ErrorIs(t, e, errors.IndexOutOfBounds)

	_, err = s.FieldByName("Z")
	e = requireKind(t, err, errors.KindFieldError)
	assert.ErrorIs(t, e, errors.NoSuchField)
}

func TestGetWrongType(t *testing.T) {
	p := point{}
	_, err := reader.Get[string](reader.Of(&p))
	requireKind(t, err, errors.KindWrongShape)
}

func TestWasNotA(t *testing.T) {
	n := 5
	v := reader.Of(&n)

	_, err := v.IntoStruct()
	e := requireKind(t, err, errors.KindWasNotA)
	assert.Equal(t, "struct", e.Expected)
	assert.Equal(t, "scalar", e.Actual)

	_, err = v.IntoList()
	requireKind(t, err, errors.KindWasNotA)
	_, err = v.IntoSmartPointer()
	requireKind(t, err, errors.KindWasNotA)
}

func TestEnum(t *testing.T) {
	ev := event{Kind: 1}
	ev.Key.Code = "q"

	e, err := reader.Of(&ev).IntoEnum()
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Discriminant())

	v, err := e.ActiveVariant()
	require.NoError(t, err)
	assert.Equal(t, "Key", v.Name)

	code, err := e.FieldByName("Code")
	require.NoError(t, err)
	got, err := reader.Get[string](code)
	require.NoError(t, err)
	assert.Equal(t, "q", got)

	_, err = e.FieldByName("X")
	requireKind(t, err, errors.KindFieldError)
}

func TestEnumUnknownDiscriminant(t *testing.T) {
	ev := event{Kind: 9}
	e, err := reader.Of(&ev).IntoEnum()
	require.NoError(t, err)

	_, err = e.VariantIndex()
	requireKind(t, err, errors.KindInvalidData)

	n := 0
	for range e.Fields() {
		n++
	}
	assert.Zero(t, n)
}

func TestSequences(t *testing.T) {
	list := []string{"a", "b", "c"}
	l, err := reader.Of(&list).IntoList()
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())

	var seen []string
	for i, v := range l.All() {
		s, err := reader.Get[string](v)
		require.NoError(t, err)
		assert.Equal(t, list[i], s)
		seen = append(seen, s)
	}
	assert.Equal(t, list, seen)

	_, err = l.Get(3)
	requireKind(t, err, errors.KindFieldError)

	arr := [4]uint16{1, 2, 3, 4}
	a, err := reader.Of(&arr).IntoArray()
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len())
	third, err := a.Get(2)
	require.NoError(t, err)
	got, err := reader.Get[uint16](third)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), got)
	_, err = a.Get(-1)
	requireKind(t, err, errors.KindFieldError)
}

func TestMap(t *testing.T) {
	m := map[string]int{"one": 1, "two": 2}
	mr, err := reader.Of(&m).IntoMap()
	require.NoError(t, err)
	assert.Equal(t, 2, mr.Len())

	key := "two"
	assert.True(t, mr.Contains(reader.Of(&key)))
	v, ok := mr.Get(reader.Of(&key))
	require.True(t, ok)
	got, err := reader.Get[int](v)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	missing := "three"
	assert.False(t, mr.Contains(reader.Of(&missing)))
	wrong := 2
	assert.False(t, mr.Contains(reader.Of(&wrong)))

	out := map[string]int{}
	for k, v := range mr.All() {
		ks, err := reader.Get[string](k)
		require.NoError(t, err)
		vs, err := reader.Get[int](v)
		require.NoError(t, err)
		out[ks] = vs
	}
	assert.True(t, maps.Equal(m, out))
}

func TestOption(t *testing.T) {
	var none *int
	o, err := reader.Of(&none).IntoOption()
	require.NoError(t, err)
	assert.False(t, o.IsSome())
	_, ok := o.Get()
	assert.False(t, ok)

	n := 7
	some := &n
	o, err = reader.Of(&some).IntoOption()
	require.NoError(t, err)
	assert.True(t, o.IsSome())
	v, ok := o.Get()
	require.True(t, ok)
	got, err := reader.Get[int](v)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestScalar(t *testing.T) {
	f := 2.5
	s, err := reader.Of(&f).IntoScalar()
	require.NoError(t, err)
	assert.Equal(t, shape.AffinityFloat, s.Affinity())
	assert.InDelta(t, 2.5, s.Float(), 0)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s, err = reader.Of(&ts).IntoScalar()
	require.NoError(t, err)
	assert.Equal(t, shape.AffinityText, s.Affinity())
	text, err := s.Text()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:00:00Z", text)

	n := 3
	s, err = reader.Of(&n).IntoScalar()
	require.NoError(t, err)
	_, err = s.Text()
	requireKind(t, err, errors.KindMissingCapability)
}

func TestCapabilities(t *testing.T) {
	a, b, c := point{1, 2}, point{1, 2}, point{2, 0}

	eq, err := reader.Of(&a).Equal(reader.Of(&b))
	require.NoError(t, err)
	assert.True(t, eq)
	eq, err = reader.Of(&a).Equal(reader.Of(&c))
	require.NoError(t, err)
	assert.False(t, eq)

	n := 1
	_, err = reader.Of(&a).Equal(reader.Of(&n))
	requireKind(t, err, errors.KindWrongShape)

	x, y := 3, 9
	cmp, err := reader.Of(&x).Compare(reader.Of(&y))
	require.NoError(t, err)
	assert.Negative(t, cmp)

	s1, s2 := "hello", "hello"
	h1, err := reader.Of(&s1).Hash()
	require.NoError(t, err)
	h2, err := reader.Of(&s2).Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	fn := func() {}
	_, err = reader.Of(&fn).Hash()
	requireKind(t, err, errors.KindMissingCapability)

	d, err := reader.Of(&x).Display()
	require.NoError(t, err)
	assert.Equal(t, "3", d)
	assert.True(t, reader.Of(&x).Invariants())
}

func TestIdentity(t *testing.T) {
	p := point{}
	v1, v2 := reader.Of(&p), reader.Of(&p)
	assert.Equal(t, v1.Identity(), v2.Identity())

	s, err := v1.IntoStruct()
	require.NoError(t, err)
	x, err := s.Field(0)
	require.NoError(t, err)
	assert.NotEqual(t, v1.Identity(), x.Identity())
	assert.Equal(t, v1.Identity().Addr, x.Identity().Addr)
}

func TestSmartPointer(t *testing.T) {
	b := smartptr.NewBox(5)
	sp, err := reader.Of(&b).IntoSmartPointer()
	require.NoError(t, err)
	v, ok, err := sp.Borrow()
	require.NoError(t, err)
	require.True(t, ok)
	got, err := reader.Get[int](v)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	_, _, err = sp.Lock()
	requireKind(t, err, errors.KindMissingCapability)

	m := smartptr.NewMutex([]int{1, 2})
	sp, err = reader.Of(m).IntoSmartPointer()
	require.NoError(t, err)
	v, release, err := sp.Lock()
	require.NoError(t, err)
	l, err := v.IntoList()
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	release()

	g := m.TryLock()
	require.NotNil(t, g)
	assert.True(t, slices.Equal([]int{1, 2}, *g.Value()))
	g.Release()
}
