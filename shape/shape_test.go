package shape

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
)

type point struct {
	X int32
	Y int32
}

type account struct {
	Name     string `shape:"name" doc:"display name"`
	Password string `shape:"password,sensitive"`
	Retries  int    `shape:"retries,default,min=1"`
	Cache    []byte `shape:"-"`
	internal int
}

type animal struct {
	Tag  uint8 `shape:",discriminant"`
	Dog  struct{ Name string }
	Cat  struct{ Lives int } `shape:"Kitty"`
	Fish struct{}            `shape:",disc=7"`
	Pair struct{ A, B int }  `shape:",tuple"`
	Age  uint16
}

type node struct {
	Value int
	Kids  []node
	Next  *node
}

type myInt32 int32

func debugString(t *testing.T, s *Shape, v ptr.Const) string {
	t.Helper()
	require.NotNil(t, s.Ops.Debug, "%s has no debug", s)
	var buf bytes.Buffer
	require.NoError(t, s.Ops.Debug(v, &buf))
	return buf.String()
}

func TestDeriveKinds(t *testing.T) {
	tests := []struct {
		name string
		s    *Shape
		kind DefKind
	}{
		{"int", Of[int](), KindScalar},
		{"string", Of[string](), KindScalar},
		{"time", Of[time.Time](), KindScalar},
		{"func", Of[func()](), KindScalar},
		{"struct", Of[point](), KindStruct},
		{"enum", Of[animal](), KindEnum},
		{"slice", Of[[]string](), KindList},
		{"array", Of[[4]byte](), KindArray},
		{"map", Of[map[string]int](), KindMap},
		{"pointer", Of[*point](), KindOption},
		{"weak", Of[weak.Pointer[point]](), KindSmartPointer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.s.Kind())
			assert.Equal(t, tc.s.Type.Size(), tc.s.Layout.Size)
			assert.Equal(t, uintptr(tc.s.Type.Align()), tc.s.Layout.Align)
		})
	}
}

func TestScalarAffinity(t *testing.T) {
	assert.Equal(t, AffinityBool, Of[bool]().Scalar().Affinity)
	assert.Equal(t, AffinityInt, Of[int8]().Scalar().Affinity)
	assert.Equal(t, AffinityUint, Of[uintptr]().Scalar().Affinity)
	assert.Equal(t, AffinityFloat, Of[float32]().Scalar().Affinity)
	assert.Equal(t, AffinityComplex, Of[complex64]().Scalar().Affinity)
	assert.Equal(t, AffinityString, Of[string]().Scalar().Affinity)
	assert.Equal(t, AffinityText, Of[time.Time]().Scalar().Affinity)
	assert.Equal(t, AffinityOpaque, Of[chan int]().Scalar().Affinity)
}

func TestStructTags(t *testing.T) {
	s := Of[account]()
	def := s.Struct()
	require.NotNil(t, def)
	require.Len(t, def.Fields, 3)

	name := def.Fields[0]
	assert.Equal(t, "name", name.Name)
	assert.Equal(t, "display name", name.Doc)

	pw := def.Fields[1]
	assert.True(t, pw.Has(FlagSensitive))
	assert.False(t, pw.Has(FlagDefault))

	retries := def.Fields[2]
	assert.True(t, retries.Has(FlagDefault))
	v, ok := retries.Attr("min")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	i, ok := def.FieldIndex("PASSWORD")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = def.FieldIndex("Cache")
	assert.False(t, ok)
}

func TestEnumDerivation(t *testing.T) {
	def := Of[animal]().Enum()
	require.NotNil(t, def)
	assert.Equal(t, ReprU8, def.Repr)

	want := []struct {
		name string
		disc int64
		kind VariantKind
		n    int
	}{
		{"Dog", 0, VariantStruct, 1},
		{"Kitty", 1, VariantStruct, 1},
		{"Fish", 7, VariantUnit, 0},
		{"Pair", 8, VariantTuple, 2},
		{"Age", 9, VariantTuple, 1},
	}
	require.Len(t, def.Variants, len(want))
	for i, w := range want {
		v := def.Variants[i]
		assert.Equal(t, w.name, v.Name)
		assert.Equal(t, w.disc, v.Discriminant)
		assert.Equal(t, w.kind, v.Kind, v.Name)
		assert.Len(t, v.Fields, w.n, v.Name)
	}

	pair := def.Variants[3]
	assert.Equal(t, "0", pair.Fields[0].Name)
	assert.Equal(t, "1", pair.Fields[1].Name)
	assert.Equal(t, unsafeOffsetOfPairB(), pair.Fields[1].Offset)

	i, ok := def.VariantByDiscriminant(7)
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = def.VariantByDiscriminant(3)
	assert.False(t, ok)
}

func unsafeOffsetOfPairB() uintptr {
	at := reflect.TypeFor[animal]()
	pf, _ := at.FieldByName("Pair")
	bf, _ := pf.Type.FieldByName("B")
	return pf.Offset + bf.Offset
}

func TestEnumErrors(t *testing.T) {
	type overflow struct {
		Tag uint8    `shape:",discriminant"`
		Big struct{} `shape:",disc=300"`
	}
	_, err := For(reflect.TypeFor[overflow]())
	var se *errors.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, errors.KindOverflow, se.Kind)

	type duplicate struct {
		Tag int8     `shape:",discriminant"`
		A   struct{} `shape:",disc=1"`
		B   struct{} `shape:",disc=1"`
	}
	_, err = For(reflect.TypeFor[duplicate]())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")

	type late struct {
		A   int
		Tag uint8 `shape:",discriminant"`
	}
	_, err = For(reflect.TypeFor[late]())
	require.Error(t, err)

	type stringTag struct {
		Tag string   `shape:",discriminant"`
		A   struct{} `shape:"A"`
	}
	_, err = For(reflect.TypeFor[stringTag]())
	require.ErrorAs(t, err, &se)
	assert.Equal(t, errors.KindWrongShape, se.Kind)
}

func TestTooManyFields(t *testing.T) {
	fields := make([]reflect.StructField, MaxTrackedFields+1)
	for i := range fields {
		fields[i] = reflect.StructField{Name: fmt.Sprintf("F%d", i), Type: reflect.TypeFor[int]()}
	}
	_, err := For(reflect.StructOf(fields))
	var se *errors.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, errors.KindUnsupported, se.Kind)

	_, err = For(reflect.StructOf(fields[:MaxTrackedFields]))
	assert.NoError(t, err)
}

func TestNestedInvalidTypeFailsEagerly(t *testing.T) {
	type bad struct {
		Tag uint8 `shape:",discriminant"`
	}
	type outer struct {
		Items []bad
	}
	_, err := For(reflect.TypeFor[outer]())
	assert.Error(t, err)
}

func TestRecursiveType(t *testing.T) {
	s := Of[node]()
	def := s.Struct()
	require.Len(t, def.Fields, 3)

	kids := def.Fields[1].Shape()
	assert.Equal(t, KindList, kids.Kind())
	assert.Same(t, s, kids.List().Elem())
	assert.Same(t, s, def.Fields[2].Shape().Option().Inner())

	assert.True(t, s.Ops.Has(CapEqual|CapClone|CapDebug|CapHash))
}

func TestShapeEquality(t *testing.T) {
	fresh, err := Derive(reflect.TypeFor[point]())
	require.NoError(t, err)
	assert.NotSame(t, Of[point](), fresh)
	assert.True(t, Equal(Of[point](), fresh))
	assert.True(t, fresh.Is(Of[point]()))
	assert.True(t, IsType[point](fresh))

	assert.False(t, Equal(Of[int32](), Of[myInt32]()))
	assert.Equal(t, Of[int32]().Layout, Of[myInt32]().Layout)
	assert.False(t, Equal(Of[[]int](), Of[[]int64]()))

	freshNode, err := Derive(reflect.TypeFor[node]())
	require.NoError(t, err)
	assert.True(t, Equal(Of[node](), freshNode))

	assert.Panics(t, func() { Of[int32]().Assert(Of[myInt32]()) })
	assert.NotPanics(t, func() { fresh.Assert(Of[point]()) })
}

func TestBuilderContract(t *testing.T) {
	typ := reflect.TypeFor[point]()
	ops := &Operations{}
	def := &StructDef{}

	assert.Panics(t, func() { NewBuilder().Layout(LayoutOf(typ)).Operations(ops).Definition(def).Build() })
	assert.Panics(t, func() { NewBuilder().Type(typ).Operations(ops).Definition(def).Build() })
	assert.Panics(t, func() { NewBuilder().Type(typ).Layout(LayoutOf(typ)).Definition(def).Build() })
	assert.Panics(t, func() { NewBuilder().Type(typ).Layout(LayoutOf(typ)).Operations(ops).Build() })
	assert.Panics(t, func() {
		NewBuilder().Type(typ).Layout(Layout{Size: 4, Align: 4}).Operations(ops).Definition(def).Build()
	})
	assert.Panics(t, func() {
		bad := &StructDef{Fields: []Field{{Name: "Y", Index: 1, Offset: 0}}}
		NewBuilder().Type(typ).Layout(LayoutOf(typ)).Operations(ops).Definition(bad).Build()
	})

	good := &StructDef{Fields: []Field{
		{Name: "X", Index: 0, Offset: 0, Shape: Lazy(reflect.TypeFor[int32]())},
		{Name: "Y", Index: 1, Offset: 4, Shape: Lazy(reflect.TypeFor[int32]())},
	}}
	s := NewBuilder().Type(typ).Layout(LayoutOf(typ)).Operations(ops).Definition(good).Doc("a point").Build()
	assert.Equal(t, "shape.point", s.Name())
	assert.Equal(t, []string{"a point"}, s.Doc)
}

func TestStructLayout(t *testing.T) {
	l, offs := StructLayout(Layout{Size: 1, Align: 1}, Layout{Size: 4, Align: 4})
	assert.Equal(t, Layout{Size: 8, Align: 4}, l)
	assert.Equal(t, []uintptr{0, 4}, offs)
}

type color uint8

func TestUnitEnum(t *testing.T) {
	s := UnitEnum[color](UnitVariant("Red", 0), UnitVariant("Green", 1), UnitVariant("Blue", 5))
	assert.Same(t, s, Of[color]())
	assert.Equal(t, KindEnum, s.Kind())
	assert.True(t, s.Ops.Has(CapDisplay|CapParse|CapDefault|CapEqual))

	c := color(5)
	var buf bytes.Buffer
	require.NoError(t, s.Ops.Display(ptr.To(&c), &buf))
	assert.Equal(t, "Blue", buf.String())
	assert.Equal(t, "color.Blue", debugString(t, s, ptr.To(&c)))

	var parsed color
	_, err := s.Ops.Parse("Green", ptr.UninitOf(ptr.ToMut(&parsed).Pointer()))
	require.NoError(t, err)
	assert.Equal(t, color(1), parsed)

	_, err = s.Ops.Parse("Purple", ptr.UninitOf(ptr.ToMut(&parsed).Pointer()))
	assert.True(t, errors.Is(err, errors.NoSuchVariant))

	assert.Panics(t, func() { UnitEnum[color](UnitVariant("Huge", 256)) })
}

type (
	wideCode    uint64
	negWideCode uint64
)

func TestUnsignedDiscriminantAboveInt64(t *testing.T) {
	s := UnitEnum[wideCode](UnitVariant("Zero", 0), UnitVariant("Max", math.MaxInt64))
	def := s.Enum()

	c := wideCode(1<<63 + 5)
	_, ok := def.ActiveVariant(ptr.To(&c))
	assert.False(t, ok)
	assert.Equal(t, "9223372036854775813", def.FormatDiscriminant(ptr.To(&c)))

	var buf bytes.Buffer
	require.NoError(t, s.Ops.Display(ptr.To(&c), &buf))
	assert.Equal(t, "9223372036854775813", buf.String())
	assert.Equal(t, "wideCode(9223372036854775813)", debugString(t, s, ptr.To(&c)))

	m := wideCode(math.MaxInt64)
	i, ok := def.ActiveVariant(ptr.To(&m))
	require.True(t, ok)
	assert.Equal(t, "Max", def.Variants[i].Name)

	assert.Panics(t, func() { UnitEnum[negWideCode](UnitVariant("Negative", -1)) })
}

func TestDiscriminantWidths(t *testing.T) {
	tests := []struct {
		repr EnumRepr
		disc int64
	}{
		{ReprU8, 255},
		{ReprU16, 65535},
		{ReprU32, 1 << 31},
		{ReprI8, -128},
		{ReprI16, -300},
		{ReprI32, -70000},
		{ReprI64, -1 << 40},
		{ReprInt, -5},
		{ReprUint, 12},
	}

	for _, tc := range tests {
		t.Run(tc.repr.String(), func(t *testing.T) {
			def := &EnumDef{Repr: tc.repr}
			var buf [8]byte
			u := ptr.UninitOf(ptr.ToMut(&buf).Pointer())
			def.WriteDiscriminant(u, tc.disc)
			assert.Equal(t, tc.disc, def.ReadDiscriminant(u.AssumeInit().AsConst()))
		})
	}

	def := &EnumDef{Repr: ReprU8}
	var b uint8
	assert.Panics(t, func() { def.WriteDiscriminant(ptr.UninitOf(ptr.ToMut(&b).Pointer()), 256) })
}

func TestScalarOperations(t *testing.T) {
	s := Of[int64]()
	a, b := int64(3), int64(-4)

	assert.False(t, s.Ops.Equal(ptr.To(&a), ptr.To(&b)))
	assert.Equal(t, 1, s.Ops.Compare(ptr.To(&a), ptr.To(&b)))

	var out int64
	_, err := s.Ops.Parse("42", ptr.UninitOf(ptr.ToMut(&out).Pointer()))
	require.NoError(t, err)
	assert.Equal(t, int64(42), out)

	_, err = s.Ops.Parse("x", ptr.UninitOf(ptr.ToMut(&out).Pointer()))
	var se *errors.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, errors.KindOperationFailed, se.Kind)

	str := "hi"
	assert.Equal(t, `"hi"`, debugString(t, Of[string](), ptr.To(&str)))

	var small int8
	_, err = Of[int8]().Ops.Parse("300", ptr.UninitOf(ptr.ToMut(&small).Pointer()))
	assert.Error(t, err)
}

func TestTextOperations(t *testing.T) {
	s := Of[time.Time]()
	require.True(t, s.Ops.Has(CapDisplay|CapParse|CapEqual|CapCompare))

	var when time.Time
	_, err := s.Ops.Parse("2024-03-01T10:00:00Z", ptr.UninitOf(ptr.ToMut(&when).Pointer()))
	require.NoError(t, err)
	assert.Equal(t, 2024, when.Year())

	same := when.In(time.FixedZone("x", 3600))
	assert.True(t, s.Ops.Equal(ptr.To(&when), ptr.To(&same)))
	later := when.Add(time.Hour)
	assert.Equal(t, -1, s.Ops.Compare(ptr.To(&when), ptr.To(&later)))
}

func TestCapabilityComposition(t *testing.T) {
	assert.True(t, Of[[]int]().Ops.Has(CapEqual|CapCompare|CapHash|CapClone))
	assert.False(t, Of[[]func()]().Ops.Has(CapEqual))
	assert.False(t, Of[[]func()]().Ops.Has(CapClone))
	assert.False(t, Of[[]complex64]().Ops.Has(CapCompare))
	assert.True(t, Of[[]complex64]().Ops.Has(CapEqual))
	assert.True(t, Of[map[string]int]().Ops.Has(CapEqual|CapDebug|CapClone))
	assert.False(t, Of[map[string]int]().Ops.Has(CapCompare))
	assert.True(t, Of[*point]().Ops.Has(CapEqual|CapCompare))

	type withFunc struct {
		Name string
		Cb   func()
	}
	assert.False(t, Of[withFunc]().Ops.Has(CapEqual))
	assert.True(t, Of[withFunc]().Ops.Has(CapDebug))
	assert.True(t, Of[withFunc]().Ops.Has(CapDrop|CapDefault))

	assert.False(t, Of[func()]().Ops.Has(CapDefault))
	assert.Nil(t, Of[chan int]().Ops.Default)
	assert.True(t, Of[func()]().Ops.Has(CapDrop|CapDebug))
	assert.True(t, Of[any]().Ops.Has(CapDefault))

	assert.Panics(t, func() { Of[withFunc]().Ops.Must(CapEqual) })
	assert.Equal(t, "equal|compare", (CapEqual | CapCompare).String())
}

func TestStructOperations(t *testing.T) {
	s := Of[account]()
	a := account{Name: "ann", Password: "hunter2", Retries: 3}
	b := a

	assert.True(t, s.Ops.Equal(ptr.To(&a), ptr.To(&b)))
	b.Retries = 4
	assert.Equal(t, -1, s.Ops.Compare(ptr.To(&a), ptr.To(&b)))

	out := debugString(t, s, ptr.To(&a))
	assert.Equal(t, `account{name: "ann", password: [REDACTED], retries: 3}`, out)
	assert.NotContains(t, out, "hunter2")

	h1, h2 := xxh3.New(), xxh3.New()
	s.Ops.Hash(ptr.To(&a), h1)
	c := a
	s.Ops.Hash(ptr.To(&c), h2)
	assert.Equal(t, h1.Sum64(), h2.Sum64())
}

func TestEnumOperations(t *testing.T) {
	s := Of[animal]()
	dog := animal{Tag: 0}
	dog.Dog.Name = "Rex"
	fish := animal{Tag: 7}
	pair := animal{Tag: 8}
	pair.Pair.A, pair.Pair.B = 1, 2

	assert.Equal(t, `animal.Dog{Name: "Rex"}`, debugString(t, s, ptr.To(&dog)))
	assert.Equal(t, "animal.Fish", debugString(t, s, ptr.To(&fish)))
	assert.Equal(t, "animal.Pair(1, 2)", debugString(t, s, ptr.To(&pair)))

	assert.False(t, s.Ops.Equal(ptr.To(&dog), ptr.To(&fish)))
	assert.Equal(t, -1, s.Ops.Compare(ptr.To(&dog), ptr.To(&fish)))

	var clone animal
	s.Ops.Clone(ptr.To(&dog), ptr.UninitOf(ptr.ToMut(&clone).Pointer()))
	assert.True(t, s.Ops.Equal(ptr.To(&dog), ptr.To(&clone)))

	assert.False(t, s.Ops.Has(CapDefault), "first variant carries a payload")
	assert.False(t, s.Ops.Has(CapDisplay))
}

type signal struct {
	Kind  int16    `shape:",discriminant"`
	Idle  struct{} `shape:",disc=-1"`
	Value float64
}

func TestEnumDefaultSelectsFirstUnitVariant(t *testing.T) {
	s := Of[signal]()
	require.True(t, s.Ops.Has(CapDefault))

	v := signal{Kind: 3, Value: 2.5}
	s.Ops.Default(ptr.UninitOf(ptr.ToMut(&v).Pointer()))
	assert.Equal(t, int16(-1), v.Kind)
	assert.Zero(t, v.Value)

	v.Kind = 0
	v.Value = 1.5
	assert.Equal(t, "signal.Value(1.5)", debugString(t, s, ptr.To(&v)))
}

func TestContainerOperations(t *testing.T) {
	list := []string{"b", "a"}
	assert.Equal(t, `["b", "a"]`, debugString(t, Of[[]string](), ptr.To(&list)))

	m := map[string]int{"z": 1, "a": 2}
	assert.Equal(t, `map["a": 2, "z": 1]`, debugString(t, Of[map[string]int](), ptr.To(&m)))

	var none *point
	some := &point{X: 1}
	assert.Equal(t, "nil", debugString(t, Of[*point](), ptr.To(&none)))
	assert.Equal(t, "&point{X: 1, Y: 0}", debugString(t, Of[*point](), ptr.To(&some)))
	assert.Equal(t, -1, Of[*point]().Ops.Compare(ptr.To(&none), ptr.To(&some)))

	var cloned []string
	Of[[]string]().Ops.Clone(ptr.To(&list), ptr.UninitOf(ptr.ToMut(&cloned).Pointer()))
	assert.Equal(t, list, cloned)
	cloned[0] = "changed"
	assert.Equal(t, "b", list[0])

	var mc map[string]int
	Of[map[string]int]().Ops.Clone(ptr.To(&m), ptr.UninitOf(ptr.ToMut(&mc).Pointer()))
	assert.Equal(t, m, mc)
	assert.True(t, Of[map[string]int]().Ops.Equal(ptr.To(&m), ptr.To(&mc)))

	arr := [3]int{3, 1, 2}
	assert.Equal(t, "[3, 1, 2]", debugString(t, Of[[3]int](), ptr.To(&arr)))
}

type resource struct {
	ID    int
	drops *int
}

func (r *resource) Drop() {
	if r.drops != nil {
		*r.drops++
	}
}

type holder struct {
	Items []resource
	One   *resource
	ByKey map[string]resource
}

func TestDropVisitsParts(t *testing.T) {
	drops := 0
	h := holder{
		Items: []resource{{ID: 1, drops: &drops}, {ID: 2, drops: &drops}},
		One:   &resource{ID: 3, drops: &drops},
		ByKey: map[string]resource{"k": {ID: 4, drops: &drops}},
	}

	s := Of[holder]()
	u := s.Ops.Drop(ptr.ToMut(&h))
	assert.Equal(t, 4, drops)
	assert.Nil(t, h.Items)
	assert.Nil(t, h.One)
	assert.Equal(t, ptr.ToMut(&h).Pointer(), u.Pointer())
}

func TestWeakPointer(t *testing.T) {
	p := &point{X: 5}
	w := weak.Make(p)

	s := Of[weak.Pointer[point]]()
	def := s.SmartPointer()
	require.NotNil(t, def)
	assert.True(t, def.Flags&FlagWeak != 0)
	assert.Equal(t, PointerWeak, def.Known)

	got, ok := def.Ops.Upgrade(ptr.To(&w))
	require.True(t, ok)
	assert.Equal(t, int32(5), ptr.Deref[point](got).X)
	assert.True(t, strings.HasPrefix(debugString(t, s, ptr.To(&w)), "Pointer(point{X: 5"))
	runtime.KeepAlive(p)
}
