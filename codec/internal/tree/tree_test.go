package tree

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
	"github.com/wippyai/typeshape/smartptr"
)

type inner struct {
	X int `shape:"x"`
	B int `shape:"b"`
}

type outer struct {
	Name  string `shape:"name"`
	Inner inner  `shape:"inner"`
}

type shapeKind struct {
	Kind   uint8 `shape:",discriminant"`
	Circle struct{ Radius float64 }
	Rect   struct{ W, H float64 } `shape:",tuple"`
	Named  struct{ Label string } `shape:",tuple"`
	Point  struct{}
}

type doc struct {
	Title   string
	Tags    []string
	Counts  map[string]int
	ByID    map[int]string
	Note    *string
	Shape   shapeKind
	Grid    [2]uint8
	When    time.Time
	Boxed   smartptr.Box[int]
	Payload any
}

// brokenText never marshals.
type brokenText struct{}

func (brokenText) MarshalText() ([]byte, error) { return nil, stderrors.New("100% broken") }
func (*brokenText) UnmarshalText([]byte) error  { return nil }

type node struct {
	Value int
	Next  *node
}

func requireKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, kind, e.Kind, "error: %v", err)
}

func decode[T any](t *testing.T, node any, opts *Options) (T, error) {
	t.Helper()
	var zero T
	v, err := DecodeShape(shape.Of[T](), node, opts)
	if err != nil {
		return zero, err
	}
	return builder.Materialize[T](v)
}

func TestEncodeKeepsFieldOrder(t *testing.T) {
	v := outer{Name: "Hello, world!", Inner: inner{X: 42, B: 43}}
	got, err := Encode(reader.Of(&v), nil)
	require.NoError(t, err)
	assert.Equal(t, Object{
		{Key: "name", Value: "Hello, world!"},
		{Key: "inner", Value: Object{{Key: "x", Value: int64(42)}, {Key: "b", Value: int64(43)}}},
	}, got)
}

func TestEncodeEnums(t *testing.T) {
	tests := []struct {
		name string
		v    shapeKind
		want any
	}{
		{"struct variant", func() shapeKind { s := shapeKind{Kind: 0}; s.Circle.Radius = 2; return s }(),
			Object{{Key: "Circle", Value: Object{{Key: "Radius", Value: 2.0}}}}},
		{"tuple variant", func() shapeKind { s := shapeKind{Kind: 1}; s.Rect.W, s.Rect.H = 1, 3; return s }(),
			Object{{Key: "Rect", Value: []any{1.0, 3.0}}}},
		{"single field tuple", func() shapeKind { s := shapeKind{Kind: 2}; s.Named.Label = "a"; return s }(),
			Object{{Key: "Named", Value: "a"}}},
		{"unit variant", shapeKind{Kind: 3}, "Point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(reader.Of(&tt.v), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := decode[shapeKind](t, got, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.v, back)
		})
	}
}

func TestEncodeSortsMapKeys(t *testing.T) {
	m := map[int]string{10: "ten", 2: "two"}
	got, err := Encode(reader.Of(&m), nil)
	require.NoError(t, err)
	assert.Equal(t, Object{{Key: "10", Value: "ten"}, {Key: "2", Value: "two"}}, got)
}

func TestEncodeRejectsCycles(t *testing.T) {
	n := &node{Value: 1}
	n.Next = n
	_, err := Encode(reader.Of(n), nil)
	requireKind(t, err, errors.KindInvalidData)

	n.Next = &node{Value: 2}
	got, err := Encode(reader.Of(n), nil)
	require.NoError(t, err)
	assert.Equal(t, Object{
		{Key: "Value", Value: int64(1)},
		{Key: "Next", Value: Object{{Key: "Value", Value: int64(2)}, {Key: "Next", Value: nil}}},
	}, got)
}

func TestEncodeUnsupported(t *testing.T) {
	type withFunc struct{ F func() }
	v := withFunc{F: func() {}}
	_, err := Encode(reader.Of(&v), nil)
	requireKind(t, err, errors.KindUnsupported)

	c := complex(1, 2)
	_, err = Encode(reader.Of(&c), nil)
	requireKind(t, err, errors.KindUnsupported)
}

func TestEncodeTextFailure(t *testing.T) {
	v := struct{ T brokenText }{}
	_, err := Encode(reader.Of(&v), nil)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindOperationFailed, e.Kind)
	assert.Equal(t, []string{"T"}, e.Path)
	assert.Contains(t, e.Detail, "100% broken")
}

func TestEncodeMaxDepth(t *testing.T) {
	n := &node{Value: 1, Next: &node{Value: 2, Next: &node{Value: 3}}}
	_, err := Encode(reader.Of(n), &Options{MaxDepth: 2})
	requireKind(t, err, errors.KindDepthExceeded)
}

func TestRoundTrip(t *testing.T) {
	note := "remember"
	v := doc{
		Title:   "t",
		Tags:    []string{"a", "b"},
		Counts:  map[string]int{"x": 1},
		ByID:    map[int]string{7: "seven"},
		Note:    &note,
		Grid:    [2]uint8{3, 4},
		When:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Boxed:   smartptr.NewBox(9),
		Payload: "free",
	}
	v.Shape.Kind = 1
	v.Shape.Rect.W, v.Shape.Rect.H = 2, 5

	node, err := Encode(reader.Of(&v), nil)
	require.NoError(t, err)

	back, err := decode[doc](t, node, nil)
	require.NoError(t, err)
	assert.Equal(t, v.Title, back.Title)
	assert.Equal(t, v.Tags, back.Tags)
	assert.Equal(t, v.Counts, back.Counts)
	assert.Equal(t, v.ByID, back.ByID)
	require.NotNil(t, back.Note)
	assert.Equal(t, note, *back.Note)
	assert.Equal(t, v.Shape, back.Shape)
	assert.Equal(t, v.Grid, back.Grid)
	assert.True(t, v.When.Equal(back.When))
	assert.Equal(t, 9, *back.Boxed.Get())
	assert.Equal(t, "free", back.Payload)
}

func TestDecodePlainMaps(t *testing.T) {
	in := map[string]any{
		"name":  "n",
		"inner": map[any]any{"x": uint64(1), "b": int8(2)},
	}
	got, err := decode[outer](t, in, nil)
	require.NoError(t, err)
	assert.Equal(t, outer{Name: "n", Inner: inner{X: 1, B: 2}}, got)
}

func TestDecodeUnknownFields(t *testing.T) {
	in := Object{{Key: "x", Value: int64(1)}, {Key: "b", Value: int64(2)}, {Key: "extra", Value: true}}

	got, err := decode[inner](t, in, nil)
	require.NoError(t, err)
	assert.Equal(t, inner{X: 1, B: 2}, got)

	_, err = decode[inner](t, in, &Options{DisallowUnknownFields: true})
	requireKind(t, err, errors.KindFieldError)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T) error
		kind errors.Kind
	}{
		{"missing field", func(t *testing.T) error {
			_, err := decode[inner](t, Object{{Key: "x", Value: int64(1)}}, nil)
			return err
		}, errors.KindPartiallyInitialized},
		{"null scalar", func(t *testing.T) error {
			_, err := decode[inner](t, Object{{Key: "x", Value: nil}, {Key: "b", Value: int64(1)}}, nil)
			return err
		}, errors.KindInvalidData},
		{"object for list", func(t *testing.T) error {
			_, err := decode[[]int](t, Object{}, nil)
			return err
		}, errors.KindWrongShape},
		{"plain map for list", func(t *testing.T) error {
			_, err := decode[[]int](t, map[string]any{}, nil)
			return err
		}, errors.KindWrongShape},
		{"object for array", func(t *testing.T) error {
			_, err := decode[[2]int](t, Object{{Key: "a", Value: int64(1)}}, nil)
			return err
		}, errors.KindWrongShape},
		{"array length", func(t *testing.T) error {
			_, err := decode[[2]int](t, []any{int64(1)}, nil)
			return err
		}, errors.KindInvalidData},
		{"overflow", func(t *testing.T) error {
			_, err := decode[uint8](t, int64(256), nil)
			return err
		}, errors.KindOverflow},
		{"unknown variant", func(t *testing.T) error {
			_, err := decode[shapeKind](t, "Hexagon", nil)
			return err
		}, errors.KindNoSuchVariant},
		{"unit name for payload variant", func(t *testing.T) error {
			_, err := decode[shapeKind](t, "Circle", nil)
			return err
		}, errors.KindInvalidData},
		{"two enum keys", func(t *testing.T) error {
			_, err := decode[shapeKind](t, Object{{Key: "Point"}, {Key: "Circle"}}, nil)
			return err
		}, errors.KindInvalidData},
		{"tuple arity", func(t *testing.T) error {
			_, err := decode[shapeKind](t, Object{{Key: "Rect", Value: []any{1.0}}}, nil)
			return err
		}, errors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireKind(t, tt.run(t), tt.kind)
		})
	}
}

func TestDecodeErrorDetail(t *testing.T) {
	_, err := decode[[]int](t, Object{}, nil)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindWrongShape, e.Kind)
	assert.Equal(t, "expected an array", e.Detail)
	assert.Equal(t, "object", e.Actual)
	assert.NotContains(t, e.Error(), "%!")
}

func TestDecodeAbsentOptionIsNone(t *testing.T) {
	type opt struct {
		A int
		B *int
	}
	got, err := decode[opt](t, Object{{Key: "A", Value: int64(1)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, opt{A: 1}, got)
}

func TestDecodeNullCollections(t *testing.T) {
	type coll struct {
		L []int
		M map[string]int
	}
	got, err := decode[coll](t, map[string]any{"L": nil, "M": nil}, nil)
	require.NoError(t, err)
	assert.Empty(t, got.L)
	assert.Empty(t, got.M)
}

func TestPlain(t *testing.T) {
	node := []any{Object{{Key: "a", Value: Object{{Key: "b", Value: 1}}}}}
	assert.Equal(t, []any{map[string]any{"a": map[string]any{"b": 1}}}, Plain(node))

	v, ok := Object{{Key: "k", Value: 2}}.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
