package msgpack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vmsgpack "github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/typeshape/codec/msgpack"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/shape"
)

type event struct {
	Kind  uint8 `shape:",discriminant"`
	Click struct{ X, Y int32 }
	Key   struct{ Code string } `shape:",tuple"`
	Quit  struct{}
}

type batch struct {
	Name   string
	Events []event
	Seen   map[uint16]bool
	Limit  *int
	Raw    []byte
}

func TestRoundTrip(t *testing.T) {
	v := batch{
		Name: "b",
		Seen: map[uint16]bool{1: true, 300: false},
		Raw:  []byte{0, 1, 255},
	}
	var click, key, quit event
	click.Click.X, click.Click.Y = -1, 2
	key.Kind, key.Key.Code = 1, "esc"
	quit.Kind = 2
	v.Events = []event{click, key, quit}

	data, err := msgpack.Marshal(&v)
	require.NoError(t, err)

	back, err := msgpack.Unmarshal[batch](data)
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestWireForm(t *testing.T) {
	type pair struct {
		A string
		B int
	}
	v := pair{A: "x", B: 2}
	data, err := msgpack.Marshal(&v)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, vmsgpack.Unmarshal(data, &generic))
	assert.Equal(t, "x", generic["A"])
	assert.EqualValues(t, 2, generic["B"])
}

func TestUnmarshalShape(t *testing.T) {
	data, err := vmsgpack.Marshal(map[string]any{"Code": "q"})
	require.NoError(t, err)

	type key struct{ Code string }
	v, err := msgpack.UnmarshalShape(data, shape.Of[key]())
	require.NoError(t, err)
	assert.Equal(t, key{Code: "q"}, v.Interface())
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := msgpack.Unmarshal[batch]([]byte{0xc1})
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindInvalidData, e.Kind)
}
