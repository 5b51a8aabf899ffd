package cbor_test

import (
	"testing"
	"time"

	fcbor "github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typeshape/codec/cbor"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/shape"
)

type reading struct {
	Sensor string
	At     time.Time
	Values [3]float32
	Delta  int64
	Meta   map[string]uint32
	Next   *reading
}

func TestRoundTrip(t *testing.T) {
	v := reading{
		Sensor: "s1",
		At:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Values: [3]float32{1.5, -2, 0},
		Delta:  -40,
		Meta:   map[string]uint32{"rev": 2},
		Next:   &reading{Sensor: "s2", Meta: map[string]uint32{}},
	}

	data, err := cbor.Marshal(&v)
	require.NoError(t, err)

	back, err := cbor.Unmarshal[reading](data)
	require.NoError(t, err)
	assert.True(t, v.At.Equal(back.At))
	back.At = v.At
	assert.Equal(t, v, back)
}

func TestCanonicalKeys(t *testing.T) {
	m := map[string]int{"bb": 1, "a": 2}
	data, err := cbor.Marshal(&m)
	require.NoError(t, err)

	var generic map[string]int
	require.NoError(t, fcbor.Unmarshal(data, &generic))
	assert.Equal(t, m, generic)
	// canonical order puts the shorter key first
	assert.Equal(t, byte('a'), data[2])
}

func TestUnmarshalShape(t *testing.T) {
	data, err := fcbor.Marshal([]int{1, 2, 3})
	require.NoError(t, err)
	v, err := cbor.UnmarshalShape(data, shape.Of[[]int]())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v.Interface())
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := cbor.Unmarshal[reading]([]byte{0xff})
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindInvalidData, e.Kind)
}
