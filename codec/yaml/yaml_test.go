package yaml_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typeshape/codec/yaml"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

type listener struct {
	Addr string `shape:"addr"`
	TLS  bool   `shape:"tls"`
}

type level uint8

var _ = shape.UnitEnum[level](
	shape.UnitVariant("debug", 0),
	shape.UnitVariant("info", 1),
	shape.UnitVariant("warn", 2),
)

type server struct {
	Name      string            `shape:"name"`
	Timeout   time.Duration     `shape:"timeout"`
	Level     level             `shape:"level"`
	Listeners []listener        `shape:"listeners"`
	Labels    map[string]string `shape:"labels"`
	Ports     map[int]string    `shape:"ports"`
	Backup    *listener         `shape:"backup"`
	Started   time.Time         `shape:"started"`
}

func requireKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, kind, e.Kind, "error: %v", err)
}

func TestRoundTrip(t *testing.T) {
	v := server{
		Name:    "edge",
		Timeout: 3 * time.Second,
		Level:   2,
		Listeners: []listener{
			{Addr: ":80"},
			{Addr: ":443", TLS: true},
		},
		Labels:  map[string]string{"zone": "a", "on": "yes"},
		Ports:   map[int]string{80: "http", 443: "https"},
		Started: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := yaml.Marshal(&v)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "name: edge\ntimeout: 3000000000\nlevel: warn\n"), text)
	assert.Contains(t, text, "backup: null")
	assert.Contains(t, text, "tls: true")

	back, err := yaml.Unmarshal[server](data)
	require.NoError(t, err)
	assert.Equal(t, v.Name, back.Name)
	assert.Equal(t, v.Timeout, back.Timeout)
	assert.Equal(t, v.Level, back.Level)
	assert.Equal(t, v.Listeners, back.Listeners)
	assert.Equal(t, v.Labels, back.Labels)
	assert.Equal(t, v.Ports, back.Ports)
	assert.Nil(t, back.Backup)
	assert.True(t, v.Started.Equal(back.Started))
}

func TestDecodeDocument(t *testing.T) {
	doc := `
base: &base
  addr: ":8080"
  tls: false
name: core
timeout: 5000000000
level: info
listeners:
  - *base
  - {addr: ":9090", tls: true}
labels: {tier: gold}
ports:
  8080: admin
started: 2024-01-02T03:04:05Z
`
	got, err := yaml.Unmarshal[server]([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "core", got.Name)
	assert.Equal(t, 5*time.Second, got.Timeout)
	assert.Equal(t, level(1), got.Level)
	assert.Equal(t, []listener{{Addr: ":8080"}, {Addr: ":9090", TLS: true}}, got.Listeners)
	assert.Equal(t, map[int]string{8080: "admin"}, got.Ports)
	assert.Nil(t, got.Backup)
	assert.Equal(t, 2024, got.Started.Year())

	_, err = (&yaml.Config{DisallowUnknownFields: true}).UnmarshalShape([]byte(doc), shape.Of[server]())
	requireKind(t, err, errors.KindFieldError)
}

func TestIndent(t *testing.T) {
	v := struct {
		Inner listener `shape:"inner"`
	}{Inner: listener{Addr: "x"}}
	data, err := (&yaml.Config{Indent: 4}).Marshal(reader.Of(&v))
	require.NoError(t, err)
	assert.Equal(t, "inner:\n    addr: x\n    tls: false\n", string(data))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind errors.Kind
	}{
		{"syntax", "name: [", errors.KindInvalidData},
		{"empty", "", errors.KindInvalidData},
		{"complex key", "? [a]\n: b\n", errors.KindInvalidData},
		{"missing field", "addr: x", errors.KindPartiallyInitialized},
		{"sequence for struct", "- 1", errors.KindWrongShape},
		{"bad bool", "addr: x\ntls: maybe", errors.KindOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := yaml.Unmarshal[listener]([]byte(tt.in))
			requireKind(t, err, tt.kind)
		})
	}
}
