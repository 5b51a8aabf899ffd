package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/codec/cbor"
	"github.com/wippyai/typeshape/codec/json"
	"github.com/wippyai/typeshape/codec/msgpack"
	"github.com/wippyai/typeshape/codec/toml"
	"github.com/wippyai/typeshape/codec/yaml"
	"github.com/wippyai/typeshape/pretty"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

type format struct {
	decode func(data []byte, s *shape.Shape) (*builder.Value, error)
	encode func(v reader.Value) ([]byte, error)
	binary bool
}

var jsonConfig = &json.Config{Indent: "  "}

var formats = map[string]format{
	"json": {
		decode: json.UnmarshalShape,
		encode: jsonConfig.Marshal,
	},
	"msgpack": {
		decode: msgpack.UnmarshalShape,
		encode: msgpack.MarshalValue,
		binary: true,
	},
	"cbor": {
		decode: cbor.UnmarshalShape,
		encode: cbor.MarshalValue,
		binary: true,
	},
	"toml": {
		decode: toml.UnmarshalShape,
		encode: toml.MarshalValue,
	},
	"yaml": {
		decode: yaml.UnmarshalShape,
		encode: yaml.MarshalValue,
	},
}

func formatNames() []string {
	names := make([]string, 0, len(formats)+1)
	for name := range formats {
		names = append(names, name)
	}
	names = append(names, "pretty")
	sort.Strings(names)
	return names
}

func decoderFor(name string) (format, error) {
	f, ok := formats[name]
	if !ok || f.decode == nil {
		return format{}, fmt.Errorf("cannot read format %q", name)
	}
	return f, nil
}

// encoderFor returns the encoder for name. "pretty" renders through the
// pretty printer with the given config.
func encoderFor(name string, cfg *pretty.Config) (format, error) {
	if name == "pretty" {
		return format{encode: func(v reader.Value) ([]byte, error) {
			return []byte(cfg.Sprint(v) + "\n"), nil
		}}, nil
	}
	f, ok := formats[name]
	if !ok {
		return format{}, fmt.Errorf("unknown format %q (known: %s)", name, strings.Join(formatNames(), ", "))
	}
	return f, nil
}

// transcode decodes data of the from format into a value of s and writes
// it back out in the to format.
func transcode(s *shape.Shape, data []byte, from, to string, cfg *pretty.Config) ([]byte, error) {
	dec, err := decoderFor(from)
	if err != nil {
		return nil, err
	}
	enc, err := encoderFor(to, cfg)
	if err != nil {
		return nil, err
	}
	v, err := dec.decode(data, s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", from, err)
	}
	defer v.Drop()
	out, err := enc.encode(v.Reader())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", to, err)
	}
	return out, nil
}
