// Package codec holds wire formats built on the reader and builder
// packages. Each subpackage serializes any shaped value by walking it with
// a reader.Value and deserializes by driving a builder.Builder, so a type
// needs no codec-specific methods or tags beyond its shape.
//
//	data, err := json.Marshal(&cfg)
//	cfg, err := json.Unmarshal[config](data)
//
// Objects keep struct field order where the format allows it. Enums are
// externally tagged: a unit variant is written as its name and any other
// variant as a single-key object holding its payload.
package codec
