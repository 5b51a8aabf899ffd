// Package yaml encodes shaped values as YAML using gopkg.in/yaml.v3.
//
// Documents are built as yaml.Node trees so mappings keep struct field
// order. Decoding resolves aliases and reads mapping keys by their text, so
// integer-keyed maps decode the same way they do from JSON.
package yaml

import (
	"bytes"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/codec/internal/tree"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

// Config tunes encoding and decoding. A nil Config indents by two spaces
// and ignores unknown fields.
type Config struct {
	// Indent is the number of spaces per nesting level.
	Indent int
	// DisallowUnknownFields rejects mapping keys that name no field.
	DisallowUnknownFields bool
}

func (c *Config) tree() *tree.Options {
	if c == nil {
		return nil
	}
	return &tree.Options{DisallowUnknownFields: c.DisallowUnknownFields}
}

func (c *Config) indent() int {
	if c == nil || c.Indent <= 0 {
		return 2
	}
	return c.Indent
}

// Marshal encodes *v.
func Marshal[T any](v *T) ([]byte, error) {
	return (*Config)(nil).Marshal(reader.Of(v))
}

// MarshalValue encodes the value v reads.
func MarshalValue(v reader.Value) ([]byte, error) {
	return (*Config)(nil).Marshal(v)
}

func (c *Config) Marshal(v reader.Value) ([]byte, error) {
	node, err := tree.Encode(v, c.tree())
	if err != nil {
		return nil, err
	}
	doc, err := toNode(node)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(c.indent())
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "yaml")
	}
	return buf.Bytes(), nil
}

func toNode(node any) (*yaml.Node, error) {
	switch n := node.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case tree.Object:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range n {
			v, err := toNode(m.Value)
			if err != nil {
				return nil, err
			}
			k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key}
			out.Content = append(out.Content, k, v)
		}
		return out, nil
	case []any:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n {
			v, err := toNode(item)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, v)
		}
		return out, nil
	}
	out := new(yaml.Node)
	if err := out.Encode(node); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindOperationFailed, err, "yaml scalar")
	}
	return out, nil
}

// Unmarshal decodes data into a new T.
func Unmarshal[T any](data []byte) (T, error) {
	var zero T
	v, err := UnmarshalShape(data, shape.Of[T]())
	if err != nil {
		return zero, err
	}
	return builder.Materialize[T](v)
}

// UnmarshalShape decodes data into a new value of s.
func UnmarshalShape(data []byte, s *shape.Shape) (*builder.Value, error) {
	return (*Config)(nil).UnmarshalShape(data, s)
}

func (c *Config) UnmarshalShape(data []byte, s *shape.Shape) (*builder.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "yaml")
	}
	if doc.Kind == 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "empty YAML document")
	}
	node, err := fromNode(&doc, 0)
	if err != nil {
		return nil, err
	}
	return tree.DecodeShape(s, node, c.tree())
}

// fromNode converts a parsed document into a tree. Alias chains are bounded
// by the tree decoder's depth limit.
func fromNode(n *yaml.Node, depth int) (any, error) {
	if depth > tree.DefaultMaxDepth {
		return nil, errors.New(errors.PhaseDecode, errors.KindDepthExceeded).
			Detail("YAML nested too deeply").
			Build()
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0], depth)
	case yaml.AliasNode:
		return fromNode(n.Alias, depth+1)
	case yaml.MappingNode:
		obj := make(tree.Object, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, errors.InvalidData(errors.PhaseDecode, nil,
					"mapping keys must be scalars, line "+strconv.Itoa(k.Line))
			}
			val, err := fromNode(v, depth+1)
			if err != nil {
				return nil, err
			}
			obj = append(obj, tree.Member{Key: k.Value, Value: val})
		}
		return obj, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	}
	return scalar(n)
}

// scalar resolves a scalar to the narrowest tree value that holds it.
func scalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, wrapScalar(err, n)
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		var u uint64
		err := n.Decode(&u)
		return u, wrapScalar(err, n)
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, wrapScalar(err, n)
	}
	return n.Value, nil
}

func wrapScalar(err error, n *yaml.Node) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "yaml scalar at line "+strconv.Itoa(n.Line))
}
