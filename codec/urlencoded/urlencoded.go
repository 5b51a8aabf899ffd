// Package urlencoded reads and writes shaped values as
// application/x-www-form-urlencoded form data.
//
// Nested structs use bracket notation and repeated values use a trailing
// empty bracket:
//
//	name=John+Doe&address[city]=Anytown&tags[]=a&tags[]=b
//
// Every value arrives as a string and is converted through the target
// shape's Parse operation, so numbers, booleans, unit enums and text types
// all decode from their usual text form.
package urlencoded

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/codec/internal/tree"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

// Config tunes decoding. A nil Config ignores unknown fields.
type Config struct {
	// DisallowUnknownFields rejects keys that name no field.
	DisallowUnknownFields bool
}

func (c *Config) tree() *tree.Options {
	if c == nil {
		return nil
	}
	return &tree.Options{DisallowUnknownFields: c.DisallowUnknownFields}
}

// Unmarshal decodes form data into a new T.
func Unmarshal[T any](data []byte) (T, error) {
	var zero T
	v, err := UnmarshalShape(data, shape.Of[T]())
	if err != nil {
		return zero, err
	}
	return builder.Materialize[T](v)
}

// UnmarshalShape decodes form data into a new value of s.
func UnmarshalShape(data []byte, s *shape.Shape) (*builder.Value, error) {
	return (*Config)(nil).UnmarshalShape(data, s)
}

func (c *Config) UnmarshalShape(data []byte, s *shape.Shape) (*builder.Value, error) {
	root, err := parse(string(data))
	if err != nil {
		return nil, err
	}
	return tree.DecodeShape(s, root.object(), c.tree())
}

// form is one level of bracket nesting. Values are string, []any or *form.
type form struct {
	keys []string
	vals map[string]any
}

func newForm() *form { return &form{vals: make(map[string]any)} }

func parse(query string) (*form, error) {
	root := newForm()
	for pair := range strings.SplitSeq(query, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "form key")
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "form value of "+key)
		}
		segs, list, ok := splitKey(key)
		if !ok {
			return nil, errors.InvalidData(errors.PhaseDecode, nil, "malformed form key "+strconv.Quote(key))
		}
		if err := root.insert(segs, list, value); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// splitKey turns a[b][c] into [a b c]. A trailing [] marks a list item.
func splitKey(key string) (segs []string, list bool, ok bool) {
	head, rest, nested := strings.Cut(key, "[")
	if head == "" {
		return nil, false, false
	}
	segs = append(segs, head)
	if !nested {
		return segs, false, true
	}
	rest = "[" + rest
	for rest != "" {
		if rest[0] != '[' {
			return nil, false, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, false, false
		}
		seg := rest[1:end]
		rest = rest[end+1:]
		if seg == "" {
			if rest != "" {
				return nil, false, false
			}
			return segs, true, true
		}
		segs = append(segs, seg)
	}
	return segs, false, true
}

func (f *form) insert(segs []string, list bool, value string) error {
	key := segs[0]
	prev, seen := f.vals[key]
	if !seen {
		f.keys = append(f.keys, key)
	}

	if len(segs) > 1 {
		child, ok := prev.(*form)
		if !seen {
			child, ok = newForm(), true
			f.vals[key] = child
		}
		if !ok {
			return conflict(key)
		}
		return child.insert(segs[1:], list, value)
	}

	switch p := prev.(type) {
	case nil:
		if list {
			f.vals[key] = []any{value}
		} else {
			f.vals[key] = value
		}
	case []any:
		f.vals[key] = append(p, value)
	case string:
		// a repeated plain key collects its values
		f.vals[key] = []any{p, value}
	default:
		return conflict(key)
	}
	return nil
}

func conflict(key string) error {
	return errors.InvalidData(errors.PhaseDecode, []string{key}, "form key is used both as a value and as a group")
}

func (f *form) object() tree.Object {
	obj := make(tree.Object, 0, len(f.keys))
	for _, k := range f.keys {
		v := f.vals[k]
		if child, ok := v.(*form); ok {
			v = child.object()
		}
		obj = append(obj, tree.Member{Key: k, Value: v})
	}
	return obj
}

// Marshal encodes *v.
func Marshal[T any](v *T) ([]byte, error) {
	return MarshalValue(reader.Of(v))
}

// MarshalValue encodes the value v reads. The value must encode to an
// object, and lists may only hold scalars. Absent options are left out.
func MarshalValue(v reader.Value) ([]byte, error) {
	node, err := tree.Encode(v, nil)
	if err != nil {
		return nil, err
	}
	obj, ok := node.(tree.Object)
	if !ok {
		return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Expected("object").
			Actual(v.Shape().Name()).
			Detail("form data must be a set of fields").
			Build()
	}
	var b strings.Builder
	if err := writeObject(&b, "", obj); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func writeObject(b *strings.Builder, prefix string, obj tree.Object) error {
	for _, m := range obj {
		key := url.QueryEscape(m.Key)
		if prefix != "" {
			key = prefix + "[" + key + "]"
		}
		switch n := m.Value.(type) {
		case nil:
		case tree.Object:
			if err := writeObject(b, key, n); err != nil {
				return err
			}
		case []any:
			for _, item := range n {
				text, err := scalar(key, item)
				if err != nil {
					return err
				}
				pair(b, key+"[]", text)
			}
		default:
			text, err := scalar(key, n)
			if err != nil {
				return err
			}
			pair(b, key, text)
		}
	}
	return nil
}

func pair(b *strings.Builder, key, value string) {
	if b.Len() > 0 {
		b.WriteByte('&')
	}
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(value))
}

func scalar(key string, node any) (string, error) {
	switch n := node.(type) {
	case string:
		return n, nil
	case bool:
		return strconv.FormatBool(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), nil
	}
	return "", errors.New(errors.PhaseEncode, errors.KindUnsupported).
		Path(key).
		Detail("form data holds only scalars and flat lists").
		Build()
}
