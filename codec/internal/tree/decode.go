package tree

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/shape"
)

type decoder struct {
	b     *builder.Builder
	opts  *Options
	depth int
}

// Decode writes node into the frame under the cursor of b. The cursor is
// back on the same frame when Decode returns without error.
func Decode(b *builder.Builder, node any, opts *Options) error {
	d := &decoder{b: b, opts: opts}
	return d.value(node)
}

// DecodeShape builds a value of s from node.
func DecodeShape(s *shape.Shape, node any, opts *Options) (*builder.Value, error) {
	b, g := builder.Allocate(s)
	defer g.Close()
	if err := Decode(b, node, opts); err != nil {
		return nil, err
	}
	return b.Build()
}

func (d *decoder) fail(kind errors.Kind, node any, detail string) error {
	return errors.New(errors.PhaseDecode, kind).
		Path(d.b.Path()...).
		Expected(d.b.Shape().Name()).
		Actual(nodeType(node)).
		Detail("%s", detail).
		Build()
}

func nodeType(node any) string {
	switch node.(type) {
	case nil:
		return "null"
	case Object, map[string]any, map[any]any:
		return "object"
	case []any:
		return "array"
	default:
		return reflect.TypeOf(node).String()
	}
}

// child decodes node into the part the cursor was just moved to and
// returns to the parent.
func (d *decoder) child(node any) error {
	if err := d.value(node); err != nil {
		return err
	}
	return d.b.Pop()
}

func (d *decoder) value(node any) error {
	if d.depth >= d.opts.maxDepth() {
		return d.fail(errors.KindDepthExceeded, node, "input nested too deeply")
	}
	d.depth++
	defer func() { d.depth-- }()

	s := d.b.Shape()
	if node == nil {
		return d.null(s)
	}
	if reflect.TypeOf(node) == s.Type {
		return d.b.Put(node)
	}

	switch def := s.Def.(type) {
	case *shape.ScalarDef:
		return d.b.Coerce(node)
	case *shape.StructDef:
		return d.object(node, def.Fields)
	case *shape.EnumDef:
		return d.enum(node, def)
	case *shape.ListDef:
		return d.list(node)
	case *shape.ArrayDef:
		return d.array(node, def)
	case *shape.MapDef:
		return d.mapping(node)
	case *shape.OptionDef:
		if err := d.b.PushSome(); err != nil {
			return err
		}
		return d.child(node)
	case *shape.SmartPointerDef:
		if err := d.b.PushPointee(); err != nil {
			return err
		}
		return d.child(node)
	}
	return d.fail(errors.KindUnsupported, node, "unknown kind")
}

func (d *decoder) null(s *shape.Shape) error {
	switch s.Kind() {
	case shape.KindOption:
		return d.b.PutNone()
	case shape.KindList:
		return d.b.BeginList(0)
	case shape.KindMap:
		return d.b.BeginMap(0)
	case shape.KindScalar:
		if s.Type.Kind() == reflect.Interface {
			return d.b.PutDefault()
		}
	}
	return d.fail(errors.KindInvalidData, nil, "null for a value that cannot be absent")
}

// entries returns the members of an object node in a stable order.
func (d *decoder) entries(node any) (Object, bool) {
	switch n := node.(type) {
	case Object:
		return n, true
	case map[string]any:
		obj := make(Object, 0, len(n))
		for k, v := range n {
			obj = append(obj, Member{Key: k, Value: v})
		}
		sortMembers(obj)
		return obj, true
	case map[any]any:
		obj := make(Object, 0, len(n))
		for k, v := range n {
			obj = append(obj, Member{Key: fmt.Sprint(k), Value: v})
		}
		sortMembers(obj)
		return obj, true
	}
	return nil, false
}

func (d *decoder) object(node any, fields []shape.Field) error {
	obj, ok := d.entries(node)
	if !ok {
		return d.fail(errors.KindWrongShape, node, "expected an object")
	}

	seen := make([]bool, len(fields))
	for _, m := range obj {
		i, err := d.b.FieldIndex(m.Key)
		if err != nil {
			if d.opts.strict() {
				return err
			}
			continue
		}
		seen[i] = true
		if err := d.b.FieldByIndex(i); err != nil {
			return err
		}
		if err := d.child(m.Value); err != nil {
			return err
		}
	}

	for i := range fields {
		if seen[i] {
			continue
		}
		if err := d.absent(i, fields[i].Shape().Kind()); err != nil {
			return err
		}
	}
	return nil
}

// absent fills a field missing from the input when its kind has an empty
// form. Other fields are left for defaults or the build check.
func (d *decoder) absent(i int, kind shape.DefKind) error {
	var fill func() error
	switch kind {
	case shape.KindOption:
		fill = d.b.PutNone
	case shape.KindList:
		fill = func() error { return d.b.BeginList(0) }
	case shape.KindMap:
		fill = func() error { return d.b.BeginMap(0) }
	default:
		return nil
	}
	if err := d.b.FieldByIndex(i); err != nil {
		return err
	}
	if err := fill(); err != nil {
		return err
	}
	return d.b.Pop()
}

func (d *decoder) enum(node any, def *shape.EnumDef) error {
	if name, ok := node.(string); ok {
		if err := d.b.SelectVariantByName(name); err != nil {
			return err
		}
		v, _ := d.b.SelectedVariant()
		if v.Kind != shape.VariantUnit {
			return d.fail(errors.KindInvalidData, node, "variant "+v.Name+" needs a payload")
		}
		return nil
	}

	obj, ok := d.entries(node)
	if !ok {
		// unit enums also accept their discriminant
		return d.b.Coerce(node)
	}
	if len(obj) != 1 {
		return d.fail(errors.KindInvalidData, node, "enum object must have exactly one key, got "+strconv.Itoa(len(obj)))
	}
	name, payload := obj[0].Key, obj[0].Value
	if err := d.b.SelectVariantByName(name); err != nil {
		return err
	}
	i, _ := def.VariantByName(name)
	v := &def.Variants[i]

	switch v.Kind {
	case shape.VariantUnit:
		if payload != nil {
			return d.fail(errors.KindInvalidData, payload, "unit variant "+name+" takes no payload")
		}
		return nil
	case shape.VariantTuple:
		if len(v.Fields) == 1 {
			if err := d.b.FieldByIndex(0); err != nil {
				return err
			}
			return d.child(payload)
		}
		items, ok := payload.([]any)
		if !ok || len(items) != len(v.Fields) {
			return d.fail(errors.KindInvalidData, payload,
				fmt.Sprintf("variant %s takes %d values", name, len(v.Fields)))
		}
		for i, item := range items {
			if err := d.b.FieldByIndex(i); err != nil {
				return err
			}
			if err := d.child(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return d.object(payload, v.Fields)
	}
}

// items returns the elements of an array node.
func (d *decoder) items(node any) ([]any, bool) {
	switch n := node.(type) {
	case []any:
		return n, true
	case []byte:
		out := make([]any, len(n))
		for i, c := range n {
			out[i] = c
		}
		return out, true
	case Object, map[string]any, map[any]any:
		return nil, false
	}
	rv := reflect.ValueOf(node)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

func (d *decoder) list(node any) error {
	items, ok := d.items(node)
	if !ok {
		return d.fail(errors.KindWrongShape, node, "expected an array")
	}
	if err := d.b.BeginList(len(items)); err != nil {
		return err
	}
	for _, item := range items {
		if err := d.b.Push(); err != nil {
			return err
		}
		if err := d.child(item); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) array(node any, def *shape.ArrayDef) error {
	items, ok := d.items(node)
	if !ok {
		return d.fail(errors.KindWrongShape, node, "expected an array")
	}
	if len(items) != def.Len {
		return d.fail(errors.KindInvalidData, node,
			fmt.Sprintf("expected %d elements, got %d", def.Len, len(items)))
	}
	for _, item := range items {
		if err := d.b.Push(); err != nil {
			return err
		}
		if err := d.child(item); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) mapping(node any) error {
	var entries []struct{ k, v any }
	switch n := node.(type) {
	case map[any]any:
		for k, v := range n {
			entries = append(entries, struct{ k, v any }{k, v})
		}
		slices.SortFunc(entries, func(a, b struct{ k, v any }) int {
			return cmp.Compare(fmt.Sprint(a.k), fmt.Sprint(b.k))
		})
	default:
		obj, ok := d.entries(node)
		if !ok {
			return d.fail(errors.KindWrongShape, node, "expected an object")
		}
		for _, m := range obj {
			entries = append(entries, struct{ k, v any }{m.Key, m.Value})
		}
	}

	if err := d.b.BeginMap(len(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		if err := d.b.PushMapKey(); err != nil {
			return err
		}
		if err := d.child(e.k); err != nil {
			return err
		}
		if err := d.b.PushMapValue(); err != nil {
			return err
		}
		if err := d.child(e.v); err != nil {
			return err
		}
	}
	return nil
}
