package tree

import (
	"iter"
	"reflect"
	"strconv"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

type encoder struct {
	opts     *Options
	path     []string
	visiting map[reader.Identity]struct{}
}

// Encode converts the value v reads into a tree.
func Encode(v reader.Value, opts *Options) (any, error) {
	e := &encoder{opts: opts, visiting: make(map[reader.Identity]struct{})}
	return e.value(v)
}

func (e *encoder) fail(kind errors.Kind, v reader.Value, detail string) error {
	return errors.New(errors.PhaseEncode, kind).
		Path(append([]string(nil), e.path...)...).
		Expected(v.Shape().Name()).
		Detail("%s", detail).
		Build()
}

func (e *encoder) enter(seg string) { e.path = append(e.path, seg) }
func (e *encoder) leave()           { e.path = e.path[:len(e.path)-1] }

func (e *encoder) value(v reader.Value) (any, error) {
	if len(e.path) >= e.opts.maxDepth() {
		return nil, e.fail(errors.KindDepthExceeded, v, "value nested too deeply")
	}
	switch v.Kind() {
	case shape.KindScalar:
		return e.scalar(v)
	case shape.KindStruct:
		s, _ := v.IntoStruct()
		return e.fields(s.Fields())
	case shape.KindEnum:
		return e.enum(v)
	case shape.KindList:
		l, _ := v.IntoList()
		return e.seq(l.Len(), l.All())
	case shape.KindArray:
		a, _ := v.IntoArray()
		return e.seq(a.Len(), a.All())
	case shape.KindMap:
		return e.mapping(v)
	case shape.KindOption:
		o, _ := v.IntoOption()
		inner, ok := o.Get()
		if !ok {
			return nil, nil
		}
		return e.indirect(v, inner)
	case shape.KindSmartPointer:
		return e.pointer(v)
	}
	return nil, e.fail(errors.KindUnsupported, v, "unknown kind")
}

func (e *encoder) scalar(v reader.Value) (any, error) {
	s, _ := v.IntoScalar()
	switch s.Affinity() {
	case shape.AffinityBool:
		return s.Bool(), nil
	case shape.AffinityInt:
		return s.Int(), nil
	case shape.AffinityUint:
		return s.Uint(), nil
	case shape.AffinityFloat:
		return s.Float(), nil
	case shape.AffinityString:
		return s.String(), nil
	case shape.AffinityText:
		text, err := s.Text()
		if err != nil {
			return nil, e.fail(errors.KindOperationFailed, v, err.Error())
		}
		return text, nil
	case shape.AffinityOpaque:
		rv := v.Reflect()
		if v.Shape().Type.Kind() == reflect.Interface {
			if !rv.IsValid() {
				return nil, nil
			}
			return rv.Interface(), nil
		}
	}
	return nil, e.fail(errors.KindUnsupported, v, "no wire form for "+v.Shape().Type.Kind().String())
}

func (e *encoder) fields(all iter.Seq2[shape.Field, reader.Value]) (Object, error) {
	obj := Object{}
	var err error
	for f, fv := range all {
		e.enter(f.Name)
		var node any
		node, err = e.value(fv)
		e.leave()
		if err != nil {
			break
		}
		obj = append(obj, Member{Key: f.Name, Value: node})
	}
	return obj, err
}

func (e *encoder) enum(v reader.Value) (any, error) {
	en, _ := v.IntoEnum()
	variant, err := en.ActiveVariant()
	if err != nil {
		return nil, err
	}
	switch variant.Kind {
	case shape.VariantUnit:
		return variant.Name, nil
	case shape.VariantTuple:
		e.enter(variant.Name)
		defer e.leave()
		if len(variant.Fields) == 1 {
			fv, _ := en.Field(0)
			node, err := e.value(fv)
			if err != nil {
				return nil, err
			}
			return Object{{Key: variant.Name, Value: node}}, nil
		}
		items := make([]any, 0, len(variant.Fields))
		for i := range variant.Fields {
			fv, _ := en.Field(i)
			e.enter(strconv.Itoa(i))
			node, err := e.value(fv)
			e.leave()
			if err != nil {
				return nil, err
			}
			items = append(items, node)
		}
		return Object{{Key: variant.Name, Value: items}}, nil
	default:
		e.enter(variant.Name)
		defer e.leave()
		obj, err := e.fields(en.Fields())
		if err != nil {
			return nil, err
		}
		return Object{{Key: variant.Name, Value: obj}}, nil
	}
}

func (e *encoder) seq(n int, all iter.Seq2[int, reader.Value]) ([]any, error) {
	items := make([]any, 0, n)
	var err error
	for i, ev := range all {
		e.enter("[" + strconv.Itoa(i) + "]")
		var node any
		node, err = e.value(ev)
		e.leave()
		if err != nil {
			break
		}
		items = append(items, node)
	}
	return items, err
}

func (e *encoder) mapping(v reader.Value) (any, error) {
	m, _ := v.IntoMap()
	obj := make(Object, 0, m.Len())
	for kv, vv := range m.All() {
		key, err := e.key(kv)
		if err != nil {
			return nil, err
		}
		e.enter(key)
		node, err := e.value(vv)
		e.leave()
		if err != nil {
			return nil, err
		}
		obj = append(obj, Member{Key: key, Value: node})
	}
	sortMembers(obj)
	return obj, nil
}

// key renders a map key as an object key. Only scalar keys have one.
func (e *encoder) key(k reader.Value) (string, error) {
	s, err := k.IntoScalar()
	if err == nil {
		switch s.Affinity() {
		case shape.AffinityString:
			return s.String(), nil
		case shape.AffinityInt:
			return strconv.FormatInt(s.Int(), 10), nil
		case shape.AffinityUint:
			return strconv.FormatUint(s.Uint(), 10), nil
		case shape.AffinityBool:
			return strconv.FormatBool(s.Bool()), nil
		case shape.AffinityText:
			return s.Text()
		}
	}
	if en, err := k.IntoEnum(); err == nil {
		if variant, err := en.ActiveVariant(); err == nil && variant.Kind == shape.VariantUnit {
			return variant.Name, nil
		}
	}
	return "", e.fail(errors.KindUnsupported, k, "map key has no string form")
}

// indirect encodes a value reached through a reference, failing on
// cycles.
func (e *encoder) indirect(ref, v reader.Value) (any, error) {
	id := v.Identity()
	if _, ok := e.visiting[id]; ok {
		return nil, e.fail(errors.KindInvalidData, ref, "reference cycle")
	}
	e.visiting[id] = struct{}{}
	defer delete(e.visiting, id)
	return e.value(v)
}

func (e *encoder) pointer(v reader.Value) (any, error) {
	sp, _ := v.IntoSmartPointer()
	ops := sp.Def().Ops
	var (
		pointee reader.Value
		ok      bool
		err     error
	)
	switch {
	case ops.Borrow != nil:
		pointee, ok, err = sp.Borrow()
	case ops.Upgrade != nil:
		pointee, ok, err = sp.Upgrade()
	case ops.RLock != nil:
		var release func()
		pointee, release, err = sp.RLock()
		if err == nil {
			defer release()
			ok = true
		}
	case ops.Lock != nil:
		var release func()
		pointee, release, err = sp.Lock()
		if err == nil {
			defer release()
			ok = true
		}
	default:
		return nil, e.fail(errors.KindUnsupported, v, "smart pointer cannot be read")
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e.indirect(v, pointee)
}
