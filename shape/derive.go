package shape

import (
	"encoding"
	"fmt"
	"iter"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"fortio.org/safecast"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape/internal/layout"
)

// MaxTrackedFields is the largest number of fields a struct or variant may
// have. Builders track initialization in a 64-bit set.
const MaxTrackedFields = 64

var (
	registered sync.Map // reflect.Type -> *Shape
	derived    sync.Map // reflect.Type -> *Shape
	inflight   singleflight.Group
)

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	stringerType        = reflect.TypeFor[fmt.Stringer]()
	providerType        = reflect.TypeFor[SmartPointerProvider]()
	dropperType         = reflect.TypeFor[Dropper]()
	defaulterType       = reflect.TypeFor[Defaulter]()
	invariantType       = reflect.TypeFor[InvariantChecker]()
	clonerType          = reflect.TypeFor[Cloner]()
)

// Register makes s the shape of s.Type, overriding derivation. Register
// types before their shapes are first resolved.
func Register(s *Shape) {
	if s == nil || s.Type == nil || s.Ops == nil || s.Def == nil {
		panic("shape: Register requires a complete shape")
	}
	registered.Store(s.Type, s)
	derived.Delete(s.Type)
	Logger().Debug("registered shape",
		zap.Stringer("type", s.Type),
		zap.Stringer("kind", s.Kind()))
}

// Of returns the shape of T. It panics if T cannot be described.
func Of[T any]() *Shape {
	return MustFor(reflect.TypeFor[T]())
}

// MustFor is like For but panics on error.
func MustFor(t reflect.Type) *Shape {
	s, err := For(t)
	if err != nil {
		panic(err)
	}
	return s
}

// For returns the shape of t, deriving and caching it on first use.
func For(t reflect.Type) (*Shape, error) {
	if t == nil {
		return nil, errors.New(errors.PhaseShape, errors.KindInvalidData).
			Detail("type cannot be nil").
			Build()
	}
	if s, ok := registered.Load(t); ok {
		return s.(*Shape), nil
	}
	if s, ok := derived.Load(t); ok {
		return s.(*Shape), nil
	}

	v, err, _ := inflight.Do(typeKey(t), func() (any, error) {
		if s, ok := derived.Load(t); ok {
			return s, nil
		}
		s, err := Derive(t)
		if err != nil {
			return nil, err
		}
		derived.Store(t, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Shape), nil
}

func typeKey(t reflect.Type) string {
	return strconv.FormatUint(uint64(reflect.ValueOf(t).Pointer()), 16)
}

// Derive builds a fresh shape for t without consulting or filling the cache.
// Nested shapes are still resolved through For.
func Derive(t reflect.Type) (*Shape, error) {
	if err := check(t, make(map[reflect.Type]struct{}), nil); err != nil {
		return nil, err
	}

	def, err := definitionFor(t)
	if err != nil {
		return nil, err
	}

	info := layout.NewCalculator().Calculate(t)
	s := &Shape{
		Type:   t,
		Layout: Layout{Size: info.Size, Align: info.Align},
		Def:    def,
	}
	s.Ops = operationsFor(t, def)

	if ce := Logger().Check(zap.DebugLevel, "derived shape"); ce != nil {
		ce.Write(
			zap.Stringer("type", t),
			zap.Stringer("kind", def.Kind()),
			zap.Stringer("caps", s.Ops.Capabilities()))
	}
	return s, nil
}

type form uint8

const (
	formOpaque form = iota
	formScalar
	formText
	formStruct
	formEnum
	formList
	formArray
	formMap
	formOption
	formSmartPointer
	formWeak
)

func classify(t reflect.Type) form {
	switch t.Kind() {
	case reflect.Pointer:
		return formOption
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return formOpaque
	}

	if isWeak(t) {
		return formWeak
	}
	if implements(t, providerType) {
		return formSmartPointer
	}
	if implements(t, textMarshalerType) && implements(t, textUnmarshalerType) {
		return formText
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return formScalar
	case reflect.Struct:
		if discriminantField(t) >= 0 {
			return formEnum
		}
		if t.NumField() > 0 && firstExported(t) < 0 {
			return formOpaque
		}
		return formStruct
	case reflect.Slice:
		return formList
	case reflect.Array:
		return formArray
	case reflect.Map:
		return formMap
	}
	return formOpaque
}

func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

// providerDef asks a pointer to the zero value of t for its definition.
func providerDef(t reflect.Type) *SmartPointerDef {
	return reflect.New(t).Interface().(SmartPointerProvider).SmartPointerDef()
}

func isWeak(t reflect.Type) bool {
	return t.PkgPath() == "weak" && strings.HasPrefix(t.Name(), "Pointer[")
}

func isRegistered(t reflect.Type) bool {
	_, ok := registered.Load(t)
	return ok
}

func firstExported(t reflect.Type) int {
	for i := range t.NumField() {
		if t.Field(i).IsExported() {
			return i
		}
	}
	return -1
}

func discriminantField(t reflect.Type) int {
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, _ := sf.Tag.Lookup("shape")
		_, opts, _ := strings.Cut(tag, ",")
		for opt := range strings.SplitSeq(opts, ",") {
			if strings.TrimSpace(opt) == "discriminant" {
				return i
			}
		}
	}
	return -1
}

func affinityOf(k reflect.Kind) Affinity {
	switch k {
	case reflect.Bool:
		return AffinityBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return AffinityInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return AffinityUint
	case reflect.Float32, reflect.Float64:
		return AffinityFloat
	case reflect.Complex64, reflect.Complex128:
		return AffinityComplex
	case reflect.String:
		return AffinityString
	default:
		return AffinityOpaque
	}
}

func reprOf(k reflect.Kind) (EnumRepr, bool) {
	switch k {
	case reflect.Uint8:
		return ReprU8, true
	case reflect.Uint16:
		return ReprU16, true
	case reflect.Uint32:
		return ReprU32, true
	case reflect.Uint64:
		return ReprU64, true
	case reflect.Int8:
		return ReprI8, true
	case reflect.Int16:
		return ReprI16, true
	case reflect.Int32:
		return ReprI32, true
	case reflect.Int64:
		return ReprI64, true
	case reflect.Uint:
		return ReprUint, true
	case reflect.Int:
		return ReprInt, true
	case reflect.Uintptr:
		return ReprUintptr, true
	default:
		return 0, false
	}
}

func fitsRepr(d int64, r EnumRepr) bool {
	var err error
	switch r {
	case ReprU8:
		_, err = safecast.Conv[uint8](d)
	case ReprU16:
		_, err = safecast.Conv[uint16](d)
	case ReprU32:
		_, err = safecast.Conv[uint32](d)
	case ReprU64:
		_, err = safecast.Conv[uint64](d)
	case ReprI8:
		_, err = safecast.Conv[int8](d)
	case ReprI16:
		_, err = safecast.Conv[int16](d)
	case ReprI32:
		_, err = safecast.Conv[int32](d)
	case ReprI64:
	case ReprUint:
		_, err = safecast.Conv[uint](d)
	case ReprInt:
		_, err = safecast.Conv[int](d)
	case ReprUintptr:
		_, err = safecast.Conv[uintptr](d)
	}
	return err == nil
}

// check validates t and every type reachable from it by value. Smart
// pointer pointees are validated when they are first resolved.
func check(t reflect.Type, seen map[reflect.Type]struct{}, path []string) error {
	if _, ok := seen[t]; ok {
		return nil
	}
	seen[t] = struct{}{}
	if isRegistered(t) {
		return nil
	}

	switch classify(t) {
	case formStruct:
		fields, err := structFields(t, path)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if err := check(t.Field(f.Index).Type, seen, append(path, f.Name)); err != nil {
				return err
			}
		}
	case formEnum:
		if _, err := enumDef(t, path); err != nil {
			return err
		}
		for i := discriminantField(t) + 1; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			if err := check(sf.Type, seen, append(path, sf.Name)); err != nil {
				return err
			}
		}
	case formList, formArray, formOption:
		return check(t.Elem(), seen, path)
	case formMap:
		if err := check(t.Key(), seen, path); err != nil {
			return err
		}
		return check(t.Elem(), seen, path)
	}
	return nil
}

func definitionFor(t reflect.Type) (Definition, error) {
	switch classify(t) {
	case formScalar:
		return &ScalarDef{Affinity: affinityOf(t.Kind())}, nil
	case formText:
		return &ScalarDef{Affinity: AffinityText}, nil
	case formOpaque:
		return &ScalarDef{Affinity: AffinityOpaque}, nil
	case formStruct:
		fields, err := structFields(t, nil)
		if err != nil {
			return nil, err
		}
		return &StructDef{Fields: fields}, nil
	case formEnum:
		return enumDef(t, nil)
	case formList:
		return listDef(t), nil
	case formArray:
		return &ArrayDef{Elem: Lazy(t.Elem()), Len: t.Len(), Stride: t.Elem().Size()}, nil
	case formMap:
		return mapDef(t), nil
	case formOption:
		return optionDef(t), nil
	case formSmartPointer:
		def := providerDef(t)
		if def == nil {
			return nil, errors.Unsupported(errors.PhaseShape, t.String()+" returned no smart pointer definition")
		}
		return def, nil
	case formWeak:
		return weakDef(t), nil
	default:
		return nil, errors.Unsupported(errors.PhaseShape, t.String())
	}
}

func structFields(t reflect.Type, path []string) ([]Field, error) {
	var fields []Field
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, err := parseTag(sf)
		if err != nil {
			return nil, errors.New(errors.PhaseShape, errors.KindInvalidData).
				Path(append(path, sf.Name)...).
				Cause(err).
				Detail("malformed shape tag on %s", t).
				Build()
		}
		if tag.skip {
			continue
		}
		fields = append(fields, Field{
			Shape:      Lazy(sf.Type),
			Name:       tag.name,
			Doc:        sf.Tag.Get("doc"),
			Attributes: tag.attrs,
			Index:      i,
			Offset:     sf.Offset,
			Flags:      tag.flags,
		})
	}

	if len(fields) > MaxTrackedFields {
		return nil, errors.New(errors.PhaseShape, errors.KindUnsupported).
			Path(path...).
			Value(len(fields)).
			Detail("%s has %d fields, at most %d are supported", t, len(fields), MaxTrackedFields).
			Build()
	}
	return fields, nil
}

func enumDef(t reflect.Type, path []string) (*EnumDef, error) {
	di := discriminantField(t)
	if di != firstExported(t) {
		return nil, errors.New(errors.PhaseShape, errors.KindInvalidData).
			Path(path...).
			Detail("discriminant of %s must be its first exported field", t).
			Build()
	}

	dsf := t.Field(di)
	repr, ok := reprOf(dsf.Type.Kind())
	if !ok {
		return nil, errors.WrongShape(errors.PhaseShape, append(path, dsf.Name), "integer discriminant", dsf.Type.String())
	}

	def := &EnumDef{Repr: repr, DiscOffset: dsf.Offset}
	names := make(map[string]struct{})
	discs := make(map[int64]string)
	next := int64(0)

	for i := di + 1; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, err := parseTag(sf)
		if err != nil {
			return nil, errors.New(errors.PhaseShape, errors.KindInvalidData).
				Path(append(path, sf.Name)...).
				Cause(err).
				Detail("malformed shape tag on %s", t).
				Build()
		}
		if tag.skip {
			continue
		}

		v := Variant{
			Name:         tag.name,
			Doc:          sf.Tag.Get("doc"),
			Discriminant: next,
			Offset:       sf.Offset,
		}
		if tag.hasDisc {
			v.Discriminant = tag.disc
			v.Explicit = true
		}
		if !fitsRepr(v.Discriminant, repr) {
			return nil, errors.Overflow(errors.PhaseShape, append(path, v.Name), v.Discriminant, repr.String())
		}
		if prev, dup := discs[v.Discriminant]; dup {
			return nil, errors.New(errors.PhaseShape, errors.KindInvalidData).
				Path(append(path, v.Name)...).
				Value(v.Discriminant).
				Detail("discriminant %d already used by %s", v.Discriminant, prev).
				Build()
		}
		if _, dup := names[v.Name]; dup {
			return nil, errors.New(errors.PhaseShape, errors.KindInvalidData).
				Path(append(path, v.Name)...).
				Detail("duplicate variant name").
				Build()
		}
		discs[v.Discriminant] = v.Name
		names[v.Name] = struct{}{}
		next = v.Discriminant + 1

		if err := variantPayload(&v, sf, tag, append(path, v.Name)); err != nil {
			return nil, err
		}
		def.Variants = append(def.Variants, v)
	}

	if len(def.Variants) == 0 {
		return nil, errors.New(errors.PhaseShape, errors.KindInvalidData).
			Path(path...).
			Detail("enum %s has no variants", t).
			Build()
	}
	return def, nil
}

func variantPayload(v *Variant, sf reflect.StructField, tag tagInfo, path []string) error {
	pt := sf.Type
	if isRegistered(pt) || classify(pt) != formStruct {
		v.Kind = VariantTuple
		v.Fields = []Field{{
			Shape:  Lazy(pt),
			Name:   "0",
			Index:  sf.Index[0],
			Offset: sf.Offset,
			Flags:  tag.flags,
		}}
		return nil
	}

	fields, err := structFields(pt, path)
	if err != nil {
		return err
	}
	for i := range fields {
		fields[i].Offset += sf.Offset
		if tag.tuple {
			fields[i].Name = strconv.Itoa(i)
		}
	}

	switch {
	case len(fields) == 0:
		v.Kind = VariantUnit
	case tag.tuple:
		v.Kind = VariantTuple
	default:
		v.Kind = VariantStruct
	}
	v.Fields = fields
	return nil
}

func listDef(t reflect.Type) *ListDef {
	et := t.Elem()
	return &ListDef{
		Elem: Lazy(et),
		Ops: ListOps{
			Init: func(dst ptr.Uninit, capacity int) ptr.Mut {
				return dst.Write(t, reflect.MakeSlice(t, 0, capacity))
			},
			Len: func(list ptr.Const) int {
				return list.Value(t).Len()
			},
			Get: func(list ptr.Const, i int) ptr.Const {
				return ptr.ConstOf(list.Value(t).Index(i).Addr().UnsafePointer())
			},
			Push: func(list ptr.Mut, elem ptr.Mut) {
				lv := list.Value(t)
				ev := elem.Value(et)
				lv.Set(reflect.Append(lv, ev))
				ev.SetZero()
			},
		},
	}
}

func mapDef(t reflect.Type) *MapDef {
	kt, vt := t.Key(), t.Elem()
	return &MapDef{
		Key:   Lazy(kt),
		Value: Lazy(vt),
		Ops: MapOps{
			Init: func(dst ptr.Uninit, capacity int) ptr.Mut {
				return dst.Write(t, reflect.MakeMapWithSize(t, capacity))
			},
			Len: func(m ptr.Const) int {
				return m.Value(t).Len()
			},
			Contains: func(m, key ptr.Const) bool {
				return m.Value(t).MapIndex(key.Value(kt)).IsValid()
			},
			Get: func(m, key ptr.Const) (ptr.Const, bool) {
				v := m.Value(t).MapIndex(key.Value(kt))
				if !v.IsValid() {
					return ptr.Const{}, false
				}
				return ptr.New(vt).Write(vt, v).AsConst(), true
			},
			Insert: func(m ptr.Mut, key, value ptr.Mut) (ptr.Mut, bool) {
				mv := m.Value(t)
				kv, vv := key.Value(kt), value.Value(vt)
				var prev ptr.Mut
				old := mv.MapIndex(kv)
				if old.IsValid() {
					prev = ptr.New(vt).Write(vt, old)
				}
				mv.SetMapIndex(kv, vv)
				vv.SetZero()
				if !old.IsValid() {
					kv.SetZero()
				}
				return prev, old.IsValid()
			},
			All: func(m ptr.Const) iter.Seq2[ptr.Const, ptr.Const] {
				return func(yield func(ptr.Const, ptr.Const) bool) {
					it := m.Value(t).MapRange()
					for it.Next() {
						k := ptr.New(kt).Write(kt, it.Key()).AsConst()
						v := ptr.New(vt).Write(vt, it.Value()).AsConst()
						if !yield(k, v) {
							return
						}
					}
				}
			},
		},
	}
}

func optionDef(t reflect.Type) *OptionDef {
	it := t.Elem()
	return &OptionDef{
		Inner: Lazy(it),
		Ops: OptionOps{
			IsSome: func(opt ptr.Const) bool {
				return !opt.Value(t).IsNil()
			},
			Get: func(opt ptr.Const) (ptr.Const, bool) {
				v := opt.Value(t)
				if v.IsNil() {
					return ptr.Const{}, false
				}
				return ptr.ConstOf(v.UnsafePointer()), true
			},
			InitSome: func(dst ptr.Uninit, value ptr.Mut) ptr.Mut {
				return dst.Write(t, reflect.NewAt(it, value.Pointer()))
			},
			InitNone: func(dst ptr.Uninit) ptr.Mut {
				dst.Zero(t)
				return dst.AssumeInit()
			},
		},
	}
}

func weakDef(t reflect.Type) *SmartPointerDef {
	m, _ := t.MethodByName("Value")
	pointee := m.Type.Out(0).Elem()
	upgrade := func(sp ptr.Const) (ptr.Const, bool) {
		v := sp.Value(t).MethodByName("Value").Call(nil)[0]
		if v.IsNil() {
			return ptr.Const{}, false
		}
		return ptr.ConstOf(v.UnsafePointer()), true
	}
	return &SmartPointerDef{
		Pointee:     Lazy(pointee),
		PointeeType: pointee,
		Flags:       FlagWeak,
		Known:       PointerWeak,
		Ops:         SmartPointerOps{Upgrade: upgrade},
	}
}
