package reader

import (
	"encoding"
	"iter"
	"strconv"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// Scalar reads a leaf value.
type Scalar struct {
	Value
	def *shape.ScalarDef
}

func (v Value) IntoScalar() (Scalar, error) {
	d := v.shape.Scalar()
	if d == nil {
		return Scalar{}, v.wasNotA("scalar")
	}
	return Scalar{Value: v, def: d}, nil
}

func (s Scalar) Affinity() shape.Affinity { return s.def.Affinity }

func (s Scalar) Bool() bool          { return s.ptr.Value(s.shape.Type).Bool() }
func (s Scalar) Int() int64          { return s.ptr.Value(s.shape.Type).Int() }
func (s Scalar) Uint() uint64        { return s.ptr.Value(s.shape.Type).Uint() }
func (s Scalar) Float() float64      { return s.ptr.Value(s.shape.Type).Float() }
func (s Scalar) String() string      { return s.ptr.Value(s.shape.Type).String() }
func (s Scalar) Complex() complex128 { return s.ptr.Value(s.shape.Type).Complex() }

// Text returns the text form of a text scalar.
func (s Scalar) Text() (string, error) {
	m, ok := s.ptr.Value(s.shape.Type).Addr().Interface().(encoding.TextMarshaler)
	if !ok {
		return "", s.missing("text")
	}
	b, err := m.MarshalText()
	if err != nil {
		return "", errors.OperationFailed(errors.PhaseRead, nil, s.shape.Name(), "marshal text", err)
	}
	return string(b), nil
}

// Struct reads the fields of a struct.
type Struct struct {
	Value
	def *shape.StructDef
}

func (v Value) IntoStruct() (Struct, error) {
	d := v.shape.Struct()
	if d == nil {
		return Struct{}, v.wasNotA("struct")
	}
	return Struct{Value: v, def: d}, nil
}

func (s Struct) Def() *shape.StructDef { return s.def }
func (s Struct) Len() int              { return len(s.def.Fields) }

func (s Struct) Field(i int) (Value, error) {
	if i < 0 || i >= len(s.def.Fields) {
		return Value{}, errors.Field(errors.PhaseRead, nil, s.shape.Name(), errors.IndexOutOfBounds,
			"field index "+strconv.Itoa(i)+" out of range")
	}
	f := &s.def.Fields[i]
	return New(f.Shape(), s.ptr.Field(f.Offset)), nil
}

func (s Struct) FieldByName(name string) (Value, error) {
	i, ok := s.def.FieldIndex(name)
	if !ok {
		return Value{}, errors.Field(errors.PhaseRead, nil, s.shape.Name(), errors.NoSuchField,
			"no field "+strconv.Quote(name))
	}
	return s.Field(i)
}

// Fields yields every field with its value, in declaration order.
func (s Struct) Fields() iter.Seq2[shape.Field, Value] {
	return fieldValues(s.def.Fields, s.ptr)
}

// Enum reads the active variant of an enum.
type Enum struct {
	Value
	def *shape.EnumDef
}

func (v Value) IntoEnum() (Enum, error) {
	d := v.shape.Enum()
	if d == nil {
		return Enum{}, v.wasNotA("enum")
	}
	return Enum{Value: v, def: d}, nil
}

func (e Enum) Def() *shape.EnumDef  { return e.def }
func (e Enum) Discriminant() int64 { return e.def.ReadDiscriminant(e.ptr) }

// FormatDiscriminant renders the stored discriminant, unsigned for
// unsigned representations.
func (e Enum) FormatDiscriminant() string { return e.def.FormatDiscriminant(e.ptr) }

// VariantIndex resolves the discriminant against the variant table.
func (e Enum) VariantIndex() (int, error) {
	i, ok := e.def.ActiveVariant(e.ptr)
	if !ok {
		return -1, errors.New(errors.PhaseRead, errors.KindInvalidData).
			Expected(e.shape.Name()).
			Value(e.Discriminant()).
			Detail("discriminant %d names no variant", e.Discriminant()).
			Build()
	}
	return i, nil
}

func (e Enum) ActiveVariant() (*shape.Variant, error) {
	i, err := e.VariantIndex()
	if err != nil {
		return nil, err
	}
	return &e.def.Variants[i], nil
}

func (e Enum) Field(i int) (Value, error) {
	v, err := e.ActiveVariant()
	if err != nil {
		return Value{}, err
	}
	if i < 0 || i >= len(v.Fields) {
		return Value{}, errors.Field(errors.PhaseRead, nil, e.shape.Name(), errors.IndexOutOfBounds,
			"field index "+strconv.Itoa(i)+" out of range for "+v.Name)
	}
	f := &v.Fields[i]
	return New(f.Shape(), e.ptr.Field(f.Offset)), nil
}

func (e Enum) FieldByName(name string) (Value, error) {
	v, err := e.ActiveVariant()
	if err != nil {
		return Value{}, err
	}
	i, ok := v.FieldIndex(name)
	if !ok {
		return Value{}, errors.Field(errors.PhaseRead, nil, e.shape.Name(), errors.NoSuchField,
			"no field "+strconv.Quote(name)+" in "+v.Name)
	}
	return e.Field(i)
}

// Fields yields the fields of the active variant. An unknown discriminant
// yields nothing.
func (e Enum) Fields() iter.Seq2[shape.Field, Value] {
	v, err := e.ActiveVariant()
	if err != nil {
		return func(func(shape.Field, Value) bool) {}
	}
	return fieldValues(v.Fields, e.ptr)
}

// List reads a growable sequence.
type List struct {
	Value
	def *shape.ListDef
}

func (v Value) IntoList() (List, error) {
	d := v.shape.List()
	if d == nil {
		return List{}, v.wasNotA("list")
	}
	return List{Value: v, def: d}, nil
}

func (l List) Def() *shape.ListDef { return l.def }
func (l List) Len() int            { return l.def.Ops.Len(l.ptr) }

func (l List) Get(i int) (Value, error) {
	if i < 0 || i >= l.Len() {
		return Value{}, errors.Field(errors.PhaseRead, nil, l.shape.Name(), errors.IndexOutOfBounds,
			"index "+strconv.Itoa(i)+" out of range")
	}
	return New(l.def.Elem(), l.def.Ops.Get(l.ptr, i)), nil
}

func (l List) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		es := l.def.Elem()
		for i := range l.Len() {
			if !yield(i, New(es, l.def.Ops.Get(l.ptr, i))) {
				return
			}
		}
	}
}

// Array reads a fixed-length sequence.
type Array struct {
	Value
	def *shape.ArrayDef
}

func (v Value) IntoArray() (Array, error) {
	d := v.shape.Array()
	if d == nil {
		return Array{}, v.wasNotA("array")
	}
	return Array{Value: v, def: d}, nil
}

func (a Array) Def() *shape.ArrayDef { return a.def }
func (a Array) Len() int             { return a.def.Len }

func (a Array) Get(i int) (Value, error) {
	if i < 0 || i >= a.def.Len {
		return Value{}, errors.Field(errors.PhaseRead, nil, a.shape.Name(), errors.IndexOutOfBounds,
			"index "+strconv.Itoa(i)+" out of range")
	}
	return New(a.def.Elem(), a.ptr.Field(uintptr(i)*a.def.Stride)), nil
}

func (a Array) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		es := a.def.Elem()
		for i := range a.def.Len {
			if !yield(i, New(es, a.ptr.Field(uintptr(i)*a.def.Stride))) {
				return
			}
		}
	}
}

// Map reads key/value entries. Keys and values it yields are copies.
type Map struct {
	Value
	def *shape.MapDef
}

func (v Value) IntoMap() (Map, error) {
	d := v.shape.Map()
	if d == nil {
		return Map{}, v.wasNotA("map")
	}
	return Map{Value: v, def: d}, nil
}

func (m Map) Def() *shape.MapDef { return m.def }
func (m Map) Len() int           { return m.def.Ops.Len(m.ptr) }

// Contains reports whether key is present. A key of the wrong shape is
// never present.
func (m Map) Contains(key Value) bool {
	if !key.shape.Is(m.def.Key()) {
		return false
	}
	return m.def.Ops.Contains(m.ptr, key.ptr)
}

func (m Map) Get(key Value) (Value, bool) {
	if !key.shape.Is(m.def.Key()) {
		return Value{}, false
	}
	p, ok := m.def.Ops.Get(m.ptr, key.ptr)
	if !ok {
		return Value{}, false
	}
	return New(m.def.Value(), p), true
}

// All yields every entry in unspecified order.
func (m Map) All() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		ks, vs := m.def.Key(), m.def.Value()
		for k, v := range m.def.Ops.All(m.ptr) {
			if !yield(New(ks, k), New(vs, v)) {
				return
			}
		}
	}
}

// Option reads a value that may be absent.
type Option struct {
	Value
	def *shape.OptionDef
}

func (v Value) IntoOption() (Option, error) {
	d := v.shape.Option()
	if d == nil {
		return Option{}, v.wasNotA("option")
	}
	return Option{Value: v, def: d}, nil
}

func (o Option) Def() *shape.OptionDef { return o.def }
func (o Option) IsSome() bool          { return o.def.Ops.IsSome(o.ptr) }

// Get returns the contained value, if any.
func (o Option) Get() (Value, bool) {
	p, ok := o.def.Ops.Get(o.ptr)
	if !ok {
		return Value{}, false
	}
	return New(o.def.Inner(), p), true
}

// SmartPointer reads through a smart pointer.
type SmartPointer struct {
	Value
	def *shape.SmartPointerDef
}

func (v Value) IntoSmartPointer() (SmartPointer, error) {
	d := v.shape.SmartPointer()
	if d == nil {
		return SmartPointer{}, v.wasNotA("smart pointer")
	}
	return SmartPointer{Value: v, def: d}, nil
}

func (sp SmartPointer) Def() *shape.SmartPointerDef { return sp.def }

func (sp SmartPointer) pointee(p ptr.Const) Value {
	if sp.def.Pointee == nil {
		panic("reader: smart pointer " + sp.shape.Name() + " has an opaque pointee")
	}
	return New(sp.def.Pointee(), p)
}

// Borrow returns the pointee of an owning pointer.
func (sp SmartPointer) Borrow() (Value, bool, error) {
	if sp.def.Ops.Borrow == nil {
		return Value{}, false, sp.missing("borrow")
	}
	p, ok := sp.def.Ops.Borrow(sp.ptr)
	if !ok {
		return Value{}, false, nil
	}
	return sp.pointee(p), true, nil
}

// Upgrade returns the pointee of a weak pointer while it is still alive.
func (sp SmartPointer) Upgrade() (Value, bool, error) {
	if sp.def.Ops.Upgrade == nil {
		return Value{}, false, sp.missing("upgrade")
	}
	p, ok := sp.def.Ops.Upgrade(sp.ptr)
	if !ok {
		return Value{}, false, nil
	}
	return sp.pointee(p), true, nil
}

// Lock acquires an exclusive lock. Call release exactly once when done.
func (sp SmartPointer) Lock() (v Value, release func(), err error) {
	if sp.def.Ops.Lock == nil {
		return Value{}, nil, sp.missing("lock")
	}
	p, release := sp.def.Ops.Lock(sp.ptr)
	return sp.pointee(p.AsConst()), release, nil
}

// RLock acquires a shared lock. Call release exactly once when done.
func (sp SmartPointer) RLock() (v Value, release func(), err error) {
	if sp.def.Ops.RLock == nil {
		return Value{}, nil, sp.missing("read lock")
	}
	p, release := sp.def.Ops.RLock(sp.ptr)
	return sp.pointee(p), release, nil
}
