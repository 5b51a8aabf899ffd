package shape

import (
	"iter"
	"reflect"
	"strings"

	"github.com/wippyai/typeshape/ptr"
)

// Definition is the structural description of a type. It is one of
// *ScalarDef, *StructDef, *EnumDef, *ListDef, *ArrayDef, *MapDef, *OptionDef
// or *SmartPointerDef.
type Definition interface {
	Kind() DefKind
	isDefinition()
}

type ScalarDef struct {
	Affinity Affinity
}

type StructDef struct {
	Fields []Field
}

type EnumDef struct {
	Variants   []Variant
	Repr       EnumRepr
	DiscOffset uintptr
}

// ListDef describes a growable sequence. Elements live in memory owned by
// the list; Push moves a separately allocated element in.
type ListDef struct {
	Elem Func
	Ops  ListOps
}

// ArrayDef describes a fixed-length sequence stored inline.
type ArrayDef struct {
	Elem   Func
	Len    int
	Stride uintptr
}

type MapDef struct {
	Key   Func
	Value Func
	Ops   MapOps
}

// OptionDef describes a value that may be absent. In Go this is *T.
type OptionDef struct {
	Inner Func
	Ops   OptionOps
}

type SmartPointerDef struct {
	Pointee Func
	// PointeeType lets derivation inspect the pointee without resolving
	// its shape. Nil when the pointee is opaque.
	PointeeType reflect.Type
	Ops         SmartPointerOps
	Flags       SmartPointerFlags
	Known       KnownPointer
}

func (*ScalarDef) Kind() DefKind       { return KindScalar }
func (*StructDef) Kind() DefKind       { return KindStruct }
func (*EnumDef) Kind() DefKind         { return KindEnum }
func (*ListDef) Kind() DefKind         { return KindList }
func (*ArrayDef) Kind() DefKind        { return KindArray }
func (*MapDef) Kind() DefKind          { return KindMap }
func (*OptionDef) Kind() DefKind       { return KindOption }
func (*SmartPointerDef) Kind() DefKind { return KindSmartPointer }

func (*ScalarDef) isDefinition()       {}
func (*StructDef) isDefinition()       {}
func (*EnumDef) isDefinition()         {}
func (*ListDef) isDefinition()         {}
func (*ArrayDef) isDefinition()        {}
func (*MapDef) isDefinition()          {}
func (*OptionDef) isDefinition()       {}
func (*SmartPointerDef) isDefinition() {}

// Attribute is a free-form key/value annotation carried from a struct tag.
type Attribute struct {
	Key   string
	Value string
}

// Field describes one named slot of a struct or enum variant. Offset is
// relative to the start of the enclosing struct or enum value.
type Field struct {
	Shape      Func
	Name       string
	Doc        string
	Attributes []Attribute
	Index      int
	Offset     uintptr
	Flags      FieldFlags
}

func (f *Field) Has(flag FieldFlags) bool { return f.Flags&flag != 0 }

// Attr returns the value of the named attribute.
func (f *Field) Attr(key string) (string, bool) {
	for _, a := range f.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

type Variant struct {
	Name         string
	Doc          string
	Fields       []Field
	Discriminant int64
	Offset       uintptr
	Kind         VariantKind
	Explicit     bool
}

// FieldIndex returns the position of the named field. Exact matches win
// over case-insensitive ones.
func (d *StructDef) FieldIndex(name string) (int, bool) {
	return fieldIndex(d.Fields, name)
}

func (v *Variant) FieldIndex(name string) (int, bool) {
	return fieldIndex(v.Fields, name)
}

func fieldIndex(fields []Field, name string) (int, bool) {
	for i := range fields {
		if fields[i].Name == name {
			return i, true
		}
	}
	for i := range fields {
		if strings.EqualFold(fields[i].Name, name) {
			return i, true
		}
	}
	return -1, false
}

func (d *EnumDef) VariantByName(name string) (int, bool) {
	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// VariantByDiscriminant scans the variant table for disc.
func (d *EnumDef) VariantByDiscriminant(disc int64) (int, bool) {
	for i := range d.Variants {
		if d.Variants[i].Discriminant == disc {
			return i, true
		}
	}
	return -1, false
}

// ActiveVariant reads the discriminant of v and resolves it.
func (d *EnumDef) ActiveVariant(v ptr.Const) (int, bool) {
	return d.VariantByDiscriminant(d.ReadDiscriminant(v))
}

type ListOps struct {
	// Init writes an empty list with room for capacity elements.
	Init func(dst ptr.Uninit, capacity int) ptr.Mut
	Len  func(list ptr.Const) int
	Get  func(list ptr.Const, i int) ptr.Const
	// Push moves elem to the end of the list. elem is left zeroed and must
	// not be dropped by the caller.
	Push func(list ptr.Mut, elem ptr.Mut)
}

type MapOps struct {
	Init     func(dst ptr.Uninit, capacity int) ptr.Mut
	Len      func(m ptr.Const) int
	Contains func(m, key ptr.Const) bool
	// Get returns a copy of the value stored under key.
	Get func(m, key ptr.Const) (ptr.Const, bool)
	// Insert moves key and value into the map. When the key was present the
	// map keeps its original key, and both the previous value and the
	// offered key stay owned by the caller.
	Insert func(m ptr.Mut, key, value ptr.Mut) (ptr.Mut, bool)
	// All yields copies of every entry.
	All func(m ptr.Const) iter.Seq2[ptr.Const, ptr.Const]
}

type OptionOps struct {
	IsSome func(opt ptr.Const) bool
	Get    func(opt ptr.Const) (ptr.Const, bool)
	// InitSome takes ownership of value, which must be a heap allocation of
	// the inner type obtained from ptr.New.
	InitSome func(dst ptr.Uninit, value ptr.Mut) ptr.Mut
	InitNone func(dst ptr.Uninit) ptr.Mut
}

type SmartPointerOps struct {
	// New takes ownership of pointee, allocated with ptr.New.
	New     func(dst ptr.Uninit, pointee ptr.Mut) ptr.Mut
	Borrow  func(sp ptr.Const) (ptr.Const, bool)
	Upgrade func(sp ptr.Const) (ptr.Const, bool)
	Lock    func(sp ptr.Const) (ptr.Mut, func())
	RLock   func(sp ptr.Const) (ptr.Const, func())
}

// SmartPointerProvider is implemented by smart pointer types so derivation
// can describe them. It is called on a pointer to the zero value and must
// not resolve any shape.
type SmartPointerProvider interface {
	SmartPointerDef() *SmartPointerDef
}
