package shape

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/wippyai/typeshape/shape/internal/layout"
)

// Shape is the immutable runtime descriptor of a Go type: its layout, its
// operation table and its structural definition.
type Shape struct {
	Type   reflect.Type
	Ops    *Operations
	Def    Definition
	Doc    []string
	Layout Layout
}

type Layout struct {
	Size  uintptr
	Align uintptr
}

// Func resolves a nested shape lazily, which keeps recursive type graphs
// finite.
type Func func() *Shape

// Lazy returns a Func resolving t through the registry on first call.
func Lazy(t reflect.Type) Func {
	return Func(sync.OnceValue(func() *Shape { return MustFor(t) }))
}

// Name returns the type name reported by the operation table.
func (s *Shape) Name() string {
	if s.Ops != nil && s.Ops.TypeName != nil {
		return s.Ops.TypeName()
	}
	if s.Type != nil {
		return s.Type.String()
	}
	return "<anonymous>"
}

func (s *Shape) String() string { return s.Name() }

func (s *Shape) Kind() DefKind { return s.Def.Kind() }

// Struct returns the struct definition, or nil.
func (s *Shape) Struct() *StructDef {
	d, _ := s.Def.(*StructDef)
	return d
}

func (s *Shape) Enum() *EnumDef {
	d, _ := s.Def.(*EnumDef)
	return d
}

func (s *Shape) List() *ListDef {
	d, _ := s.Def.(*ListDef)
	return d
}

func (s *Shape) Array() *ArrayDef {
	d, _ := s.Def.(*ArrayDef)
	return d
}

func (s *Shape) Map() *MapDef {
	d, _ := s.Def.(*MapDef)
	return d
}

func (s *Shape) Option() *OptionDef {
	d, _ := s.Def.(*OptionDef)
	return d
}

func (s *Shape) SmartPointer() *SmartPointerDef {
	d, _ := s.Def.(*SmartPointerDef)
	return d
}

func (s *Shape) Scalar() *ScalarDef {
	d, _ := s.Def.(*ScalarDef)
	return d
}

// Is reports whether s and other describe the same type.
func (s *Shape) Is(other *Shape) bool { return Equal(s, other) }

// IsType reports whether s describes T.
func IsType[T any](s *Shape) bool { return Equal(s, Of[T]()) }

// Assert panics if s and other differ.
func (s *Shape) Assert(other *Shape) {
	if !Equal(s, other) {
		panic(fmt.Sprintf("shape: expected %s, got %s", other.Name(), s.Name()))
	}
}

// Builder assembles a Shape by hand. Type, Layout, Operations and
// Definition are required; Build panics when any is missing or when the
// declared layout disagrees with the Go type.
type Builder struct {
	shape     Shape
	hasLayout bool
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Type(t reflect.Type) *Builder {
	b.shape.Type = t
	return b
}

func (b *Builder) Layout(l Layout) *Builder {
	b.shape.Layout = l
	b.hasLayout = true
	return b
}

func (b *Builder) Operations(o *Operations) *Builder {
	b.shape.Ops = o
	return b
}

func (b *Builder) Definition(d Definition) *Builder {
	b.shape.Def = d
	return b
}

func (b *Builder) Doc(lines ...string) *Builder {
	b.shape.Doc = lines
	return b
}

func (b *Builder) Build() *Shape {
	s := b.shape
	switch {
	case s.Type == nil:
		panic("shape: builder is missing a type")
	case !b.hasLayout:
		panic("shape: builder for " + s.Type.String() + " is missing a layout")
	case s.Ops == nil:
		panic("shape: builder for " + s.Type.String() + " is missing operations")
	case s.Def == nil:
		panic("shape: builder for " + s.Type.String() + " is missing a definition")
	}

	info := layout.NewCalculator().Calculate(s.Type)
	if s.Layout.Size != info.Size || s.Layout.Align != info.Align {
		panic(fmt.Sprintf("shape: declared layout {%d %d} for %s, actual {%d %d}",
			s.Layout.Size, s.Layout.Align, s.Type, info.Size, info.Align))
	}
	if sd, ok := s.Def.(*StructDef); ok {
		checkFieldOffsets(s.Type, sd.Fields, info)
	}
	if s.Ops.TypeName == nil {
		name := s.Type.String()
		s.Ops.TypeName = func() string { return name }
	}
	return &s
}

func checkFieldOffsets(t reflect.Type, fields []Field, info layout.Info) {
	if t.Kind() != reflect.Struct {
		panic("shape: struct definition declared for " + t.String())
	}
	for _, f := range fields {
		if f.Index < 0 || f.Index >= len(info.FieldOffs) || info.FieldOffs[f.Index] != f.Offset {
			panic(fmt.Sprintf("shape: field %s of %s declared at offset %d", f.Name, t, f.Offset))
		}
	}
}

// StructLayout computes the layout of a struct with fields of the given
// layouts, and the offset of each field.
func StructLayout(fields ...Layout) (Layout, []uintptr) {
	infos := make([]layout.Info, len(fields))
	for i, f := range fields {
		infos[i] = layout.Info{Size: f.Size, Align: f.Align}
	}
	info := layout.Sequential(infos...)
	return Layout{Size: info.Size, Align: info.Align}, info.FieldOffs
}

// LayoutOf returns the layout of t.
func LayoutOf(t reflect.Type) Layout {
	return Layout{Size: t.Size(), Align: uintptr(t.Align())}
}
