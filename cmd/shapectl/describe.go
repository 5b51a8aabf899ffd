package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/typeshape/shape"
)

// describer renders a shape as an indented outline. Types already on the
// current path print once and are marked recursive below that.
type describer struct {
	b      strings.Builder
	color  bool
	onPath map[reflect.Type]bool
}

func describe(s *shape.Shape, color bool) string {
	d := &describer{color: color, onPath: make(map[reflect.Type]bool)}
	d.shape(s, 0)
	return strings.TrimSuffix(d.b.String(), "\n")
}

func (d *describer) style(st lipgloss.Style, s string) string {
	if d.color {
		return st.Render(s)
	}
	return s
}

func (d *describer) line(depth int, format string, args ...any) {
	d.b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&d.b, format, args...)
	d.b.WriteByte('\n')
}

func (d *describer) shape(s *shape.Shape, depth int) {
	head := d.style(typeStyle, s.Name()) + " " + d.style(kindStyle, kindLabel(s))
	if d.onPath[s.Type] {
		d.line(depth, "%s %s", head, d.style(helpStyle, "(recursive)"))
		return
	}
	d.line(depth, "%s %s", head, d.style(helpStyle, fmt.Sprintf("size=%d align=%d ops=%s",
		s.Layout.Size, s.Layout.Align, s.Ops.Capabilities())))

	d.onPath[s.Type] = true
	defer delete(d.onPath, s.Type)

	switch def := s.Def.(type) {
	case *shape.StructDef:
		d.fields(def.Fields, depth+1)
	case *shape.EnumDef:
		for _, v := range def.Variants {
			d.line(depth+1, "%s = %d %s", d.style(fieldStyle, v.Name), v.Discriminant, d.style(helpStyle, v.Kind.String()))
			d.fields(v.Fields, depth+2)
		}
	case *shape.ListDef:
		d.shape(def.Elem(), depth+1)
	case *shape.ArrayDef:
		d.shape(def.Elem(), depth+1)
	case *shape.MapDef:
		d.shape(def.Key(), depth+1)
		d.shape(def.Value(), depth+1)
	case *shape.OptionDef:
		d.shape(def.Inner(), depth+1)
	case *shape.SmartPointerDef:
		if def.Pointee != nil {
			d.shape(def.Pointee(), depth+1)
		}
	}
}

func (d *describer) fields(fields []shape.Field, depth int) {
	for _, f := range fields {
		label := d.style(fieldStyle, f.Name) + ":"
		if f.Has(shape.FlagSensitive) {
			label += " " + d.style(errorStyle, "sensitive")
		}
		if f.Has(shape.FlagDefault) {
			label += " " + d.style(helpStyle, "default")
		}
		d.line(depth, "%s", label)
		d.shape(f.Shape(), depth+1)
	}
}

func kindLabel(s *shape.Shape) string {
	switch def := s.Def.(type) {
	case *shape.ScalarDef:
		return "scalar(" + def.Affinity.String() + ")"
	case *shape.EnumDef:
		return "enum(" + def.Repr.String() + ")"
	case *shape.ArrayDef:
		return fmt.Sprintf("array[%d]", def.Len)
	case *shape.SmartPointerDef:
		return "pointer(" + def.Known.String() + ")"
	}
	return s.Kind().String()
}
