// Package pretty renders values through the reader as indented, optionally
// coloured text.
//
//	main.outer {
//	  name: "Hello, world!",
//	  inner: main.inner {
//	    x: 42,
//	    b: 43,
//	  },
//	}
//
// Fields flagged sensitive print as [redacted]. A value reached again
// through an option or smart pointer while it is still being printed
// prints as a cycle marker instead of recursing.
package pretty

import (
	"bytes"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/typeshape/reader"
	"github.com/wippyai/typeshape/shape"
)

var (
	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	scalarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))

	variantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	redactedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

const (
	defaultIndent   = 2
	defaultMaxDepth = 64

	redacted = "[redacted]"
)

// Config controls rendering. A nil *Config uses the defaults: no colour,
// two-space indent, depth limit 64 and sensitive fields redacted.
type Config struct {
	Color         bool
	Indent        int
	MaxDepth      int
	ShowSensitive bool
}

func (c *Config) indent() int {
	if c == nil || c.Indent <= 0 {
		return defaultIndent
	}
	return c.Indent
}

func (c *Config) maxDepth() int {
	if c == nil || c.MaxDepth <= 0 {
		return defaultMaxDepth
	}
	return c.MaxDepth
}

func (c *Config) color() bool         { return c != nil && c.Color }
func (c *Config) showSensitive() bool { return c != nil && c.ShowSensitive }

// Print writes v to w with the default configuration.
func Print(w io.Writer, v reader.Value) error {
	var c *Config
	return c.Print(w, v)
}

// Sprint returns v rendered with the default configuration.
func Sprint(v reader.Value) string {
	var c *Config
	return c.Sprint(v)
}

func (c *Config) Print(w io.Writer, v reader.Value) error {
	p := &printer{
		cfg:      c,
		pad:      strings.Repeat(" ", c.indent()),
		visiting: make(map[reader.Identity]struct{}),
	}
	p.indirect(v, 0)
	p.buf.WriteByte('\n')
	_, err := w.Write(p.buf.Bytes())
	return err
}

func (c *Config) Sprint(v reader.Value) string {
	var b strings.Builder
	_ = c.Print(&b, v)
	return strings.TrimSuffix(b.String(), "\n")
}

type printer struct {
	cfg      *Config
	buf      bytes.Buffer
	pad      string
	visiting map[reader.Identity]struct{}
}

func (p *printer) styled(st lipgloss.Style, s string) {
	if p.cfg.color() {
		s = st.Render(s)
	}
	p.buf.WriteString(s)
}

func (p *printer) newline(depth int) {
	p.buf.WriteByte('\n')
	for range depth {
		p.buf.WriteString(p.pad)
	}
}

func (p *printer) value(v reader.Value, depth int) {
	if depth >= p.cfg.maxDepth() {
		p.styled(mutedStyle, "…")
		return
	}
	switch v.Kind() {
	case shape.KindScalar:
		p.scalar(v)
	case shape.KindStruct:
		s, _ := v.IntoStruct()
		p.styled(typeStyle, v.Shape().Name())
		p.fields(s.Fields(), depth)
	case shape.KindEnum:
		p.enum(v, depth)
	case shape.KindList:
		l, _ := v.IntoList()
		p.seq(l.Len(), l.All(), depth)
	case shape.KindArray:
		a, _ := v.IntoArray()
		p.seq(a.Len(), a.All(), depth)
	case shape.KindMap:
		p.mapping(v, depth)
	case shape.KindOption:
		o, _ := v.IntoOption()
		inner, ok := o.Get()
		if !ok {
			p.styled(mutedStyle, "None")
			return
		}
		p.styled(variantStyle, "Some")
		p.buf.WriteByte('(')
		p.indirect(inner, depth)
		p.buf.WriteByte(')')
	case shape.KindSmartPointer:
		p.pointer(v, depth)
	}
}

func (p *printer) scalar(v reader.Value) {
	text, err := v.Debug()
	if err != nil {
		p.styled(mutedStyle, "<"+v.Shape().Name()+">")
		return
	}
	p.styled(scalarStyle, text)
}

func (p *printer) fields(all iter.Seq2[shape.Field, reader.Value], depth int) {
	p.buf.WriteString(" {")
	empty := true
	for f, fv := range all {
		empty = false
		p.newline(depth + 1)
		p.styled(fieldStyle, f.Name)
		p.buf.WriteString(": ")
		if f.Has(shape.FlagSensitive) && !p.cfg.showSensitive() {
			p.styled(redactedStyle, redacted)
		} else {
			p.value(fv, depth+1)
		}
		p.buf.WriteByte(',')
	}
	if !empty {
		p.newline(depth)
	}
	p.buf.WriteByte('}')
}

func (p *printer) enum(v reader.Value, depth int) {
	en, _ := v.IntoEnum()
	p.styled(typeStyle, v.Shape().Name())
	p.buf.WriteString("::")
	variant, err := en.ActiveVariant()
	if err != nil {
		p.styled(redactedStyle, "<discriminant "+en.FormatDiscriminant()+">")
		return
	}
	p.styled(variantStyle, variant.Name)
	switch variant.Kind {
	case shape.VariantUnit:
	case shape.VariantTuple:
		p.buf.WriteByte('(')
		for i := range variant.Fields {
			if i > 0 {
				p.buf.WriteString(", ")
			}
			fv, _ := en.Field(i)
			if variant.Fields[i].Has(shape.FlagSensitive) && !p.cfg.showSensitive() {
				p.styled(redactedStyle, redacted)
				continue
			}
			p.value(fv, depth)
		}
		p.buf.WriteByte(')')
	default:
		p.fields(en.Fields(), depth)
	}
}

func (p *printer) seq(n int, all iter.Seq2[int, reader.Value], depth int) {
	if n == 0 {
		p.buf.WriteString("[]")
		return
	}
	p.buf.WriteByte('[')
	for _, ev := range all {
		p.newline(depth + 1)
		p.value(ev, depth+1)
		p.buf.WriteByte(',')
	}
	p.newline(depth)
	p.buf.WriteByte(']')
}

// mapping prints entries sorted by their rendered key so output is stable.
func (p *printer) mapping(v reader.Value, depth int) {
	m, _ := v.IntoMap()
	if m.Len() == 0 {
		p.buf.WriteString("{}")
		return
	}
	type entry struct {
		key string
		val reader.Value
	}
	entries := make([]entry, 0, m.Len())
	for kv, vv := range m.All() {
		sub := &printer{cfg: &Config{Color: p.cfg.color(), MaxDepth: 1}, pad: p.pad, visiting: p.visiting}
		sub.value(kv, 0)
		entries = append(entries, entry{key: sub.buf.String(), val: vv})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.key, b.key) })

	p.buf.WriteByte('{')
	for _, e := range entries {
		p.newline(depth + 1)
		p.buf.WriteString(e.key)
		p.buf.WriteString(": ")
		p.value(e.val, depth+1)
		p.buf.WriteByte(',')
	}
	p.newline(depth)
	p.buf.WriteByte('}')
}

func (p *printer) indirect(v reader.Value, depth int) {
	id := v.Identity()
	if _, ok := p.visiting[id]; ok {
		p.styled(mutedStyle, "<cycle "+v.Shape().Name()+">")
		return
	}
	p.visiting[id] = struct{}{}
	defer delete(p.visiting, id)
	p.value(v, depth)
}

func (p *printer) pointer(v reader.Value, depth int) {
	sp, _ := v.IntoSmartPointer()
	def := sp.Def()
	p.styled(variantStyle, pointerLabel(def))
	p.buf.WriteByte('(')
	defer p.buf.WriteByte(')')

	var (
		pointee reader.Value
		ok      bool
		err     error
	)
	switch {
	case def.Ops.Borrow != nil:
		pointee, ok, err = sp.Borrow()
	case def.Ops.Upgrade != nil:
		pointee, ok, err = sp.Upgrade()
	case def.Ops.RLock != nil:
		var release func()
		if pointee, release, err = sp.RLock(); err == nil {
			defer release()
			ok = true
		}
	case def.Ops.Lock != nil:
		var release func()
		if pointee, release, err = sp.Lock(); err == nil {
			defer release()
			ok = true
		}
	default:
		p.styled(mutedStyle, "opaque")
		return
	}
	switch {
	case err != nil:
		p.styled(redactedStyle, err.Error())
	case !ok:
		p.styled(mutedStyle, "empty")
	default:
		p.indirect(pointee, depth)
	}
}

func pointerLabel(def *shape.SmartPointerDef) string {
	switch def.Known {
	case shape.PointerBox:
		return "Box"
	case shape.PointerShared:
		return "Shared"
	case shape.PointerWeak:
		return "Weak"
	case shape.PointerMutex:
		return "Mutex"
	case shape.PointerRWMutex:
		return "RWMutex"
	}
	return "Pointer"
}
