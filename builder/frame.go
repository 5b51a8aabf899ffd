package builder

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// attach describes how a frame's memory relates to its parent.
type attach uint8

const (
	attachRoot attach = iota
	attachField
	attachArrayElem
	attachListElem
	attachMapKey
	attachMapValue
	attachSome
	attachPointee
)

var attachNames = [...]string{
	attachRoot:      "root",
	attachField:     "field",
	attachArrayElem: "array element",
	attachListElem:  "list element",
	attachMapKey:    "map key",
	attachMapValue:  "map value",
	attachSome:      "option value",
	attachPointee:   "pointee",
}

func (a attach) String() string {
	if int(a) < len(attachNames) {
		return attachNames[a]
	}
	return "unknown"
}

// inPlace reports whether the frame addresses memory inside its parent.
// Other frames own a separate allocation that is moved into the parent
// on Pop.
func (a attach) inPlace() bool {
	return a == attachField || a == attachArrayElem
}

type frame struct {
	shape  *shape.Shape
	data   ptr.Uninit
	segs   []string
	key    ptr.Mut
	attach attach
	index  int

	init    bool
	hasKey  bool
	fields  ISet
	variant int
	filled  int
}

var framePool = sync.Pool{
	New: func() any { return new(frame) },
}

func getFrame(s *shape.Shape, data ptr.Uninit, segs []string, a attach, index int) *frame {
	f := framePool.Get().(*frame)
	*f = frame{shape: s, data: data, segs: segs, attach: a, index: index, variant: -1}
	return f
}

func putFrame(f *frame) {
	*f = frame{}
	framePool.Put(f)
}

func (f *frame) path() string { return strings.Join(f.segs, ".") }

// partFields returns the fields tracked by the frame's ISet.
func (f *frame) partFields() []shape.Field {
	switch d := f.shape.Def.(type) {
	case *shape.StructDef:
		return d.Fields
	case *shape.EnumDef:
		if f.variant >= 0 {
			return d.Variants[f.variant].Fields
		}
	}
	return nil
}

// explode converts a whole initialized value into per-part bookkeeping so
// a single part can be replaced.
func (f *frame) explode() {
	if !f.init {
		return
	}
	switch d := f.shape.Def.(type) {
	case *shape.StructDef:
		f.fields = ISet(1)<<len(d.Fields) - 1
	case *shape.EnumDef:
		i, ok := d.ActiveVariant(f.data.AssumeInit().AsConst())
		if !ok {
			return
		}
		f.variant = i
		f.fields = ISet(1)<<len(d.Variants[i].Fields) - 1
	case *shape.ArrayDef:
		f.filled = d.Len
	default:
		return
	}
	f.init = false
}

func (f *frame) reset() {
	f.init = false
	f.hasKey = false
	f.key = ptr.Mut{}
	f.fields = 0
	f.variant = -1
	f.filled = 0
}

// fillDefaults writes the default of every unset field flagged default.
func (b *Builder) fillDefaults(f *frame) {
	if f.init {
		return
	}
	fields := f.partFields()
	for i := range fields {
		fd := &fields[i]
		if f.fields.Has(i) || !fd.Has(shape.FlagDefault) {
			continue
		}
		if _, parked := b.parked[childPath(f, fd.Name)]; parked {
			continue
		}
		fs := fd.Shape()
		if fs.Ops.Default == nil {
			continue
		}
		fs.Ops.Default(f.data.Field(fd.Offset))
		f.fields.Set(i)
	}
}

// settle fills defaults and reports why the frame does not yet hold a
// valid value, if it does not.
func (b *Builder) settle(f *frame) error {
	if f.hasKey {
		return errors.InvalidState(errors.PhaseBuild, f.segs, "map key has no value")
	}
	if f.init {
		return nil
	}
	b.fillDefaults(f)

	name := f.shape.Name()
	switch d := f.shape.Def.(type) {
	case *shape.StructDef:
		if i := f.fields.FirstUnset(len(d.Fields)); i >= 0 {
			if err := b.settleParked(f, d.Fields[i].Name); err != nil {
				return err
			}
			return errors.PartiallyInitialized(childSegs(f, d.Fields[i].Name), name, d.Fields[i].Name)
		}
		return nil
	case *shape.EnumDef:
		if f.variant < 0 {
			return errors.NoVariantSelected(f.segs, name)
		}
		v := &d.Variants[f.variant]
		if i := f.fields.FirstUnset(len(v.Fields)); i >= 0 {
			if err := b.settleParked(f, v.Fields[i].Name); err != nil {
				return err
			}
			return errors.UninitializedEnumField(f.segs, name, v.Name, v.Fields[i].Name)
		}
		return nil
	case *shape.ArrayDef:
		if f.filled < d.Len {
			seg := fmt.Sprintf("[%d]", f.filled)
			return errors.PartiallyInitialized(childSegs(f, seg), name, seg)
		}
		return nil
	case *shape.ScalarDef:
		return errors.UninitializedScalar(f.segs, name)
	default:
		return errors.New(errors.PhaseBuild, errors.KindUninitializedField).
			Path(f.segs...).
			Expected(name).
			Detail("%s was never written", f.shape.Kind()).
			Build()
	}
}

// settleParked reports the deepest reason a part parked below f at seg is
// incomplete, or nil when nothing is parked there.
func (b *Builder) settleParked(f *frame, seg string) error {
	pf, ok := b.parked[childPath(f, seg)]
	if !ok {
		return nil
	}
	return b.settle(pf)
}

func (b *Builder) checkInvariants(f *frame) error {
	inv := f.shape.Ops.Invariants
	if inv == nil || inv(f.data.AssumeInit().AsConst()) {
		return nil
	}
	return errors.InvariantViolation(f.segs, f.shape.Name(), "invariants do not hold")
}

// dropWhole drops an initialized value of s.
func dropWhole(s *shape.Shape, m ptr.Mut) {
	if s.Ops.Drop != nil {
		s.Ops.Drop(m)
		return
	}
	m.AsUninit().Zero(s.Type)
}

// clear drops everything the frame and its parked descendants initialized
// and leaves the frame empty.
func (b *Builder) clear(f *frame) {
	b.dropParked(f.path())
	b.dropOwn(f)
}

// dropOwn drops the parts tracked by f itself, deepest first.
func (b *Builder) dropOwn(f *frame) {
	if f.hasKey {
		dropWhole(f.shape.Map().Key(), f.key)
	}

	switch {
	case f.init:
		dropWhole(f.shape, f.data.AssumeInit())
		b.drops++
	case f.filled > 0:
		ad := f.shape.Array()
		es := ad.Elem()
		for i := f.filled - 1; i >= 0; i-- {
			dropWhole(es, f.data.Field(uintptr(i)*ad.Stride).AssumeInit())
			b.drops++
		}
	case f.fields != 0:
		fields := f.partFields()
		for i := len(fields) - 1; i >= 0; i-- {
			if f.fields.Has(i) {
				dropWhole(fields[i].Shape(), f.data.Field(fields[i].Offset).AssumeInit())
				b.drops++
			}
		}
	}

	if f.init || f.filled > 0 || f.fields != 0 {
		if ce := b.log.Check(debugLevel, "dropped frame"); ce != nil {
			ce.Write(pathField(f), shapeField(f))
		}
	}

	f.reset()
	f.data.Zero(f.shape.Type)
}

// dropParked drops every parked frame below prefix, deepest first.
func (b *Builder) dropParked(prefix string) {
	if len(b.parked) == 0 {
		return
	}
	var below []*frame
	for k, pf := range b.parked {
		if isBelow(k, prefix) {
			below = append(below, pf)
		}
	}
	slices.SortFunc(below, func(x, y *frame) int { return len(y.segs) - len(x.segs) })
	for _, pf := range below {
		delete(b.parked, pf.path())
		b.dropOwn(pf)
		putFrame(pf)
	}
}

func isBelow(path, prefix string) bool {
	if prefix == "" {
		return path != ""
	}
	return strings.HasPrefix(path, prefix+".")
}

// childSegs is the path of the part seg below f.
func childSegs(f *frame, seg string) []string {
	return append(slices.Clip(f.segs), seg)
}

func childPath(f *frame, seg string) string {
	if len(f.segs) == 0 {
		return seg
	}
	return f.path() + "." + seg
}
