package shape

import (
	"cmp"
	"encoding"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
)

// operationsFor synthesizes the operation table of a derived type. Entries
// are built optimistically and then masked down to the capability set, so
// composite entries may assume their children support the same operation.
func operationsFor(t reflect.Type, def Definition) *Operations {
	var caps Capability
	if ed, ok := def.(*EnumDef); ok && t.Kind() != reflect.Struct {
		caps = unitEnumCaps(ed) | hookCaps(t)
	} else {
		caps = capabilities(t)
	}

	name := t.String()
	ops := &Operations{TypeName: func() string { return name }}

	switch d := def.(type) {
	case *ScalarDef:
		scalarOps(ops, t, d)
	case *StructDef:
		structOps(ops, t, d)
	case *EnumDef:
		enumOps(ops, t, d)
	case *ListDef:
		listOps(ops, t, d)
	case *ArrayDef:
		arrayOps(ops, t, d)
	case *MapDef:
		mapOps(ops, t, d)
	case *OptionDef:
		optionOps(ops, t, d)
	case *SmartPointerDef:
		smartPointerOps(ops, t, d)
	}

	if t.Kind() != reflect.Pointer && !isOpaque(def) {
		applyHooks(ops, t, def)
	}
	ops.Default = defaultOp(t, def)
	ops.Drop = dropOp(t, def)

	mask(ops, caps)
	return ops
}

func isOpaque(def Definition) bool {
	sd, ok := def.(*ScalarDef)
	return ok && sd.Affinity == AffinityOpaque
}

func mask(o *Operations, c Capability) {
	if c&CapDisplay == 0 {
		o.Display = nil
	}
	if c&CapDebug == 0 {
		o.Debug = nil
	}
	if c&CapDefault == 0 {
		o.Default = nil
	}
	if c&CapClone == 0 {
		o.Clone = nil
	}
	if c&CapEqual == 0 {
		o.Equal = nil
	}
	if c&CapCompare == 0 {
		o.Compare = nil
	}
	if c&CapHash == 0 {
		o.Hash = nil
	}
	if c&CapDrop == 0 {
		o.Drop = nil
	}
	if c&CapParse == 0 {
		o.Parse = nil
	}
	if c&CapInvariants == 0 {
		o.Invariants = nil
	}
}

type debugWriter struct {
	w   io.Writer
	err error
}

func (d *debugWriter) str(s string) {
	if d.err == nil {
		_, d.err = io.WriteString(d.w, s)
	}
}

func (d *debugWriter) value(s *Shape, v ptr.Const) {
	if d.err == nil {
		d.err = s.Ops.Debug(v, d.w)
	}
}

func (d *debugWriter) fields(fields []Field, v ptr.Const, named bool) {
	for i := range fields {
		f := &fields[i]
		if i > 0 {
			d.str(", ")
		}
		if named {
			d.str(f.Name)
			d.str(": ")
		}
		if f.Has(FlagSensitive) {
			d.str("[REDACTED]")
			continue
		}
		d.value(f.Shape(), v.Field(f.Offset))
	}
}

// typeLabel strips type arguments and package qualifiers.
func typeLabel(t reflect.Type) string {
	name, _, _ := strings.Cut(t.Name(), "[")
	return name
}

func copyClone(t reflect.Type) func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
	return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		return dst.Write(t, src.Value(t))
	}
}

func valueEqual(t reflect.Type) func(a, b ptr.Const) bool {
	return func(a, b ptr.Const) bool {
		return a.Value(t).Equal(b.Value(t))
	}
}

func scalarOps(ops *Operations, t reflect.Type, d *ScalarDef) {
	ops.Clone = copyClone(t)

	switch d.Affinity {
	case AffinityOpaque:
		ops.Debug = func(v ptr.Const, w io.Writer) error {
			_, err := fmt.Fprintf(w, "%v", v.Value(t).Interface())
			return err
		}
	case AffinityText:
		ops.Display = func(v ptr.Const, w io.Writer) error {
			b, err := marshalText(t, v)
			if err != nil {
				return err
			}
			_, err = w.Write(b)
			return err
		}
		ops.Debug = func(v ptr.Const, w io.Writer) error {
			b, err := marshalText(t, v)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, strconv.Quote(string(b)))
			return err
		}
		ops.Hash = func(v ptr.Const, h hash.Hash64) {
			b, _ := marshalText(t, v)
			writeLen(h, len(b))
			_, _ = h.Write(b)
		}
		if t.Comparable() {
			ops.Equal = valueEqual(t)
		}
		ops.Parse = parseText(t)
	default:
		ops.Display = func(v ptr.Const, w io.Writer) error {
			_, err := io.WriteString(w, formatScalar(v.Value(t), false))
			return err
		}
		ops.Debug = func(v ptr.Const, w io.Writer) error {
			_, err := io.WriteString(w, formatScalar(v.Value(t), true))
			return err
		}
		ops.Equal = valueEqual(t)
		ops.Compare = func(a, b ptr.Const) int {
			return compareScalar(a.Value(t), b.Value(t))
		}
		ops.Hash = func(v ptr.Const, h hash.Hash64) {
			hashScalar(v.Value(t), h)
		}
		ops.Parse = func(s string, dst ptr.Uninit) (ptr.Mut, error) {
			v, err := parseScalar(t, s)
			if err != nil {
				return ptr.Mut{}, errors.OperationFailed(errors.PhaseOps, nil, t.String(), "parse", err)
			}
			return dst.Write(t, v), nil
		}
	}
}

func marshalText(t reflect.Type, v ptr.Const) ([]byte, error) {
	return reflect.NewAt(t, v.Pointer()).Interface().(encoding.TextMarshaler).MarshalText()
}

func parseText(t reflect.Type) func(string, ptr.Uninit) (ptr.Mut, error) {
	return func(s string, dst ptr.Uninit) (ptr.Mut, error) {
		tmp := reflect.New(t)
		if err := tmp.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return ptr.Mut{}, errors.OperationFailed(errors.PhaseOps, nil, t.String(), "parse", err)
		}
		return dst.Write(t, tmp.Elem()), nil
	}
}

func formatScalar(v reflect.Value, debug bool) string {
	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits())
	case reflect.Complex64, reflect.Complex128:
		return strconv.FormatComplex(v.Complex(), 'g', -1, v.Type().Bits())
	case reflect.String:
		if debug {
			return strconv.Quote(v.String())
		}
		return v.String()
	default:
		return fmt.Sprint(v.Interface())
	}
}

func compareScalar(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.Bool:
		switch {
		case a.Bool() == b.Bool():
			return 0
		case b.Bool():
			return -1
		default:
			return 1
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	default:
		return 0
	}
}

func writeLen(h hash.Hash64, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	_, _ = h.Write(buf[:])
}

func hashScalar(v reflect.Value, h hash.Hash64) {
	var buf [16]byte
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			buf[0] = 1
		}
		_, _ = h.Write(buf[:1])
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Int()))
		_, _ = h.Write(buf[:8])
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		binary.LittleEndian.PutUint64(buf[:], v.Uint())
		_, _ = h.Write(buf[:8])
	case reflect.Float32, reflect.Float64:
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.Float()))
		_, _ = h.Write(buf[:8])
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(real(c)))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(imag(c)))
		_, _ = h.Write(buf[:])
	case reflect.String:
		s := v.String()
		writeLen(h, len(s))
		_, _ = io.WriteString(h, s)
	}
}

func parseScalar(t reflect.Type, s string) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(f)
	case reflect.Complex64, reflect.Complex128:
		c, err := strconv.ParseComplex(s, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetComplex(c)
	case reflect.String:
		v.SetString(s)
	default:
		return v, errors.Unsupported(errors.PhaseOps, "parsing "+t.String())
	}
	return v, nil
}

func fieldsEqual(fields []Field, a, b ptr.Const) bool {
	for i := range fields {
		f := &fields[i]
		if !f.Shape().Ops.Equal(a.Field(f.Offset), b.Field(f.Offset)) {
			return false
		}
	}
	return true
}

func fieldsCompare(fields []Field, a, b ptr.Const) int {
	for i := range fields {
		f := &fields[i]
		if c := f.Shape().Ops.Compare(a.Field(f.Offset), b.Field(f.Offset)); c != 0 {
			return c
		}
	}
	return 0
}

func fieldsHash(fields []Field, v ptr.Const, h hash.Hash64) {
	for i := range fields {
		f := &fields[i]
		f.Shape().Ops.Hash(v.Field(f.Offset), h)
	}
}

func fieldsClone(fields []Field, src ptr.Const, dst ptr.Uninit) {
	for i := range fields {
		f := &fields[i]
		f.Shape().Ops.Clone(src.Field(f.Offset), dst.Field(f.Offset))
	}
}

func structOps(ops *Operations, t reflect.Type, d *StructDef) {
	fields := d.Fields
	label := typeLabel(t)

	ops.Debug = func(v ptr.Const, w io.Writer) error {
		dw := &debugWriter{w: w}
		dw.str(label)
		dw.str("{")
		dw.fields(fields, v, true)
		dw.str("}")
		return dw.err
	}
	ops.Clone = func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		dst.Write(t, src.Value(t))
		fieldsClone(fields, src, dst)
		return dst.AssumeInit()
	}
	ops.Equal = func(a, b ptr.Const) bool { return fieldsEqual(fields, a, b) }
	ops.Compare = func(a, b ptr.Const) int { return fieldsCompare(fields, a, b) }
	ops.Hash = func(v ptr.Const, h hash.Hash64) { fieldsHash(fields, v, h) }
}

func enumOps(ops *Operations, t reflect.Type, d *EnumDef) {
	label := typeLabel(t)
	active := func(v ptr.Const) (int, *Variant) {
		i, ok := d.ActiveVariant(v)
		if !ok {
			return -1, nil
		}
		return i, &d.Variants[i]
	}

	ops.Debug = func(v ptr.Const, w io.Writer) error {
		dw := &debugWriter{w: w}
		_, vr := active(v)
		if vr == nil {
			dw.str(label + "(" + d.FormatDiscriminant(v) + ")")
			return dw.err
		}
		if label != "" {
			dw.str(label)
			dw.str(".")
		}
		dw.str(vr.Name)
		switch vr.Kind {
		case VariantTuple:
			dw.str("(")
			dw.fields(vr.Fields, v, false)
			dw.str(")")
		case VariantStruct:
			dw.str("{")
			dw.fields(vr.Fields, v, true)
			dw.str("}")
		}
		return dw.err
	}
	ops.Clone = func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		dst.Write(t, src.Value(t))
		if _, vr := active(src); vr != nil {
			fieldsClone(vr.Fields, src, dst)
		}
		return dst.AssumeInit()
	}
	ops.Equal = func(a, b ptr.Const) bool {
		ia, va := active(a)
		ib, _ := active(b)
		if ia != ib {
			return false
		}
		if va == nil {
			return d.ReadDiscriminant(a) == d.ReadDiscriminant(b)
		}
		return fieldsEqual(va.Fields, a, b)
	}
	ops.Compare = func(a, b ptr.Const) int {
		ia, va := active(a)
		ib, _ := active(b)
		if c := cmp.Compare(ia, ib); c != 0 || va == nil {
			return c
		}
		return fieldsCompare(va.Fields, a, b)
	}
	ops.Hash = func(v ptr.Const, h hash.Hash64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(d.ReadDiscriminant(v)))
		_, _ = h.Write(buf[:])
		if _, vr := active(v); vr != nil {
			fieldsHash(vr.Fields, v, h)
		}
	}

	if !allUnit(d) {
		return
	}
	ops.Display = func(v ptr.Const, w io.Writer) error {
		_, vr := active(v)
		if vr == nil {
			_, err := io.WriteString(w, d.FormatDiscriminant(v))
			return err
		}
		_, err := io.WriteString(w, vr.Name)
		return err
	}
	ops.Parse = func(s string, dst ptr.Uninit) (ptr.Mut, error) {
		i, ok := d.VariantByName(s)
		if !ok {
			return ptr.Mut{}, errors.Variant(errors.PhaseOps, nil, t.String(), errors.NoSuchVariant, s)
		}
		dst.Zero(t)
		d.WriteDiscriminant(dst, d.Variants[i].Discriminant)
		return dst.AssumeInit(), nil
	}
}

func listOps(ops *Operations, t reflect.Type, d *ListDef) {
	lops := d.Ops
	elemAt := func(list ptr.Const, i int) ptr.Const { return lops.Get(list, i) }
	sequenceOps(ops, d.Elem, lops.Len, elemAt)

	ops.Clone = func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		sv := src.Value(t)
		if sv.IsNil() {
			dst.Zero(t)
			return dst.AssumeInit()
		}
		n := sv.Len()
		m := dst.Write(t, reflect.MakeSlice(t, n, n))
		es := d.Elem()
		for i := range n {
			es.Ops.Clone(lops.Get(src, i), ptr.UninitOf(lops.Get(m.AsConst(), i).Pointer()))
		}
		return m
	}
}

func arrayOps(ops *Operations, t reflect.Type, d *ArrayDef) {
	n := d.Len
	elemAt := func(arr ptr.Const, i int) ptr.Const { return arr.Field(uintptr(i) * d.Stride) }
	sequenceOps(ops, d.Elem, func(ptr.Const) int { return n }, elemAt)

	ops.Clone = func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		es := d.Elem()
		for i := range n {
			off := uintptr(i) * d.Stride
			es.Ops.Clone(src.Field(off), dst.Field(off))
		}
		return dst.AssumeInit()
	}
}

// sequenceOps fills the entries shared by lists and arrays.
func sequenceOps(ops *Operations, elem Func, length func(ptr.Const) int, at func(ptr.Const, int) ptr.Const) {
	ops.Debug = func(v ptr.Const, w io.Writer) error {
		dw := &debugWriter{w: w}
		es := elem()
		dw.str("[")
		for i := range length(v) {
			if i > 0 {
				dw.str(", ")
			}
			dw.value(es, at(v, i))
		}
		dw.str("]")
		return dw.err
	}
	ops.Equal = func(a, b ptr.Const) bool {
		n := length(a)
		if n != length(b) {
			return false
		}
		es := elem()
		for i := range n {
			if !es.Ops.Equal(at(a, i), at(b, i)) {
				return false
			}
		}
		return true
	}
	ops.Compare = func(a, b ptr.Const) int {
		na, nb := length(a), length(b)
		es := elem()
		for i := range min(na, nb) {
			if c := es.Ops.Compare(at(a, i), at(b, i)); c != 0 {
				return c
			}
		}
		return cmp.Compare(na, nb)
	}
	ops.Hash = func(v ptr.Const, h hash.Hash64) {
		n := length(v)
		writeLen(h, n)
		es := elem()
		for i := range n {
			es.Ops.Hash(at(v, i), h)
		}
	}
}

func mapOps(ops *Operations, t reflect.Type, d *MapDef) {
	mops := d.Ops

	ops.Debug = func(v ptr.Const, w io.Writer) error {
		ks, vs := d.Key(), d.Value()
		type entry struct{ k, v string }
		var entries []entry
		for k, val := range mops.All(v) {
			var kb, vb strings.Builder
			if err := ks.Ops.Debug(k, &kb); err != nil {
				return err
			}
			if err := vs.Ops.Debug(val, &vb); err != nil {
				return err
			}
			entries = append(entries, entry{kb.String(), vb.String()})
		}
		slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.k, b.k) })

		dw := &debugWriter{w: w}
		dw.str("map[")
		for i, e := range entries {
			if i > 0 {
				dw.str(", ")
			}
			dw.str(e.k)
			dw.str(": ")
			dw.str(e.v)
		}
		dw.str("]")
		return dw.err
	}
	ops.Clone = func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		if src.Value(t).IsNil() {
			dst.Zero(t)
			return dst.AssumeInit()
		}
		ks, vs := d.Key(), d.Value()
		m := mops.Init(dst, mops.Len(src))
		for k, v := range mops.All(src) {
			kc := ks.Ops.Clone(k, ptr.New(ks.Type))
			vc := vs.Ops.Clone(v, ptr.New(vs.Type))
			mops.Insert(m, kc, vc)
		}
		return m
	}
	ops.Equal = func(a, b ptr.Const) bool {
		if mops.Len(a) != mops.Len(b) {
			return false
		}
		vs := d.Value()
		for k, av := range mops.All(a) {
			bv, ok := mops.Get(b, k)
			if !ok || !vs.Ops.Equal(av, bv) {
				return false
			}
		}
		return true
	}
}

func optionOps(ops *Operations, t reflect.Type, d *OptionDef) {
	oops := d.Ops

	ops.Debug = func(v ptr.Const, w io.Writer) error {
		inner, ok := oops.Get(v)
		if !ok {
			_, err := io.WriteString(w, "nil")
			return err
		}
		dw := &debugWriter{w: w}
		dw.str("&")
		dw.value(d.Inner(), inner)
		return dw.err
	}
	ops.Clone = func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		inner, ok := oops.Get(src)
		if !ok {
			return oops.InitNone(dst)
		}
		is := d.Inner()
		return oops.InitSome(dst, is.Ops.Clone(inner, ptr.New(is.Type)))
	}
	ops.Equal = func(a, b ptr.Const) bool {
		ia, oka := oops.Get(a)
		ib, okb := oops.Get(b)
		if !oka || !okb {
			return oka == okb
		}
		return d.Inner().Ops.Equal(ia, ib)
	}
	ops.Compare = func(a, b ptr.Const) int {
		ia, oka := oops.Get(a)
		ib, okb := oops.Get(b)
		switch {
		case !oka && !okb:
			return 0
		case !oka:
			return -1
		case !okb:
			return 1
		}
		return d.Inner().Ops.Compare(ia, ib)
	}
	ops.Hash = func(v ptr.Const, h hash.Hash64) {
		inner, ok := oops.Get(v)
		if !ok {
			_, _ = h.Write([]byte{0})
			return
		}
		_, _ = h.Write([]byte{1})
		d.Inner().Ops.Hash(inner, h)
	}
}

func smartPointerOps(ops *Operations, t reflect.Type, d *SmartPointerDef) {
	label := typeLabel(t)
	spops := d.Ops

	// peek returns the pointee for reading and a release func.
	peek := func(v ptr.Const) (ptr.Const, func(), bool) {
		switch {
		case spops.Borrow != nil:
			p, ok := spops.Borrow(v)
			return p, func() {}, ok
		case spops.Upgrade != nil:
			p, ok := spops.Upgrade(v)
			return p, func() {}, ok
		case spops.RLock != nil:
			p, release := spops.RLock(v)
			return p, release, true
		case spops.Lock != nil:
			p, release := spops.Lock(v)
			return p.AsConst(), release, true
		}
		return ptr.Const{}, func() {}, false
	}

	ops.Debug = func(v ptr.Const, w io.Writer) error {
		dw := &debugWriter{w: w}
		dw.str(label)
		dw.str("(")
		p, release, ok := peek(v)
		defer release()
		switch {
		case !ok:
			dw.str("nil")
		case d.Pointee != nil && d.Pointee().Ops.Debug != nil:
			dw.value(d.Pointee(), p)
		default:
			dw.str("..")
		}
		dw.str(")")
		return dw.err
	}

	if isWeak(t) {
		ops.Clone = copyClone(t)
		ops.Equal = valueEqual(t)
		return
	}
	if spops.Borrow == nil || d.Pointee == nil {
		return
	}

	borrow := func(v ptr.Const) (ptr.Const, bool) { return spops.Borrow(v) }
	ops.Display = func(v ptr.Const, w io.Writer) error {
		p, ok := borrow(v)
		if !ok {
			_, err := io.WriteString(w, "nil")
			return err
		}
		return d.Pointee().Ops.Display(p, w)
	}
	ops.Equal = func(a, b ptr.Const) bool {
		pa, oka := borrow(a)
		pb, okb := borrow(b)
		if !oka || !okb {
			return oka == okb
		}
		return d.Pointee().Ops.Equal(pa, pb)
	}
	ops.Compare = func(a, b ptr.Const) int {
		pa, oka := borrow(a)
		pb, okb := borrow(b)
		if !oka || !okb {
			return cmp.Compare(boolInt(oka), boolInt(okb))
		}
		return d.Pointee().Ops.Compare(pa, pb)
	}
	ops.Hash = func(v ptr.Const, h hash.Hash64) {
		if p, ok := borrow(v); ok {
			d.Pointee().Ops.Hash(p, h)
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func applyHooks(ops *Operations, t reflect.Type, def Definition) {
	pt := reflect.PointerTo(t)
	self := func(v ptr.Const) any { return reflect.NewAt(t, v.Pointer()).Interface() }

	switch {
	case pt.Implements(stringerType):
		show := func(v ptr.Const, w io.Writer) error {
			_, err := io.WriteString(w, self(v).(fmt.Stringer).String())
			return err
		}
		ops.Display = show
		if _, ok := def.(*ScalarDef); ok {
			ops.Debug = show
		}
	case pt.Implements(textMarshalerType):
		ops.Display = func(v ptr.Const, w io.Writer) error {
			b, err := marshalText(t, v)
			if err != nil {
				return err
			}
			_, err = w.Write(b)
			return err
		}
	}

	if pt.Implements(textUnmarshalerType) {
		ops.Parse = parseText(t)
	}
	if m, ok := methodOf(t, "Equal", reflect.Bool); ok {
		ops.Equal = func(a, b ptr.Const) bool {
			return m.Func.Call([]reflect.Value{reflect.NewAt(t, a.Pointer()), b.Value(t)})[0].Bool()
		}
	}
	if m, ok := methodOf(t, "Compare", reflect.Int); ok {
		ops.Compare = func(a, b ptr.Const) int {
			return int(m.Func.Call([]reflect.Value{reflect.NewAt(t, a.Pointer()), b.Value(t)})[0].Int())
		}
	}
	if pt.Implements(clonerType) {
		ops.Clone = func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
			return self(src).(Cloner).CloneTo(dst)
		}
	}
	if pt.Implements(invariantType) {
		ops.Invariants = func(v ptr.Const) bool {
			return self(v).(InvariantChecker).Invariants()
		}
	}
}

func defaultOp(t reflect.Type, def Definition) func(ptr.Uninit) ptr.Mut {
	hook := t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		reflect.PointerTo(t).Implements(defaulterType)
	var disc *int64
	if ed, ok := def.(*EnumDef); ok && ed.Variants[0].Kind == VariantUnit {
		disc = &ed.Variants[0].Discriminant
	}

	return func(dst ptr.Uninit) ptr.Mut {
		dst.Zero(t)
		if disc != nil {
			def.(*EnumDef).WriteDiscriminant(dst, *disc)
		}
		if hook {
			reflect.NewAt(t, dst.Pointer()).Interface().(Defaulter).Default()
		}
		return dst.AssumeInit()
	}
}

func dropOp(t reflect.Type, def Definition) func(ptr.Mut) ptr.Uninit {
	hook := t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		reflect.PointerTo(t).Implements(dropperType)
	parts := dropParts(t, def)

	return func(v ptr.Mut) ptr.Uninit {
		if hook {
			reflect.NewAt(t, v.Pointer()).Interface().(Dropper).Drop()
		}
		if parts != nil {
			parts(v)
		}
		u := v.AsUninit()
		u.Zero(t)
		return u
	}
}

// dropParts returns the walk that drops the children of a value, or nil
// when no child has anything to release.
func dropParts(t reflect.Type, def Definition) func(ptr.Mut) {
	needs := func(ct reflect.Type) bool { return needsDrop(ct, make(map[reflect.Type]struct{})) }

	switch d := def.(type) {
	case *StructDef:
		var fields []Field
		for _, f := range d.Fields {
			if needs(t.Field(f.Index).Type) {
				fields = append(fields, f)
			}
		}
		if len(fields) == 0 {
			return nil
		}
		return func(v ptr.Mut) { dropFields(fields, v) }
	case *EnumDef:
		if t.Kind() != reflect.Struct || !needs(t) {
			return nil
		}
		return func(v ptr.Mut) {
			if i, ok := d.ActiveVariant(v.AsConst()); ok {
				dropFields(d.Variants[i].Fields, v)
			}
		}
	case *ListDef:
		if !needs(t.Elem()) {
			return nil
		}
		return func(v ptr.Mut) {
			es := d.Elem()
			for i := range d.Ops.Len(v.AsConst()) {
				es.Ops.Drop(ptr.MutOf(d.Ops.Get(v.AsConst(), i).Pointer()))
			}
		}
	case *ArrayDef:
		if !needs(t.Elem()) {
			return nil
		}
		return func(v ptr.Mut) {
			es := d.Elem()
			for i := range d.Len {
				es.Ops.Drop(v.Field(uintptr(i) * d.Stride))
			}
		}
	case *MapDef:
		if !needs(t.Key()) && !needs(t.Elem()) {
			return nil
		}
		return func(v ptr.Mut) {
			ks, vs := d.Key(), d.Value()
			for k, val := range d.Ops.All(v.AsConst()) {
				ks.Ops.Drop(ptr.MutOf(k.Pointer()))
				vs.Ops.Drop(ptr.MutOf(val.Pointer()))
			}
		}
	case *OptionDef:
		if !needs(t.Elem()) {
			return nil
		}
		return func(v ptr.Mut) {
			if inner, ok := d.Ops.Get(v.AsConst()); ok {
				d.Inner().Ops.Drop(ptr.MutOf(inner.Pointer()))
			}
		}
	}
	return nil
}

func dropFields(fields []Field, v ptr.Mut) {
	for i := range fields {
		f := &fields[i]
		f.Shape().Ops.Drop(v.Field(f.Offset))
	}
}
