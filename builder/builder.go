package builder

import (
	"reflect"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// DefaultMaxDepth bounds the frame stack of builders created without a
// Config.
const DefaultMaxDepth = 128

const debugLevel = zapcore.DebugLevel

// Config tunes a builder. A nil Config selects the defaults.
type Config struct {
	// Logger receives frame events at debug level. Defaults to Logger().
	Logger *zap.Logger
	// MaxDepth bounds navigation depth. Defaults to DefaultMaxDepth.
	MaxDepth int
}

// Builder constructs a value of a shape one part at a time. A Builder is
// a cursor over a stack of frames; navigation pushes frames and Pop returns
// to the parent. A Builder must not be used from more than one goroutine.
type Builder struct {
	log      *zap.Logger
	guard    *Guard
	parked   map[string]*frame
	stack    []*frame
	root     *shape.Shape
	maxDepth int
	drops    int
	done     bool
}

// Allocate starts building a value of s in fresh memory. The returned guard
// releases the memory if the builder is abandoned; defer its Close.
func Allocate(s *shape.Shape) (*Builder, *Guard) {
	return AllocateWithConfig(s, nil)
}

// AllocateFor is Allocate for the shape of T.
func AllocateFor[T any]() (*Builder, *Guard) {
	return Allocate(shape.Of[T]())
}

func AllocateWithConfig(s *shape.Shape, cfg *Config) (*Builder, *Guard) {
	b := newBuilder(s, ptr.New(s.Type), cfg)
	g := &Guard{builder: b, shape: s, mem: b.stack[0].data, armed: true}
	b.guard = g
	return b, g
}

// InPlace builds into caller-owned memory. The memory is never released by
// the builder; finish with BuildInPlace or Discard.
func InPlace(s *shape.Shape, dst ptr.Uninit) *Builder {
	return newBuilder(s, dst, nil)
}

func newBuilder(s *shape.Shape, data ptr.Uninit, cfg *Config) *Builder {
	if s == nil {
		panic("builder: nil shape")
	}
	b := &Builder{
		log:      Logger(),
		root:     s,
		maxDepth: DefaultMaxDepth,
	}
	if cfg != nil {
		if cfg.Logger != nil {
			b.log = cfg.Logger
		}
		if cfg.MaxDepth > 0 {
			b.maxDepth = cfg.MaxDepth
		}
	}
	root := getFrame(s, data, nil, attachRoot, 0)
	b.stack = append(make([]*frame, 0, 8), root)

	if ce := b.log.Check(debugLevel, "allocated builder"); ce != nil {
		ce.Write(zap.Stringer("shape", s), zap.Uintptr("size", s.Layout.Size))
	}
	return b
}

func pathField(f *frame) zap.Field  { return zap.Strings("path", f.segs) }
func shapeField(f *frame) zap.Field { return zap.Stringer("shape", f.shape) }

func (b *Builder) top() *frame { return b.stack[len(b.stack)-1] }

func (b *Builder) usable() error {
	if b.done {
		return errors.InvalidState(errors.PhaseBuild, nil, "builder already finished")
	}
	return nil
}

// Shape returns the shape of the frame under the cursor, or of the root
// once the builder has finished.
func (b *Builder) Shape() *shape.Shape {
	if b.done {
		return b.root
	}
	return b.top().shape
}

// Path returns the navigation path to the cursor.
func (b *Builder) Path() []string {
	if b.done {
		return nil
	}
	return append([]string(nil), b.top().segs...)
}

// Depth returns the number of frames above the root.
func (b *Builder) Depth() int { return max(len(b.stack)-1, 0) }

// IsInitialized reports whether the frame under the cursor holds a
// complete value. A finished builder always does.
func (b *Builder) IsInitialized() bool {
	if b.done {
		return true
	}
	f := b.top()
	if f.init {
		return true
	}
	switch d := f.shape.Def.(type) {
	case *shape.StructDef:
		return f.fields.All(len(d.Fields))
	case *shape.EnumDef:
		return f.variant >= 0 && f.fields.All(len(d.Variants[f.variant].Fields))
	case *shape.ArrayDef:
		return f.filled == d.Len
	}
	return false
}

func (b *Builder) push(f *frame) error {
	if len(b.stack) >= b.maxDepth {
		err := errors.New(errors.PhaseBuild, errors.KindDepthExceeded).
			Path(f.segs...).
			Value(b.maxDepth).
			Detail("navigation deeper than %d frames", b.maxDepth).
			Build()
		if f.attach.inPlace() {
			b.park(f)
		} else {
			b.dropOwn(f)
			putFrame(f)
		}
		return err
	}
	b.stack = append(b.stack, f)
	if ce := b.log.Check(debugLevel, "push frame"); ce != nil {
		ce.Write(pathField(f), shapeField(f), zap.Stringer("attach", f.attach))
	}
	return nil
}

func (b *Builder) park(f *frame) {
	if !f.init && f.variant < 0 && f.fields == 0 && f.filled == 0 && !f.hasKey && len(b.parkedBelow(f)) == 0 {
		putFrame(f)
		return
	}
	if b.parked == nil {
		b.parked = make(map[string]*frame)
	}
	b.parked[f.path()] = f
	if ce := b.log.Check(debugLevel, "parked frame"); ce != nil {
		ce.Write(pathField(f), shapeField(f))
	}
}

func (b *Builder) parkedBelow(f *frame) []string {
	var keys []string
	prefix := f.path()
	for k := range b.parked {
		if isBelow(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// enter pushes an in-place frame for a part of the current frame,
// restoring it when it was popped before it was complete.
func (b *Builder) enter(parent *frame, s *shape.Shape, off uintptr, seg string, a attach, index int, wasSet bool) error {
	path := childPath(parent, seg)
	if pf, ok := b.parked[path]; ok {
		delete(b.parked, path)
		return b.push(pf)
	}
	f := getFrame(s, parent.data.Field(off), childSegs(parent, seg), a, index)
	f.init = wasSet
	return b.push(f)
}

// FieldByName moves the cursor to a field of the current struct, or of the
// selected variant of the current enum.
func (b *Builder) FieldByName(name string) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	fields, err := b.navigableFields(f)
	if err != nil {
		return err
	}
	i, ok := fieldIndex(fields, name)
	if !ok {
		return errors.Field(errors.PhaseBuild, f.segs, f.shape.Name(), errors.NoSuchField,
			"no field "+strconv.Quote(name))
	}
	return b.enterField(f, fields, i)
}

// FieldByIndex moves the cursor to the i-th field.
func (b *Builder) FieldByIndex(i int) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	fields, err := b.navigableFields(f)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(fields) {
		return errors.Field(errors.PhaseBuild, f.segs, f.shape.Name(), errors.IndexOutOfBounds,
			"field index "+strconv.Itoa(i)+" out of range")
	}
	return b.enterField(f, fields, i)
}

// FieldIndex resolves a field name of the current frame without moving.
func (b *Builder) FieldIndex(name string) (int, error) {
	f := b.top()
	fields, err := b.navigableFields(f)
	if err != nil {
		return -1, err
	}
	i, ok := fieldIndex(fields, name)
	if !ok {
		return -1, errors.Field(errors.PhaseBuild, f.segs, f.shape.Name(), errors.NoSuchField,
			"no field "+strconv.Quote(name))
	}
	return i, nil
}

func fieldIndex(fields []shape.Field, name string) (int, bool) {
	sd := shape.StructDef{Fields: fields}
	return sd.FieldIndex(name)
}

func (b *Builder) navigableFields(f *frame) ([]shape.Field, error) {
	switch d := f.shape.Def.(type) {
	case *shape.StructDef:
		return d.Fields, nil
	case *shape.EnumDef:
		f.explode()
		if f.variant < 0 {
			return nil, errors.NoVariantSelected(f.segs, f.shape.Name())
		}
		return d.Variants[f.variant].Fields, nil
	default:
		return nil, errors.WasNotA(errors.PhaseBuild, f.segs, "struct", f.shape.Kind().String())
	}
}

func (b *Builder) enterField(f *frame, fields []shape.Field, i int) error {
	f.explode()
	fd := &fields[i]
	wasSet := f.fields.Has(i)
	if wasSet {
		f.fields.Unset(i)
	}
	return b.enter(f, fd.Shape(), fd.Offset, fd.Name, attachField, i, wasSet)
}

// SelectVariantByName selects a variant of the current enum. Fields of a
// previously selected variant are dropped and the value is zeroed first.
func (b *Builder) SelectVariantByName(name string) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.Enum()
	if d == nil {
		return errors.Variant(errors.PhaseBuild, f.segs, f.shape.Name(), errors.NotAnEnum, f.shape.Kind().String())
	}
	i, ok := d.VariantByName(name)
	if !ok {
		return errors.Variant(errors.PhaseBuild, f.segs, f.shape.Name(), errors.NoSuchVariant, name)
	}
	b.selectVariant(f, d, i)
	return nil
}

func (b *Builder) SelectVariantByIndex(i int) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.Enum()
	if d == nil {
		return errors.Variant(errors.PhaseBuild, f.segs, f.shape.Name(), errors.NotAnEnum, f.shape.Kind().String())
	}
	if i < 0 || i >= len(d.Variants) {
		return errors.Variant(errors.PhaseBuild, f.segs, f.shape.Name(), errors.VariantIndexOutOfBounds, strconv.Itoa(i))
	}
	b.selectVariant(f, d, i)
	return nil
}

func (b *Builder) selectVariant(f *frame, d *shape.EnumDef, i int) {
	f.explode()
	if f.variant == i {
		return
	}
	if f.variant >= 0 {
		if ce := b.log.Check(debugLevel, "reselect variant"); ce != nil {
			ce.Write(pathField(f),
				zap.String("from", d.Variants[f.variant].Name),
				zap.String("to", d.Variants[i].Name))
		}
	}
	b.clear(f)
	d.WriteDiscriminant(f.data, d.Variants[i].Discriminant)
	f.variant = i
}

// SelectedVariant returns the variant selected on the current enum frame.
func (b *Builder) SelectedVariant() (*shape.Variant, bool) {
	f := b.top()
	d := f.shape.Enum()
	if d == nil {
		return nil, false
	}
	f.explode()
	if f.variant < 0 {
		return nil, false
	}
	return &d.Variants[f.variant], true
}

// Push moves the cursor to a new element: appended to a list, or the next
// unfilled slot of an array.
func (b *Builder) Push() error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	switch d := f.shape.Def.(type) {
	case *shape.ListDef:
		b.ensureInit(f, func() { d.Ops.Init(f.data, 0) })
		es := d.Elem()
		seg := "[" + strconv.Itoa(d.Ops.Len(f.data.AssumeInit().AsConst())) + "]"
		return b.push(getFrame(es, ptr.New(es.Type), childSegs(f, seg), attachListElem, 0))
	case *shape.ArrayDef:
		f.explode()
		if f.filled >= d.Len {
			return errors.Field(errors.PhaseBuild, f.segs, f.shape.Name(), errors.IndexOutOfBounds,
				"array of "+strconv.Itoa(d.Len)+" is full")
		}
		i := f.filled
		return b.enter(f, d.Elem(), uintptr(i)*d.Stride, "["+strconv.Itoa(i)+"]", attachArrayElem, i, false)
	default:
		return errors.WasNotA(errors.PhaseBuild, f.segs, "list", f.shape.Kind().String())
	}
}

// BeginList replaces the current list with an empty one that has room for
// capacity elements.
func (b *Builder) BeginList(capacity int) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.List()
	if d == nil {
		return errors.WasNotA(errors.PhaseBuild, f.segs, "list", f.shape.Kind().String())
	}
	b.clear(f)
	d.Ops.Init(f.data, capacity)
	f.init = true
	return nil
}

// BeginMap replaces the current map with an empty one that has room for
// capacity entries.
func (b *Builder) BeginMap(capacity int) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.Map()
	if d == nil {
		return errors.WasNotA(errors.PhaseBuild, f.segs, "map", f.shape.Kind().String())
	}
	b.clear(f)
	d.Ops.Init(f.data, capacity)
	f.init = true
	return nil
}

// PushMapKey moves the cursor to the key of a new map entry.
func (b *Builder) PushMapKey() error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.Map()
	if d == nil {
		return errors.WasNotA(errors.PhaseBuild, f.segs, "map", f.shape.Kind().String())
	}
	if f.hasKey {
		return errors.InvalidState(errors.PhaseBuild, f.segs, "previous map key has no value")
	}
	b.ensureInit(f, func() { d.Ops.Init(f.data, 0) })
	if mv := f.data.AssumeInit().Value(f.shape.Type); mv.Kind() == reflect.Map && mv.IsNil() {
		d.Ops.Init(f.data, 0)
	}
	ks := d.Key()
	return b.push(getFrame(ks, ptr.New(ks.Type), childSegs(f, "{key}"), attachMapKey, 0))
}

// PushMapValue moves the cursor to the value for the pending map key.
func (b *Builder) PushMapValue() error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.Map()
	if d == nil {
		return errors.WasNotA(errors.PhaseBuild, f.segs, "map", f.shape.Kind().String())
	}
	if !f.hasKey {
		return errors.InvalidState(errors.PhaseBuild, f.segs, "map value pushed before its key")
	}
	vs := d.Value()
	return b.push(getFrame(vs, ptr.New(vs.Type), childSegs(f, "{value}"), attachMapValue, 0))
}

// Insert adds one map entry from plain Go values.
func (b *Builder) Insert(key, value any) error {
	if err := b.PushMapKey(); err != nil {
		return err
	}
	if err := b.Put(key); err != nil {
		return b.abandonChild(err)
	}
	if err := b.Pop(); err != nil {
		return b.abandonChild(err)
	}
	if err := b.PushMapValue(); err != nil {
		return err
	}
	if err := b.Put(value); err != nil {
		return b.abandonChild(err)
	}
	return b.Pop()
}

// abandonChild drops the separately allocated top frame after a failed
// convenience call and returns err.
func (b *Builder) abandonChild(err error) error {
	f := b.top()
	if !f.attach.inPlace() && f.attach != attachRoot {
		b.stack = b.stack[:len(b.stack)-1]
		b.clear(f)
		putFrame(f)
	}
	return err
}

// PushSome moves the cursor to the value of the current option, replacing
// any previous value.
func (b *Builder) PushSome() error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.Option()
	if d == nil {
		return errors.WasNotA(errors.PhaseBuild, f.segs, "option", f.shape.Kind().String())
	}
	b.clear(f)
	is := d.Inner()
	return b.push(getFrame(is, ptr.New(is.Type), childSegs(f, "some"), attachSome, 0))
}

// PutNone sets the current option to absent.
func (b *Builder) PutNone() error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.Option()
	if d == nil {
		return errors.WasNotA(errors.PhaseBuild, f.segs, "option", f.shape.Kind().String())
	}
	b.clear(f)
	d.Ops.InitNone(f.data)
	f.init = true
	return nil
}

// PushPointee moves the cursor to the value a smart pointer will own.
func (b *Builder) PushPointee() error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	d := f.shape.SmartPointer()
	if d == nil {
		return errors.WasNotA(errors.PhaseBuild, f.segs, "smart pointer", f.shape.Kind().String())
	}
	if d.Ops.New == nil || d.Pointee == nil {
		return errors.MissingCapability(errors.PhaseBuild, f.shape.Name(), "new")
	}
	b.clear(f)
	ps := d.Pointee()
	return b.push(getFrame(ps, ptr.New(ps.Type), childSegs(f, "*"), attachPointee, 0))
}

func (b *Builder) ensureInit(f *frame, init func()) {
	if !f.init {
		b.clear(f)
		init()
		f.init = true
	}
}

// Pop returns the cursor to the parent frame. An in-place part that is not
// complete is kept aside and restored when navigated to again. Separately
// allocated parts (list elements, map keys and values, option values,
// pointees) must be complete.
func (b *Builder) Pop() error {
	if err := b.usable(); err != nil {
		return err
	}
	if len(b.stack) == 1 {
		return errors.InvalidState(errors.PhaseBuild, nil, "cannot pop the root frame")
	}
	f := b.top()
	parent := b.stack[len(b.stack)-2]

	err := b.settle(f)
	if err == nil {
		err = b.checkInvariants(f)
	}

	if f.attach.inPlace() {
		b.stack = b.stack[:len(b.stack)-1]
		if err != nil {
			b.park(f)
			return nil
		}
		switch f.attach {
		case attachField:
			parent.fields.Set(f.index)
		case attachArrayElem:
			parent.filled++
		}
		b.popped(f)
		putFrame(f)
		return nil
	}

	if err != nil {
		return err
	}
	b.stack = b.stack[:len(b.stack)-1]
	m := f.data.AssumeInit()

	switch f.attach {
	case attachListElem:
		parent.shape.List().Ops.Push(parent.data.AssumeInit(), m)
	case attachMapKey:
		parent.key = m
		parent.hasKey = true
	case attachMapValue:
		b.insertEntry(parent, m)
	case attachSome:
		parent.shape.Option().Ops.InitSome(parent.data, m)
		parent.init = true
	case attachPointee:
		parent.shape.SmartPointer().Ops.New(parent.data, m)
		parent.init = true
	}
	b.popped(f)
	putFrame(f)
	return nil
}

func (b *Builder) popped(f *frame) {
	if ce := b.log.Check(debugLevel, "pop frame"); ce != nil {
		ce.Write(pathField(f), shapeField(f))
	}
}

func (b *Builder) insertEntry(f *frame, value ptr.Mut) {
	d := f.shape.Map()
	key := f.key
	f.key, f.hasKey = ptr.Mut{}, false

	prev, replaced := d.Ops.Insert(f.data.AssumeInit(), key, value)
	if replaced {
		dropWhole(d.Value(), prev)
		dropWhole(d.Key(), key)
		b.drops += 2
	}
}

// valueOf returns v as a reflect.Value of type t when it is exactly of
// that type.
func valueOf(v any, t reflect.Type) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Type() != t {
		return rv, false
	}
	return rv, true
}
