package builder

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/typeshape/errors"
	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// Put writes v, which must be exactly of the current frame's type, over
// whatever the frame held. Previously initialized parts are dropped first.
func (b *Builder) Put(v any) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	rv, ok := valueOf(v, f.shape.Type)
	if !ok {
		return errors.WrongShape(errors.PhaseBuild, f.segs, f.shape.Name(), typeName(rv))
	}
	b.write(f, rv)
	return nil
}

// PutFrom moves the value at src, which holds a value of the current
// frame's shape, into the frame. src is left empty.
func (b *Builder) PutFrom(s *shape.Shape, src ptr.Mut) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	if !s.Is(f.shape) {
		return errors.WrongShape(errors.PhaseBuild, f.segs, f.shape.Name(), s.Name())
	}
	b.clear(f)
	src.MoveTo(f.shape.Type, f.data)
	f.init = true
	return nil
}

func (b *Builder) write(f *frame, rv reflect.Value) {
	b.clear(f)
	f.data.Write(f.shape.Type, rv)
	f.init = true
	if ce := b.log.Check(debugLevel, "put"); ce != nil {
		ce.Write(pathField(f), shapeField(f))
	}
}

func typeName(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}
	return rv.Type().String()
}

// Parse writes the value parsed from s using the shape's Parse operation.
func (b *Builder) Parse(s string) error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	parse := f.shape.Ops.Parse
	if parse == nil {
		return errors.MissingCapability(errors.PhaseBuild, f.shape.Name(), "parse")
	}

	tmp := ptr.New(f.shape.Type)
	m, err := parse(s, tmp)
	if err != nil {
		var se *errors.Error
		if errors.As(err, &se) && se.Path == nil {
			se.Path = append([]string(nil), f.segs...)
		}
		return err
	}
	b.clear(f)
	m.MoveTo(f.shape.Type, f.data)
	f.init = true
	return nil
}

// PutDefault writes the shape's default value.
func (b *Builder) PutDefault() error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	def := f.shape.Ops.Default
	if def == nil {
		return errors.MissingCapability(errors.PhaseBuild, f.shape.Name(), "default")
	}
	b.clear(f)
	def(f.data)
	f.init = true
	return nil
}

// Build completes the value. It pops back to the root, fills defaulted
// fields, validates that every part was written and that the value's
// invariants hold, and then hands the value to the caller. On failure the
// builder is left as it was; Discard it or close its guard.
func (b *Builder) Build() (*Value, error) {
	if b.guard == nil {
		return nil, errors.InvalidState(errors.PhaseBuild, nil, "in-place builder must finish with BuildInPlace")
	}
	m, err := b.finish()
	if err != nil {
		return nil, err
	}
	b.guard.disarm()
	return &Value{shape: b.root, data: m}, nil
}

// BuildInPlace is Build for memory the caller owns.
func (b *Builder) BuildInPlace() (ptr.Mut, error) {
	m, err := b.finish()
	if err != nil {
		return ptr.Mut{}, err
	}
	if b.guard != nil {
		b.guard.disarm()
	}
	return m, nil
}

func (b *Builder) finish() (ptr.Mut, error) {
	if err := b.usable(); err != nil {
		return ptr.Mut{}, err
	}
	for len(b.stack) > 1 {
		if err := b.Pop(); err != nil {
			return ptr.Mut{}, err
		}
	}

	root := b.stack[0]
	if err := b.settle(root); err != nil {
		return ptr.Mut{}, err
	}
	if err := b.checkInvariants(root); err != nil {
		return ptr.Mut{}, err
	}

	b.done = true
	m := root.data.AssumeInit()
	if ce := b.log.Check(debugLevel, "built value"); ce != nil {
		ce.Write(zap.Stringer("shape", root.shape))
	}
	b.stack = nil
	putFrame(root)
	return m, nil
}

// Discard drops every part written so far, deepest first, and releases the
// allocation. It is safe to call more than once.
func (b *Builder) Discard() {
	if b.done {
		return
	}
	b.done = true

	for i := len(b.stack) - 1; i >= 0; i-- {
		f := b.stack[i]
		b.clear(f)
		putFrame(f)
	}
	b.dropParked("")
	b.stack = nil

	if ce := b.log.Check(debugLevel, "discarded builder"); ce != nil {
		ce.Write(zap.Int("drops", b.drops))
	}
	if b.guard != nil {
		b.guard.release()
	}
}
