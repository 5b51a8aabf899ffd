package builder

import (
	"github.com/wippyai/typeshape/ptr"
	"github.com/wippyai/typeshape/shape"
)

// Guard owns the memory of an allocating builder until Build succeeds.
//
//	b, g := builder.Allocate(s)
//	defer g.Close()
//
// Close on an armed guard discards the builder, dropping every part written
// so far, and releases the memory. After a successful Build the guard is
// disarmed and Close does nothing.
type Guard struct {
	builder *Builder
	shape   *shape.Shape
	mem     ptr.Uninit
	armed   bool
}

// Armed reports whether the guard still owns the allocation.
func (g *Guard) Armed() bool { return g.armed }

func (g *Guard) Close() {
	if !g.armed {
		return
	}
	g.builder.Discard()
	g.release()
}

func (g *Guard) disarm() {
	g.armed = false
	g.mem = ptr.Uninit{}
}

// release gives the memory back without dropping anything in it.
func (g *Guard) release() {
	if !g.armed {
		return
	}
	g.armed = false
	g.mem.Zero(g.shape.Type)
	g.mem = ptr.Uninit{}
}
