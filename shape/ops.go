package shape

import (
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/wippyai/typeshape/ptr"
)

// Capability names one entry of an operation table.
type Capability uint16

const (
	CapDisplay Capability = 1 << iota
	CapDebug
	CapDefault
	CapClone
	CapEqual
	CapCompare
	CapHash
	CapDrop
	CapParse
	CapInvariants

	capCount = iota
)

const allCapabilities = Capability(1<<capCount - 1)

var capabilityNames = [...]string{
	"display", "debug", "default", "clone", "equal",
	"compare", "hash", "drop", "parse", "invariants",
}

func (c Capability) String() string {
	var names []string
	for i, name := range capabilityNames {
		if c&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Operations is the per-type operation table. Every entry is optional; a nil
// entry means the type does not support the capability.
type Operations struct {
	TypeName   func() string
	Display    func(v ptr.Const, w io.Writer) error
	Debug      func(v ptr.Const, w io.Writer) error
	Default    func(dst ptr.Uninit) ptr.Mut
	Clone      func(src ptr.Const, dst ptr.Uninit) ptr.Mut
	Equal      func(a, b ptr.Const) bool
	Compare    func(a, b ptr.Const) int
	Hash       func(v ptr.Const, h hash.Hash64)
	Drop       func(v ptr.Mut) ptr.Uninit
	Parse      func(s string, dst ptr.Uninit) (ptr.Mut, error)
	Invariants func(v ptr.Const) bool
}

// Has reports whether every capability in c is present.
func (o *Operations) Has(c Capability) bool {
	return o != nil && o.Capabilities()&c == c
}

// Capabilities returns the set of present entries.
func (o *Operations) Capabilities() Capability {
	if o == nil {
		return 0
	}
	var c Capability
	if o.Display != nil {
		c |= CapDisplay
	}
	if o.Debug != nil {
		c |= CapDebug
	}
	if o.Default != nil {
		c |= CapDefault
	}
	if o.Clone != nil {
		c |= CapClone
	}
	if o.Equal != nil {
		c |= CapEqual
	}
	if o.Compare != nil {
		c |= CapCompare
	}
	if o.Hash != nil {
		c |= CapHash
	}
	if o.Drop != nil {
		c |= CapDrop
	}
	if o.Parse != nil {
		c |= CapParse
	}
	if o.Invariants != nil {
		c |= CapInvariants
	}
	return c
}

// Must panics if a capability is absent. Calling an absent operation is a
// contract violation, not a recoverable error.
func (o *Operations) Must(c Capability) *Operations {
	if !o.Has(c) {
		panic(fmt.Sprintf("shape: operation %s invoked on a table that only has %s", c, o.Capabilities()))
	}
	return o
}

// Hooks a type may implement to customize its derived operations.
type (
	// Dropper releases non-memory resources. Drop is called exactly once per
	// value that was fully constructed.
	Dropper interface{ Drop() }

	// Defaulter fills in defaults after the value has been zeroed.
	Defaulter interface{ Default() }

	// InvariantChecker validates a fully built value.
	InvariantChecker interface{ Invariants() bool }

	// Cloner copies a value into uninitialized memory of the same type.
	Cloner interface {
		CloneTo(dst ptr.Uninit) ptr.Mut
	}
)
