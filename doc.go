// Package typeshape is a reflection engine for Go values: every type gets a
// runtime Shape describing its layout, structure and operations, and values
// are built and read through that description without knowing their static
// type.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	typeshape/           Root package with the ShapeOf, Construct and Inspect helpers
//	├── shape/           Shape, definitions, operation tables, derivation and registry
//	├── ptr/             Type-erased pointers: Uninit, Mut and Const
//	├── builder/         Incremental construction with init tracking and drop-on-failure
//	├── reader/          Read-only inspection of shaped values
//	├── smartptr/        Box, Shared, Mutex and RWMutex smart pointers
//	├── codec/           JSON, MessagePack, CBOR and TOML over builder and reader
//	├── pretty/          Styled value printer
//	├── errors/          Structured error types for debugging
//	└── cmd/shapectl/    Transcoding and browsing CLI
//
// # Quick Start
//
// Build a value field by field:
//
//	type point struct{ X, Y int }
//
//	p, err := typeshape.Construct(func(b *builder.Builder) error {
//	    if err := b.FieldByName("X"); err != nil {
//	        return err
//	    }
//	    if err := b.Put(1); err != nil {
//	        return err
//	    }
//	    if err := b.Pop(); err != nil {
//	        return err
//	    }
//	    ...
//	})
//
// Read it back without its static type:
//
//	s, _ := typeshape.Inspect(&p).IntoStruct()
//	for f, v := range s.Fields() {
//	    text, _ := v.Display()
//	    fmt.Println(f.Name, text)
//	}
//
// # Shapes
//
// Structs, slices, arrays, maps and pointers derive their shapes from
// reflection. Tagged unions are structs whose first field is tagged
// `shape:",discriminant"`; each further field is one variant. Named integer
// types become unit enums through shape.UnitEnum. Struct tags of the form
// `shape:"name,sensitive,default,key=value"` rename fields and attach flags
// and attributes.
//
// # Ownership
//
// A builder owns everything it has written until Build hands the value to
// the caller. Discarding a builder, or closing its guard, drops each
// initialized part exactly once and never touches uninitialized memory.
//
// # Thread Safety
//
// Shapes are immutable and safe for concurrent use. A Builder is not and
// must be used by a single goroutine. Readers are safe to share as long as
// nothing mutates the value they view.
package typeshape
