// Package ptr provides type-erased pointers at three capability levels.
//
// An Uninit addresses memory that may be written but holds no valid value.
// A Mut addresses an initialized value that may be mutated, moved out with
// Read or MoveTo, or dropped by its shape's operations. A Const addresses an
// initialized value for reading only.
//
// None of the pointers carry a type. Every conversion between levels is a
// promise by the caller:
//
//	u := ptr.New(reflect.TypeFor[int32]())
//	m := ptr.Put(u, int32(7))    // written, now initialized
//	v, u := ptr.Read[int32](m)   // moved out, u is empty again
//
// Moving a value out and then dropping the same location is a double drop.
// The builder and reader packages are structured so that ownership of each
// location transfers exactly once.
//
// Memory is always obtained through reflect.New so the garbage collector sees
// the real element type. Copies and clears go through reflect so write
// barriers are honoured for pointer-carrying values.
package ptr
