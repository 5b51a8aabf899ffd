// Package builder constructs values of a shape one part at a time.
//
// A Builder is a cursor over a stack of frames. The root frame addresses
// the memory being built; navigation pushes a frame for a part and Pop
// returns to the parent:
//
//	b, g := builder.AllocateFor[config]()
//	defer g.Close()
//
//	b.FieldByName("host")
//	b.Put("localhost")
//	b.Pop()
//	v, err := b.Build()
//
// # Frames
//
// Fields and array elements are built in place inside the parent's memory.
// List elements, map keys and values, option values and smart pointer
// pointees are built in a separate allocation that is moved into the parent
// when the frame is popped complete.
//
// Each frame tracks what it has initialized: the whole value, the written
// fields of a struct or selected variant, the number of filled array slots,
// or a pending map key. Popping an incomplete in-place frame keeps it aside;
// navigating to the same part again restores it. Popping an incomplete
// separately allocated frame is an error and the cursor stays put.
//
// # Dropping
//
// Every initialized part is dropped exactly once: when it is overwritten,
// when a different enum variant is selected, or when the builder is
// discarded. Discard drops deepest parts first. A Guard returned by the
// allocating constructors discards the builder on Close unless Build
// succeeded, so a deferred Close never leaks a half-built value.
//
// # Building
//
// Build pops back to the root, writes the defaults of fields tagged
// default, and fails with the first part that was never written. Values
// whose type implements an invariant check must pass it.
package builder
