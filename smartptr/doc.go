// Package smartptr provides pointer types that carry ownership semantics the
// shape system can describe.
//
//	Box[T]      sole owner of a heap value
//	Shared[T]   reference counted owner; Downgrade yields a weak.Pointer[T]
//	Mutex[T]    value guarded by a sync.Mutex
//	RWMutex[T]  value guarded by a sync.RWMutex
//
// Every type implements shape.SmartPointerProvider, so shape.Of derives a
// SmartPointerDef for it and the builder can construct one around a pointee
// with PushPointee. Each type also implements shape.Dropper: dropping the
// pointer drops the pointee once no owner is left.
//
// # Lock Guards
//
// Lock and RLock return a guard whose Release unlocks exactly once. Hold the
// guard for the duration of the access:
//
//	g := m.Lock()
//	defer g.Release()
//	g.Value().Count++
//
// Releasing a guard twice is a no-op.
package smartptr
