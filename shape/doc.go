// Package shape describes Go types at run time.
//
// A Shape combines a type's layout, its operation table and a structural
// Definition. Builders and readers walk shapes instead of calling
// type-specific code, so one codec can fill or serialize any described type.
//
// # Definitions
//
//	Go type                         Definition      Notes
//	───────────────────────────────────────────────────────────────────
//	bool, ints, floats, string      ScalarDef       Affinity says which
//	TextMarshaler+TextUnmarshaler   ScalarDef       AffinityText
//	func, chan, interface           ScalarDef       AffinityOpaque
//	struct                          StructDef       exported fields only
//	struct with discriminant tag    EnumDef         variants are fields
//	[]T                             ListDef
//	[N]T                            ArrayDef
//	map[K]V                         MapDef
//	*T                              OptionDef       nil is None
//	SmartPointerProvider            SmartPointerDef
//	weak.Pointer[T]                 SmartPointerDef FlagWeak
//
// # Tags
//
//	type User struct {
//	    Name     string `shape:"name" doc:"display name"`
//	    Password string `shape:"password,sensitive"`
//	    Retries  int    `shape:"retries,default"`
//	    Cache    []byte `shape:"-"`
//	}
//
// # Enums
//
// Go has no sum types. An enum is a struct whose first exported field holds
// the discriminant; every following field is one variant's payload:
//
//	type Animal struct {
//	    Tag  uint8 `shape:",discriminant"`
//	    Dog  struct{ Name string }
//	    Fish struct{} `shape:",disc=7"`
//	    Pair struct{ A, B int } `shape:",tuple"`
//	}
//
// Discriminants count up from zero unless given with disc=N. Enums over a
// named integer type are registered with UnitEnum.
//
// # Derivation and Registration
//
// Of and For derive shapes from reflect and cache them process-wide.
// Nested shapes are Func accessors resolved on first use, so recursive
// types stay finite. Register overrides derivation; NewBuilder assembles a
// shape by hand and panics if the declared layout disagrees with the type.
//
// # Operations
//
// Each shape has an Operations table. Scalars get the capabilities their
// kind supports; containers and structs get an entry only when every child
// has it. Types can add entries by implementing Dropper, Defaulter,
// Cloner, InvariantChecker, fmt.Stringer, encoding.TextUnmarshaler or
// Equal/Compare methods.
package shape
