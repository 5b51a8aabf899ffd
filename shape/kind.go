package shape

// DefKind is the structural kind of a Definition.
type DefKind uint8

const (
	KindScalar DefKind = iota
	KindStruct
	KindEnum
	KindList
	KindArray
	KindMap
	KindOption
	KindSmartPointer
)

var defKindNames = [...]string{
	KindScalar:       "scalar",
	KindStruct:       "struct",
	KindEnum:         "enum",
	KindList:         "list",
	KindArray:        "array",
	KindMap:          "map",
	KindOption:       "option",
	KindSmartPointer: "smart pointer",
}

func (k DefKind) String() string {
	if int(k) < len(defKindNames) {
		return defKindNames[k]
	}
	return "unknown"
}

// IsContainer reports whether values of this kind own a variable number of
// separately allocated children.
func (k DefKind) IsContainer() bool {
	return k == KindList || k == KindMap || k == KindOption
}

// Affinity tells callers how a scalar is best represented outside Go.
type Affinity uint8

const (
	AffinityOpaque Affinity = iota
	AffinityBool
	AffinityInt
	AffinityUint
	AffinityFloat
	AffinityComplex
	AffinityString
	AffinityText
)

var affinityNames = [...]string{
	AffinityOpaque:  "opaque",
	AffinityBool:    "bool",
	AffinityInt:     "int",
	AffinityUint:    "uint",
	AffinityFloat:   "float",
	AffinityComplex: "complex",
	AffinityString:  "string",
	AffinityText:    "text",
}

func (a Affinity) String() string {
	if int(a) < len(affinityNames) {
		return affinityNames[a]
	}
	return "unknown"
}

// EnumRepr is the integer representation of an enum discriminant.
type EnumRepr uint8

const (
	ReprU8 EnumRepr = iota
	ReprU16
	ReprU32
	ReprU64
	ReprI8
	ReprI16
	ReprI32
	ReprI64
	ReprUint
	ReprInt
	ReprUintptr
)

var enumReprNames = [...]string{
	ReprU8:      "u8",
	ReprU16:     "u16",
	ReprU32:     "u32",
	ReprU64:     "u64",
	ReprI8:      "i8",
	ReprI16:     "i16",
	ReprI32:     "i32",
	ReprI64:     "i64",
	ReprUint:    "uint",
	ReprInt:     "int",
	ReprUintptr: "uintptr",
}

func (r EnumRepr) String() string {
	if int(r) < len(enumReprNames) {
		return enumReprNames[r]
	}
	return "unknown"
}

func (r EnumRepr) Signed() bool {
	return r >= ReprI8 && r <= ReprI64 || r == ReprInt
}

// VariantKind describes the payload of an enum variant.
type VariantKind uint8

const (
	VariantUnit VariantKind = iota
	VariantTuple
	VariantStruct
)

var variantKindNames = [...]string{
	VariantUnit:   "unit",
	VariantTuple:  "tuple",
	VariantStruct: "struct",
}

func (k VariantKind) String() string {
	if int(k) < len(variantKindNames) {
		return variantKindNames[k]
	}
	return "unknown"
}

// FieldFlags are per-field markers.
type FieldFlags uint8

const (
	// FlagSensitive marks a field whose value must not be printed.
	FlagSensitive FieldFlags = 1 << iota
	// FlagDefault marks a field that is filled with its default when a
	// builder never writes it.
	FlagDefault
)

// SmartPointerFlags describe the ownership semantics of a smart pointer.
type SmartPointerFlags uint8

const (
	FlagWeak SmartPointerFlags = 1 << iota
	FlagAtomic
	FlagLock
)

// KnownPointer identifies well-known smart pointer families.
type KnownPointer uint8

const (
	PointerUnknown KnownPointer = iota
	PointerBox
	PointerShared
	PointerWeak
	PointerMutex
	PointerRWMutex
)

var knownPointerNames = [...]string{
	PointerUnknown: "unknown",
	PointerBox:     "box",
	PointerShared:  "shared",
	PointerWeak:    "weak",
	PointerMutex:   "mutex",
	PointerRWMutex: "rwmutex",
}

func (k KnownPointer) String() string {
	if int(k) < len(knownPointerNames) {
		return knownPointerNames[k]
	}
	return "unknown"
}
