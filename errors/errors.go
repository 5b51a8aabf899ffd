package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseShape  Phase = "shape"  // shape derivation and registration
	PhaseBuild  Phase = "build"  // value construction
	PhaseRead   Phase = "read"   // value inspection
	PhaseOps    Phase = "ops"    // operation table calls
	PhaseEncode Phase = "encode" // value to wire format
	PhaseDecode Phase = "decode" // wire format to value
)

// Kind categorizes the error
type Kind string

const (
	KindPartiallyInitialized   Kind = "partially_initialized"
	KindNoSuchVariant          Kind = "no_such_variant"
	KindWrongShape             Kind = "wrong_shape"
	KindWasNotA                Kind = "was_not_a"
	KindUninitializedField     Kind = "uninitialized_field"
	KindUninitializedEnumField Kind = "uninitialized_enum_field"
	KindUninitializedScalar    Kind = "uninitialized_scalar"
	KindNoVariantSelected      Kind = "no_variant_selected"
	KindInvariantViolation     Kind = "invariant_violation"
	KindMissingCapability      Kind = "missing_capability"
	KindOperationFailed        Kind = "operation_failed"
	KindFieldError             Kind = "field_error"
	KindVariantError           Kind = "variant_error"
	KindUnsupported            Kind = "unsupported"
	KindInvalidData            Kind = "invalid_data"
	KindOverflow               Kind = "overflow"
	KindDepthExceeded          Kind = "depth_exceeded"
	KindInvalidState           Kind = "invalid_state"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Expected string
	Actual   string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": ")
		if e.Expected != "" && e.Actual != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
			b.WriteString(", got ")
			b.WriteString(e.Actual)
		} else if e.Expected != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
		} else {
			b.WriteString("got ")
			b.WriteString(e.Actual)
		}
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Actual != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Expected sets the expected shape or type name
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Actual sets the actual shape or type name
func (b *Builder) Actual(t string) *Builder {
	b.err.Actual = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// PartiallyInitialized reports a build attempted before field was written.
func PartiallyInitialized(path []string, shapeName, field string) *Error {
	return &Error{
		Phase:    PhaseBuild,
		Kind:     KindPartiallyInitialized,
		Path:     path,
		Expected: shapeName,
		Detail:   fmt.Sprintf("field %q was not set", field),
		Value:    field,
	}
}

// WrongShape reports a value of one shape offered where another was required.
func WrongShape(phase Phase, path []string, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindWrongShape,
		Path:     path,
		Expected: expected,
		Actual:   actual,
	}
}

// WasNotA reports a structural kind mismatch (e.g. struct navigation on a list).
func WasNotA(phase Phase, path []string, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindWasNotA,
		Path:     path,
		Expected: expected,
		Actual:   actual,
	}
}

// Field wraps a FieldError code with the shape it happened on.
func Field(phase Phase, path []string, shapeName string, code FieldError, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindFieldError,
		Path:     path,
		Expected: shapeName,
		Detail:   detail,
		Cause:    code,
	}
}

// Variant wraps a VariantError code with the shape it happened on.
func Variant(phase Phase, path []string, shapeName string, code VariantError, detail string) *Error {
	kind := KindVariantError
	if code == NoSuchVariant {
		kind = KindNoSuchVariant
	}
	return &Error{
		Phase:    phase,
		Kind:     kind,
		Path:     path,
		Expected: shapeName,
		Detail:   detail,
		Cause:    code,
	}
}

// UninitializedEnumField reports a selected variant whose field was never written.
func UninitializedEnumField(path []string, shapeName, variant, field string) *Error {
	return &Error{
		Phase:    PhaseBuild,
		Kind:     KindUninitializedEnumField,
		Path:     path,
		Expected: shapeName,
		Detail:   fmt.Sprintf("field %q of variant %q was not set", field, variant),
		Value:    field,
	}
}

// NoVariantSelected reports an enum built before a variant was chosen.
func NoVariantSelected(path []string, shapeName string) *Error {
	return &Error{
		Phase:    PhaseBuild,
		Kind:     KindNoVariantSelected,
		Path:     path,
		Expected: shapeName,
	}
}

// UninitializedScalar reports a leaf value that was never written.
func UninitializedScalar(path []string, shapeName string) *Error {
	return &Error{
		Phase:    PhaseBuild,
		Kind:     KindUninitializedScalar,
		Path:     path,
		Expected: shapeName,
	}
}

// InvariantViolation reports a value rejected by its shape's invariant check.
func InvariantViolation(path []string, shapeName, detail string) *Error {
	return &Error{
		Phase:    PhaseBuild,
		Kind:     KindInvariantViolation,
		Path:     path,
		Expected: shapeName,
		Detail:   detail,
	}
}

// MissingCapability reports an operation the shape's table does not provide.
func MissingCapability(phase Phase, shapeName, capability string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindMissingCapability,
		Expected: shapeName,
		Detail:   fmt.Sprintf("%s does not support %s", shapeName, capability),
		Value:    capability,
	}
}

// OperationFailed reports an operation that ran and failed.
func OperationFailed(phase Phase, path []string, shapeName, operation string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOperationFailed,
		Path:     path,
		Expected: shapeName,
		Detail:   operation,
		Cause:    cause,
	}
}

// InvalidState reports a navigation call that makes no sense in the current cursor state.
func InvalidState(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		Expected: targetType,
		Detail:   fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:    value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
