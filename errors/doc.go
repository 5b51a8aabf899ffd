// Package errors provides structured error types for the typeshape module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, expected/actual shape names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBuild, errors.KindWrongShape).
//		Path("user", "age").
//		Expected("uint32").
//		Actual("string").
//		Detail("cannot put string into uint32 slot").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.WrongShape(errors.PhaseBuild, path, "uint32", "string")
//	err := errors.Field(errors.PhaseRead, path, "Point", errors.NoSuchField, "z")
//
// FieldError and VariantError are small comparable codes carried as the Cause of
// field_error / variant_error errors, so callers can test them directly:
//
//	if errors.Is(err, errors.NoSuchField) { ... }
//
// Broken invariants (a shape whose layout disagrees with its Go type, a capability
// invoked without checking it is present) are not reported through this package:
// they panic.
package errors
