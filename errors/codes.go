package errors

import stderrors "errors"

// FieldError is a local, recoverable failure while addressing a field or element.
type FieldError uint8

const (
	NoSuchField FieldError = iota + 1
	IndexOutOfBounds
	TypeMismatch
)

var fieldErrorNames = [...]string{
	NoSuchField:      "no such field",
	IndexOutOfBounds: "index out of bounds",
	TypeMismatch:     "type mismatch",
}

func (e FieldError) Error() string {
	if int(e) < len(fieldErrorNames) && fieldErrorNames[e] != "" {
		return fieldErrorNames[e]
	}
	return "unknown field error"
}

// VariantError is a local, recoverable failure while selecting an enum variant.
type VariantError uint8

const (
	VariantIndexOutOfBounds VariantError = iota + 1
	NotAnEnum
	NoSuchVariant
)

var variantErrorNames = [...]string{
	VariantIndexOutOfBounds: "variant index out of bounds",
	NotAnEnum:               "not an enum",
	NoSuchVariant:           "no such variant",
}

func (e VariantError) Error() string {
	if int(e) < len(variantErrorNames) && variantErrorNames[e] != "" {
		return variantErrorNames[e]
	}
	return "unknown variant error"
}

// Is forwards to the standard library so callers importing this package
// under the name errors can still match causes.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As forwards to the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
