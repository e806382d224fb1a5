package converter

import (
	"errors"
	"fmt"

	"unit-converter/internal/units"
)

// Error codes reported to tool callers.
const (
	CodeUnsupportedUnit    = "unsupported_unit"
	CodeCategoryMismatch   = "category_mismatch"
	CodeMalformedArguments = "malformed_arguments"
	CodeInternal           = "internal"
)

// UnsupportedUnitError reports a symbol missing from the catalog.
type UnsupportedUnitError struct {
	Unit string
	// Field is "from_unit" or "to_unit".
	Field string
}

func (e *UnsupportedUnitError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unsupported unit %q", e.Unit)
	}
	return fmt.Sprintf("unsupported %s %q", e.Field, e.Unit)
}

// CategoryMismatchError reports a conversion between unrelated categories.
type CategoryMismatchError struct {
	From         string
	To           string
	FromCategory units.Category
	ToCategory   units.Category
}

func (e *CategoryMismatchError) Error() string {
	return fmt.Sprintf("cannot convert %s (%s) to %s (%s)", e.From, e.FromCategory, e.To, e.ToCategory)
}

// MalformedArgumentsError reports tool arguments that are missing or of the
// wrong type.
type MalformedArgumentsError struct {
	Field  string
	Reason string
}

func (e *MalformedArgumentsError) Error() string {
	if e.Field == "" {
		return "malformed arguments: " + e.Reason
	}
	return fmt.Sprintf("malformed argument %s: %s", e.Field, e.Reason)
}

// Code maps a conversion error to its wire code.
func Code(err error) string {
	var unsupported *UnsupportedUnitError
	var mismatch *CategoryMismatchError
	var malformed *MalformedArgumentsError
	switch {
	case errors.As(err, &unsupported):
		return CodeUnsupportedUnit
	case errors.As(err, &mismatch):
		return CodeCategoryMismatch
	case errors.As(err, &malformed):
		return CodeMalformedArguments
	default:
		return CodeInternal
	}
}
