// Package common collects small sentinel errors and helpers shared
// across the module.
package common

import "fmt"

var (
	// ErrNilPointer is returned, wrapped with the concrete type via
	// NilError, whenever a required pointer receiver or argument is nil.
	ErrNilPointer = fmt.Errorf("nil pointer")

	// ErrTypeAssertFailure is returned when a type switch or assertion
	// encounters a type it does not know how to handle.
	ErrTypeAssertFailure = fmt.Errorf("type assert failure")
)

// NilError formats a %T-qualified ErrNilPointer, e.g.
// "nil pointer: *wsclient.Manager".
func NilError(v any) error {
	return fmt.Errorf("%w: %T", ErrNilPointer, v)
}

// NilErrorf is NilError with an additional context suffix, e.g. for
// naming the specific nil field of a struct.
func NilErrorf(v any, context string) error {
	return fmt.Errorf("%w: %T.%s", ErrNilPointer, v, context)
}
