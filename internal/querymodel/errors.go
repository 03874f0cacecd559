package querymodel

import (
	"errors"
	"fmt"
)

// Sentinel errors for model construction and validation.
var (
	// ErrInnerKeyAttached is returned when attaching an inner key selector to
	// a join clause that is not a skeleton.
	ErrInnerKeyAttached = errors.New("inner key selector already attached")

	// ErrDanglingPlaceholder marks a placeholder left in a finished model.
	ErrDanglingPlaceholder = errors.New("dangling placeholder")

	// ErrForeignReference marks a reference to a query source the model does
	// not own.
	ErrForeignReference = errors.New("reference to query source outside the model")

	// ErrStaleReference marks a reference whose source changed its item type
	// after the reference was created.
	ErrStaleReference = errors.New("stale query source reference")

	// ErrMappingExists is returned when a query source is mapped twice.
	ErrMappingExists = errors.New("query source already mapped")

	// ErrMappingMissing is returned when replacing a mapping that does not exist.
	ErrMappingMissing = errors.New("query source not mapped")
)

// ArgumentError reports an invalid constructor argument.
// No clause or model is created when an ArgumentError is returned.
type ArgumentError struct {
	Argument string // name of the offending argument
	Message  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Argument, e.Message)
}

func requireArg(present bool, name string) error {
	if present {
		return nil
	}
	return &ArgumentError{Argument: name, Message: "is required"}
}
