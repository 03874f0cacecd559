package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolution and building. Inspect with errors.Is.
var (
	// ErrUnmappedNode is returned when a node's query source is requested
	// from a ClauseGenerationContext that has no mapping for it. It points to
	// a defect in how the node chain was put together or applied.
	ErrUnmappedNode = errors.New("node has no query source in this build")

	// ErrNodeMapped is returned when a node is mapped twice in one build.
	ErrNodeMapped = errors.New("node already mapped")

	// ErrReentrantResolution is returned when a resolution slot is read while
	// it is still being computed.
	ErrReentrantResolution = errors.New("re-entrant resolution")

	// ErrThenByWithoutOrderBy is returned when a then-by node does not follow
	// an order-by or then-by node.
	ErrThenByWithoutOrderBy = errors.New("then-by must follow order-by")

	// ErrMissingOrigin is returned when a node chain does not start at a main
	// source node.
	ErrMissingOrigin = errors.New("node chain has no main source")

	// ErrCyclicChain is returned when following Source() revisits a node.
	ErrCyclicChain = errors.New("node chain is cyclic")

	// ErrScalarSource is returned when a pipeline continues after a result
	// operator that produces a single value.
	ErrScalarSource = errors.New("cannot query a scalar result")
)

// ValidationError reports an invalid node constructor argument.
// Nothing is built when a ValidationError is returned.
type ValidationError struct {
	// Node names the node kind being constructed ("Join", "Where", ...).
	Node string

	// Argument names the offending argument ("outerKeySelector", ...).
	Argument string

	// Message is a human-readable description.
	Message string

	// Err is an optional sentinel cause.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid argument %q: %s", e.Node, e.Argument, e.Message)
}

// Unwrap returns the sentinel cause, if any.
func (e *ValidationError) Unwrap() error { return e.Err }

// ResolutionError reports a failure to resolve a node's expressions against
// the current build.
type ResolutionError struct {
	// Node describes the node being resolved.
	Node string

	// Message is a human-readable description.
	Message string

	// Err is the sentinel cause.
	Err error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("resolve %s: %v", e.Node, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("resolve %s: %s", e.Node, e.Message)
	}
	return fmt.Sprintf("resolve %s: %s: %v", e.Node, e.Message, e.Err)
}

// Unwrap returns the sentinel cause.
func (e *ResolutionError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsResolutionError reports whether err is (or wraps) a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
