// Package graph owns the canonical workflow graph and enforces its
// referential-integrity invariants.
package graph

import (
	"errors"
	"fmt"
)

// Standard graph error types callers can match with errors.Is.
var (
	// ErrStepNotFound indicates an operation referenced an unknown step id.
	ErrStepNotFound = errors.New("step not found")

	// ErrConnectionNotFound indicates an operation referenced an unknown connection id.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrSelfConnection indicates a connection whose source and target are the same step.
	ErrSelfConnection = errors.New("connection source and target are the same step")

	// ErrDuplicateConnection indicates a connection already exists for the ordered pair.
	ErrDuplicateConnection = errors.New("connection already exists")

	// ErrCyclicGraph indicates the connection graph contains a cycle.
	ErrCyclicGraph = errors.New("workflow graph contains a cycle")
)

// ReferenceError wraps graph errors with the operation and id that caused them.
type ReferenceError struct {
	Op  string // Operation being performed (e.g., "RemoveStep", "AddConnection")
	ID  string // Step or connection id the operation referenced
	Err error  // Underlying error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s failed for %q: %v", e.Op, e.ID, e.Err)
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for reference errors.
func (e *ReferenceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewReferenceError creates a reference error with context.
func NewReferenceError(op, id string, err error) *ReferenceError {
	return &ReferenceError{Op: op, ID: id, Err: err}
}

// IsStepNotFound checks if an error indicates a step was not found.
func IsStepNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound)
}

// IsConnectionNotFound checks if an error indicates a connection was not found.
func IsConnectionNotFound(err error) bool {
	return errors.Is(err, ErrConnectionNotFound)
}

// IsCyclicGraph checks if an error indicates the graph contains a cycle.
func IsCyclicGraph(err error) bool {
	return errors.Is(err, ErrCyclicGraph)
}
