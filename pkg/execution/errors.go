// Package execution models workflow runs: per-step status, timing, and error
// propagation, advanced through an explicit lifecycle state machine.
package execution

import "errors"

var (
	// ErrExecutionNotFound indicates an unknown execution id.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionFinished indicates a mutation on an execution already in a
	// terminal status.
	ErrExecutionFinished = errors.New("execution already finished")

	// ErrStepNotInWorkflow indicates a step result for a step the workflow
	// snapshot does not contain.
	ErrStepNotInWorkflow = errors.New("step does not belong to the executed workflow")
)
