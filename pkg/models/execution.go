package models

import "time"

// ExecutionStatus is the lifecycle state shared by executions and their steps.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// StepExecution records one step's outcome within an execution. Error is set
// only when the step failed; Output only when it completed.
type StepExecution struct {
	ID          string          `json:"id"`
	StepID      string          `json:"step_id"`
	Name        string          `json:"name"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Input       map[string]any  `json:"input,omitempty"`
	Output      map[string]any  `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Execution is one run of a workflow, composed of ordered step executions.
// Duration is set only once the execution reaches a terminal status.
type Execution struct {
	ID           string           `json:"id"`
	WorkflowID   string           `json:"workflow_id"`
	WorkflowName string           `json:"workflow_name,omitempty"`
	Status       ExecutionStatus  `json:"status"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	Duration     time.Duration    `json:"duration,omitempty"`
	Steps        []*StepExecution `json:"steps"`
	Error        string           `json:"error,omitempty"`
}

// StepExecutionByStepID returns the step execution for the given workflow
// step id, or nil if the step has not reported yet.
func (e *Execution) StepExecutionByStepID(stepID string) *StepExecution {
	for _, step := range e.Steps {
		if step.StepID == stepID {
			return step
		}
	}

	return nil
}
