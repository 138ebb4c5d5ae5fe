// Package protocol defines the contracts between the runner and pluggable
// step handlers and trigger sources.
package protocol

import (
	"context"
	"log/slog"
)

// StepContext carries everything a handler may need to execute one step.
type StepContext struct {
	ExecutionID string
	WorkflowID  string
	StepID      string
	StepName    string

	// Input merges the outputs of upstream steps with the trigger payload.
	Input map[string]any

	// Variables are the workflow-level variables at run start.
	Variables map[string]any
}

// StepHandler executes one step and returns its output. A condition handler
// signals its verdict through the ConditionResultKey output field.
type StepHandler interface {
	Execute(ctx context.Context, stepCtx StepContext, logger *slog.Logger) (map[string]any, error)
}

// StepHandlerFactory creates handler instances from a step's config.
type StepHandlerFactory interface {
	Create(config map[string]any) (StepHandler, error)
	ID() string
}

// ConditionResultKey is the output field condition handlers set to true or
// false. When false, the runner does not start dependent steps.
const ConditionResultKey = "passed"
