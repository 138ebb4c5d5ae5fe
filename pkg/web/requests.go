package web

import "github.com/canvex/canvex/pkg/models"

type CreateWorkflowRequest struct {
	Name        string         `json:"name"        validate:"required,min=1,max=100"`
	Description string         `json:"description" validate:"max=500"`
	Variables   map[string]any `json:"variables"`
}

type UpdateWorkflowRequest struct {
	Name        *string        `json:"name"        validate:"omitempty,min=1,max=100"`
	Description *string        `json:"description" validate:"omitempty,max=500"`
	Variables   map[string]any `json:"variables"`
}

type CreateStepRequest struct {
	Type     models.StepType `json:"type"   validate:"required"`
	Name     string          `json:"name"   validate:"required,min=1,max=100"`
	Config   map[string]any  `json:"config"`
	Position models.Position `json:"position"`
}

type UpdateStepConfigRequest struct {
	Config map[string]any `json:"config" validate:"required"`
}

type MoveStepRequest struct {
	Position models.Position `json:"position"`
}

type CreateConnectionRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type RunWorkflowRequest struct {
	TriggerData map[string]any `json:"trigger_data"`
}
