// Package models defines the core domain models for the workflow canvas editor.
package models

import "time"

// StepType classifies what a step does when the workflow runs.
type StepType string

const (
	StepTypeTrigger        StepType = "trigger"
	StepTypeAction         StepType = "action"
	StepTypeCondition      StepType = "condition"
	StepTypeTransformation StepType = "transformation"
	StepTypeKnowledgeQuery StepType = "knowledge_query"
)

// ValidStepTypes lists every step type the editor can instantiate.
var ValidStepTypes = []StepType{
	StepTypeTrigger,
	StepTypeAction,
	StepTypeCondition,
	StepTypeTransformation,
	StepTypeKnowledgeQuery,
}

// IsValid reports whether t is a known step type.
func (t StepType) IsValid() bool {
	for _, valid := range ValidStepTypes {
		if t == valid {
			return true
		}
	}

	return false
}

// Position holds canvas coordinates for rendering a step.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Step is a typed node in the workflow graph. ID is immutable once created.
// Config is stored generically; its shape depends on Type and is validated
// against the template catalog schema for that type.
type Step struct {
	ID          string         `json:"id"          validate:"required"`
	Type        StepType       `json:"type"        validate:"required"`
	Name        string         `json:"name"        validate:"required,min=1"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config"`
	Position    Position       `json:"position"`
}

// IsTrigger reports whether the step can start a run.
func (s *Step) IsTrigger() bool {
	return s.Type == StepTypeTrigger
}

// Connection is a directed edge between two steps. Source and Target must
// reference steps in the same workflow; self loops are never allowed and at
// most one connection exists per ordered (source, target) pair.
type Connection struct {
	ID     string `json:"id"     validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// Workflow is a named graph of steps and connections.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description,omitempty"`
	Steps       []*Step        `json:"steps"`
	Connections []*Connection  `json:"connections"`
	Variables   map[string]any `json:"variables,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// StepByID returns the step with the given id, or nil.
func (w *Workflow) StepByID(id string) *Step {
	for _, step := range w.Steps {
		if step.ID == id {
			return step
		}
	}

	return nil
}

// ConnectionByID returns the connection with the given id, or nil.
func (w *Workflow) ConnectionByID(id string) *Connection {
	for _, connection := range w.Connections {
		if connection.ID == id {
			return connection
		}
	}

	return nil
}
