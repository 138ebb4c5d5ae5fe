package graph

import (
	"time"

	"github.com/canvex/canvex/pkg/models"
	"github.com/google/uuid"
)

// Model wraps a single workflow and exposes the mutation and query operations
// the editor performs on it. Every mutation keeps the invariant that each
// connection's source and target resolve to steps in the same workflow.
//
// Model is not safe for concurrent use; the editor mutates it from a single
// event loop (see canvas.Engine).
type Model struct {
	workflow *models.Workflow
}

// NewModel creates a model over an existing workflow.
func NewModel(workflow *models.Workflow) *Model {
	if workflow.Steps == nil {
		workflow.Steps = make([]*models.Step, 0)
	}

	if workflow.Connections == nil {
		workflow.Connections = make([]*models.Connection, 0)
	}

	return &Model{workflow: workflow}
}

// NewWorkflowModel creates a model over a fresh, empty workflow.
func NewWorkflowModel(name, description string) *Model {
	now := time.Now()

	return NewModel(&models.Workflow{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Workflow returns the underlying workflow.
func (m *Model) Workflow() *models.Workflow {
	return m.workflow
}

// Steps returns the current step set.
func (m *Model) Steps() []*models.Step {
	return m.workflow.Steps
}

// Connections returns the current connection set.
func (m *Model) Connections() []*models.Connection {
	return m.workflow.Connections
}

// Step returns the step with the given id.
func (m *Model) Step(id string) (*models.Step, error) {
	step := m.workflow.StepByID(id)
	if step == nil {
		return nil, NewReferenceError("Step", id, ErrStepNotFound)
	}

	return step, nil
}

// Connection returns the connection with the given id.
func (m *Model) Connection(id string) (*models.Connection, error) {
	connection := m.workflow.ConnectionByID(id)
	if connection == nil {
		return nil, NewReferenceError("Connection", id, ErrConnectionNotFound)
	}

	return connection, nil
}

// AddStep instantiates a step with a fresh unique id and appends it to the
// step set. Connections are untouched.
func (m *Model) AddStep(stepType models.StepType, name string, position models.Position, config map[string]any) *models.Step {
	if config == nil {
		config = make(map[string]any)
	}

	step := &models.Step{
		ID:       uuid.New().String(),
		Type:     stepType,
		Name:     name,
		Config:   config,
		Position: position,
	}

	m.workflow.Steps = append(m.workflow.Steps, step)
	m.touch()

	return step
}

// RemoveStep removes the step and cascades to every connection that
// references it as source or target.
func (m *Model) RemoveStep(id string) error {
	index := -1

	for i, step := range m.workflow.Steps {
		if step.ID == id {
			index = i

			break
		}
	}

	if index < 0 {
		return NewReferenceError("RemoveStep", id, ErrStepNotFound)
	}

	m.workflow.Steps = append(m.workflow.Steps[:index], m.workflow.Steps[index+1:]...)

	kept := m.workflow.Connections[:0]

	for _, connection := range m.workflow.Connections {
		if connection.Source != id && connection.Target != id {
			kept = append(kept, connection)
		}
	}

	m.workflow.Connections = kept
	m.touch()

	return nil
}

// UpdateStepConfig shallow-merges partial into the step's config.
func (m *Model) UpdateStepConfig(id string, partial map[string]any) error {
	step := m.workflow.StepByID(id)
	if step == nil {
		return NewReferenceError("UpdateStepConfig", id, ErrStepNotFound)
	}

	if step.Config == nil {
		step.Config = make(map[string]any, len(partial))
	}

	for key, value := range partial {
		step.Config[key] = value
	}

	m.touch()

	return nil
}

// MoveStep updates the step's canvas position. Connection endpoints are
// resolved by id, not by stored coordinates, so they are unaffected.
func (m *Model) MoveStep(id string, position models.Position) error {
	step := m.workflow.StepByID(id)
	if step == nil {
		return NewReferenceError("MoveStep", id, ErrStepNotFound)
	}

	step.Position = position
	m.touch()

	return nil
}

// AddConnection creates a directed connection between two existing, distinct
// steps. It rejects self loops, unknown endpoints, and duplicates of an
// ordered pair.
func (m *Model) AddConnection(sourceID, targetID string) (*models.Connection, error) {
	if sourceID == targetID {
		return nil, NewReferenceError("AddConnection", sourceID, ErrSelfConnection)
	}

	if m.workflow.StepByID(sourceID) == nil {
		return nil, NewReferenceError("AddConnection", sourceID, ErrStepNotFound)
	}

	if m.workflow.StepByID(targetID) == nil {
		return nil, NewReferenceError("AddConnection", targetID, ErrStepNotFound)
	}

	for _, connection := range m.workflow.Connections {
		if connection.Source == sourceID && connection.Target == targetID {
			return nil, NewReferenceError("AddConnection", connection.ID, ErrDuplicateConnection)
		}
	}

	connection := &models.Connection{
		ID:     uuid.New().String(),
		Source: sourceID,
		Target: targetID,
	}

	m.workflow.Connections = append(m.workflow.Connections, connection)
	m.touch()

	return connection, nil
}

// RemoveConnection removes the connection with the given id.
func (m *Model) RemoveConnection(id string) error {
	for i, connection := range m.workflow.Connections {
		if connection.ID == id {
			m.workflow.Connections = append(m.workflow.Connections[:i], m.workflow.Connections[i+1:]...)
			m.touch()

			return nil
		}
	}

	return NewReferenceError("RemoveConnection", id, ErrConnectionNotFound)
}

// Validate checks referential integrity: every connection endpoint resolves
// to a step, no self loops, and at most one connection per ordered pair.
func (m *Model) Validate() error {
	seen := make(map[[2]string]bool, len(m.workflow.Connections))

	for _, connection := range m.workflow.Connections {
		if connection.Source == connection.Target {
			return NewReferenceError("Validate", connection.ID, ErrSelfConnection)
		}

		if m.workflow.StepByID(connection.Source) == nil {
			return NewReferenceError("Validate", connection.Source, ErrStepNotFound)
		}

		if m.workflow.StepByID(connection.Target) == nil {
			return NewReferenceError("Validate", connection.Target, ErrStepNotFound)
		}

		pair := [2]string{connection.Source, connection.Target}
		if seen[pair] {
			return NewReferenceError("Validate", connection.ID, ErrDuplicateConnection)
		}

		seen[pair] = true
	}

	return nil
}

func (m *Model) touch() {
	m.workflow.UpdatedAt = time.Now()
}
