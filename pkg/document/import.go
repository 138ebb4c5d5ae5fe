package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/canvex/canvex/pkg/graph"
	"github.com/canvex/canvex/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ValidationError describes why an imported document was rejected. The
// editor surfaces Detail and stays interactive; no import failure is fatal.
type ValidationError struct {
	Field  string // Offending field or id, when known
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid workflow document: %s (%s)", e.Detail, e.Field)
	}

	return "invalid workflow document: " + e.Detail
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks whether err is a document validation error.
func IsValidationError(err error) bool {
	var target *ValidationError

	return errors.As(err, &target)
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	// FreshIDs assigns new ids to the workflow, its steps, and its
	// connections, remapping connection endpoints. Used for copy-import so
	// an imported file cannot collide with an open workflow.
	FreshIDs bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Import decodes and validates a workflow document. It rejects missing
// identity fields, malformed step or connection entries, unknown step types,
// duplicate ids, broken connection references, self loops, and cyclic
// graphs.
func Import(data []byte, opts ImportOptions) (*models.Workflow, error) {
	var doc Document

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Detail: "not a JSON workflow document", Err: err}
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, &ValidationError{Detail: "missing required fields", Err: err}
	}

	// An empty steps array is a valid (empty) workflow; an absent or null
	// field is not a well-formed sequence.
	if doc.Steps == nil {
		return nil, &ValidationError{Field: "steps", Detail: "steps is not a sequence"}
	}

	if doc.Connections == nil {
		return nil, &ValidationError{Field: "connections", Detail: "connections is not a sequence"}
	}

	seenSteps := make(map[string]bool, len(doc.Steps))

	for i, step := range doc.Steps {
		if step == nil {
			return nil, &ValidationError{Detail: fmt.Sprintf("step %d is null", i)}
		}

		if err := validate.Struct(step); err != nil {
			return nil, &ValidationError{Field: step.ID, Detail: "malformed step", Err: err}
		}

		if !step.Type.IsValid() {
			return nil, &ValidationError{Field: step.ID, Detail: "unknown step type " + string(step.Type)}
		}

		if seenSteps[step.ID] {
			return nil, &ValidationError{Field: step.ID, Detail: "duplicate step id"}
		}

		seenSteps[step.ID] = true
	}

	seenConnections := make(map[string]bool, len(doc.Connections))

	for i, connection := range doc.Connections {
		if connection == nil {
			return nil, &ValidationError{Detail: fmt.Sprintf("connection %d is null", i)}
		}

		if err := validate.Struct(connection); err != nil {
			return nil, &ValidationError{Field: connection.ID, Detail: "malformed connection", Err: err}
		}

		if seenConnections[connection.ID] {
			return nil, &ValidationError{Field: connection.ID, Detail: "duplicate connection id"}
		}

		seenConnections[connection.ID] = true
	}

	workflow := &models.Workflow{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Steps:       doc.Steps,
		Connections: doc.Connections,
		Variables:   doc.Variables,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = time.Now()
	}

	if workflow.UpdatedAt.IsZero() {
		workflow.UpdatedAt = workflow.CreatedAt
	}

	model := graph.NewModel(workflow)

	if err := model.Validate(); err != nil {
		return nil, &ValidationError{Detail: "broken graph reference", Err: err}
	}

	if _, err := model.TopologicalOrder(); err != nil {
		return nil, &ValidationError{Detail: "cyclic connection graph", Err: err}
	}

	if opts.FreshIDs {
		remapIDs(workflow)
	}

	return workflow, nil
}

// remapIDs assigns fresh ids everywhere, keeping connection endpoints
// consistent with the renamed steps.
func remapIDs(workflow *models.Workflow) {
	workflow.ID = uuid.New().String()

	stepIDs := make(map[string]string, len(workflow.Steps))

	for _, step := range workflow.Steps {
		fresh := uuid.New().String()
		stepIDs[step.ID] = fresh
		step.ID = fresh
	}

	for _, connection := range workflow.Connections {
		connection.ID = uuid.New().String()
		connection.Source = stepIDs[connection.Source]
		connection.Target = stepIDs[connection.Target]
	}
}
