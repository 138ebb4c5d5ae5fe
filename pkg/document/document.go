// Package document converts workflows to and from a portable JSON document
// for file import and export, and validates imported documents before they
// reach the graph model.
package document

import (
	"encoding/json"
	"time"

	"github.com/canvex/canvex/pkg/models"
)

// Document is the portable representation of a workflow: a structural copy
// of its identity, steps, and connections, exchanged as plain JSON.
type Document struct {
	ID          string               `json:"id"          validate:"required"`
	Name        string               `json:"name"        validate:"required"`
	Description string               `json:"description,omitempty"`
	Steps       []*models.Step       `json:"steps"`
	Connections []*models.Connection `json:"connections"`
	Variables   map[string]any       `json:"variables,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	ExportedAt  time.Time            `json:"exported_at"`
}

// Export builds a document from the workflow. Steps and connections are
// deep-copied so later edits do not leak into an exported document.
func Export(workflow *models.Workflow) *Document {
	doc := &Document{
		ID:          workflow.ID,
		Name:        workflow.Name,
		Description: workflow.Description,
		Steps:       make([]*models.Step, 0, len(workflow.Steps)),
		Connections: make([]*models.Connection, 0, len(workflow.Connections)),
		Variables:   copyMap(workflow.Variables),
		CreatedAt:   workflow.CreatedAt,
		UpdatedAt:   workflow.UpdatedAt,
		ExportedAt:  time.Now(),
	}

	for _, step := range workflow.Steps {
		copied := *step
		copied.Config = copyMap(step.Config)
		doc.Steps = append(doc.Steps, &copied)
	}

	for _, connection := range workflow.Connections {
		copied := *connection
		doc.Connections = append(doc.Connections, &copied)
	}

	return doc
}

// Marshal encodes the document as indented JSON for file export.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func copyMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}

	copied := make(map[string]any, len(source))
	for key, value := range source {
		copied[key] = value
	}

	return copied
}
