// Package catalog supplies the step template catalog: default config shapes
// per step type plus the JSON Schemas those configs must satisfy.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/canvex/canvex/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnknownStepType indicates the catalog carries no templates for the type.
var ErrUnknownStepType = errors.New("unknown step type")

// Catalog maps step types to the templates the editor's "add step"
// affordance offers. The catalog is read-only after construction.
type Catalog struct {
	templates map[models.StepType][]models.StepTemplate
	schemas   map[models.StepType]*gojsonschema.Schema
}

// New builds a catalog from the given templates, compiling each type's
// config schema once. The first template of a type provides its schema.
func New(templates []models.StepTemplate) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[models.StepType][]models.StepTemplate),
		schemas:   make(map[models.StepType]*gojsonschema.Schema),
	}

	for _, template := range templates {
		c.templates[template.Type] = append(c.templates[template.Type], template)

		if template.Schema == nil {
			continue
		}

		if _, exists := c.schemas[template.Type]; exists {
			continue
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(template.Schema))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for step type %s: %w", template.Type, err)
		}

		c.schemas[template.Type] = schema
	}

	return c, nil
}

// Templates returns the templates for one step type.
func (c *Catalog) Templates(stepType models.StepType) ([]models.StepTemplate, error) {
	templates, ok := c.templates[stepType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStepType, stepType)
	}

	return templates, nil
}

// All returns every template keyed by step type.
func (c *Catalog) All() map[models.StepType][]models.StepTemplate {
	return c.templates
}

// ValidateConfig checks a step config against the compiled schema for its
// type. Types without a schema accept any config.
func (c *Catalog) ValidateConfig(stepType models.StepType, config map[string]any) error {
	if _, ok := c.templates[stepType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStepType, stepType)
	}

	schema, ok := c.schemas[stepType]
	if !ok {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate config for step type %s: %w", stepType, err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, resultError := range result.Errors() {
		details = append(details, resultError.String())
	}

	return fmt.Errorf("invalid config for step type %s: %s", stepType, strings.Join(details, "; "))
}
