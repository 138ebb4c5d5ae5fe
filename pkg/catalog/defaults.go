package catalog

import "github.com/canvex/canvex/pkg/models"

// Default returns the built-in template catalog. A server-supplied catalog
// can replace it; the editor only needs read access.
func Default() *Catalog {
	c, err := New(defaultTemplates())
	if err != nil {
		// The built-in schemas are static; a compile failure is a programming error.
		panic(err)
	}

	return c
}

func defaultTemplates() []models.StepTemplate {
	return []models.StepTemplate{
		{
			Type:        models.StepTypeTrigger,
			Name:        "Webhook",
			Description: "Start the workflow when an external request arrives",
			Config:      map[string]any{"path": "/hooks/incoming", "method": "POST"},
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"path"},
				"properties": map[string]any{
					"path":   map[string]any{"type": "string", "minLength": 1},
					"method": map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT"}},
				},
			},
		},
		{
			Type:        models.StepTypeTrigger,
			Name:        "Schedule",
			Description: "Start the workflow on a cron schedule",
			Config:      map[string]any{"cron": "0 * * * *"},
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"cron"},
				"properties": map[string]any{
					"cron": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
		{
			Type:        models.StepTypeAction,
			Name:        "HTTP Request",
			Description: "Call an external service",
			Config:      map[string]any{"action": "http_request", "url": "", "method": "GET"},
			// Action configs share one shape constraint: they must name
			// their handler. Handler-specific fields are checked by the
			// handler factory when the step runs.
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"action"},
				"properties": map[string]any{
					"action": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
		{
			Type:        models.StepTypeAction,
			Name:        "Log",
			Description: "Write a message to the execution log",
			Config:      map[string]any{"action": "log", "message": ""},
		},
		{
			Type:        models.StepTypeCondition,
			Name:        "Expression",
			Description: "Continue downstream only when the expression is true",
			Config:      map[string]any{"expression": "true"},
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"expression"},
				"properties": map[string]any{
					"expression": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
		{
			Type:        models.StepTypeTransformation,
			Name:        "Map Fields",
			Description: "Reshape the incoming payload",
			Config:      map[string]any{"mapping": map[string]any{}},
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"mapping"},
				"properties": map[string]any{
					"mapping": map[string]any{"type": "object"},
				},
			},
		},
		{
			Type:        models.StepTypeKnowledgeQuery,
			Name:        "Knowledge Query",
			Description: "Look up a value from the workflow knowledge base",
			Config:      map[string]any{"query": "", "source": "variables"},
			Schema: map[string]any{
				"type":     "object",
				"required": []any{"query"},
				"properties": map[string]any{
					"query":  map[string]any{"type": "string", "minLength": 1},
					"source": map[string]any{"type": "string"},
				},
			},
		},
	}
}
