package models

// StepTemplate describes a step the editor can instantiate: the default
// config for its type plus a JSON Schema the config must satisfy.
type StepTemplate struct {
	Type        StepType       `json:"type"        validate:"required"`
	Name        string         `json:"name"        validate:"required"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config"`
	Schema      map[string]any `json:"schema,omitempty"`
}
