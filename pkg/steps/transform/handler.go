// Package transform reshapes the incoming payload using a field mapping
// whose values may be template expressions.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/canvex/canvex/pkg/protocol"
	"github.com/canvex/canvex/pkg/template"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "transformation"
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	mapping, _ := config["mapping"].(map[string]any)
	if mapping == nil {
		mapping = map[string]any{}
	}

	return &Handler{mapping: mapping}, nil
}

// Handler produces one output field per mapping entry. String values run
// through the template renderer; other values pass through unchanged.
type Handler struct {
	mapping map[string]any
}

func (h *Handler) Execute(ctx context.Context, stepCtx protocol.StepContext, logger *slog.Logger) (map[string]any, error) {
	output := make(map[string]any, len(h.mapping))

	for field, value := range h.mapping {
		str, ok := value.(string)
		if !ok || !template.NeedsTemplating(str) {
			output[field] = value

			continue
		}

		rendered, err := template.RenderWithContext(str, stepCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render field %q: %w", field, err)
		}

		output[field] = rendered
	}

	logger.DebugContext(ctx, "Transformed payload", "fields", len(output))

	return output, nil
}
