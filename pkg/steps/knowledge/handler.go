// Package knowledge resolves lookups against the workflow's variable store.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/canvex/canvex/pkg/protocol"
	"github.com/canvex/canvex/pkg/template"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "knowledge_query"
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	query, _ := config["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("knowledge_query step requires a 'query'")
	}

	defaultValue := config["default"]

	return &Handler{query: query, defaultValue: defaultValue}, nil
}

// Handler answers a query by walking the workflow variables with a
// dot-separated path. Missing paths fall back to the configured default.
type Handler struct {
	query        string
	defaultValue any
}

func (h *Handler) Execute(_ context.Context, stepCtx protocol.StepContext, logger *slog.Logger) (map[string]any, error) {
	query := h.query

	if template.NeedsTemplating(query) {
		rendered, err := template.RenderWithContext(query, stepCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render query: %w", err)
		}

		query = fmt.Sprint(rendered)
	}

	value, found := lookup(stepCtx.Variables, query)
	if !found {
		if h.defaultValue == nil {
			return nil, fmt.Errorf("no value found for query %q", query)
		}

		logger.Debug("Query missed, using default", "query", query)

		value = h.defaultValue
	}

	return map[string]any{
		"query": query,
		"value": value,
		"found": found,
	}, nil
}

func lookup(variables map[string]any, path string) (any, bool) {
	if variables == nil {
		return nil, false
	}

	var current any = variables

	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
