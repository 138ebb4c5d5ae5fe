// Package log writes a configurable message to the execution log.
package log

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
	return "log"
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	message, _ := config["message"].(string)
	level, _ := config["level"].(string)

	return &Handler{message: message, level: level}, nil
}

type Handler struct {
	message string
	level   string
}

func (h *Handler) Execute(ctx context.Context, stepCtx protocol.StepContext, logger *slog.Logger) (map[string]any, error) {
	message := h.message

	if template.NeedsTemplating(message) {
		rendered, err := template.RenderWithContext(message, stepCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render log message: %w", err)
		}

		message = fmt.Sprint(rendered)
	}

	switch h.level {
	case "debug":
		logger.DebugContext(ctx, message)
	case "warn", "warning":
		logger.WarnContext(ctx, message)
	case "error":
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	return map[string]any{"message": message}, nil
}
