// Package condition evaluates a boolean expression against the step context
// to decide whether downstream steps run.
package condition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/canvex/canvex/pkg/protocol"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Factory creates condition handlers from a step's config.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "condition"
}

// Create compiles the configured expression once per step instance.
func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	expression, _ := config["expression"].(string)
	if expression == "" {
		expression = "true"
	}

	program, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid condition expression %q: %w", expression, err)
	}

	return &Handler{expression: expression, program: program}, nil
}

// Handler evaluates the compiled expression. The environment exposes the
// merged upstream outputs as "input" and workflow variables as "vars".
type Handler struct {
	expression string
	program    *vm.Program
}

func (h *Handler) Execute(ctx context.Context, stepCtx protocol.StepContext, logger *slog.Logger) (map[string]any, error) {
	env := map[string]any{
		"input": stepCtx.Input,
		"vars":  stepCtx.Variables,
	}

	result, err := expr.Run(h.program, env)
	if err != nil {
		return nil, fmt.Errorf("condition expression %q failed: %w", h.expression, err)
	}

	passed, ok := result.(bool)
	if !ok {
		return nil, fmt.Errorf("condition expression %q did not evaluate to a boolean", h.expression)
	}

	logger.InfoContext(ctx, "Evaluated condition", "expression", h.expression, "passed", passed)

	return map[string]any{protocol.ConditionResultKey: passed}, nil
}
