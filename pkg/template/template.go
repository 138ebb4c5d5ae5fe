// Package template provides templating for dynamic step configuration.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/canvex/canvex/pkg/protocol"
)

// RenderWithContext renders the template string against a step's context:
// upstream outputs under .input, workflow variables under .vars, and the
// execution identity under .execution.
func RenderWithContext(input string, stepCtx protocol.StepContext) (any, error) {
	data := map[string]any{
		"input": stepCtx.Input,
		"vars":  stepCtx.Variables,
		"execution": map[string]any{
			"id":          stepCtx.ExecutionID,
			"workflow_id": stepCtx.WorkflowID,
			"step_id":     stepCtx.StepID,
		},
	}

	return Render(input, data)
}

// NeedsTemplating checks if a string contains template expressions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// Render executes the template and coerces the result back to a JSON value,
// number, or boolean when it parses as one.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("transform").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		if err := json.Unmarshal([]byte(result), &jsonResult); err == nil {
			return jsonResult, nil
		}
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}
