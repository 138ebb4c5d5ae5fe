package knowledge

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvex/canvex/pkg/protocol"
)

func TestFactoryRequiresQuery(t *testing.T) {
	_, err := NewFactory().Create(map[string]any{})
	assert.Error(t, err)
}

func TestExecuteLookups(t *testing.T) {
	variables := map[string]any{
		"rates": map[string]any{
			"eur": 0.92,
			"gbp": 0.79,
		},
		"owner": "ops",
	}

	tests := []struct {
		name     string
		query    string
		expected any
	}{
		{name: "top level", query: "owner", expected: "ops"},
		{name: "nested path", query: "rates.eur", expected: 0.92},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := NewFactory().Create(map[string]any{"query": tt.query})
			require.NoError(t, err)

			output, err := handler.Execute(t.Context(), protocol.StepContext{Variables: variables}, slog.Default())
			require.NoError(t, err)

			assert.Equal(t, tt.expected, output["value"])
			assert.Equal(t, true, output["found"])
		})
	}
}

func TestExecuteMissingPathUsesDefault(t *testing.T) {
	handler, err := NewFactory().Create(map[string]any{
		"query":   "rates.usd",
		"default": 1.0,
	})
	require.NoError(t, err)

	output, err := handler.Execute(t.Context(), protocol.StepContext{
		Variables: map[string]any{"rates": map[string]any{}},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 1.0, output["value"])
	assert.Equal(t, false, output["found"])
}

func TestExecuteMissingPathWithoutDefault(t *testing.T) {
	handler, err := NewFactory().Create(map[string]any{"query": "nothing.here"})
	require.NoError(t, err)

	_, err = handler.Execute(t.Context(), protocol.StepContext{}, slog.Default())
	assert.Error(t, err)
}

func TestExecuteTemplatedQuery(t *testing.T) {
	handler, err := NewFactory().Create(map[string]any{"query": "rates.{{.input.currency}}"})
	require.NoError(t, err)

	output, err := handler.Execute(t.Context(), protocol.StepContext{
		Input:     map[string]any{"currency": "gbp"},
		Variables: map[string]any{"rates": map[string]any{"gbp": 0.79}},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 0.79, output["value"])
}
