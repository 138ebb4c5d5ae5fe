package graph

import (
	"testing"

	"github.com/canvex/canvex/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_AddStep(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")

	step := model.AddStep(models.StepTypeTrigger, "Webhook", models.Position{X: 100, Y: 100}, nil)

	require.NotNil(t, step)
	assert.NotEmpty(t, step.ID)
	assert.Equal(t, models.StepTypeTrigger, step.Type)
	assert.Equal(t, "Webhook", step.Name)
	assert.NotNil(t, step.Config)
	assert.Len(t, model.Steps(), 1)
	assert.Empty(t, model.Connections())
}

func TestModel_AddConnection(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")
	a := model.AddStep(models.StepTypeTrigger, "A", models.Position{X: 100, Y: 100}, nil)
	b := model.AddStep(models.StepTypeAction, "B", models.Position{X: 400, Y: 100}, nil)

	connection, err := model.AddConnection(a.ID, b.ID)

	require.NoError(t, err)
	require.NotNil(t, connection)
	assert.Equal(t, a.ID, connection.Source)
	assert.Equal(t, b.ID, connection.Target)
	assert.NoError(t, model.Validate())
}

func TestModel_AddConnection_Rejections(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")
	a := model.AddStep(models.StepTypeTrigger, "A", models.Position{}, nil)
	b := model.AddStep(models.StepTypeAction, "B", models.Position{}, nil)

	_, err := model.AddConnection(a.ID, b.ID)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		source   string
		target   string
		expected error
	}{
		{name: "self loop", source: a.ID, target: a.ID, expected: ErrSelfConnection},
		{name: "unknown source", source: "missing", target: b.ID, expected: ErrStepNotFound},
		{name: "unknown target", source: a.ID, target: "missing", expected: ErrStepNotFound},
		{name: "duplicate ordered pair", source: a.ID, target: b.ID, expected: ErrDuplicateConnection},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			connection, err := model.AddConnection(tc.source, tc.target)
			assert.Nil(t, connection)
			assert.ErrorIs(t, err, tc.expected)
		})
	}

	// Reverse direction is a distinct ordered pair and must succeed.
	reverse, err := model.AddConnection(b.ID, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, reverse)
}

func TestModel_RemoveStep_CascadesConnections(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")
	a := model.AddStep(models.StepTypeTrigger, "A", models.Position{X: 100, Y: 100}, nil)
	b := model.AddStep(models.StepTypeAction, "B", models.Position{X: 400, Y: 100}, nil)

	_, err := model.AddConnection(a.ID, b.ID)
	require.NoError(t, err)

	err = model.RemoveStep(a.ID)
	require.NoError(t, err)

	require.Len(t, model.Steps(), 1)
	assert.Equal(t, b.ID, model.Steps()[0].ID)
	assert.Empty(t, model.Connections())
	assert.NoError(t, model.Validate())
}

func TestModel_RemoveStep_Unknown(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")

	err := model.RemoveStep("missing")

	assert.ErrorIs(t, err, ErrStepNotFound)
	assert.True(t, IsStepNotFound(err))
}

func TestModel_UpdateStepConfig_ShallowMerge(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")
	step := model.AddStep(models.StepTypeAction, "A", models.Position{}, map[string]any{
		"url":    "https://example.com",
		"method": "GET",
	})

	err := model.UpdateStepConfig(step.ID, map[string]any{"method": "POST", "timeout": 30})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", step.Config["url"])
	assert.Equal(t, "POST", step.Config["method"])
	assert.Equal(t, 30, step.Config["timeout"])
}

func TestModel_UpdateStepConfig_Unknown(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")

	err := model.UpdateStepConfig("missing", map[string]any{"key": "value"})

	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestModel_MoveStep(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")
	a := model.AddStep(models.StepTypeTrigger, "A", models.Position{X: 100, Y: 100}, nil)
	b := model.AddStep(models.StepTypeAction, "B", models.Position{X: 400, Y: 100}, nil)

	connection, err := model.AddConnection(a.ID, b.ID)
	require.NoError(t, err)

	err = model.MoveStep(a.ID, models.Position{X: 250, Y: 300})
	require.NoError(t, err)

	assert.InDelta(t, 250.0, a.Position.X, 0.001)
	assert.InDelta(t, 300.0, a.Position.Y, 0.001)

	// Endpoints are resolved by id, so the connection is untouched.
	assert.Equal(t, a.ID, connection.Source)
	assert.Equal(t, b.ID, connection.Target)
}

func TestModel_RemoveConnection(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")
	a := model.AddStep(models.StepTypeTrigger, "A", models.Position{}, nil)
	b := model.AddStep(models.StepTypeAction, "B", models.Position{}, nil)

	connection, err := model.AddConnection(a.ID, b.ID)
	require.NoError(t, err)

	err = model.RemoveConnection(connection.ID)
	require.NoError(t, err)
	assert.Empty(t, model.Connections())

	err = model.RemoveConnection(connection.ID)
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestModel_ReferentialIntegrity_AfterMutationSequence(t *testing.T) {
	model := NewWorkflowModel("Test Workflow", "")

	steps := make([]*models.Step, 0, 5)
	for i := range 5 {
		steps = append(steps, model.AddStep(models.StepTypeAction, "Step", models.Position{X: float64(i * 100)}, nil))
	}

	for i := range 4 {
		_, err := model.AddConnection(steps[i].ID, steps[i+1].ID)
		require.NoError(t, err)
	}

	require.NoError(t, model.RemoveStep(steps[2].ID))
	require.NoError(t, model.Validate())

	for _, connection := range model.Connections() {
		assert.NotEqual(t, steps[2].ID, connection.Source)
		assert.NotEqual(t, steps[2].ID, connection.Target)
	}
}
