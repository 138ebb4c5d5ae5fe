package graph

import (
	"testing"

	"github.com/canvex/canvex/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDiamond(t *testing.T) (*Model, []*models.Step) {
	t.Helper()

	model := NewWorkflowModel("Diamond", "")
	trigger := model.AddStep(models.StepTypeTrigger, "Trigger", models.Position{}, nil)
	left := model.AddStep(models.StepTypeAction, "Left", models.Position{}, nil)
	right := model.AddStep(models.StepTypeAction, "Right", models.Position{}, nil)
	join := model.AddStep(models.StepTypeAction, "Join", models.Position{}, nil)

	for _, pair := range [][2]string{
		{trigger.ID, left.ID},
		{trigger.ID, right.ID},
		{left.ID, join.ID},
		{right.ID, join.ID},
	} {
		_, err := model.AddConnection(pair[0], pair[1])
		require.NoError(t, err)
	}

	return model, []*models.Step{trigger, left, right, join}
}

func TestModel_TopologicalOrder_Diamond(t *testing.T) {
	model, steps := buildDiamond(t)

	ordered, err := model.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, ordered, 4)

	index := make(map[string]int, len(ordered))
	for i, step := range ordered {
		index[step.ID] = i
	}

	assert.Less(t, index[steps[0].ID], index[steps[1].ID])
	assert.Less(t, index[steps[0].ID], index[steps[2].ID])
	assert.Less(t, index[steps[1].ID], index[steps[3].ID])
	assert.Less(t, index[steps[2].ID], index[steps[3].ID])
}

func TestModel_TopologicalOrder_Cycle(t *testing.T) {
	model := NewWorkflowModel("Cycle", "")
	a := model.AddStep(models.StepTypeAction, "A", models.Position{}, nil)
	b := model.AddStep(models.StepTypeAction, "B", models.Position{}, nil)

	_, err := model.AddConnection(a.ID, b.ID)
	require.NoError(t, err)
	_, err = model.AddConnection(b.ID, a.ID)
	require.NoError(t, err)

	ordered, err := model.TopologicalOrder()

	assert.Nil(t, ordered)
	assert.ErrorIs(t, err, ErrCyclicGraph)
	assert.True(t, IsCyclicGraph(err))
}

func TestModel_TriggerSteps(t *testing.T) {
	model, steps := buildDiamond(t)

	triggers := model.TriggerSteps()

	require.Len(t, triggers, 1)
	assert.Equal(t, steps[0].ID, triggers[0].ID)
}

func TestModel_TriggerSteps_FallsBackToRoots(t *testing.T) {
	model := NewWorkflowModel("No Triggers", "")
	a := model.AddStep(models.StepTypeAction, "A", models.Position{}, nil)
	b := model.AddStep(models.StepTypeAction, "B", models.Position{}, nil)

	_, err := model.AddConnection(a.ID, b.ID)
	require.NoError(t, err)

	triggers := model.TriggerSteps()

	require.Len(t, triggers, 1)
	assert.Equal(t, a.ID, triggers[0].ID)
}

func TestModel_SuccessorsAndPredecessors(t *testing.T) {
	model, steps := buildDiamond(t)

	successors := model.Successors(steps[0].ID)
	require.Len(t, successors, 2)

	predecessors := model.Predecessors(steps[3].ID)
	require.Len(t, predecessors, 2)

	assert.Empty(t, model.Successors(steps[3].ID))
	assert.Empty(t, model.Predecessors(steps[0].ID))
}
