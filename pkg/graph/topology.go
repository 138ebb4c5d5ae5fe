package graph

import "github.com/canvex/canvex/pkg/models"

// TriggerSteps returns the steps a run starts from: trigger-typed steps, or,
// when a workflow has none, steps with no inbound connection.
func (m *Model) TriggerSteps() []*models.Step {
	triggers := make([]*models.Step, 0)

	for _, step := range m.workflow.Steps {
		if step.IsTrigger() {
			triggers = append(triggers, step)
		}
	}

	if len(triggers) > 0 {
		return triggers
	}

	inbound := make(map[string]int, len(m.workflow.Steps))
	for _, connection := range m.workflow.Connections {
		inbound[connection.Target]++
	}

	for _, step := range m.workflow.Steps {
		if inbound[step.ID] == 0 {
			triggers = append(triggers, step)
		}
	}

	return triggers
}

// Successors returns the steps directly downstream of the given step.
func (m *Model) Successors(id string) []*models.Step {
	successors := make([]*models.Step, 0)

	for _, connection := range m.workflow.Connections {
		if connection.Source != id {
			continue
		}

		if step := m.workflow.StepByID(connection.Target); step != nil {
			successors = append(successors, step)
		}
	}

	return successors
}

// Predecessors returns the steps directly upstream of the given step.
func (m *Model) Predecessors(id string) []*models.Step {
	predecessors := make([]*models.Step, 0)

	for _, connection := range m.workflow.Connections {
		if connection.Target != id {
			continue
		}

		if step := m.workflow.StepByID(connection.Source); step != nil {
			predecessors = append(predecessors, step)
		}
	}

	return predecessors
}

// TopologicalOrder returns the steps in dependency order using Kahn's
// algorithm. Steps with equal depth keep their insertion order so the result
// is deterministic. Returns ErrCyclicGraph when the connection graph has a
// cycle.
func (m *Model) TopologicalOrder() ([]*models.Step, error) {
	inDegree := make(map[string]int, len(m.workflow.Steps))
	for _, step := range m.workflow.Steps {
		inDegree[step.ID] = 0
	}

	for _, connection := range m.workflow.Connections {
		inDegree[connection.Target]++
	}

	queue := make([]*models.Step, 0, len(m.workflow.Steps))

	for _, step := range m.workflow.Steps {
		if inDegree[step.ID] == 0 {
			queue = append(queue, step)
		}
	}

	ordered := make([]*models.Step, 0, len(m.workflow.Steps))

	for len(queue) > 0 {
		step := queue[0]
		queue = queue[1:]
		ordered = append(ordered, step)

		for _, successor := range m.Successors(step.ID) {
			inDegree[successor.ID]--

			if inDegree[successor.ID] == 0 {
				queue = append(queue, successor)
			}
		}
	}

	if len(ordered) != len(m.workflow.Steps) {
		return nil, NewReferenceError("TopologicalOrder", m.workflow.ID, ErrCyclicGraph)
	}

	return ordered, nil
}
