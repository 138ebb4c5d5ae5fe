package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/canvex/canvex/pkg/models"
	"github.com/canvex/canvex/pkg/persistence"
	"github.com/google/uuid"
)

// Tracker owns the execution records for a session, indexed by workflow id.
// Step results may arrive from concurrent branches and in any order;
// mutations are serialized per execution id so no update is lost, while
// independent executions never contend with each other.
type Tracker struct {
	persistence persistence.Persistence
	logger      *slog.Logger

	mu         sync.RWMutex
	executions map[string]*trackedExecution
}

type trackedExecution struct {
	mu        sync.Mutex
	execution *models.Execution

	// stepNames snapshots the workflow's step names at run start so results
	// can be labeled even after the editor renames or removes steps.
	stepNames map[string]string
}

// NewTracker creates a tracker. Persistence may be nil for a purely
// in-memory session; when set, every state change is written through.
func NewTracker(p persistence.Persistence, logger *slog.Logger) *Tracker {
	return &Tracker{
		persistence: p,
		logger:      logger.With("module", "execution_tracker"),
		executions:  make(map[string]*trackedExecution),
	}
}

// StartExecution creates a pending execution for the workflow and
// immediately transitions it to running with its start time set.
func (t *Tracker) StartExecution(ctx context.Context, workflow *models.Workflow) *models.Execution {
	execution := &models.Execution{
		ID:           uuid.New().String(),
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
		Status:       models.ExecutionStatusPending,
		Steps:        make([]*models.StepExecution, 0, len(workflow.Steps)),
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = time.Now()

	tracked := &trackedExecution{
		execution: execution,
		stepNames: make(map[string]string, len(workflow.Steps)),
	}

	for _, step := range workflow.Steps {
		tracked.stepNames[step.ID] = step.Name
	}

	t.mu.Lock()
	t.executions[execution.ID] = tracked
	t.mu.Unlock()

	t.persist(ctx, execution)
	t.logger.InfoContext(ctx, "Started execution", "execution_id", execution.ID, "workflow_id", workflow.ID)

	return execution
}

// StartStep marks the step as running within the execution, appending its
// step execution record.
func (t *Tracker) StartStep(ctx context.Context, executionID, stepID string, input map[string]any) (*models.StepExecution, error) {
	tracked, err := t.tracked(executionID)
	if err != nil {
		return nil, err
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	if tracked.execution.Status.IsTerminal() {
		return nil, fmt.Errorf("start step %s: %w", stepID, ErrExecutionFinished)
	}

	name, ok := tracked.stepNames[stepID]
	if !ok {
		return nil, fmt.Errorf("start step %s: %w", stepID, ErrStepNotInWorkflow)
	}

	step := tracked.execution.StepExecutionByStepID(stepID)
	if step == nil {
		step = &models.StepExecution{
			ID:     uuid.New().String(),
			StepID: stepID,
			Name:   name,
		}
		tracked.execution.Steps = append(tracked.execution.Steps, step)
	}

	step.Status = models.ExecutionStatusRunning
	step.StartedAt = time.Now()
	step.Input = input

	t.persist(ctx, tracked.execution)

	return step, nil
}

// RecordStepResult appends or updates the step execution for the workflow
// step and stamps its end time. Output is stored only for completed steps
// and the error message only for failed ones.
func (t *Tracker) RecordStepResult(ctx context.Context, executionID, stepID string, status models.ExecutionStatus, output map[string]any, stepErr string) (*models.StepExecution, error) {
	tracked, err := t.tracked(executionID)
	if err != nil {
		return nil, err
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	if tracked.execution.Status.IsTerminal() {
		return nil, fmt.Errorf("record step %s: %w", stepID, ErrExecutionFinished)
	}

	name, ok := tracked.stepNames[stepID]
	if !ok {
		return nil, fmt.Errorf("record step %s: %w", stepID, ErrStepNotInWorkflow)
	}

	step := tracked.execution.StepExecutionByStepID(stepID)
	if step == nil {
		step = &models.StepExecution{
			ID:        uuid.New().String(),
			StepID:    stepID,
			Name:      name,
			StartedAt: time.Now(),
		}
		tracked.execution.Steps = append(tracked.execution.Steps, step)
	}

	step.Status = status
	step.Output = nil
	step.Error = ""

	switch status {
	case models.ExecutionStatusCompleted:
		step.Output = output
	case models.ExecutionStatusFailed:
		step.Error = stepErr
	}

	if status.IsTerminal() {
		now := time.Now()
		step.CompletedAt = &now
	}

	t.persist(ctx, tracked.execution)

	return step, nil
}

// CompleteExecution transitions the execution to its terminal status derived
// from its steps: failed when any step failed, completed only when every
// recorded step completed. It stamps the end time and computes the duration.
func (t *Tracker) CompleteExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	tracked, err := t.tracked(executionID)
	if err != nil {
		return nil, err
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	execution := tracked.execution

	if execution.Status.IsTerminal() {
		return nil, fmt.Errorf("complete execution %s: %w", executionID, ErrExecutionFinished)
	}

	// Results from concurrent branches may have landed in any order; keep
	// the recorded sequence sorted by step start time.
	sort.SliceStable(execution.Steps, func(i, j int) bool {
		return execution.Steps[i].StartedAt.Before(execution.Steps[j].StartedAt)
	})

	status := models.ExecutionStatusCompleted
	failures := make([]string, 0)

	for _, step := range execution.Steps {
		if step.Status == models.ExecutionStatusFailed {
			status = models.ExecutionStatusFailed

			failures = append(failures, fmt.Sprintf("%s: %s", step.Name, step.Error))
		}
	}

	now := time.Now()
	execution.Status = status
	execution.CompletedAt = &now
	execution.Duration = now.Sub(execution.StartedAt)
	execution.Error = strings.Join(failures, "; ")

	t.persist(ctx, execution)
	t.logger.InfoContext(ctx, "Completed execution",
		"execution_id", executionID, "status", status, "duration", execution.Duration)

	return execution, nil
}

// CancelExecution cancels a pending or running execution. Terminal
// executions cannot be cancelled.
func (t *Tracker) CancelExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	tracked, err := t.tracked(executionID)
	if err != nil {
		return nil, err
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	execution := tracked.execution

	if execution.Status.IsTerminal() {
		return nil, fmt.Errorf("cancel execution %s: %w", executionID, ErrExecutionFinished)
	}

	now := time.Now()
	execution.Status = models.ExecutionStatusCancelled
	execution.CompletedAt = &now
	execution.Duration = now.Sub(execution.StartedAt)

	for _, step := range execution.Steps {
		if !step.Status.IsTerminal() {
			step.Status = models.ExecutionStatusCancelled
			step.CompletedAt = &now
		}
	}

	t.persist(ctx, execution)
	t.logger.InfoContext(ctx, "Cancelled execution", "execution_id", executionID)

	return execution, nil
}

// Execution returns the execution with the given id.
func (t *Tracker) Execution(executionID string) (*models.Execution, error) {
	tracked, err := t.tracked(executionID)
	if err != nil {
		return nil, err
	}

	return tracked.execution, nil
}

// Executions returns every tracked execution, newest first.
func (t *Tracker) Executions() []*models.Execution {
	t.mu.RLock()
	defer t.mu.RUnlock()

	executions := make([]*models.Execution, 0, len(t.executions))
	for _, tracked := range t.executions {
		executions = append(executions, tracked.execution)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions
}

// ExecutionsForWorkflow returns the workflow's executions, newest first.
func (t *Tracker) ExecutionsForWorkflow(workflowID string) []*models.Execution {
	executions := make([]*models.Execution, 0)

	for _, execution := range t.Executions() {
		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	return executions
}

func (t *Tracker) tracked(executionID string) (*trackedExecution, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tracked, ok := t.executions[executionID]
	if !ok {
		return nil, fmt.Errorf("execution %s: %w", executionID, ErrExecutionNotFound)
	}

	return tracked, nil
}

// persist writes through to storage. A storage failure never corrupts the
// in-memory record; it is logged and the session stays usable.
func (t *Tracker) persist(ctx context.Context, execution *models.Execution) {
	if t.persistence == nil {
		return
	}

	if err := t.persistence.SaveExecution(ctx, execution); err != nil {
		t.logger.ErrorContext(ctx, "Failed to persist execution", "execution_id", execution.ID, "error", err)
	}
}
