package execution

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/canvex/canvex/pkg/eventbus"
	"github.com/canvex/canvex/pkg/events"
	"github.com/canvex/canvex/pkg/graph"
	"github.com/canvex/canvex/pkg/models"
	"github.com/canvex/canvex/pkg/otelhelper"
	"github.com/canvex/canvex/pkg/protocol"
	"github.com/canvex/canvex/pkg/registry"
)

// Runner executes a workflow by walking its connection graph from the trigger
// steps. Independent branches run concurrently; a step starts only after every
// one of its predecessors has finished. When a step fails or a condition does
// not pass, its dependents never start, but branches already running are left
// to finish.
type Runner struct {
	tracker  *Tracker
	registry *registry.Registry
	eventBus eventbus.EventBus
	logger   *slog.Logger
	tracer   trace.Tracer

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewRunner(tracker *Tracker, reg *registry.Registry, bus eventbus.EventBus, logger *slog.Logger) *Runner {
	return &Runner{
		tracker:  tracker,
		registry: reg,
		eventBus: bus,
		logger:   logger.With("module", "runner"),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// WithTracing attaches a tracer; every step then runs inside its own span.
func (r *Runner) WithTracing(tracer trace.Tracer) *Runner {
	r.tracer = tracer

	return r
}

type stepResult struct {
	stepID string
	output map[string]any
	err    error
}

// Run executes the workflow and blocks until the run reaches a terminal
// status. Cyclic workflows are rejected before any step starts.
func (r *Runner) Run(ctx context.Context, workflow *models.Workflow, triggerData map[string]any) (*models.Execution, error) {
	execution, err := r.launch(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return r.finish(ctx, graph.NewModel(workflow), execution, triggerData)
}

// Start begins a run and returns as soon as the execution record exists. The
// run continues in the background, detached from the caller's context so an
// HTTP request ending does not cancel it.
func (r *Runner) Start(ctx context.Context, workflow *models.Workflow, triggerData map[string]any) (*models.Execution, error) {
	execution, err := r.launch(ctx, workflow)
	if err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)

	go func() {
		if _, err := r.finish(runCtx, graph.NewModel(workflow), execution, triggerData); err != nil {
			r.logger.Error("Background run failed to settle", "execution_id", execution.ID, "error", err)
		}
	}()

	return execution, nil
}

func (r *Runner) launch(ctx context.Context, workflow *models.Workflow) (*models.Execution, error) {
	model := graph.NewModel(workflow)

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("workflow %s is not runnable: %w", workflow.ID, err)
	}

	if _, err := model.TopologicalOrder(); err != nil {
		return nil, fmt.Errorf("workflow %s is not runnable: %w", workflow.ID, err)
	}

	return r.tracker.StartExecution(ctx, workflow), nil
}

func (r *Runner) finish(ctx context.Context, model *graph.Model, execution *models.Execution, triggerData map[string]any) (*models.Execution, error) {
	workflow := model.Workflow()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.cancels[execution.ID] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.cancels, execution.ID)
		r.mu.Unlock()
	}()

	r.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID: execution.ID,
	})

	r.walk(runCtx, model, execution, triggerData)

	if runCtx.Err() != nil {
		current, err := r.tracker.Execution(execution.ID)
		if err != nil {
			return nil, err
		}

		// Cancelled through Cancel, which already settled the record.
		if current.Status.IsTerminal() {
			return current, nil
		}

		// The caller's context was cancelled from outside; settle the
		// record ourselves.
		return r.tracker.CancelExecution(context.WithoutCancel(ctx), execution.ID)
	}

	completed, err := r.tracker.CompleteExecution(ctx, execution.ID)
	if err != nil {
		return nil, err
	}

	switch completed.Status {
	case models.ExecutionStatusFailed:
		r.publish(ctx, execution.ID, events.ExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, workflow.ID),
			ExecutionID: execution.ID,
			Error:       completed.Error,
			Duration:    completed.Duration,
		})
	default:
		r.publish(ctx, execution.ID, events.ExecutionCompleted{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, workflow.ID),
			ExecutionID: execution.ID,
			Duration:    completed.Duration,
		})
	}

	return completed, nil
}

// Cancel stops a running execution. Steps already in flight have their
// contexts cancelled; steps not yet started will never start.
func (r *Runner) Cancel(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := r.tracker.CancelExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	cancel, ok := r.cancels[executionID]
	r.mu.Unlock()

	if ok {
		cancel()
	}

	r.publish(ctx, executionID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
		ExecutionID: executionID,
	})

	return execution, nil
}

// walk schedules steps in dependency order. A step becomes ready when all of
// its predecessors have finished; ready steps run in their own goroutines and
// report back on a shared channel.
func (r *Runner) walk(ctx context.Context, model *graph.Model, execution *models.Execution, triggerData map[string]any) {
	steps := model.Steps()

	indegree := make(map[string]int, len(steps))
	for _, step := range steps {
		indegree[step.ID] = len(model.Predecessors(step.ID))
	}

	outputs := make(map[string]map[string]any, len(steps))
	blocked := make(map[string]bool, len(steps))

	results := make(chan stepResult)
	inflight := 0

	// Skipped steps finish without running; their results are processed
	// locally so transitive dependents are released in turn.
	skipped := make([]stepResult, 0)

	start := func(step *models.Step) {
		input := outputsCopy(outputs, model.Predecessors(step.ID))
		inflight++

		go func() {
			output, err := r.executeStep(ctx, model.Workflow(), execution.ID, step, triggerData, input)
			results <- stepResult{stepID: step.ID, output: output, err: err}
		}()
	}

	for _, step := range steps {
		if indegree[step.ID] == 0 {
			start(step)
		}
	}

	for inflight > 0 || len(skipped) > 0 {
		var result stepResult

		if len(skipped) > 0 {
			result = skipped[0]
			skipped = skipped[1:]
		} else {
			result = <-results
			inflight--
		}

		if ctx.Err() != nil {
			continue
		}

		gated := result.err == nil && !conditionPassed(result.output)
		if result.err == nil {
			outputs[result.stepID] = result.output
		}

		for _, successor := range model.Successors(result.stepID) {
			if result.err != nil || gated || blocked[result.stepID] {
				blocked[successor.ID] = true
			}

			indegree[successor.ID]--
			if indegree[successor.ID] > 0 {
				continue
			}

			if blocked[successor.ID] {
				skipped = append(skipped, stepResult{stepID: successor.ID})

				continue
			}

			start(successor)
		}
	}
}

// executeStep resolves the step's handler, runs it, and records the outcome.
// Trigger steps have no handler; they pass the trigger payload through.
func (r *Runner) executeStep(ctx context.Context, workflow *models.Workflow, executionID string, step *models.Step, triggerData map[string]any, input map[string]any) (output map[string]any, err error) {
	logger := r.logger.With("execution_id", executionID, "step_id", step.ID, "step_type", step.Type)

	if r.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, r.tracer, "runner.step",
			attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
			attribute.String(otelhelper.ExecutionIDKey, executionID),
			attribute.String(otelhelper.StepIDKey, step.ID),
			attribute.String(otelhelper.StepNameKey, step.Name),
			attribute.String(otelhelper.StepTypeKey, string(step.Type)),
		)

		defer func() {
			if err != nil {
				otelhelper.SetError(span, err)
			}

			span.End()
		}()
	}

	if step.Type == models.StepTypeTrigger {
		output := make(map[string]any, len(triggerData))
		maps.Copy(output, triggerData)

		if _, err := r.tracker.StartStep(ctx, executionID, step.ID, nil); err != nil {
			return nil, err
		}

		if _, err := r.tracker.RecordStepResult(ctx, executionID, step.ID, models.ExecutionStatusCompleted, output, ""); err != nil {
			return nil, err
		}

		return output, nil
	}

	if _, err := r.tracker.StartStep(ctx, executionID, step.ID, input); err != nil {
		return nil, err
	}

	r.publish(ctx, executionID, events.StepStarted{
		BaseEvent:   events.NewBaseEvent(events.StepStartedEvent, workflow.ID),
		ExecutionID: executionID,
		StepID:      step.ID,
		StepName:    step.Name,
	})

	handler, err := r.registry.Create(handlerID(step), step.Config)
	if err != nil {
		return r.failStep(ctx, workflow.ID, executionID, step.ID, err)
	}

	stepCtx := protocol.StepContext{
		ExecutionID: executionID,
		WorkflowID:  workflow.ID,
		StepID:      step.ID,
		StepName:    step.Name,
		Input:       input,
		Variables:   workflow.Variables,
	}

	output, err = handler.Execute(ctx, stepCtx, logger)
	if err != nil {
		return r.failStep(ctx, workflow.ID, executionID, step.ID, err)
	}

	if _, err := r.tracker.RecordStepResult(ctx, executionID, step.ID, models.ExecutionStatusCompleted, output, ""); err != nil {
		return nil, err
	}

	r.publish(ctx, executionID, events.StepFinished{
		BaseEvent:   events.NewBaseEvent(events.StepFinishedEvent, workflow.ID),
		ExecutionID: executionID,
		StepID:      step.ID,
		Output:      output,
	})

	return output, nil
}

func (r *Runner) failStep(ctx context.Context, workflowID, executionID, stepID string, stepErr error) (map[string]any, error) {
	if _, err := r.tracker.RecordStepResult(ctx, executionID, stepID, models.ExecutionStatusFailed, nil, stepErr.Error()); err != nil {
		return nil, err
	}

	r.publish(ctx, executionID, events.StepFailed{
		BaseEvent:   events.NewBaseEvent(events.StepFailedEvent, workflowID),
		ExecutionID: executionID,
		StepID:      stepID,
		Error:       stepErr.Error(),
	})

	return nil, stepErr
}

func (r *Runner) publish(ctx context.Context, key string, event events.Event) {
	if r.eventBus == nil {
		return
	}

	if err := r.eventBus.Publish(ctx, key, event); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// handlerID maps a step to its registered handler. Action steps name their
// handler in config; the other types map one to one.
func handlerID(step *models.Step) string {
	if step.Type == models.StepTypeAction {
		if action, ok := step.Config["action"].(string); ok && action != "" {
			return action
		}
	}

	return string(step.Type)
}

// conditionPassed reads the gate verdict from a step's output. Steps that do
// not set the field always let their dependents run.
func conditionPassed(output map[string]any) bool {
	if output == nil {
		return true
	}

	passed, ok := output[protocol.ConditionResultKey].(bool)
	if !ok {
		return true
	}

	return passed
}

func outputsCopy(outputs map[string]map[string]any, predecessors []*models.Step) map[string]any {
	merged := make(map[string]any)

	for _, predecessor := range predecessors {
		maps.Copy(merged, outputs[predecessor.ID])
	}

	return merged
}
