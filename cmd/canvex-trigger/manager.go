package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/canvex/canvex/pkg/eventbus"
	"github.com/canvex/canvex/pkg/events"
	"github.com/canvex/canvex/pkg/execution"
	"github.com/canvex/canvex/pkg/models"
	"github.com/canvex/canvex/pkg/persistence"
	"github.com/canvex/canvex/pkg/protocol"
	"github.com/canvex/canvex/pkg/triggers/queue"
	"github.com/canvex/canvex/pkg/triggers/schedule"
)

// TriggerManager starts a trigger source for every trigger step that declares
// one, publishes run requests on the event bus, and consumes those requests
// to run workflows.
type TriggerManager struct {
	id          string
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	runner      *execution.Runner
	logger      *slog.Logger

	mu       sync.Mutex
	triggers []protocol.Trigger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewTriggerManager(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	runner *execution.Runner,
	logger *slog.Logger,
) *TriggerManager {
	return &TriggerManager{
		id:          id,
		persistence: p,
		eventBus:    eventBus,
		runner:      runner,
		logger:      logger.With("module", "trigger_manager", "manager_id", id),
	}
}

func (tm *TriggerManager) Start(ctx context.Context) error {
	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.logger.InfoContext(ctx, "Starting trigger manager")

	tm.setupSignals()

	if err := tm.subscribeRunRequests(); err != nil {
		return fmt.Errorf("failed to subscribe to run requests: %w", err)
	}

	if err := tm.startTriggers(); err != nil {
		return fmt.Errorf("failed to start triggers: %w", err)
	}

	tm.logger.InfoContext(ctx, "Trigger manager started")

	<-tm.ctx.Done()
	tm.stopTriggers()
	tm.logger.Info("Trigger manager stopped")

	return nil
}

// startTriggers walks every workflow's trigger steps and starts a source for
// each one whose config names a schedule or a queue.
func (tm *TriggerManager) startTriggers() error {
	workflows, err := tm.persistence.Workflows(tm.ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	for _, workflow := range workflows {
		for _, step := range workflow.Steps {
			if step.Type != models.StepTypeTrigger {
				continue
			}

			trigger, err := tm.buildTrigger(workflow, step)
			if err != nil {
				tm.logger.Error("Skipping trigger step",
					"workflow_id", workflow.ID, "step_id", step.ID, "error", err)

				continue
			}

			if trigger == nil {
				continue
			}

			if err := trigger.Start(tm.ctx, tm.publishRunRequest); err != nil {
				return fmt.Errorf("failed to start trigger for step %s: %w", step.ID, err)
			}

			tm.mu.Lock()
			tm.triggers = append(tm.triggers, trigger)
			tm.mu.Unlock()
		}
	}

	tm.mu.Lock()
	count := len(tm.triggers)
	tm.mu.Unlock()

	tm.logger.Info("Started triggers", "count", count)

	return nil
}

// buildTrigger maps a trigger step's config onto a source. Steps without a
// recognized source (webhook steps fire through the API) are skipped.
func (tm *TriggerManager) buildTrigger(workflow *models.Workflow, step *models.Step) (protocol.Trigger, error) {
	config := make(map[string]any, len(step.Config)+2)
	for k, v := range step.Config {
		config[k] = v
	}

	config["id"] = step.ID
	config["workflow_id"] = workflow.ID

	switch {
	case config["cron"] != nil:
		return schedule.NewTrigger(config, tm.logger)
	case config["queue"] != nil:
		return queue.NewTrigger(config, tm.logger)
	default:
		return nil, nil
	}
}

func (tm *TriggerManager) publishRunRequest(ctx context.Context, workflowID string, triggerData map[string]any) error {
	return tm.eventBus.Publish(ctx, workflowID, events.RunRequested{
		BaseEvent:   events.NewBaseEvent(events.RunRequestedEvent, workflowID),
		TriggerData: triggerData,
	})
}

func (tm *TriggerManager) subscribeRunRequests() error {
	tm.eventBus.Handle(events.RunRequestedEvent, func(ctx context.Context, event any) error {
		request, ok := event.(*events.RunRequested)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		workflow, err := tm.persistence.WorkflowByID(ctx, request.WorkflowID)
		if err != nil {
			return fmt.Errorf("failed to load workflow %s: %w", request.WorkflowID, err)
		}

		started, err := tm.runner.Start(ctx, workflow, request.TriggerData)
		if err != nil {
			return fmt.Errorf("failed to run workflow %s: %w", request.WorkflowID, err)
		}

		tm.logger.InfoContext(ctx, "Run started",
			"workflow_id", request.WorkflowID, "execution_id", started.ID)

		return nil
	})

	return tm.eventBus.Subscribe(tm.ctx)
}

func (tm *TriggerManager) stopTriggers() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for _, trigger := range tm.triggers {
		if err := trigger.Stop(context.Background()); err != nil {
			tm.logger.Error("Failed to stop trigger", "error", err)
		}
	}

	tm.triggers = nil
}

func (tm *TriggerManager) setupSignals() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		tm.logger.Info("Received shutdown signal", "signal", sig.String())
		tm.cancel()
	}()
}
