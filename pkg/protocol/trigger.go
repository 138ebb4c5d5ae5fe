package protocol

import "context"

// TriggerCallback is invoked by a trigger source when a workflow should run.
type TriggerCallback func(ctx context.Context, workflowID string, triggerData map[string]any) error

// Trigger is a source of run requests: a schedule, a queue, a webhook.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
}
