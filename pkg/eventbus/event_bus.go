// Package eventbus provides event publishing and subscription for execution
// lifecycle notifications.
package eventbus

import (
	"context"

	"github.com/canvex/canvex/pkg/events"
)

// EventHandler processes a decoded event.
type EventHandler func(ctx context.Context, event any) error

// EventBus decouples run triggers, the runner, and the tracker: producers
// publish lifecycle events and consumers subscribe by event type.
type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context) error
	GenerateID() string
	Close() error
}
