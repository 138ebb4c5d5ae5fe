// Package registry maps step handler ids to their factories.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/canvex/canvex/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.StepHandlerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[string]protocol.StepHandlerFactory),
	}
}

func (r *Registry) Register(factory protocol.StepHandlerFactory) {
	r.factories[factory.ID()] = factory
}

func (r *Registry) Create(handlerID string, config map[string]any) (protocol.StepHandler, error) {
	factory, ok := r.factories[handlerID]
	if !ok {
		return nil, fmt.Errorf("step handler %q not registered", handlerID)
	}

	return factory.Create(config)
}

// IDs returns the registered handler ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}

	return ids
}

// HealthCheck reports whether the registry has handlers registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.factories) == 0 {
		return "No step handlers registered", false
	}

	return fmt.Sprintf("%d step handlers registered", len(r.factories)), true
}
