package cmd

import (
	"log/slog"

	"github.com/canvex/canvex/pkg/registry"
	"github.com/canvex/canvex/pkg/steps/condition"
	"github.com/canvex/canvex/pkg/steps/httprequest"
	"github.com/canvex/canvex/pkg/steps/knowledge"
	logstep "github.com/canvex/canvex/pkg/steps/log"
	"github.com/canvex/canvex/pkg/steps/transform"
)

// NewRegistry returns a registry with every built-in step handler registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(condition.NewFactory())
	reg.Register(transform.NewFactory())
	reg.Register(knowledge.NewFactory())
	reg.Register(httprequest.NewFactory())
	reg.Register(logstep.NewFactory())

	return reg
}
