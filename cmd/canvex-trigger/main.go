package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	pkgcmd "github.com/canvex/canvex/pkg/cmd"
	"github.com/canvex/canvex/pkg/execution"
	"github.com/canvex/canvex/pkg/log"
	"github.com/canvex/canvex/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "canvex-trigger",
		Usage:                 "Run workflows from schedule and queue trigger sources",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "manager-id",
				Aliases: []string{"id"},
				Usage:   "Custom manager ID (auto-generated if not provided)",
				Sources: cli.EnvVars("MANAGER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces for workflow runs",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			managerID := command.String("manager-id")
			if managerID == "" {
				managerID = fmt.Sprintf("trigger-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("trigger").With("manager_id", managerID)
			logger.InfoContext(ctx, "Initializing Canvex trigger service")

			registry := pkgcmd.NewRegistry(logger)
			persistence := pkgcmd.NewPersistence(command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := pkgcmd.NewEventBus(command.String("event-bus"), "canvex-trigger", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tracker := execution.NewTracker(persistence, logger)
			runner := execution.NewRunner(tracker, registry, eventBus, logger)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "canvex-trigger")
				if err != nil {
					return err
				}

				runner.WithTracing(tracer)
			}

			return NewTriggerManager(managerID, persistence, eventBus, runner, logger).Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
