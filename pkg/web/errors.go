package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/canvex/canvex/pkg/document"
	"github.com/canvex/canvex/pkg/execution"
	"github.com/canvex/canvex/pkg/graph"
	"github.com/canvex/canvex/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleGraphError maps graph mutation errors onto problem responses.
func handleGraphError(c fiber.Ctx, err error) error {
	switch {
	case graph.IsStepNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("step_not_found").
			WithDetail("step not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case graph.IsConnectionNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("connection_not_found").
			WithDetail("connection not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, graph.ErrSelfConnection):
		return badRequest(c, "a step cannot connect to itself")

	case errors.Is(err, graph.ErrDuplicateConnection):
		return conflict(c, "connection already exists")

	case graph.IsCyclicGraph(err):
		return badRequest(c, "workflow graph contains a cycle")

	default:
		return internalError(c, err)
	}
}

// handleExecutionError maps tracker and runner errors onto problem responses.
func handleExecutionError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, execution.ErrExecutionNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("execution_not_found").
			WithDetail("execution not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, execution.ErrExecutionFinished):
		return conflict(c, "execution already finished")

	default:
		return internalError(c, err)
	}
}

// handlePersistenceError maps storage errors onto problem responses.
func handlePersistenceError(c fiber.Ctx, err error) error {
	if persistence.IsWorkflowNotFound(err) {
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)
	}

	if persistence.IsExecutionNotFound(err) {
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("execution_not_found").
			WithDetail("execution not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)
	}

	return internalError(c, err)
}

// handleImportError surfaces the offending document field when possible.
func handleImportError(c fiber.Ctx, err error) error {
	var validationErr *document.ValidationError
	if errors.As(err, &validationErr) {
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("invalid_document").
			WithDetail(validationErr.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)
	}

	return internalError(c, err)
}
