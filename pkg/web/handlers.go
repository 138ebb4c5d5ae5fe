// Package web provides the REST API for workflow editing, runs, and the
// execution monitor.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/canvex/canvex/pkg/catalog"
	"github.com/canvex/canvex/pkg/document"
	"github.com/canvex/canvex/pkg/execution"
	"github.com/canvex/canvex/pkg/graph"
	"github.com/canvex/canvex/pkg/models"
	"github.com/canvex/canvex/pkg/monitoring"
	"github.com/canvex/canvex/pkg/persistence"
	"github.com/canvex/canvex/pkg/registry"
)

type APIHandlers struct {
	persistence persistence.Persistence
	catalog     *catalog.Catalog
	runner      *execution.Runner
	registry    *registry.Registry
	validator   *validator.Validate
}

func NewAPIHandlers(
	p persistence.Persistence,
	cat *catalog.Catalog,
	runner *execution.Runner,
	reg *registry.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		catalog:     cat,
		runner:      runner,
		registry:    reg,
		validator:   validate,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	model := graph.NewWorkflowModel(req.Name, req.Description)
	workflow := model.Workflow()
	workflow.Variables = req.Variables

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	if req.Name != nil {
		workflow.Name = *req.Name
	}

	if req.Description != nil {
		workflow.Description = *req.Description
	}

	if req.Variables != nil {
		workflow.Variables = req.Variables
	}

	workflow.UpdatedAt = time.Now()

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		return handlePersistenceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateStep(c fiber.Ctx) error {
	var req CreateStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.Type.IsValid() {
		return badRequest(c, "unknown step type: "+string(req.Type))
	}

	if req.Config != nil {
		if err := h.catalog.ValidateConfig(req.Type, req.Config); err != nil {
			return badRequest(c, err.Error())
		}
	}

	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	model := graph.NewModel(workflow)
	step := model.AddStep(req.Type, req.Name, req.Position, req.Config)

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(step)
}

func (h *APIHandlers) UpdateStepConfig(c fiber.Ctx) error {
	var req UpdateStepConfigRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	model := graph.NewModel(workflow)

	stepID := c.Params("stepId")
	if err := model.UpdateStepConfig(stepID, req.Config); err != nil {
		return handleGraphError(c, err)
	}

	step, err := model.Step(stepID)
	if err != nil {
		return handleGraphError(c, err)
	}

	if err := h.catalog.ValidateConfig(step.Type, step.Config); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.JSON(step)
}

func (h *APIHandlers) MoveStep(c fiber.Ctx) error {
	var req MoveStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	model := graph.NewModel(workflow)

	stepID := c.Params("stepId")
	if err := model.MoveStep(stepID, req.Position); err != nil {
		return handleGraphError(c, err)
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	step, err := model.Step(stepID)
	if err != nil {
		return handleGraphError(c, err)
	}

	return c.JSON(step)
}

func (h *APIHandlers) DeleteStep(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	model := graph.NewModel(workflow)

	if err := model.RemoveStep(c.Params("stepId")); err != nil {
		return handleGraphError(c, err)
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateConnection(c fiber.Ctx) error {
	var req CreateConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	model := graph.NewModel(workflow)

	connection, err := model.AddConnection(req.Source, req.Target)
	if err != nil {
		return handleGraphError(c, err)
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(connection)
}

func (h *APIHandlers) DeleteConnection(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	model := graph.NewModel(workflow)

	if err := model.RemoveConnection(c.Params("connectionId")); err != nil {
		return handleGraphError(c, err)
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ExportWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	data, err := document.Marshal(document.Export(workflow))
	if err != nil {
		return internalError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return c.Send(data)
}

func (h *APIHandlers) ImportWorkflow(c fiber.Ctx) error {
	freshIDs := fiber.Query(c, "fresh_ids", true)

	workflow, err := document.Import(c.Body(), document.ImportOptions{FreshIDs: freshIDs})
	if err != nil {
		return handleImportError(c, err)
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	started, err := h.runner.Start(c.Context(), workflow, req.TriggerData)
	if err != nil {
		if graph.IsCyclicGraph(err) {
			return badRequest(c, "workflow graph contains a cycle")
		}

		return handleGraphError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(started)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	cancelled, err := h.runner.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return handleExecutionError(c, err)
	}

	return c.JSON(cancelled)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, "Invalid filter parameters: "+err.Error())
	}

	executions, err := h.persistence.Executions(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	filtered := filter.Apply(executions)

	return c.JSON(fiber.Map{
		"executions":  filtered,
		"total_count": len(filtered),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	found, err := h.persistence.ExecutionByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(found)
}

// GetExecutionStats aggregates the execution log, honoring the same filter
// parameters as the listing endpoint.
func (h *APIHandlers) GetExecutionStats(c fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, "Invalid filter parameters: "+err.Error())
	}

	executions, err := h.persistence.Executions(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(monitoring.ComputeStats(filter.Apply(executions)))
}

func (h *APIHandlers) GetStepTemplates(c fiber.Ctx) error {
	return c.JSON(h.catalog.All())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOK := h.registry.HealthCheck()
	storageErr := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if !regOK || storageErr != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	storageCheck := "ok"
	if storageErr != nil {
		storageCheck = storageErr.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"storage":  storageCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// parseFilter reads the shared execution filter query parameters.
func parseFilter(c fiber.Ctx) (monitoring.Filter, error) {
	filter := monitoring.Filter{
		Search:     c.Query("search"),
		WorkflowID: c.Query("workflow_id"),
	}

	if status := c.Query("status"); status != "" {
		filter.Status = models.ExecutionStatus(status)
	}

	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, err
		}

		filter.From = parsed
	}

	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, err
		}

		filter.To = parsed
	}

	return filter, nil
}
