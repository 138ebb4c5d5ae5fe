package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvex/canvex/pkg/catalog"
	"github.com/canvex/canvex/pkg/execution"
	"github.com/canvex/canvex/pkg/models"
	"github.com/canvex/canvex/pkg/persistence/file"
	"github.com/canvex/canvex/pkg/registry"
	"github.com/canvex/canvex/pkg/steps/condition"
	logstep "github.com/canvex/canvex/pkg/steps/log"
	"github.com/canvex/canvex/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(slog.Default())
	reg.Register(logstep.NewFactory())
	reg.Register(condition.NewFactory())

	tracker := execution.NewTracker(p, slog.Default())
	runner := execution.NewRunner(tracker, reg, nil, slog.Default())
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(p, catalog.Default(), runner, reg, validate)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Post("/import", handlers.ImportWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/export", handlers.ExportWorkflow)
	w.Post("/:id/run", handlers.RunWorkflow)
	w.Post("/:id/steps", handlers.CreateStep)
	w.Patch("/:id/steps/:stepId", handlers.UpdateStepConfig)
	w.Patch("/:id/steps/:stepId/position", handlers.MoveStep)
	w.Delete("/:id/steps/:stepId", handlers.DeleteStep)
	w.Post("/:id/connections", handlers.CreateConnection)
	w.Delete("/:id/connections/:connectionId", handlers.DeleteConnection)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Get("/stats", handlers.GetExecutionStats)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	app.Get("/templates", handlers.GetStepTemplates)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func createWorkflow(t *testing.T, app *fiber.App) models.Workflow {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Name:        "Order sync",
		Description: "Pushes orders downstream",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	return workflow
}

func createStep(t *testing.T, app *fiber.App, workflowID string, req web.CreateStepRequest) models.Step {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflowID+"/steps", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var step models.Step
	require.NoError(t, json.Unmarshal(body, &step))

	return step
}

func TestCreateWorkflow(t *testing.T) {
	app := setupTestApp(t)

	workflow := createWorkflow(t, app)
	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, "Order sync", workflow.Name)
	assert.Empty(t, workflow.Steps)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows", web.CreateWorkflowRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflowNotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateWorkflow(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	name := "Renamed"
	resp, body := doJSON(t, app, http.MethodPatch, "/workflows/"+workflow.ID, web.UpdateWorkflowRequest{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, workflow.Description, updated.Description)
}

func TestStepLifecycle(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	step := createStep(t, app, workflow.ID, web.CreateStepRequest{
		Type:     models.StepTypeAction,
		Name:     "Notify",
		Config:   map[string]any{"action": "log", "message": "hi"},
		Position: models.Position{X: 120, Y: 80},
	})
	assert.Equal(t, models.Position{X: 120, Y: 80}, step.Position)

	// Config patch merges rather than replaces.
	resp, body := doJSON(t, app, http.MethodPatch, "/workflows/"+workflow.ID+"/steps/"+step.ID,
		web.UpdateStepConfigRequest{Config: map[string]any{"message": "bye"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var updated models.Step
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "bye", updated.Config["message"])
	assert.Equal(t, "log", updated.Config["action"])

	resp, body = doJSON(t, app, http.MethodPatch, "/workflows/"+workflow.ID+"/steps/"+step.ID+"/position",
		web.MoveStepRequest{Position: models.Position{X: 300, Y: 40}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, models.Position{X: 300, Y: 40}, updated.Position)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+workflow.ID+"/steps/"+step.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+workflow.ID+"/steps/"+step.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateStepRejectsUnknownType(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/steps", web.CreateStepRequest{
		Type: "teleport",
		Name: "Nope",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnectionLifecycle(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	first := createStep(t, app, workflow.ID, web.CreateStepRequest{
		Type: models.StepTypeTrigger, Name: "Start",
	})
	second := createStep(t, app, workflow.ID, web.CreateStepRequest{
		Type: models.StepTypeAction, Name: "Notify", Config: map[string]any{"action": "log"},
	})

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections",
		web.CreateConnectionRequest{Source: first.ID, Target: second.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var connection models.Connection
	require.NoError(t, json.Unmarshal(body, &connection))
	assert.Equal(t, first.ID, connection.Source)

	// Self loops are rejected.
	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections",
		web.CreateConnectionRequest{Source: first.ID, Target: first.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Duplicate ordered pairs conflict.
	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections",
		web.CreateConnectionRequest{Source: first.ID, Target: second.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown endpoints are a 404.
	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections",
		web.CreateConnectionRequest{Source: first.ID, Target: "ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+workflow.ID+"/connections/"+connection.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteStepCascadesConnections(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	first := createStep(t, app, workflow.ID, web.CreateStepRequest{Type: models.StepTypeTrigger, Name: "Start"})
	second := createStep(t, app, workflow.ID, web.CreateStepRequest{Type: models.StepTypeAction, Name: "Notify", Config: map[string]any{"action": "log"}})

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections",
		web.CreateConnectionRequest{Source: first.ID, Target: second.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+workflow.ID+"/steps/"+first.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded models.Workflow
	require.NoError(t, json.Unmarshal(body, &loaded))
	assert.Len(t, loaded.Steps, 1)
	assert.Empty(t, loaded.Connections)
}

func TestExportImportRoundTrip(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	first := createStep(t, app, workflow.ID, web.CreateStepRequest{Type: models.StepTypeTrigger, Name: "Start"})
	second := createStep(t, app, workflow.ID, web.CreateStepRequest{Type: models.StepTypeAction, Name: "Notify", Config: map[string]any{"action": "log"}})

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections",
		web.CreateConnectionRequest{Source: first.ID, Target: second.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, exported := doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/workflows/import", bytes.NewReader(exported))
	req.Header.Set("Content-Type", "application/json")

	importResp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, importResp.StatusCode)

	body, err := io.ReadAll(importResp.Body)
	require.NoError(t, err)

	var imported models.Workflow
	require.NoError(t, json.Unmarshal(body, &imported))

	// Fresh ids by default so the import cannot collide with the original.
	assert.NotEqual(t, workflow.ID, imported.ID)
	assert.Len(t, imported.Steps, 2)
	assert.Len(t, imported.Connections, 1)
}

func TestImportRejectsMalformedDocument(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/workflows/import", bytes.NewReader([]byte(`{"name":"No id"}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunWorkflowAndMonitor(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	first := createStep(t, app, workflow.ID, web.CreateStepRequest{Type: models.StepTypeTrigger, Name: "Start"})
	second := createStep(t, app, workflow.ID, web.CreateStepRequest{Type: models.StepTypeAction, Name: "Notify", Config: map[string]any{"action": "log", "message": "done"}})

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections",
		web.CreateConnectionRequest{Source: first.ID, Target: second.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/run",
		web.RunWorkflowRequest{TriggerData: map[string]any{"event": "manual"}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var started models.Execution
	require.NoError(t, json.Unmarshal(body, &started))
	assert.NotEmpty(t, started.ID)

	// The run finishes in the background; poll the execution log.
	assert.Eventually(t, func() bool {
		resp, body := doJSON(t, app, http.MethodGet, "/executions/"+started.ID, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}

		var loaded models.Execution
		if err := json.Unmarshal(body, &loaded); err != nil {
			return false
		}

		return loaded.Status == models.ExecutionStatusCompleted
	}, 3*time.Second, 25*time.Millisecond)

	resp, body = doJSON(t, app, http.MethodGet, "/executions/?workflow_id="+workflow.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Executions []*models.Execution `json:"executions"`
		TotalCount int                 `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.TotalCount)

	resp, body = doJSON(t, app, http.MethodGet, "/executions/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		Total       int     `json:"total"`
		Completed   int     `json:"completed"`
		SuccessRate float64 `json:"success_rate"`
	}
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Completed)
}

func TestCancelUnknownExecution(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStepTemplates(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/templates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var templates map[models.StepType][]models.StepTemplate
	require.NoError(t, json.Unmarshal(body, &templates))
	assert.NotEmpty(t, templates[models.StepTypeTrigger])
	assert.NotEmpty(t, templates[models.StepTypeAction])
}
