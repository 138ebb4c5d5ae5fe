package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/canvex/canvex/pkg/models"
	"github.com/canvex/canvex/pkg/persistence"
)

// ExecutionRepository stores each execution as root/executions/<id>.json.
// Writes are serialized: the runner records step results concurrently.
type ExecutionRepository struct {
	root string
	mu   sync.RWMutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return path.Join(er.root, "executions")
}

func (er *ExecutionRepository) filePath(id string) string {
	return path.Join(er.dir(), id+".json")
}

// All loads every stored execution, newest first.
func (er *ExecutionRepository) All(_ context.Context) ([]*models.Execution, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	root := os.DirFS(er.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		execution, err := er.load(id)
		if err != nil {
			return nil, persistence.NewExecutionError("All", id, err)
		}

		executions = append(executions, execution)
	}

	sortNewestFirst(executions)

	return executions, nil
}

// ByWorkflow loads the executions for one workflow, newest first.
func (er *ExecutionRepository) ByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	all, err := er.All(ctx)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}

// GetByID loads one execution or returns ErrExecutionNotFound.
func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	execution, err := er.load(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// Save writes the execution document, creating the directory on first use.
func (er *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if err := os.MkdirAll(er.dir(), 0o755); err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	if err := os.WriteFile(er.filePath(execution.ID), data, 0o644); err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) load(id string) (*models.Execution, error) {
	data, err := os.ReadFile(er.filePath(id))
	if err != nil {
		return nil, err
	}

	var execution models.Execution

	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("failed to decode execution document: %w", err)
	}

	return &execution, nil
}

func sortNewestFirst(executions []*models.Execution) {
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})
}
