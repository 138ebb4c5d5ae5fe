// Package monitoring derives filtered views and summary statistics from a
// read-only collection of executions. Nothing here mutates its input and
// every result recomputes deterministically from the collection passed in.
package monitoring

import (
	"strings"
	"time"

	"github.com/canvex/canvex/pkg/models"
)

// Filter holds the predicates applied to an execution collection. All set
// predicates are AND-combined; zero values mean "do not filter".
type Filter struct {
	// Search matches case-insensitively against workflow name or execution id.
	Search string

	Status     models.ExecutionStatus
	WorkflowID string

	// From and To bound StartedAt inclusively.
	From time.Time
	To   time.Time
}

// Matches reports whether a single execution passes every set predicate.
func (f Filter) Matches(execution *models.Execution) bool {
	if f.Search != "" {
		search := strings.ToLower(f.Search)

		if !strings.Contains(strings.ToLower(execution.WorkflowName), search) &&
			!strings.Contains(strings.ToLower(execution.ID), search) {
			return false
		}
	}

	if f.Status != "" && execution.Status != f.Status {
		return false
	}

	if f.WorkflowID != "" && execution.WorkflowID != f.WorkflowID {
		return false
	}

	if !f.From.IsZero() && execution.StartedAt.Before(f.From) {
		return false
	}

	if !f.To.IsZero() && execution.StartedAt.After(f.To) {
		return false
	}

	return true
}

// Apply returns the executions passing the filter, preserving input order.
func (f Filter) Apply(executions []*models.Execution) []*models.Execution {
	filtered := make([]*models.Execution, 0, len(executions))

	for _, execution := range executions {
		if f.Matches(execution) {
			filtered = append(filtered, execution)
		}
	}

	return filtered
}

// Stats summarizes an execution collection.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`

	// AvgDuration is the mean duration over completed executions only.
	AvgDuration time.Duration `json:"avg_duration"`

	// SuccessRate is completed/total as a percentage, 0 when total is 0.
	SuccessRate float64 `json:"success_rate"`
}

// ComputeStats derives summary statistics from the collection.
func ComputeStats(executions []*models.Execution) Stats {
	stats := Stats{Total: len(executions)}

	var completedDuration time.Duration

	for _, execution := range executions {
		switch execution.Status {
		case models.ExecutionStatusCompleted:
			stats.Completed++
			completedDuration += execution.Duration
		case models.ExecutionStatusFailed:
			stats.Failed++
		case models.ExecutionStatusRunning:
			stats.Running++
		case models.ExecutionStatusPending:
			stats.Pending++
		case models.ExecutionStatusCancelled:
			stats.Cancelled++
		}
	}

	if stats.Completed > 0 {
		stats.AvgDuration = completedDuration / time.Duration(stats.Completed)
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(stats.Total) * 100
	}

	return stats
}
