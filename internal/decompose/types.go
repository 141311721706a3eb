package decompose

import (
	"time"

	"github.com/fyrsmithlabs/decompd/internal/task"
)

// Status is the lifecycle state of a Proposal. Terminal states are
// never reused.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Source records which path produced a Proposal.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// SubtaskSpec is one proposed subtask. It has no identity until the
// proposal is executed.
type SubtaskSpec struct {
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Priority         string `json:"priority,omitempty"`
	EnergyLevel      string `json:"energy_level,omitempty"`
	ContextHint      string `json:"context_hint,omitempty"`
}

// Proposal is a pending, time-bounded suggestion to replace one task
// with several subtasks. The Store owns proposals exclusively; callers
// only ever see copies.
type Proposal struct {
	ID              string        `json:"id"`
	OriginalTaskID  int64         `json:"original_task_id"`
	ProjectID       int64         `json:"project_id"`
	Subtasks        []SubtaskSpec `json:"subtasks"`
	Reasoning       []string      `json:"reasoning,omitempty"`
	ConfidenceScore float64       `json:"confidence_score"`
	ImpactNote      string        `json:"impact_note,omitempty"`
	Source          Source        `json:"source"`
	Status          Status        `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
}

// ExecutionResult reports a fully committed execution.
type ExecutionResult struct {
	CreatedSubtaskIDs []int64 `json:"created_subtask_ids"`
	DeletedTaskID     int64   `json:"deleted_task_id"`
}

// Bundle is the context the analyzer feeds to the AI backend: the target
// task, its owning project, and the project's other tasks.
type Bundle struct {
	Task     *task.Task
	Project  *task.Project
	Siblings []*task.Task
}
