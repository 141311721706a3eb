package task

import "time"

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Priority and energy levels share the same low/medium/high scale.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// DefaultEstimatedMinutes is applied when a spec omits a time estimate.
const DefaultEstimatedMinutes = 15

// Task is a unit of work belonging to a project.
type Task struct {
	ID               int64      `json:"id"`
	ProjectID        int64      `json:"project_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	EnergyLevel      string     `json:"energy_level"`
	ContextHint      string     `json:"context_hint,omitempty"`
	IsCompleted      bool       `json:"is_completed"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// TaskSpec is the payload for creating a task. Zero-valued optional
// fields are filled with defaults by the store.
type TaskSpec struct {
	ProjectID        int64  `json:"project_id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Status           string `json:"status,omitempty"`
	Priority         string `json:"priority,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
	EnergyLevel      string `json:"energy_level,omitempty"`
	ContextHint      string `json:"context_hint,omitempty"`
}

// Project groups tasks and carries the context the analyzer feeds to
// the AI backend.
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	NextAction  string    `json:"next_action,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectSpec is the payload for creating a project.
type ProjectSpec struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	NextAction  string `json:"next_action,omitempty"`
}

// Suggestion is a lightweight AI-generated task idea. It has no identity;
// the user turns one into a real task by creating it.
type Suggestion struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	EnergyLevel      string `json:"energy_level"`
	ContextHint      string `json:"context,omitempty"`
	Reasoning        string `json:"reasoning,omitempty"`
}

// applyTaskDefaults normalizes a spec before insertion.
func applyTaskDefaults(spec *TaskSpec) {
	if spec.Status == "" {
		spec.Status = StatusPending
	}
	if spec.Priority == "" {
		spec.Priority = LevelMedium
	}
	if spec.EnergyLevel == "" {
		spec.EnergyLevel = LevelMedium
	}
	if spec.EstimatedMinutes <= 0 {
		spec.EstimatedMinutes = DefaultEstimatedMinutes
	}
}
