// Package task defines the task/project domain model and its stores.
//
// Two Store implementations are provided: an in-memory store for tests
// and development, and a SQLite-backed store for persistence. The
// decomposition engine consumes only the Store interface.
package task

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a task or project id does not resolve.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary for tasks and projects.
//
// DeleteTask is idempotent: deleting an id that does not exist is a
// successful no-op. All other lookups return ErrNotFound for unknown ids.
type Store interface {
	GetTask(ctx context.Context, id int64) (*Task, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListTasks(ctx context.Context, projectID int64) ([]*Task, error)
	ListProjects(ctx context.Context) ([]*Project, error)

	CreateTask(ctx context.Context, spec TaskSpec) (*Task, error)
	BulkCreateTasks(ctx context.Context, specs []TaskSpec) ([]*Task, error)
	CompleteTask(ctx context.Context, id int64) (*Task, error)
	DeleteTask(ctx context.Context, id int64) error

	CreateProject(ctx context.Context, spec ProjectSpec) (*Project, error)

	Close() error
}
