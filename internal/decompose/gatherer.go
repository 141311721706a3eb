package decompose

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/decompd/internal/task"
)

// Gatherer assembles the context bundle for one task.
type Gatherer struct {
	store  task.Store
	logger *zap.Logger
}

// NewGatherer creates a gatherer over the given task store.
func NewGatherer(store task.Store, logger *zap.Logger) *Gatherer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gatherer{store: store, logger: logger}
}

// Gather loads the task, its project, and the project's other tasks.
// A missing task or project surfaces as task.ErrNotFound so the caller
// can map it to a 404.
func (g *Gatherer) Gather(ctx context.Context, taskID int64) (*Bundle, error) {
	t, err := g.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", taskID, err)
	}

	p, err := g.store.GetProject(ctx, t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", t.ProjectID, err)
	}

	all, err := g.store.ListTasks(ctx, t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for project %d: %w", t.ProjectID, err)
	}

	siblings := make([]*task.Task, 0, len(all))
	for _, sib := range all {
		if sib.ID != t.ID {
			siblings = append(siblings, sib)
		}
	}

	g.logger.Debug("gathered context",
		zap.Int64("task_id", t.ID),
		zap.Int64("project_id", p.ID),
		zap.Int("siblings", len(siblings)))

	return &Bundle{Task: t, Project: p, Siblings: siblings}, nil
}
