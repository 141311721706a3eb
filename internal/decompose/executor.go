package decompose

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/decompd/internal/task"
)

// Executor commits or cancels proposals. Every outcome funnels through
// the Store's Transition, so each proposal is executed at most once no
// matter how many callers race.
type Executor struct {
	proposals *Store
	tasks     task.Store
	logger    *zap.Logger

	tracer          trace.Tracer
	executionsTotal metric.Int64Counter
}

// NewExecutor creates an executor over the proposal and task stores.
func NewExecutor(proposals *Store, tasks task.Store, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Executor{
		proposals: proposals,
		tasks:     tasks,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
	}

	var err error
	e.executionsTotal, err = otel.Meter(instrumentationName).Int64Counter(
		"decompose.executions.total",
		metric.WithDescription("Proposal executions, by outcome"))
	if err != nil {
		logger.Warn("failed to create executions counter", zap.Error(err))
	}

	return e
}

// Execute commits a pending proposal: it wins the pending→executed
// transition, creates the subtasks under the original task's project,
// then deletes the original task.
//
// The transition is never rolled back. A subtask-creation failure
// returns *ExecutionFailedError with nothing mutated; a delete failure
// returns *PartialExecutionError carrying the created ids. In both
// cases the proposal stays executed so a retry cannot double-create
// subtasks.
func (e *Executor) Execute(ctx context.Context, proposalID string) (*ExecutionResult, error) {
	ctx, span := e.tracer.Start(ctx, "decompose.Execute",
		trace.WithAttributes(attribute.String("proposal.id", proposalID)))
	defer span.End()

	p, err := e.proposals.Transition(proposalID, StatusPending, StatusExecuted)
	if err != nil {
		return nil, err
	}

	specs := make([]task.TaskSpec, 0, len(p.Subtasks))
	for _, st := range p.Subtasks {
		specs = append(specs, task.TaskSpec{
			ProjectID:        p.ProjectID,
			Title:            st.Title,
			Description:      st.Description,
			EstimatedMinutes: st.EstimatedMinutes,
			Priority:         st.Priority,
			EnergyLevel:      st.EnergyLevel,
			ContextHint:      st.ContextHint,
		})
	}

	created, err := e.tasks.BulkCreateTasks(ctx, specs)
	if err != nil {
		e.countExecution(ctx, "failed")
		e.logger.Error("subtask creation failed",
			zap.String("proposal_id", proposalID),
			zap.Int64("task_id", p.OriginalTaskID),
			zap.Error(err))
		return nil, &ExecutionFailedError{
			ProposalID:     proposalID,
			OriginalTaskID: p.OriginalTaskID,
			Err:            err,
		}
	}

	ids := make([]int64, len(created))
	for i, t := range created {
		ids[i] = t.ID
	}

	if err := e.tasks.DeleteTask(ctx, p.OriginalTaskID); err != nil {
		e.countExecution(ctx, "partial")
		e.logger.Error("original task deletion failed after subtask creation",
			zap.String("proposal_id", proposalID),
			zap.Int64("task_id", p.OriginalTaskID),
			zap.Int64s("created_subtask_ids", ids),
			zap.Error(err))
		return nil, &PartialExecutionError{
			ProposalID:        proposalID,
			OriginalTaskID:    p.OriginalTaskID,
			CreatedSubtaskIDs: ids,
			Err:               err,
		}
	}

	e.countExecution(ctx, "ok")
	e.logger.Info("proposal executed",
		zap.String("proposal_id", proposalID),
		zap.Int64("deleted_task_id", p.OriginalTaskID),
		zap.Int("created_subtasks", len(ids)))

	return &ExecutionResult{
		CreatedSubtaskIDs: ids,
		DeletedTaskID:     p.OriginalTaskID,
	}, nil
}

// Cancel marks a pending proposal cancelled. Cancelling an executed or
// cancelled proposal returns ErrConflict; an expired one, ErrExpired.
func (e *Executor) Cancel(ctx context.Context, proposalID string) error {
	_, span := e.tracer.Start(ctx, "decompose.Cancel",
		trace.WithAttributes(attribute.String("proposal.id", proposalID)))
	defer span.End()

	if _, err := e.proposals.Transition(proposalID, StatusPending, StatusCancelled); err != nil {
		return err
	}
	e.logger.Info("proposal cancelled", zap.String("proposal_id", proposalID))
	return nil
}

// Status returns the proposal in any state, including terminal ones.
func (e *Executor) Status(ctx context.Context, proposalID string) (*Proposal, error) {
	return e.proposals.Get(proposalID, LookupAny)
}

func (e *Executor) countExecution(ctx context.Context, outcome string) {
	if e.executionsTotal != nil {
		e.executionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome)))
	}
}
