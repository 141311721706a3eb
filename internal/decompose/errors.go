package decompose

import (
	"errors"
	"fmt"
)

// Sentinel errors for proposal lookups and transitions.
var (
	// ErrNotFound means the proposal id does not resolve (never existed,
	// or is terminal and the caller asked for an active lookup).
	ErrNotFound = errors.New("proposal not found")

	// ErrExpired means the proposal's TTL elapsed before it was acted on.
	ErrExpired = errors.New("proposal expired")

	// ErrConflict means the proposal was not in the state a transition
	// required, typically because it was already executed or cancelled.
	ErrConflict = errors.New("proposal not in expected state")
)

// ExecutionFailedError reports that subtask creation failed outright.
// No mutation occurred, but the proposal stays executed: a failed
// execution must not be retried automatically, since a partial insert on
// the store side could otherwise duplicate subtasks. Operators replay
// with a fresh proposal.
type ExecutionFailedError struct {
	ProposalID     string
	OriginalTaskID int64
	Err            error
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("execution of proposal %s failed: %v", e.ProposalID, e.Err)
}

func (e *ExecutionFailedError) Unwrap() error { return e.Err }

// PartialExecutionError reports that subtasks were created but the
// original task could not be deleted. It carries the created ids so the
// caller can finish the deletion manually or retry it (deletion is
// idempotent).
type PartialExecutionError struct {
	ProposalID        string
	OriginalTaskID    int64
	CreatedSubtaskIDs []int64
	Err               error
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("proposal %s partially executed: created %d subtasks but failed to delete task %d: %v",
		e.ProposalID, len(e.CreatedSubtaskIDs), e.OriginalTaskID, e.Err)
}

func (e *PartialExecutionError) Unwrap() error { return e.Err }
