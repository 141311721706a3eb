// Package decompose implements the task-decomposition engine: proposing
// a breakdown of one oversized task into smaller subtasks, holding the
// proposal behind a human-approval gate, and committing exactly one
// outcome per proposal.
//
// The flow is preview-then-approve. Propose gathers context, asks the AI
// backend for a split, and falls back to a deterministic heuristic when
// the backend fails or returns unusable output, so a preview never fails
// because of the AI. The resulting Proposal is held in the Store with a
// TTL. Execution and cancellation both funnel through the Store's
// compare-and-swap Transition, which is the single serialization point:
// whoever wins the pending→executed (or pending→cancelled) transition
// owns the outcome, and every other caller gets a conflict.
package decompose
