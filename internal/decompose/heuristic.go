package decompose

import (
	"fmt"
	"math"

	"github.com/fyrsmithlabs/decompd/internal/task"
)

// Heuristic split parameters: plan/execute/review phases at roughly
// 20/60/20 of the original estimate, with a floor per phase so tiny
// tasks still get workable slices.
const (
	phaseFraction       = 0.2
	minPhaseMinutes     = 5
	fallbackConfidence  = 0.5
	fallbackImpactNote  = "Basic task splitting applied"
	fallbackDescription = "Generated by deterministic fallback split"
)

// heuristicSplit produces the deterministic three-phase breakdown used
// when the AI backend is unavailable or returns unusable output. The
// execute phase absorbs whatever the plan and review floors leave, so
// the total stays close to the original estimate; for very small tasks
// the floors win and the total can exceed it.
func heuristicSplit(t *task.Task) []SubtaskSpec {
	m := t.EstimatedMinutes
	if m <= 0 {
		m = task.DefaultEstimatedMinutes
	}

	plan := phaseMinutes(m)
	review := phaseMinutes(m)
	execute := m - plan - review
	if execute < minPhaseMinutes {
		execute = minPhaseMinutes
	}

	return []SubtaskSpec{
		{
			Title:            fmt.Sprintf("Plan: %s", t.Title),
			Description:      fallbackDescription,
			EstimatedMinutes: plan,
			Priority:         t.Priority,
			EnergyLevel:      task.LevelLow,
			ContextHint:      "Outline the approach and identify blockers",
		},
		{
			Title:            fmt.Sprintf("Execute: %s", t.Title),
			Description:      fallbackDescription,
			EstimatedMinutes: execute,
			Priority:         t.Priority,
			EnergyLevel:      t.EnergyLevel,
			ContextHint:      "Do the main work",
		},
		{
			Title:            fmt.Sprintf("Review: %s", t.Title),
			Description:      fallbackDescription,
			EstimatedMinutes: review,
			Priority:         t.Priority,
			EnergyLevel:      task.LevelMedium,
			ContextHint:      "Verify the result and tidy up",
		},
	}
}

func phaseMinutes(total int) int {
	m := int(math.Round(phaseFraction * float64(total)))
	if m < minPhaseMinutes {
		m = minPhaseMinutes
	}
	return m
}
