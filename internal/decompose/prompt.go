package decompose

import (
	"fmt"
	"strings"
)

// DefaultMaxSiblings caps how many sibling tasks the prompt carries.
// Beyond this the context stops adding signal and only burns tokens.
const DefaultMaxSiblings = 20

// buildSplitPrompt renders the analysis prompt for one context bundle.
// The model is asked for a strict JSON document; the shape here must
// stay in sync with analysisWire in parser.go.
func buildSplitPrompt(b *Bundle, maxSiblings int) string {
	if maxSiblings <= 0 {
		maxSiblings = DefaultMaxSiblings
	}

	var sb strings.Builder
	sb.WriteString("You are a productivity assistant. Break the following task into smaller, actionable subtasks.\n\n")

	fmt.Fprintf(&sb, "Project: %s\n", b.Project.Title)
	if b.Project.Description != "" {
		fmt.Fprintf(&sb, "Project description: %s\n", b.Project.Description)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Task to break down: %s\n", b.Task.Title)
	if b.Task.Description != "" {
		fmt.Fprintf(&sb, "Task description: %s\n", b.Task.Description)
	}
	fmt.Fprintf(&sb, "Estimated minutes: %d\n", b.Task.EstimatedMinutes)
	fmt.Fprintf(&sb, "Priority: %s\n", b.Task.Priority)
	fmt.Fprintf(&sb, "Energy level: %s\n", b.Task.EnergyLevel)

	if len(b.Siblings) > 0 {
		sb.WriteString("\nOther tasks in this project:\n")
		for i, sib := range b.Siblings {
			if i >= maxSiblings {
				break
			}
			fmt.Fprintf(&sb, "- %s (%s, %d min)\n", sib.Title, sib.Status, sib.EstimatedMinutes)
		}
	}

	sb.WriteString(`
Respond with ONLY a JSON object in exactly this format, no other text:
{
  "reasoning_steps": ["step 1", "step 2"],
  "task_splits": [
    {
      "subtasks": [
        {
          "title": "subtask title",
          "description": "what to do",
          "estimated_minutes": 15,
          "priority": "low|medium|high",
          "energy_level": "low|medium|high",
          "context": "where or how to do it"
        }
      ]
    }
  ],
  "confidence_score": 0.8,
  "impact_assessment": "one sentence on the effect of this split"
}

Rules:
- Each subtask must take 25 minutes or less.
- estimated_minutes must be a whole number.
- The subtask estimates should roughly add up to the original estimate.
`)
	return sb.String()
}
