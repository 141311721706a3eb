package decompose

import (
	"encoding/json"
	"fmt"
	"strings"
)

// analysisWire mirrors the JSON document the prompt asks the model to
// produce. Minutes are declared as int on purpose: a model that emits
// fractional estimates fails the unmarshal and the whole response is
// rejected rather than silently truncated.
type analysisWire struct {
	ReasoningSteps []string `json:"reasoning_steps"`
	TaskSplits     []struct {
		Subtasks []subtaskWire `json:"subtasks"`
	} `json:"task_splits"`
	ConfidenceScore  float64 `json:"confidence_score"`
	ImpactAssessment string  `json:"impact_assessment"`
}

type subtaskWire struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Priority         string `json:"priority"`
	EnergyLevel      string `json:"energy_level"`
	Context          string `json:"context"`
}

// parsedAnalysis is the validated result of one model response.
type parsedAnalysis struct {
	Reasoning  []string
	Subtasks   []SubtaskSpec
	Confidence float64
	ImpactNote string
}

// parseAnalysis extracts and validates the JSON analysis from a raw
// model response. Models wrap their output in reasoning tags, markdown
// fences, or prose, so the text is cleaned in stages before unmarshal:
// drop any <think> block, strip code fences, then take the outermost
// JSON object. Any failure rejects the whole response; the caller falls
// back to the heuristic split.
func parseAnalysis(raw string) (*parsedAnalysis, error) {
	text := stripThinkBlock(raw)
	text = stripFences(text)
	text = extractObject(text)
	if text == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var wire analysisWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}

	var subtasks []SubtaskSpec
	for _, split := range wire.TaskSplits {
		for _, st := range split.Subtasks {
			title := strings.TrimSpace(st.Title)
			if title == "" {
				return nil, fmt.Errorf("subtask with empty title")
			}
			if st.EstimatedMinutes <= 0 {
				return nil, fmt.Errorf("subtask %q: estimated minutes must be positive", title)
			}
			subtasks = append(subtasks, SubtaskSpec{
				Title:            title,
				Description:      strings.TrimSpace(st.Description),
				EstimatedMinutes: st.EstimatedMinutes,
				Priority:         st.Priority,
				EnergyLevel:      st.EnergyLevel,
				ContextHint:      st.Context,
			})
		}
	}
	if len(subtasks) == 0 {
		return nil, fmt.Errorf("analysis contains no subtasks")
	}

	return &parsedAnalysis{
		Reasoning:  wire.ReasoningSteps,
		Subtasks:   subtasks,
		Confidence: clamp01(wire.ConfidenceScore),
		ImpactNote: strings.TrimSpace(wire.ImpactAssessment),
	}, nil
}

// stripThinkBlock removes a leading <think>...</think> reasoning block
// emitted by some models, keeping only the text after the closing tag.
func stripThinkBlock(s string) string {
	if i := strings.LastIndex(s, "</think>"); i >= 0 {
		return s[i+len("</think>"):]
	}
	return s
}

// stripFences removes markdown code fences around the payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the substring from the first '{' to the last
// '}', or "" when no object is present.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
