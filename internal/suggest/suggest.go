// Package suggest generates lightweight task suggestions: small,
// motivating next steps for a project, or quick universal ones when the
// user is idle. Like the decomposition engine it degrades to canned
// fallbacks whenever the AI backend is unavailable or unparseable.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/decompd/internal/ai"
	"github.com/fyrsmithlabs/decompd/internal/task"
)

const defaultGenerateTimeout = 30 * time.Second

// Service produces task suggestions.
type Service struct {
	generator ai.Generator
	store     task.Store
	logger    *zap.Logger
	timeout   time.Duration
}

// NewService creates a suggestion service.
func NewService(generator ai.Generator, store task.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator: generator,
		store:     store,
		logger:    logger,
		timeout:   defaultGenerateTimeout,
	}
}

// ForProject returns up to three 15-minute task ideas for the project.
// Only an unknown project id is an error; AI failures return fallback
// suggestions.
func (s *Service) ForProject(ctx context.Context, projectID int64) ([]task.Suggestion, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", projectID, err)
	}

	suggestions, err := s.generate(ctx, projectPrompt(p))
	if err != nil {
		s.logger.Warn("project suggestions fell back",
			zap.Int64("project_id", projectID), zap.Error(err))
		return projectFallback(p), nil
	}
	return suggestions, nil
}

// Quick returns two short universal suggestions for an idle user. It
// never fails; AI errors yield the canned fallbacks.
func (s *Service) Quick(ctx context.Context) []task.Suggestion {
	suggestions, err := s.generate(ctx, quickPrompt)
	if err != nil {
		s.logger.Warn("quick suggestions fell back", zap.Error(err))
		return quickFallback()
	}
	return suggestions
}

func (s *Service) generate(ctx context.Context, prompt string) ([]task.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseSuggestions(raw)
}

// parseSuggestions extracts a JSON array of suggestions from a raw
// model response, tolerating reasoning tags, fences, and surrounding
// prose.
func parseSuggestions(raw string) ([]task.Suggestion, error) {
	text := raw
	if i := strings.LastIndex(text, "</think>"); i >= 0 {
		text = text[i+len("</think>"):]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var suggestions []task.Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &suggestions); err != nil {
		return nil, fmt.Errorf("unmarshal suggestions: %w", err)
	}

	out := suggestions[:0]
	for _, sg := range suggestions {
		sg.Title = strings.TrimSpace(sg.Title)
		if sg.Title == "" {
			continue
		}
		if sg.EstimatedMinutes <= 0 {
			sg.EstimatedMinutes = task.DefaultEstimatedMinutes
		}
		if sg.EnergyLevel == "" {
			sg.EnergyLevel = task.LevelMedium
		}
		out = append(out, sg)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("response contains no usable suggestions")
	}
	return out, nil
}

func projectPrompt(p *task.Project) string {
	var sb strings.Builder
	sb.WriteString("You are helping someone manage their personal projects and stay motivated.\n\n")
	fmt.Fprintf(&sb, "Project: %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", p.Description)
	}
	if p.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", p.Location)
	}
	if p.NextAction != "" {
		fmt.Fprintf(&sb, "Next planned action: %s\n", p.NextAction)
	}

	sb.WriteString(`
Generate 3 practical suggestions for 15-minute tasks that would move this project forward.
Each suggestion should be actionable, completable in 15 minutes or less, and motivating.

Respond with ONLY a JSON array in this exact format:
[
  {
    "title": "Clear and specific task title",
    "description": "Detailed description of what to do",
    "estimated_minutes": 10,
    "energy_level": "low",
    "context": "when you're feeling overwhelmed",
    "reasoning": "Why this helps with motivation and progress"
  }
]

Energy levels: "low" (tired, scattered), "medium" (normal), "high" (energetic, focused).
`)
	return sb.String()
}

const quickPrompt = `Generate 2 quick suggestions for someone who is idle and needs motivation to work on their projects.

Respond with ONLY a JSON array in this exact format:
[
  {
    "title": "5-minute task title",
    "description": "What to do in detail",
    "estimated_minutes": 5,
    "energy_level": "low",
    "context": "when feeling stuck",
    "reasoning": "Why this helps"
  }
]

Focus on simple, universal tasks that help with motivation and getting unstuck.
`

func projectFallback(p *task.Project) []task.Suggestion {
	location := p.Location
	if location == "" {
		location = "project area"
	}
	return []task.Suggestion{
		{
			Title:            "Organize workspace",
			Description:      fmt.Sprintf("Spend 10 minutes tidying up the %s", location),
			EstimatedMinutes: 10,
			EnergyLevel:      task.LevelLow,
			ContextHint:      "when feeling scattered",
			Reasoning:        "A clean workspace helps with focus and motivation",
		},
		{
			Title:            "Review project status",
			Description:      fmt.Sprintf("Take 5 minutes to think about what's been done on '%s' and what comes next", p.Title),
			EstimatedMinutes: 5,
			EnergyLevel:      task.LevelLow,
			ContextHint:      "when unsure what to do",
			Reasoning:        "Clear next steps reduce decision fatigue",
		},
		{
			Title:            "Do one small task",
			Description:      "Pick the smallest possible step that moves the project forward",
			EstimatedMinutes: 15,
			EnergyLevel:      task.LevelMedium,
			ContextHint:      "when procrastinating",
			Reasoning:        "Small wins build momentum",
		},
	}
}

func quickFallback() []task.Suggestion {
	return []task.Suggestion{
		{
			Title:            "5-minute declutter",
			Description:      "Clear your immediate workspace of any clutter",
			EstimatedMinutes: 5,
			EnergyLevel:      task.LevelLow,
			ContextHint:      "anytime",
			Reasoning:        "A clear space helps clear thinking",
		},
		{
			Title:            "Project check-in",
			Description:      "Review your project list and pick one to focus on",
			EstimatedMinutes: 3,
			EnergyLevel:      task.LevelLow,
			ContextHint:      "when feeling lost",
			Reasoning:        "Reconnecting with goals provides direction",
		},
	}
}
