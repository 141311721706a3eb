package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/decompd/internal/task"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Healthy(context.Context) bool { return s.err == nil }

func newProject(t *testing.T, store task.Store) *task.Project {
	t.Helper()
	p, err := store.CreateProject(context.Background(), task.ProjectSpec{
		Title:    "Fix the shed",
		Location: "backyard",
	})
	require.NoError(t, err)
	return p
}

func TestForProject_FromAI(t *testing.T) {
	gen := &stubGenerator{response: "```json\n" + `[
		{"title": "Measure the door", "description": "use the tape measure",
		 "estimated_minutes": 10, "energy_level": "medium", "context": "daylight", "reasoning": "needed before buying wood"}
	]` + "\n```"}

	store := task.NewMemoryStore()
	p := newProject(t, store)

	s := NewService(gen, store, nil)
	got, err := s.ForProject(context.Background(), p.ID)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Measure the door", got[0].Title)
	assert.Equal(t, 10, got[0].EstimatedMinutes)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Fix the shed")
	assert.Contains(t, gen.prompts[0], "backyard")
}

func TestForProject_FallbackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection refused")}
	store := task.NewMemoryStore()
	p := newProject(t, store)

	s := NewService(gen, store, nil)
	got, err := s.ForProject(context.Background(), p.ID)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "Organize workspace", got[0].Title)
	assert.Contains(t, got[0].Description, "backyard")
	assert.Contains(t, got[1].Description, "Fix the shed")
}

func TestForProject_FallbackOnGarbage(t *testing.T) {
	gen := &stubGenerator{response: "no json here"}
	store := task.NewMemoryStore()
	p := newProject(t, store)

	s := NewService(gen, store, nil)
	got, err := s.ForProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestForProject_UnknownProject(t *testing.T) {
	s := NewService(&stubGenerator{}, task.NewMemoryStore(), nil)
	_, err := s.ForProject(context.Background(), 99)
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestQuick_FromAI(t *testing.T) {
	gen := &stubGenerator{response: `[
		{"title": "Stretch", "description": "stand up and stretch", "estimated_minutes": 2, "energy_level": "low"}
	]`}

	s := NewService(gen, task.NewMemoryStore(), nil)
	got := s.Quick(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "Stretch", got[0].Title)
}

func TestQuick_FallbackNeverFails(t *testing.T) {
	gen := &stubGenerator{err: errors.New("down")}

	s := NewService(gen, task.NewMemoryStore(), nil)
	got := s.Quick(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "5-minute declutter", got[0].Title)
}

func TestParseSuggestions(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		got, err := parseSuggestions(`[{"title": "A"}]`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, task.DefaultEstimatedMinutes, got[0].EstimatedMinutes)
		assert.Equal(t, task.LevelMedium, got[0].EnergyLevel)
	})

	t.Run("think block and prose stripped", func(t *testing.T) {
		raw := "<think>[not this]</think>\nHere you go:\n" + `[{"title": "B", "estimated_minutes": 5}]`
		got, err := parseSuggestions(raw)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "B", got[0].Title)
	})

	t.Run("blank titles dropped", func(t *testing.T) {
		got, err := parseSuggestions(`[{"title": "  "}, {"title": "keep"}]`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "keep", got[0].Title)
	})

	t.Run("all blank is an error", func(t *testing.T) {
		_, err := parseSuggestions(`[{"title": ""}]`)
		assert.Error(t, err)
	})

	t.Run("object instead of array", func(t *testing.T) {
		_, err := parseSuggestions(`{"title": "A"}`)
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := parseSuggestions("")
		assert.Error(t, err)
	})
}
