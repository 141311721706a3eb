package task

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeUnderTest runs the same conformance checks against every Store
// implementation.
func storeUnderTest(t *testing.T, open func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("project lifecycle", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		p, err := s.CreateProject(ctx, ProjectSpec{Title: "Garage cleanup", Location: "garage"})
		require.NoError(t, err)
		assert.NotZero(t, p.ID)
		assert.Equal(t, "active", p.Status)

		got, err := s.GetProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Garage cleanup", got.Title)
		assert.Equal(t, "garage", got.Location)

		_, err = s.GetProject(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := s.ListProjects(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("task defaults", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		p, err := s.CreateProject(ctx, ProjectSpec{Title: "p"})
		require.NoError(t, err)

		created, err := s.CreateTask(ctx, TaskSpec{ProjectID: p.ID, Title: "Sort boxes"})
		require.NoError(t, err)
		assert.Equal(t, StatusPending, created.Status)
		assert.Equal(t, LevelMedium, created.Priority)
		assert.Equal(t, LevelMedium, created.EnergyLevel)
		assert.Equal(t, DefaultEstimatedMinutes, created.EstimatedMinutes)
		assert.False(t, created.IsCompleted)
	})

	t.Run("title required", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.CreateTask(ctx, TaskSpec{ProjectID: 1})
		assert.Error(t, err)
		_, err = s.BulkCreateTasks(ctx, []TaskSpec{{ProjectID: 1, Title: "ok"}, {ProjectID: 1}})
		assert.Error(t, err)
	})

	t.Run("bulk create preserves order", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		p, err := s.CreateProject(ctx, ProjectSpec{Title: "p"})
		require.NoError(t, err)

		specs := []TaskSpec{
			{ProjectID: p.ID, Title: "first", EstimatedMinutes: 5},
			{ProjectID: p.ID, Title: "second", EstimatedMinutes: 10},
			{ProjectID: p.ID, Title: "third", EstimatedMinutes: 15},
		}
		created, err := s.BulkCreateTasks(ctx, specs)
		require.NoError(t, err)
		require.Len(t, created, 3)
		assert.Equal(t, "first", created[0].Title)
		assert.Equal(t, "second", created[1].Title)
		assert.Equal(t, "third", created[2].Title)
		assert.Less(t, created[0].ID, created[1].ID)

		listed, err := s.ListTasks(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, listed, 3)
	})

	t.Run("complete task", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		p, err := s.CreateProject(ctx, ProjectSpec{Title: "p"})
		require.NoError(t, err)
		created, err := s.CreateTask(ctx, TaskSpec{ProjectID: p.ID, Title: "t"})
		require.NoError(t, err)

		done, err := s.CompleteTask(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, done.IsCompleted)
		assert.Equal(t, StatusCompleted, done.Status)
		require.NotNil(t, done.CompletedAt)

		_, err = s.CompleteTask(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		p, err := s.CreateProject(ctx, ProjectSpec{Title: "p"})
		require.NoError(t, err)
		created, err := s.CreateTask(ctx, TaskSpec{ProjectID: p.ID, Title: "t"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteTask(ctx, created.ID))
		_, err = s.GetTask(ctx, created.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		// Second delete of the same id is a no-op success.
		require.NoError(t, s.DeleteTask(ctx, created.ID))
		require.NoError(t, s.DeleteTask(ctx, 424242))
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	storeUnderTest(t, func(t *testing.T) Store {
		path := filepath.Join(t.TempDir(), "tasks.db")
		s, err := OpenSQLite(path)
		require.NoError(t, err)
		return s
	})
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
