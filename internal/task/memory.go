package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use and
// is the default backend for development and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	tasks         map[int64]*Task
	projects      map[int64]*Project
	nextTaskID    int64
	nextProjectID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:         make(map[int64]*Task),
		projects:      make(map[int64]*Project),
		nextTaskID:    1,
		nextProjectID: 1,
	}
}

func (s *MemoryStore) GetTask(_ context.Context, id int64) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) GetProject(_ context.Context, id int64) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListTasks(_ context.Context, projectID int64) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListProjects(_ context.Context) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateTask(_ context.Context, spec TaskSpec) (*Task, error) {
	if spec.Title == "" {
		return nil, errors.New("task title is required")
	}
	applyTaskDefaults(&spec)

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.insertLocked(spec)
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) BulkCreateTasks(_ context.Context, specs []TaskSpec) ([]*Task, error) {
	if len(specs) == 0 {
		return nil, errors.New("no task specs provided")
	}
	for i := range specs {
		if specs[i].Title == "" {
			return nil, fmt.Errorf("task spec %d: title is required", i)
		}
		applyTaskDefaults(&specs[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Task, 0, len(specs))
	for _, spec := range specs {
		t := s.insertLocked(spec)
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// insertLocked assigns an id and stores the task. Caller holds s.mu.
func (s *MemoryStore) insertLocked(spec TaskSpec) *Task {
	t := &Task{
		ID:               s.nextTaskID,
		ProjectID:        spec.ProjectID,
		Title:            spec.Title,
		Description:      spec.Description,
		Status:           spec.Status,
		Priority:         spec.Priority,
		EstimatedMinutes: spec.EstimatedMinutes,
		EnergyLevel:      spec.EnergyLevel,
		ContextHint:      spec.ContextHint,
		CreatedAt:        time.Now(),
	}
	s.nextTaskID++
	s.tasks[t.ID] = t
	return t
}

func (s *MemoryStore) CompleteTask(_ context.Context, id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	now := time.Now()
	t.IsCompleted = true
	t.Status = StatusCompleted
	t.CompletedAt = &now
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) CreateProject(_ context.Context, spec ProjectSpec) (*Project, error) {
	if spec.Title == "" {
		return nil, errors.New("project title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Project{
		ID:          s.nextProjectID,
		Title:       spec.Title,
		Description: spec.Description,
		Status:      "active",
		Location:    spec.Location,
		NextAction:  spec.NextAction,
		CreatedAt:   time.Now(),
	}
	s.nextProjectID++
	s.projects[p.ID] = p
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
