package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/decompd/internal/decompose"
	"github.com/fyrsmithlabs/decompd/internal/suggest"
	"github.com/fyrsmithlabs/decompd/internal/task"
)

type stubGenerator struct {
	response string
	err      error
	healthy  bool
}

func (s *stubGenerator) Generate(context.Context, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Healthy(context.Context) bool { return s.healthy }

// faultyStore fails DeleteTask to force partial executions.
type faultyStore struct {
	task.Store
	deleteErr error
}

func (f *faultyStore) DeleteTask(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.DeleteTask(ctx, id)
}

type testEnv struct {
	server *Server
	tasks  task.Store
}

func newTestEnv(t *testing.T, gen *stubGenerator, tasks task.Store) *testEnv {
	t.Helper()
	if tasks == nil {
		tasks = task.NewMemoryStore()
	}

	proposals := decompose.NewStore(nil)
	analyzer := decompose.NewAnalyzer(decompose.NewGatherer(tasks, nil), gen, proposals, decompose.AnalyzerConfig{}, nil)
	executor := decompose.NewExecutor(proposals, tasks, nil)
	suggester := suggest.NewService(gen, tasks, nil)

	server, err := NewServer(nil, zaptest.NewLogger(t), tasks, analyzer, executor, proposals, suggester, gen, "test-model")
	require.NoError(t, err)
	return &testEnv{server: server, tasks: tasks}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.server.echo.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedTask(t *testing.T) *task.Task {
	t.Helper()
	ctx := context.Background()
	p, err := e.tasks.CreateProject(ctx, task.ProjectSpec{Title: "proj"})
	require.NoError(t, err)
	tk, err := e.tasks.CreateTask(ctx, task.TaskSpec{ProjectID: p.ID, Title: "big", EstimatedMinutes: 60})
	require.NoError(t, err)
	return tk
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{healthy: true}, nil)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, nil)
	rec := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{err: errors.New("down")}, nil)
	tk := env.seedTask(t)

	rec := env.do(t, http.MethodPost, "/api/v1/agent/preview", PreviewRequest{TaskID: tk.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	p := decodeJSON[PreviewResponse](t, rec)
	assert.NotEmpty(t, p.ProposalID)
	require.NotNil(t, p.OriginalTask)
	assert.Equal(t, tk.ID, p.OriginalTask.ID)
	assert.Equal(t, decompose.SourceFallback, p.Source)
	assert.Len(t, p.Subtasks, 3)
}

func TestPreview_UnknownTask(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/agent/preview", PreviewRequest{TaskID: 42})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreview_BadBody(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/agent/preview", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteFlow(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{err: errors.New("down")}, nil)
	tk := env.seedTask(t)

	rec := env.do(t, http.MethodPost, "/api/v1/agent/preview", PreviewRequest{TaskID: tk.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeJSON[PreviewResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/api/v1/agent/execute/"+p.ProposalID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeJSON[decompose.ExecutionResult](t, rec)
	assert.Equal(t, tk.ID, res.DeletedTaskID)
	assert.Len(t, res.CreatedSubtaskIDs, 3)

	// Second execute conflicts.
	rec = env.do(t, http.MethodPost, "/api/v1/agent/execute/"+p.ProposalID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Status shows the terminal state.
	rec = env.do(t, http.MethodGet, "/api/v1/agent/proposals/"+p.ProposalID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[decompose.Proposal](t, rec)
	assert.Equal(t, decompose.StatusExecuted, got.Status)
}

func TestExecute_UnknownProposal(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/agent/execute/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecute_Partial(t *testing.T) {
	tasks := &faultyStore{Store: task.NewMemoryStore(), deleteErr: errors.New("locked")}
	env := newTestEnv(t, &stubGenerator{err: errors.New("down")}, tasks)
	tk := env.seedTask(t)

	rec := env.do(t, http.MethodPost, "/api/v1/agent/preview", PreviewRequest{TaskID: tk.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeJSON[PreviewResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/api/v1/agent/execute/"+p.ProposalID, nil)
	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	assert.Contains(t, rec.Body.String(), "created_subtask_ids")
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{err: errors.New("down")}, nil)
	tk := env.seedTask(t)

	rec := env.do(t, http.MethodPost, "/api/v1/agent/preview", PreviewRequest{TaskID: tk.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeJSON[PreviewResponse](t, rec)

	rec = env.do(t, http.MethodDelete, "/api/v1/agent/preview/"+p.ProposalID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Executing a cancelled proposal conflicts, original survives.
	rec = env.do(t, http.MethodPost, "/api/v1/agent/execute/"+p.ProposalID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	_, err := env.tasks.GetTask(context.Background(), tk.ID)
	assert.NoError(t, err)
}

func TestAgentStatus(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{healthy: true, err: errors.New("down")}, nil)
	tk := env.seedTask(t)
	env.do(t, http.MethodPost, "/api/v1/agent/preview", PreviewRequest{TaskID: tk.ID})

	rec := env.do(t, http.MethodGet, "/api/v1/agent/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeJSON[AgentStatusResponse](t, rec)
	assert.True(t, status.AIHealthy)
	assert.Equal(t, "test-model", status.Model)
	assert.Equal(t, 1, status.ActiveProposals)
}

func TestTaskEndpoints(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/projects", task.ProjectSpec{Title: "house"})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decodeJSON[task.Project](t, rec)

	rec = env.do(t, http.MethodPost, "/api/v1/tasks", task.TaskSpec{ProjectID: p.ID, Title: "paint"})
	require.Equal(t, http.StatusCreated, rec.Code)
	tk := decodeJSON[task.Task](t, rec)
	assert.Equal(t, task.StatusPending, tk.Status)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks?project_id=%d", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]task.Task](t, rec)
	assert.Len(t, list, 1)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/complete", tk.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decodeJSON[task.Task](t, rec)
	assert.True(t, done.IsCompleted)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/tasks/%d", tk.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", tk.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskEndpoints_Validation(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/tasks", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/tasks/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/tasks", task.TaskSpec{Title: "orphan", ProjectID: 99})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectEndpoints(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/projects/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestionEndpoints(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{err: errors.New("down"), healthy: false}, nil)
	tk := env.seedTask(t)

	rec := env.do(t, http.MethodGet, "/api/v1/suggestions/quick", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	quick := decodeJSON[[]task.Suggestion](t, rec)
	assert.Len(t, quick, 2)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/suggestions/%d", tk.ProjectID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	forProject := decodeJSON[[]task.Suggestion](t, rec)
	assert.Len(t, forProject, 3)

	rec = env.do(t, http.MethodGet, "/api/v1/suggestions/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/ai/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeJSON[AIHealthResponse](t, rec)
	assert.False(t, health.Healthy)
}
