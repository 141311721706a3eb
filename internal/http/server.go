// Package http provides the HTTP API for decompd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/decompd/internal/ai"
	"github.com/fyrsmithlabs/decompd/internal/decompose"
	"github.com/fyrsmithlabs/decompd/internal/suggest"
	"github.com/fyrsmithlabs/decompd/internal/task"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides the decompd HTTP endpoints.
type Server struct {
	echo      *echo.Echo
	logger    *zap.Logger
	config    *Config
	tasks     task.Store
	analyzer  *decompose.Analyzer
	executor  *decompose.Executor
	proposals *decompose.Store
	suggester *suggest.Service
	generator ai.Generator
	model     string
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(
	cfg *Config,
	logger *zap.Logger,
	tasks task.Store,
	analyzer *decompose.Analyzer,
	executor *decompose.Executor,
	proposals *decompose.Store,
	suggester *suggest.Service,
	generator ai.Generator,
	model string,
) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if tasks == nil {
		return nil, fmt.Errorf("task store is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8787}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewMetrics(logger).Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:      e,
		logger:    logger,
		config:    cfg,
		tasks:     tasks,
		analyzer:  analyzer,
		executor:  executor,
		proposals: proposals,
		suggester: suggester,
		generator: generator,
		model:     model,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	v1.POST("/agent/preview", s.handlePreview)
	v1.POST("/agent/execute/:proposal_id", s.handleExecute)
	v1.DELETE("/agent/preview/:proposal_id", s.handleCancel)
	v1.GET("/agent/proposals/:proposal_id", s.handleProposal)
	v1.GET("/agent/status", s.handleAgentStatus)

	v1.GET("/tasks", s.handleListTasks)
	v1.POST("/tasks", s.handleCreateTask)
	v1.GET("/tasks/:id", s.handleGetTask)
	v1.PUT("/tasks/:id/complete", s.handleCompleteTask)
	v1.DELETE("/tasks/:id", s.handleDeleteTask)

	v1.GET("/projects", s.handleListProjects)
	v1.POST("/projects", s.handleCreateProject)
	v1.GET("/projects/:id", s.handleGetProject)

	v1.GET("/suggestions/quick", s.handleQuickSuggestions)
	v1.GET("/suggestions/:project_id", s.handleProjectSuggestions)
	v1.GET("/ai/health", s.handleAIHealth)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// PreviewRequest is the request body for POST /api/v1/agent/preview.
type PreviewRequest struct {
	TaskID int64 `json:"task_id"`
}

// PreviewResponse echoes the task being split alongside the proposal so
// clients can render an approval view without a second lookup.
type PreviewResponse struct {
	ProposalID      string                  `json:"proposal_id"`
	OriginalTask    *task.Task              `json:"original_task"`
	Subtasks        []decompose.SubtaskSpec `json:"subtasks"`
	Reasoning       []string                `json:"reasoning"`
	ConfidenceScore float64                 `json:"confidence_score"`
	ImpactNote      string                  `json:"impact_note"`
	Source          decompose.Source        `json:"source"`
	ExpiresAt       time.Time               `json:"expires_at"`
}

func (s *Server) handlePreview(c echo.Context) error {
	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TaskID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "task_id is required")
	}

	ctx := c.Request().Context()
	p, err := s.analyzer.Propose(ctx, req.TaskID)
	if err != nil {
		return s.mapError(err)
	}
	tk, err := s.tasks.GetTask(ctx, req.TaskID)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, PreviewResponse{
		ProposalID:      p.ID,
		OriginalTask:    tk,
		Subtasks:        p.Subtasks,
		Reasoning:       p.Reasoning,
		ConfidenceScore: p.ConfidenceScore,
		ImpactNote:      p.ImpactNote,
		Source:          p.Source,
		ExpiresAt:       p.ExpiresAt,
	})
}

func (s *Server) handleExecute(c echo.Context) error {
	res, err := s.executor.Execute(c.Request().Context(), c.Param("proposal_id"))
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleCancel(c echo.Context) error {
	if err := s.executor.Cancel(c.Request().Context(), c.Param("proposal_id")); err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleProposal(c echo.Context) error {
	p, err := s.executor.Status(c.Request().Context(), c.Param("proposal_id"))
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// AgentStatusResponse is the response body for GET /api/v1/agent/status.
type AgentStatusResponse struct {
	AIHealthy       bool   `json:"ai_healthy"`
	Model           string `json:"model"`
	ActiveProposals int    `json:"active_proposals"`
}

func (s *Server) handleAgentStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, AgentStatusResponse{
		AIHealthy:       s.generator.Healthy(c.Request().Context()),
		Model:           s.model,
		ActiveProposals: s.proposals.ActiveCount(),
	})
}

func (s *Server) handleListTasks(c echo.Context) error {
	projectID, err := strconv.ParseInt(c.QueryParam("project_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "project_id query parameter is required")
	}

	tasks, err := s.tasks.ListTasks(c.Request().Context(), projectID)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var spec task.TaskSpec
	if err := c.Bind(&spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if _, err := s.tasks.GetProject(c.Request().Context(), spec.ProjectID); err != nil {
		return s.mapError(err)
	}

	t, err := s.tasks.CreateTask(c.Request().Context(), spec)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) handleGetTask(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	t, err := s.tasks.GetTask(c.Request().Context(), id)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleCompleteTask(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	t, err := s.tasks.CompleteTask(c.Request().Context(), id)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(c.Request().Context(), id); err != nil {
		return s.mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListProjects(c echo.Context) error {
	projects, err := s.tasks.ListProjects(c.Request().Context())
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) handleCreateProject(c echo.Context) error {
	var spec task.ProjectSpec
	if err := c.Bind(&spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := s.tasks.CreateProject(c.Request().Context(), spec)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) handleGetProject(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := s.tasks.GetProject(c.Request().Context(), id)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleQuickSuggestions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.suggester.Quick(c.Request().Context()))
}

func (s *Server) handleProjectSuggestions(c echo.Context) error {
	id, err := parseID(c, "project_id")
	if err != nil {
		return err
	}
	suggestions, err := s.suggester.ForProject(c.Request().Context(), id)
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, suggestions)
}

// AIHealthResponse is the response body for GET /api/v1/ai/health.
type AIHealthResponse struct {
	Healthy bool   `json:"healthy"`
	Model   string `json:"model"`
}

func (s *Server) handleAIHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, AIHealthResponse{
		Healthy: s.generator.Healthy(c.Request().Context()),
		Model:   s.model,
	})
}

// PartialExecutionResponse is the 207 body when subtasks were created
// but the original task could not be deleted.
type PartialExecutionResponse struct {
	Error             string  `json:"error"`
	CreatedSubtaskIDs []int64 `json:"created_subtask_ids"`
	OriginalTaskID    int64   `json:"original_task_id"`
}

// mapError translates domain errors to HTTP status codes. Unknown and
// expired proposals both map to 404: from the client's view an expired
// proposal is gone.
func (s *Server) mapError(err error) error {
	var partial *decompose.PartialExecutionError
	if errors.As(err, &partial) {
		return echo.NewHTTPError(http.StatusMultiStatus, PartialExecutionResponse{
			Error:             partial.Error(),
			CreatedSubtaskIDs: partial.CreatedSubtaskIDs,
			OriginalTaskID:    partial.OriginalTaskID,
		})
	}
	var failed *decompose.ExecutionFailedError
	if errors.As(err, &failed) {
		return echo.NewHTTPError(http.StatusInternalServerError, failed.Error())
	}

	switch {
	case errors.Is(err, task.ErrNotFound),
		errors.Is(err, decompose.ErrNotFound),
		errors.Is(err, decompose.ErrExpired):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, decompose.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
