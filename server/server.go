// Package server exposes runs over HTTP: submit a goal, follow its event
// stream via server-sent events and browse archived runs. Each submitted run
// gets its own event bus so streams from concurrent runs do not interleave.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/planloop/planloop/agent"
	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/logging"
	"github.com/planloop/planloop/stream"
)

// Runner executes one goal. agent.Agent satisfies this through a small
// adapter in the factory; tests substitute stubs.
type Runner interface {
	Run(ctx context.Context, goal string) (*agent.RunResult, error)
}

// RunnerFactory builds a Runner publishing to the given bus. The server
// calls it once per submitted run.
type RunnerFactory func(bus *stream.Bus) Runner

// Options configure the Server.
type Options struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string
	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration
	// Logger receives request diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
	// BusOptions configure the event bus created for each run.
	BusOptions []func(o *stream.BusOptions)
}

type runStatus string

const (
	statusRunning   runStatus = "running"
	statusCompleted runStatus = "completed"
	statusFailed    runStatus = "failed"
)

type runState struct {
	ID      string
	Goal    string
	Bus     *stream.Bus
	mu      sync.Mutex
	status  runStatus
	result  *agent.RunResult
	lastErr error
}

func (r *runState) snapshot() (runStatus, *agent.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.result, r.lastErr
}

func (r *runState) finish(result *agent.RunResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.status = statusFailed
		r.lastErr = err
		return
	}
	r.status = statusCompleted
	r.result = result
}

// Server is the HTTP front end.
type Server struct {
	echo    *echo.Echo
	factory RunnerFactory
	archive core.LongTermMemory
	logger  logging.Logger
	opts    Options

	mu   sync.RWMutex
	runs map[string]*runState
}

// New creates a server. The archive may be nil, in which case /api/history
// serves an empty list.
func New(factory RunnerFactory, archive core.LongTermMemory, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:    e,
		factory: factory,
		archive: archive,
		logger:  logger,
		opts:    opts,
		runs:    map[string]*runState{},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/api/runs", s.handleCreateRun)
	s.echo.GET("/api/runs/:id", s.handleGetRun)
	s.echo.GET("/api/runs/:id/events", s.handleRunEvents)
	s.echo.GET("/api/history", s.handleHistory)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.opts.Addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type createRunRequest struct {
	Goal string `json:"goal"`
}

func (s *Server) handleCreateRun(c echo.Context) error {
	var req createRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Goal == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "goal must not be empty")
	}

	state := &runState{
		ID:     uuid.New().String(),
		Goal:   req.Goal,
		Bus:    stream.NewBus(s.opts.BusOptions...),
		status: statusRunning,
	}
	s.mu.Lock()
	s.runs[state.ID] = state
	s.mu.Unlock()

	runner := s.factory(state.Bus)
	go func() {
		defer state.Bus.Close()
		result, err := runner.Run(context.Background(), state.Goal)
		state.finish(result, err)
		if err != nil {
			s.logger.Error("run failed", "run_id", state.ID, "error", err)
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"id":     state.ID,
		"goal":   state.Goal,
		"status": statusRunning,
	})
}

func (s *Server) handleGetRun(c echo.Context) error {
	state, ok := s.run(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}

	status, result, lastErr := state.snapshot()
	body := map[string]any{
		"id":     state.ID,
		"goal":   state.Goal,
		"status": status,
	}
	if result != nil {
		body["success"] = result.Success
		body["output"] = result.Output
		if result.Evaluation != nil {
			body["score"] = result.Evaluation.OverallScore
		}
	}
	if lastErr != nil {
		body["error"] = lastErr.Error()
	}
	return c.JSON(http.StatusOK, body)
}

// handleRunEvents streams a run's events as server-sent events, replaying
// retained history first. The stream ends when the run finishes or the
// client disconnects.
func (s *Server) handleRunEvents(c echo.Context) error {
	state, ok := s.run(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	sub := state.Bus.Subscribe()
	defer sub.Close()

	for {
		select {
		case event, open := <-sub.Events():
			if !open {
				return nil
			}
			frame, err := event.SSE()
			if err != nil {
				continue
			}
			if _, err := fmt.Fprint(resp, frame); err != nil {
				return nil
			}
			resp.Flush()
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.archive == nil {
		return c.JSON(http.StatusOK, []any{})
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
	}

	records, err := s.archive.Recent(limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read history")
	}

	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		entry := map[string]any{
			"run_id":       record.RunID,
			"goal":         record.Goal,
			"completed_at": record.CompletedAt,
		}
		if record.Evaluation != nil {
			entry["score"] = record.Evaluation.OverallScore
			entry["success"] = record.Evaluation.OverallSuccess
			entry["summary"] = record.Evaluation.Summary
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) run(id string) (*runState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	return state, ok
}
