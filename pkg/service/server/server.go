// Package server exposes the workflow control surface over HTTP: workflow
// CRUD, run control, the action catalogue, a health probe and Prometheus
// metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
	"github.com/mediamate/mediamate/pkg/infrastructure/persistence/store"
	"github.com/mediamate/mediamate/pkg/service/actions"
	"github.com/mediamate/mediamate/pkg/service/engine"
)

// Options configures the HTTP server.
type Options struct {
	ListenAddr string
	EnableCORS bool
}

// Server is the HTTP control surface.
type Server struct {
	opts      Options
	store     store.WorkflowStore
	scheduler *engine.Scheduler
	registry  *actions.Registry
	gatherer  prometheus.Gatherer
	logger    zerolog.Logger

	http *http.Server
}

// New wires the HTTP server.
func New(opts Options, st store.WorkflowStore, scheduler *engine.Scheduler, registry *actions.Registry, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	return &Server{
		opts:      opts,
		store:     st,
		scheduler: scheduler,
		registry:  registry,
		gatherer:  gatherer,
		logger:    logger.With().Str("component", "server").Logger(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if s.opts.EnableCORS {
		router.Use(cors.Default())
	}

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.GET("/workflows", s.listWorkflows)
		api.POST("/workflows", s.createWorkflow)
		api.GET("/workflows/:id", s.getWorkflow)
		api.PUT("/workflows/:id", s.updateWorkflow)
		api.DELETE("/workflows/:id", s.deleteWorkflow)
		api.POST("/workflows/:id/start", s.startWorkflow)
		api.POST("/workflows/:id/pause", s.pauseWorkflow)
		api.POST("/workflows/:id/stop", s.stopWorkflow)
		api.POST("/workflows/:id/run", s.runWorkflow)
		api.GET("/actions", s.listActions)
	}
	return router
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.opts.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info().Str("addr", s.opts.ListenAddr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.New(errors.CodeInternalError, "server", "http server failed", err)
	}
	return nil
}

// Shutdown drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listWorkflows(c *gin.Context) {
	workflows, err := s.store.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	if workflows == nil {
		workflows = []*workflow.Workflow{}
	}
	c.JSON(http.StatusOK, workflows)
}

func (s *Server) getWorkflow(c *gin.Context) {
	w, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) createWorkflow(c *gin.Context) {
	var w workflow.Workflow
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow: " + err.Error()})
		return
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workflow name is required"})
		return
	}
	w.State = workflow.StateNew
	w.AddTime = time.Now()
	if err := s.store.Save(&w); err != nil {
		s.fail(c, err)
		return
	}
	// an invalid timer leaves the workflow manual-only; the config error is
	// visible on the workflow itself
	if err := s.scheduler.Schedule(&w); err != nil {
		s.logger.Warn().Err(err).Str("workflow_id", w.ID).Msg("workflow created manual-only")
	}
	c.JSON(http.StatusCreated, &w)
}

func (s *Server) updateWorkflow(c *gin.Context) {
	existing, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var w workflow.Workflow
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow: " + err.Error()})
		return
	}
	// run bookkeeping stays with the engine
	w.ID = existing.ID
	w.State = existing.State
	w.CurrentAction = existing.CurrentAction
	w.Result = existing.Result
	w.RunCount = existing.RunCount
	w.AddTime = existing.AddTime
	w.LastTime = existing.LastTime

	if err := s.store.Save(&w); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.scheduler.Schedule(&w); err != nil {
		s.logger.Warn().Err(err).Str("workflow_id", w.ID).Msg("workflow updated manual-only")
	}
	c.JSON(http.StatusOK, &w)
}

func (s *Server) deleteWorkflow(c *gin.Context) {
	id := c.Param("id")
	s.scheduler.Unschedule(id)
	s.scheduler.StopWorkflow(id)
	if err := s.store.Delete(id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) startWorkflow(c *gin.Context) {
	w, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.scheduler.Schedule(w); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "scheduled"})
}

func (s *Server) pauseWorkflow(c *gin.Context) {
	s.scheduler.Unschedule(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

func (s *Server) stopWorkflow(c *gin.Context) {
	if !s.scheduler.StopWorkflow(c.Param("id")) {
		c.JSON(http.StatusOK, gin.H{"status": "not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}

func (s *Server) runWorkflow(c *gin.Context) {
	if err := s.scheduler.Trigger(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "running"})
}

func (s *Server) listActions(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Descriptors())
}

// fail maps coded domain errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound, errors.CodeActionNotFound, errors.CodeModuleNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidParameter, errors.CodeMissingParameter, errors.CodeConfigInvalid, errors.CodeTimerInvalid:
		status = http.StatusBadRequest
	case errors.CodeAlreadyExists, errors.CodeInvalidState:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
