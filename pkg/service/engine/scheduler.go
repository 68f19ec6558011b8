package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
	"github.com/mediamate/mediamate/pkg/infrastructure/persistence/store"
)

// Scheduler triggers workflows on their cron timers and admits manual runs.
// A timer fire for a workflow that is still running is skipped with a
// warning; different workflows run concurrently on independent goroutines.
type Scheduler struct {
	cron     *cron.Cron
	executor *Executor
	store    store.WorkflowStore
	stops    *StopController
	metrics  *Metrics
	logger   zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID

	runCtx context.Context
	group  errgroup.Group
}

// NewScheduler wires a scheduler. Timers use the standard 5-field cron syntax.
func NewScheduler(st store.WorkflowStore, executor *Executor, stops *StopController, metrics *Metrics, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		executor: executor,
		store:    st,
		stops:    stops,
		metrics:  metrics,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		entries:  make(map[string]cron.EntryID),
	}
}

// Start loads every persisted workflow, registers its timer, and starts the
// cron loop. Workflows with a blank or invalid timer stay manual-only; an
// invalid timer additionally surfaces a config error on the workflow.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runCtx = ctx

	workflows, err := s.store.List()
	if err != nil {
		return errors.Wrap(err, errors.CodeIoError, "scheduler", "failed to load workflows")
	}
	for _, w := range workflows {
		if err := s.Schedule(w); err != nil {
			s.logger.Warn().Err(err).Str("workflow_id", w.ID).Msg("workflow left manual-only")
		}
	}

	s.cron.Start()
	s.logger.Info().Int("workflows", len(workflows)).Msg("scheduler started")
	return nil
}

// Schedule registers (or re-registers) the workflow's timer. A blank timer
// silently leaves the workflow manual-only; an unparseable timer does too and
// writes a visible config error into the workflow result.
func (s *Scheduler) Schedule(w *workflow.Workflow) error {
	s.Unschedule(w.ID)
	if w.Timer == "" {
		return nil
	}

	id := w.ID
	entryID, err := s.cron.AddFunc(w.Timer, func() { s.fire(id) })
	if err != nil {
		w.Result = fmt.Sprintf("config error: invalid timer %q: %v", w.Timer, err)
		if saveErr := s.store.Save(w); saveErr != nil {
			s.logger.Error().Err(saveErr).Str("workflow_id", w.ID).Msg("failed to persist timer error")
		}
		return errors.Newf(errors.CodeTimerInvalid, "scheduler", "invalid timer %q: %v", w.Timer, err)
	}

	s.mu.Lock()
	s.entries[w.ID] = entryID
	s.mu.Unlock()
	s.logger.Info().Str("workflow_id", w.ID).Str("timer", w.Timer).Msg("workflow scheduled")
	return nil
}

// Unschedule removes the workflow's timer entry, if any. An in-flight run is
// not affected.
func (s *Scheduler) Unschedule(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[workflowID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, workflowID)
	}
}

// fire handles one timer tick for a workflow.
func (s *Scheduler) fire(workflowID string) {
	if s.stops.SystemStopped() {
		return
	}
	w, err := s.store.Get(workflowID)
	if err != nil {
		s.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("timer fired for unloadable workflow")
		return
	}
	if w.State == workflow.StateRunning || s.stops.Active(workflowID) {
		s.logger.Warn().Str("workflow_id", workflowID).Msg("workflow still running, skipping timer fire")
		if s.metrics != nil {
			s.metrics.RunsSkipped.Inc()
		}
		return
	}
	s.launch(w)
}

// Trigger admits a manual run of the workflow.
func (s *Scheduler) Trigger(workflowID string) error {
	w, err := s.store.Get(workflowID)
	if err != nil {
		return err
	}
	if s.stops.Active(workflowID) {
		return errors.Newf(errors.CodeInvalidState, "scheduler", "workflow %s is already running", workflowID)
	}
	s.launch(w)
	return nil
}

func (s *Scheduler) launch(w *workflow.Workflow) {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	s.group.Go(func() error {
		if err := s.executor.Run(ctx, w); err != nil {
			s.logger.Warn().Err(err).Str("workflow_id", w.ID).Msg("run not admitted")
		}
		return nil
	})
}

// StopWorkflow requests a cooperative stop of the workflow's active run.
func (s *Scheduler) StopWorkflow(workflowID string) bool {
	return s.stops.StopWorkflow(workflowID)
}

// Shutdown stops the cron loop, flags every run for cooperative stop, and
// waits for in-flight runs to drain or the context to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stops.StopSystem()
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info().Msg("scheduler drained")
		return nil
	case <-ctx.Done():
		return errors.New(errors.CodeCancelled, "scheduler", "shutdown timed out waiting for runs", ctx.Err())
	}
}
