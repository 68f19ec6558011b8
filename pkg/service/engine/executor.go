package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
	"github.com/mediamate/mediamate/pkg/infrastructure/persistence/store"
	"github.com/mediamate/mediamate/pkg/service/actions"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

// Executor runs one workflow at a time per workflow id: it linearizes the
// flow graph, executes each action against a shared run context, persists
// progress after every transition, and reports the final state.
type Executor struct {
	store    store.WorkflowStore
	registry *actions.Registry
	bus      *chain.Bus
	cache    *actions.Cache
	services *chain.Helper
	stops    *StopController
	metrics  *Metrics
	logger   zerolog.Logger
}

// NewExecutor wires an executor.
func NewExecutor(
	st store.WorkflowStore,
	registry *actions.Registry,
	bus *chain.Bus,
	cache *actions.Cache,
	services *chain.Helper,
	stops *StopController,
	metrics *Metrics,
	logger zerolog.Logger,
) *Executor {
	return &Executor{
		store:    st,
		registry: registry,
		bus:      bus,
		cache:    cache,
		services: services,
		stops:    stops,
		metrics:  metrics,
		logger:   logger.With().Str("component", "executor").Logger(),
	}
}

// Run executes the workflow's pipeline once and writes the outcome back onto
// the workflow. The returned error covers run admission only (already
// running); pipeline failures are reported through the workflow state.
func (e *Executor) Run(ctx context.Context, w *workflow.Workflow) error {
	token, err := e.stops.Acquire(w.ID)
	if err != nil {
		return err
	}
	defer e.stops.Release(w.ID)

	started := time.Now()
	state := e.run(ctx, w, token)
	if e.metrics != nil {
		e.metrics.RunsTotal.WithLabelValues(string(state)).Inc()
		e.metrics.RunDuration.Observe(time.Since(started).Seconds())
	}
	return nil
}

func (e *Executor) run(ctx context.Context, w *workflow.Workflow, token *StopToken) workflow.State {
	logger := e.logger.With().Str("workflow_id", w.ID).Logger()

	// the snapshot freezes action resolution for the whole run; plugin
	// registry churn does not affect a run already in flight
	snapshot := e.registry.Snapshot()

	ordered, err := workflow.Linearize(w.Actions, w.Flows)
	if err != nil {
		return e.finish(w, workflow.StateFailed, fmt.Sprintf("config error: %v", err), logger)
	}
	for _, def := range ordered {
		if !snapshot.Has(def.Type) {
			return e.finish(w, workflow.StateFailed, fmt.Sprintf("config error: unknown action type %q", def.Type), logger)
		}
	}

	w.State = workflow.StateRunning
	w.CurrentAction = ""
	w.RunCount++
	e.persist(w, logger)
	logger.Info().Int("actions", len(ordered)).Msg("workflow run started")

	if len(ordered) == 0 {
		return e.finish(w, workflow.StateSucceeded, "no actions", logger)
	}

	env := actions.Env{
		WorkflowID: w.ID,
		Bus:        e.bus,
		Cache:      e.cache,
		Services:   e.services,
		Stop:       token,
		Logger:     logger,
	}

	wc := workflow.NewContext()
	var messages []string
	for _, def := range ordered {
		if token.Stopped() {
			logger.Info().Str("action", def.ID).Msg("run stopped before action")
			return e.finish(w, workflow.StatePaused, joinMessages(messages, "stopped"), logger)
		}

		act, err := snapshot.New(def.Type, def.ID)
		if err != nil {
			// unreachable after the pre-check; kept as a belt for plugin races
			return e.finish(w, workflow.StateFailed, fmt.Sprintf("config error: %v", err), logger)
		}

		w.CurrentAction = def.ID
		e.persist(w, logger)
		logger.Info().Str("action", def.ID).Str("type", def.Type).Msg("action started")

		next, fatal := e.runAction(ctx, env, act, def, wc)
		if fatal != nil {
			logger.Error().Err(fatal).Str("action", def.ID).Msg("action raised a fatal error")
			runErr := workflow.NewRunError(w.ID, def.ID, fatal)
			return e.finish(w, workflow.StateFailed, runErr.Error(), logger)
		}
		wc = next

		if !act.Done() {
			logger.Error().Str("action", def.ID).Msg("action returned without marking itself done")
			continue
		}
		if !act.Success() {
			if e.metrics != nil {
				e.metrics.ActionFailures.WithLabelValues(def.Type).Inc()
			}
			logger.Warn().Str("action", def.ID).Str("message", act.Message()).Msg("action finished with failures")
		} else {
			logger.Info().Str("action", def.ID).Str("message", act.Message()).Msg("action finished")
		}
		if act.Message() != "" {
			messages = append(messages, act.Message())
		}
	}

	if token.Stopped() {
		return e.finish(w, workflow.StatePaused, joinMessages(messages, "stopped"), logger)
	}
	return e.finish(w, workflow.StateSucceeded, joinMessages(messages, "completed"), logger)
}

// runAction invokes one action with panic isolation; a panic is the run's
// fatal error.
func (e *Executor) runAction(ctx context.Context, env actions.Env, act actions.Action, def workflow.ActionDef, wc *workflow.Context) (next *workflow.Context, fatal error) {
	defer func() {
		if r := recover(); r != nil {
			next = wc
			fatal = errors.Newf(errors.CodeInternalError, "engine", "panic in action %s: %v", def.ID, r)
		}
	}()
	next = act.Execute(ctx, env, def.Data, wc)
	if next == nil {
		next = wc
	}
	return next, nil
}

func (e *Executor) finish(w *workflow.Workflow, state workflow.State, result string, logger zerolog.Logger) workflow.State {
	w.State = state
	w.Result = result
	w.LastTime = time.Now()
	e.persist(w, logger)
	logger.Info().Str("state", string(state)).Str("result", result).Msg("workflow run finished")
	return state
}

func (e *Executor) persist(w *workflow.Workflow, logger zerolog.Logger) {
	if err := e.store.Save(w); err != nil {
		logger.Error().Err(err).Msg("failed to persist workflow state")
	}
}

func joinMessages(messages []string, fallback string) string {
	if len(messages) == 0 {
		return fallback
	}
	return strings.Join(messages, "; ")
}
