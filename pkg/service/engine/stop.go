// Package engine runs workflows: a cron scheduler triggers them, an executor
// drives each action pipeline, and a stop controller carries the cooperative
// cancellation tokens actions poll at item boundaries.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/mediamate/mediamate/pkg/domain/errors"
)

// StopController issues one StopToken per active run and carries the
// process-wide shutdown flag. Tokens are polled, never forced: a stop request
// lets the in-flight call finish and prevents the next item from starting.
type StopController struct {
	mu     sync.Mutex
	system atomic.Bool
	tokens map[string]*StopToken
}

// NewStopController creates a stop controller.
func NewStopController() *StopController {
	return &StopController{tokens: make(map[string]*StopToken)}
}

// Acquire issues the run token for a workflow. A second acquire while a run
// is active fails, which keeps one workflow from running concurrently with
// itself.
func (c *StopController) Acquire(workflowID string) (*StopToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, active := c.tokens[workflowID]; active {
		return nil, errors.Newf(errors.CodeInvalidState, "engine", "workflow %s is already running", workflowID)
	}
	t := &StopToken{controller: c}
	c.tokens[workflowID] = t
	return t, nil
}

// Release retires a run token after its run finishes.
func (c *StopController) Release(workflowID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, workflowID)
}

// StopWorkflow requests a cooperative stop of the workflow's active run, if any.
func (c *StopController) StopWorkflow(workflowID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, active := c.tokens[workflowID]
	if !active {
		return false
	}
	t.stopped.Store(true)
	return true
}

// StopSystem requests a cooperative stop of every active and future run.
func (c *StopController) StopSystem() {
	c.system.Store(true)
}

// SystemStopped reports whether process shutdown has been requested.
func (c *StopController) SystemStopped() bool {
	return c.system.Load()
}

// Active reports whether the workflow has a run in flight.
func (c *StopController) Active(workflowID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, active := c.tokens[workflowID]
	return active
}

// StopToken is the cancellation flag for one workflow run.
type StopToken struct {
	controller *StopController
	stopped    atomic.Bool
}

// Stopped reports whether this run, or the whole system, was asked to stop.
func (t *StopToken) Stopped() bool {
	return t.stopped.Load() || t.controller.SystemStopped()
}

// Stop flags this run for cooperative cancellation.
func (t *StopToken) Stop() {
	t.stopped.Store(true)
}
