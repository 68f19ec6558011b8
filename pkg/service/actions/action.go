// Package actions implements the workflow action contract, the action
// registry, parameter binding, the per-workflow dedup cache, and the built-in
// action set.
//
// An action is one stage of a workflow run: it reads its bound parameters and
// the shared run context, performs item-level side effects through the
// capability bus, and reports done/success/message when it returns. Actions
// are instantiated fresh for every run; all run state lives on the instance.
package actions

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/workflow"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

// Stopper is polled cooperatively at item boundaries. A stopped run finishes
// the in-flight call and skips the next item.
type Stopper interface {
	Stopped() bool
}

// Env is the per-run environment handed to every action invocation.
type Env struct {
	WorkflowID string
	Bus        *chain.Bus
	Cache      *Cache
	Services   *chain.Helper
	Stop       Stopper
	Logger     zerolog.Logger
}

// Stopped reports whether the run has been asked to stop.
func (e Env) Stopped() bool {
	return e.Stop != nil && e.Stop.Stopped()
}

// Action is one executable workflow stage. Execute is the only side-effect
// entry point; Done, Success and Message are observed by the executor after
// Execute returns.
type Action interface {
	ID() string
	Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context
	Done() bool
	Success() bool
	Message() string
}

// BaseAction carries the per-run completion state every action reports.
// Embedders call JobDone exactly once before returning from Execute.
type BaseAction struct {
	id      string
	done    bool
	success bool
	message string
}

// NewBase creates the completion state for an action instance.
func NewBase(id string) BaseAction {
	return BaseAction{id: id}
}

// ID returns the action definition id this instance runs for.
func (b *BaseAction) ID() string { return b.id }

// Done reports whether the action has finished.
func (b *BaseAction) Done() bool { return b.done }

// Success reports the outcome; meaningful only after Done.
func (b *BaseAction) Success() bool { return b.success }

// Message returns the human result message.
func (b *BaseAction) Message() string { return b.message }

// JobDone marks the action finished with its outcome and message.
func (b *BaseAction) JobDone(success bool, message string) {
	b.done = true
	b.success = success
	b.message = message
}
