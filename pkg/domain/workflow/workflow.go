// Package workflow defines the persisted workflow schema, the validation that
// turns a flow graph into an execution order, and the ActionContext threaded
// through a run.
//
// A workflow is a user-authored pipeline: an ordered set of action definitions
// connected by flow edges. The engine resolves the edges into a total order,
// executes each action against a shared ActionContext, and writes run state
// (state, current action, result, run count) back onto the workflow.
package workflow

import (
	"time"
)

// State is the lifecycle state of a workflow.
type State string

const (
	StateNew       State = "N" // created, never run
	StateRunning   State = "R" // a run is in progress
	StatePaused    State = "P" // stopped cooperatively mid-run
	StateSucceeded State = "S" // last run completed
	StateFailed    State = "F" // last run aborted with a fatal error
)

// Position is a UI layout hint carried through unchanged.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ActionDef is one configured stage of a workflow.
type ActionDef struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Position    Position       `json:"position,omitempty"`
}

// FlowEdge is a directed edge between two action definitions.
type FlowEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Workflow is the persisted pipeline definition plus its run bookkeeping.
type Workflow struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	Timer         string      `json:"timer,omitempty"`
	State         State       `json:"state"`
	CurrentAction string      `json:"current_action,omitempty"`
	Result        string      `json:"result,omitempty"`
	RunCount      int         `json:"run_count"`
	Actions       []ActionDef `json:"actions"`
	Flows         []FlowEdge  `json:"flows"`
	AddTime       time.Time   `json:"add_time"`
	LastTime      time.Time   `json:"last_time,omitempty"`
}

// Action returns the definition with the given id, or nil.
func (w *Workflow) Action(id string) *ActionDef {
	for i := range w.Actions {
		if w.Actions[i].ID == id {
			return &w.Actions[i]
		}
	}
	return nil
}

// CacheKey returns the systemconfig key holding this workflow's dedup cache.
func (w *Workflow) CacheKey() string {
	return CacheKeyFor(w.ID)
}

// CacheKeyFor returns the dedup cache key for a workflow id.
func CacheKeyFor(workflowID string) string {
	return "WorkflowCache-" + workflowID
}
