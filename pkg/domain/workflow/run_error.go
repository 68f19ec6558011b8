package workflow

import "fmt"

// RunError wraps a fatal failure of one action inside a run.
type RunError struct {
	WorkflowID string
	ActionID   string
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("workflow %s: action '%s' failed: %v", e.WorkflowID, e.ActionID, e.Err)
}

// Unwrap allows errors.Is / errors.As across the run boundary.
func (e *RunError) Unwrap() error {
	return e.Err
}

func NewRunError(workflowID, actionID string, err error) *RunError {
	return &RunError{WorkflowID: workflowID, ActionID: actionID, Err: err}
}
