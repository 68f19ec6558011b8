// Package store provides persistence for workflow definitions and the
// systemconfig key-value table (service configurations, per-workflow dedup
// caches).
package store

import (
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// WorkflowStore persists workflow definitions and their run bookkeeping.
type WorkflowStore interface {
	// Save creates or replaces a workflow.
	Save(w *workflow.Workflow) error
	// Get retrieves a workflow by id.
	Get(id string) (*workflow.Workflow, error)
	// List returns all workflows.
	List() ([]*workflow.Workflow, error)
	// Delete removes a workflow together with its dedup cache key.
	Delete(id string) error
}

// ConfigStore is the systemconfig table: string keys, JSON values.
type ConfigStore interface {
	// GetJSON unmarshals the value under key into out; found is false when
	// the key is absent.
	GetJSON(key string, out any) (found bool, err error)
	// SetJSON marshals v and stores it under key, replacing any prior value.
	SetJSON(key string, v any) error
	// DeleteKey removes a key; deleting an absent key is not an error.
	DeleteKey(key string) error
}
