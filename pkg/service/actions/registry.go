package actions

import (
	"sync"

	"github.com/mediamate/mediamate/pkg/domain/errors"
)

// Descriptor is the data-only description of an action type. The registry can
// be introspected without instantiating anything.
type Descriptor struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Defaults    map[string]any `json:"default_params,omitempty"`
}

// Factory creates a fresh action instance for one run.
type Factory func(actionID string) Action

// Registry maps action type tags to factories. Built-ins are registered at
// startup; plugins may register and unregister entries at runtime, so
// executors resolve actions through a Snapshot taken at run start.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
	order   []string
}

type registryEntry struct {
	desc    Descriptor
	factory Factory
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds an action type. A duplicate type tag is rejected.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[desc.Type]; ok {
		return errors.Newf(errors.CodeAlreadyExists, "actions", "action type %q already registered", desc.Type)
	}
	r.entries[desc.Type] = registryEntry{desc: desc, factory: factory}
	r.order = append(r.order, desc.Type)
	return nil
}

// Unregister removes an action type; in-flight runs keep their snapshot.
func (r *Registry) Unregister(typeTag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[typeTag]; !ok {
		return
	}
	delete(r.entries, typeTag)
	for i, t := range r.order {
		if t == typeTag {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Descriptors returns every registered action type in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.entries[t].desc)
	}
	return out
}

// Snapshot freezes the current type table for one run. Registry churn after
// the snapshot does not affect the run.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make(map[string]registryEntry, len(r.entries))
	for t, e := range r.entries {
		entries[t] = e
	}
	return &Snapshot{entries: entries}
}

// Snapshot is an immutable view of the registry taken at run start.
type Snapshot struct {
	entries map[string]registryEntry
}

// New instantiates a fresh action of the given type for the given definition id.
func (s *Snapshot) New(typeTag, actionID string) (Action, error) {
	e, ok := s.entries[typeTag]
	if !ok {
		return nil, errors.Newf(errors.CodeActionNotFound, "actions", "unknown action type %q", typeTag)
	}
	return e.factory(actionID), nil
}

// Has reports whether the snapshot resolves the type tag.
func (s *Snapshot) Has(typeTag string) bool {
	_, ok := s.entries[typeTag]
	return ok
}
