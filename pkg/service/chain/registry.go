package chain

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/errors"
)

// Registry holds module instances in registration order and drives their
// lifecycle. Dispatch order on the bus is registration order.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
	running map[string]bool
	logger  zerolog.Logger
}

// NewRegistry creates an empty module registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		running: make(map[string]bool),
		logger:  logger.With().Str("component", "modules").Logger(),
	}
}

// Register adds a module. Registration after Start is allowed; the module
// stays stopped until Start or StartModule is called for it.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.modules {
		if existing.Name() == m.Name() {
			return errors.Newf(errors.CodeAlreadyExists, "modules", "module %q already registered", m.Name())
		}
	}
	r.modules = append(r.modules, m)
	return nil
}

// Start initialises every registered module. A module that fails to init is
// logged and left stopped; the rest still start.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.modules {
		if r.running[m.Name()] {
			continue
		}
		if err := m.Init(ctx); err != nil {
			r.logger.Error().Err(err).Str("module", m.Name()).Msg("module init failed")
			continue
		}
		r.running[m.Name()] = true
		r.logger.Info().Str("module", m.Name()).Msg("module started")
	}
}

// Stop stops every running module in reverse registration order.
func (r *Registry) Stop(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.modules) - 1; i >= 0; i-- {
		m := r.modules[i]
		if !r.running[m.Name()] {
			continue
		}
		if err := m.Stop(ctx); err != nil {
			r.logger.Error().Err(err).Str("module", m.Name()).Msg("module stop failed")
		}
		r.running[m.Name()] = false
	}
}

// Running returns the running modules in registration order.
func (r *Registry) Running() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		if r.running[m.Name()] {
			out = append(out, m)
		}
	}
	return out
}

// Get returns a running module by name.
func (r *Registry) Get(name string) (Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.modules {
		if m.Name() == name {
			if !r.running[name] {
				return nil, errors.Newf(errors.CodeInvalidState, "modules", "module %q is not running", name)
			}
			return m, nil
		}
	}
	return nil, errors.Newf(errors.CodeModuleNotFound, "modules", "module %q not registered", name)
}

// Test probes every running module and returns name → message for failures.
func (r *Registry) Test(ctx context.Context) map[string]string {
	failures := make(map[string]string)
	for _, m := range r.Running() {
		if ok, msg := m.Test(ctx); !ok {
			failures[m.Name()] = msg
		}
	}
	return failures
}

// ModulesOf returns the running modules implementing T, in dispatch order.
func ModulesOf[T any](r *Registry) []T {
	var out []T
	for _, m := range r.Running() {
		if t, ok := m.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
