package chain

import (
	"github.com/mediamate/mediamate/pkg/domain/errors"
)

// ServiceKind groups user-configured service instances by what they are.
type ServiceKind string

const (
	ServiceDownloader  ServiceKind = "Downloader"
	ServiceMediaServer ServiceKind = "MediaServer"
	ServiceNotifier    ServiceKind = "Notifier"
	ServiceStorage     ServiceKind = "Storage"
)

// servicesKeyPrefix prefixes the systemconfig key holding each kind's configs.
const servicesKeyPrefix = "Services-"

// ServiceConfig is one user-persisted service entry.
type ServiceConfig struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Enabled bool           `json:"enabled"`
	Config  map[string]any `json:"config,omitempty"`
}

// ServiceInfo joins a configured service with the live module instance
// backing it. Actions consume these views instead of touching modules.
type ServiceInfo struct {
	Name     string
	Instance any
	Module   Module
	Type     string
	Config   map[string]any
}

// ConfigReader reads JSON values out of the systemconfig store.
type ConfigReader interface {
	GetJSON(key string, out any) (bool, error)
}

// Helper joins persisted service configurations to the module instances that
// implement them.
type Helper struct {
	registry *Registry
	configs  ConfigReader
}

// NewHelper creates a service helper over the registry and config store.
func NewHelper(registry *Registry, configs ConfigReader) *Helper {
	return &Helper{registry: registry, configs: configs}
}

// Services yields a ServiceInfo for every enabled config of the kind whose
// name matches a live instance of some running multi-instance module.
func (h *Helper) Services(kind ServiceKind) ([]ServiceInfo, error) {
	var configs []ServiceConfig
	found, err := h.configs.GetJSON(servicesKeyPrefix+string(kind), &configs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIoError, "services", "failed to read service configs")
	}
	if !found {
		return nil, nil
	}

	var out []ServiceInfo
	for _, m := range h.registry.Running() {
		multi, ok := m.(MultiInstance)
		if !ok {
			continue
		}
		instances := multi.Instances()
		for _, cfg := range configs {
			if !cfg.Enabled {
				continue
			}
			instance, ok := instances[cfg.Name]
			if !ok {
				continue
			}
			out = append(out, ServiceInfo{
				Name:     cfg.Name,
				Instance: instance,
				Module:   m,
				Type:     cfg.Type,
				Config:   cfg.Config,
			})
		}
	}
	return out, nil
}

// Service returns the named service of a kind, or nil when absent.
func (h *Helper) Service(kind ServiceKind, name string) (*ServiceInfo, error) {
	services, err := h.Services(kind)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].Name == name {
			return &services[i], nil
		}
	}
	return nil, nil
}
