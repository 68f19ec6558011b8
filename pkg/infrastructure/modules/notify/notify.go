// Package notify provides the post_message capability: notifications are
// POSTed as JSON to user-configured webhooks. One webhook client is kept per
// configured notifier service, exercising the multi-instance module shape.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

// Module delivers notifications to configured webhooks.
type Module struct {
	configs chain.ConfigReader
	client  *http.Client
	logger  zerolog.Logger

	mu        sync.RWMutex
	instances map[string]*WebhookClient
}

// WebhookClient posts notifications to one configured endpoint.
type WebhookClient struct {
	URL    string
	client *http.Client
}

// New creates the notify module; webhook endpoints are loaded from the
// notifier service configs at Init.
func New(configs chain.ConfigReader, logger zerolog.Logger) *Module {
	return &Module{
		configs: configs,
		logger:  logger.With().Str("module", "notify").Logger(),
	}
}

// Name implements chain.Module.
func (m *Module) Name() string { return "notify" }

// Init implements chain.Module.
func (m *Module) Init(ctx context.Context) error {
	m.client = &http.Client{Timeout: 15 * time.Second}
	return m.Reload()
}

// Reload re-reads the notifier service configs and rebuilds the client set.
func (m *Module) Reload() error {
	var configs []chain.ServiceConfig
	if _, err := m.configs.GetJSON("Services-"+string(chain.ServiceNotifier), &configs); err != nil {
		return errors.Wrap(err, errors.CodeIoError, "notify", "failed to load notifier configs")
	}

	instances := make(map[string]*WebhookClient)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		url, _ := cfg.Config["url"].(string)
		if url == "" {
			m.logger.Warn().Str("name", cfg.Name).Msg("notifier config has no url, skipping")
			continue
		}
		instances[cfg.Name] = &WebhookClient{URL: url, client: m.client}
	}

	m.mu.Lock()
	m.instances = instances
	m.mu.Unlock()
	return nil
}

// Stop implements chain.Module.
func (m *Module) Stop(ctx context.Context) error {
	if m.client != nil {
		m.client.CloseIdleConnections()
	}
	return nil
}

// Test implements chain.Module.
func (m *Module) Test(ctx context.Context) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.instances) == 0 {
		return false, "no notifier configured"
	}
	return true, ""
}

// Capabilities implements chain.Module.
func (m *Module) Capabilities() map[chain.Capability]chain.Handler {
	return map[chain.Capability]chain.Handler{
		chain.CapPostMessage: m.postMessage,
	}
}

// Instances implements chain.MultiInstance.
func (m *Module) Instances() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.instances))
	for name, c := range m.instances {
		out[name] = c
	}
	return out
}

// postMessage delivers the notification to every configured webhook; it
// succeeds when at least one endpoint accepted it.
func (m *Module) postMessage(ctx context.Context, args chain.Args) (any, error) {
	n, ok := args["notification"].(media.Notification)
	if !ok {
		return nil, errors.New(errors.CodeMissingParameter, "notify", "notification is required", nil)
	}

	m.mu.RLock()
	clients := make([]*WebhookClient, 0, len(m.instances))
	for name, c := range m.instances {
		if n.Channel == "" || name == n.Channel {
			clients = append(clients, c)
		}
	}
	m.mu.RUnlock()
	if len(clients) == 0 {
		return nil, nil
	}

	delivered := false
	for _, c := range clients {
		if err := c.Post(ctx, n); err != nil {
			m.logger.Error().Err(err).Str("url", c.URL).Msg("webhook delivery failed")
			continue
		}
		delivered = true
	}
	if !delivered {
		return nil, errors.New(errors.CodeTransientExternal, "notify", "no webhook accepted the notification", nil)
	}
	return true, nil
}

// Post sends one notification to the webhook.
func (c *WebhookClient) Post(ctx context.Context, n media.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return errors.Newf(errors.CodeTransientExternal, "notify", "webhook returned %d", resp.StatusCode)
	}
	return nil
}
