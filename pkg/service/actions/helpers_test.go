package actions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mediamate/mediamate/pkg/service/chain"
)

// fakeKV is an in-memory systemconfig store.
type fakeKV struct {
	data map[string]json.RawMessage
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]json.RawMessage)}
}

func (f *fakeKV) GetJSON(key string, out any) (bool, error) {
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (f *fakeKV) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

// capModule exposes a handed-in capability table as a chain module.
type capModule struct {
	name string
	caps map[chain.Capability]chain.Handler
}

func (m *capModule) Name() string                                   { return m.name }
func (m *capModule) Init(ctx context.Context) error                 { return nil }
func (m *capModule) Stop(ctx context.Context) error                 { return nil }
func (m *capModule) Test(ctx context.Context) (bool, string)        { return true, "" }
func (m *capModule) Capabilities() map[chain.Capability]chain.Handler { return m.caps }

// newTestEnv builds a run environment over one fake module and a fresh cache.
func newTestEnv(t *testing.T, workflowID string, caps map[chain.Capability]chain.Handler) (Env, *fakeKV) {
	t.Helper()
	registry := chain.NewRegistry(zerolog.Nop())
	require.NoError(t, registry.Register(&capModule{name: "fake", caps: caps}))
	registry.Start(context.Background())

	kv := newFakeKV()
	env := Env{
		WorkflowID: workflowID,
		Bus:        chain.NewBus(registry, zerolog.Nop()),
		Cache:      NewCache(kv, zerolog.Nop()),
		Logger:     zerolog.Nop(),
	}
	return env, kv
}

// flagStopper flips to stopped on demand.
type flagStopper struct {
	stopped bool
}

func (s *flagStopper) Stopped() bool { return s.stopped }
