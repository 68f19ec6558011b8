package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

func TestInvokePluginReplacesContext(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", map[chain.Capability]chain.Handler{
		chain.CapPluginAction: func(ctx context.Context, args chain.Args) (any, error) {
			assert.Equal(t, "douban", args.String("plugin_id"))
			assert.Equal(t, "sync", args.String("action_id"))
			next := workflow.NewContext()
			next.Content = "from plugin"
			next.Medias = []media.Media{{Type: media.MediaTypeMovie, Title: "Plugin Movie"}}
			return &chain.PluginActionResult{Success: true, Context: next, Message: "synced"}, nil
		},
	})

	wc := workflow.NewContext()
	act := NewInvokePlugin("pl1")
	out := act.Execute(context.Background(), env, map[string]any{
		"plugin_id": "douban",
		"action_id": "sync",
	}, wc)

	require.True(t, act.Done())
	assert.True(t, act.Success())
	assert.Equal(t, "synced", act.Message())
	assert.NotSame(t, wc, out)
	assert.Equal(t, "from plugin", out.Content)
}

func TestInvokePluginUnavailable(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", nil)

	wc := workflow.NewContext()
	act := NewInvokePlugin("pl1")
	out := act.Execute(context.Background(), env, map[string]any{
		"plugin_id": "missing",
		"action_id": "noop",
	}, wc)

	require.True(t, act.Done())
	assert.False(t, act.Success())
	assert.Same(t, wc, out)
}

func TestInvokePluginRequiresIDs(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", nil)

	act := NewInvokePlugin("pl1")
	act.Execute(context.Background(), env, nil, workflow.NewContext())

	require.True(t, act.Done())
	assert.False(t, act.Success())
}

func TestInvokePluginFailureKeepsContext(t *testing.T) {
	env, _ := newTestEnv(t, "wf-1", map[chain.Capability]chain.Handler{
		chain.CapPluginAction: func(ctx context.Context, args chain.Args) (any, error) {
			return &chain.PluginActionResult{Success: false, Message: "plugin broke"}, nil
		},
	})

	wc := workflow.NewContext()
	act := NewInvokePlugin("pl1")
	out := act.Execute(context.Background(), env, map[string]any{
		"plugin_id": "p", "action_id": "a",
	}, wc)

	require.True(t, act.Done())
	assert.False(t, act.Success())
	assert.Equal(t, "plugin broke", act.Message())
	assert.Same(t, wc, out)
}
