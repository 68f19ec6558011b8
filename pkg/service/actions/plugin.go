package actions

import (
	"context"

	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// InvokePlugin runs a plugin-contributed action through the bus. On success
// the plugin's returned context replaces the run context.
type InvokePlugin struct {
	BaseAction
}

type invokePluginParams struct {
	PluginID string         `json:"plugin_id"`
	ActionID string         `json:"action_id"`
	Params   map[string]any `json:"params"`
}

func NewInvokePlugin(id string) Action { return &InvokePlugin{BaseAction: NewBase(id)} }

func (a *InvokePlugin) Execute(ctx context.Context, env Env, params map[string]any, wc *workflow.Context) *workflow.Context {
	var p invokePluginParams
	if err := BindParams(params, &p); err != nil {
		a.JobDone(false, err.Error())
		return wc
	}
	if p.PluginID == "" || p.ActionID == "" {
		a.JobDone(false, "plugin_id and action_id are required")
		return wc
	}
	if env.Stopped() {
		a.JobDone(true, "stopped before plugin invocation")
		return wc
	}

	result := env.Bus.PluginAction(ctx, p.PluginID, p.ActionID, p.Params, wc)
	if result == nil {
		a.JobDone(false, "plugin action "+p.PluginID+"/"+p.ActionID+" is unavailable")
		return wc
	}
	if !result.Success {
		a.JobDone(false, result.Message)
		return wc
	}
	a.JobDone(true, result.Message)
	if result.Context != nil {
		return result.Context
	}
	return wc
}
