package workflow

import (
	"github.com/mediamate/mediamate/pkg/domain/errors"
)

// Linearize resolves a workflow's flow edges into a total execution order.
//
// The flow graph must be a single linear path covering every action: each node
// has in-degree and out-degree of at most one, exactly one source and one
// sink, and no cycle. Anything else is a configuration error. A workflow with
// one action and no edges is the trivial path; a workflow with several actions
// and no edges is rejected.
func Linearize(actions []ActionDef, flows []FlowEdge) ([]ActionDef, error) {
	if len(actions) == 0 {
		return nil, nil
	}

	byID := make(map[string]ActionDef, len(actions))
	for _, a := range actions {
		if a.ID == "" {
			return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "action of type %q has no id", a.Type)
		}
		if _, dup := byID[a.ID]; dup {
			return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "duplicate action id %q", a.ID)
		}
		byID[a.ID] = a
	}

	if len(flows) == 0 {
		if len(actions) == 1 {
			return []ActionDef{actions[0]}, nil
		}
		return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "%d actions but no flows", len(actions))
	}

	next := make(map[string]string, len(flows))
	inDegree := make(map[string]int, len(actions))
	for _, edge := range flows {
		if _, ok := byID[edge.Source]; !ok {
			return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "flow references unknown action %q", edge.Source)
		}
		if _, ok := byID[edge.Target]; !ok {
			return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "flow references unknown action %q", edge.Target)
		}
		if _, dup := next[edge.Source]; dup {
			return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "action %q has more than one outgoing flow", edge.Source)
		}
		next[edge.Source] = edge.Target
		inDegree[edge.Target]++
		if inDegree[edge.Target] > 1 {
			return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "action %q has more than one incoming flow", edge.Target)
		}
	}

	// Exactly one source: the node no edge points at.
	source := ""
	for _, a := range actions {
		if inDegree[a.ID] == 0 {
			if source != "" {
				return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "flows form more than one path (sources %q and %q)", source, a.ID)
			}
			source = a.ID
		}
	}
	if source == "" {
		return nil, errors.New(errors.CodeConfigInvalid, "workflow", "flows contain a cycle", nil)
	}

	order := make([]ActionDef, 0, len(actions))
	seen := make(map[string]bool, len(actions))
	for id := source; id != ""; id = next[id] {
		if seen[id] {
			return nil, errors.New(errors.CodeConfigInvalid, "workflow", "flows contain a cycle", nil)
		}
		seen[id] = true
		order = append(order, byID[id])
	}

	if len(order) != len(actions) {
		return nil, errors.Newf(errors.CodeConfigInvalid, "workflow", "flows cover %d of %d actions", len(order), len(actions))
	}

	return order, nil
}
