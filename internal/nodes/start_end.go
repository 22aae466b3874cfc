package nodes

import (
	"context"
	"strings"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
)

// NewStart builds a Start node: it has no behavior of its own beyond
// seeding the variable pool with the graph's input variables, which the
// caller has already written to the pool before Run begins.
func NewStart(cfg workflow.NodeConfig, _ execution.GraphInitParams) (execution.Node, error) {
	return &simpleNode{
		id:  cfg.ID,
		typ: workflow.NodeTypeStart,
		runFn: func(ctx context.Context, pool *execution.VariablePool) *execution.RunResult {
			return succeeded(nil)
		},
	}, nil
}

// NewEnd builds an End node. Data["outputs"] maps each desired output
// key to a "{{node_id.field}}" template rendered against the variable
// pool at completion time.
func NewEnd(cfg workflow.NodeConfig, init execution.GraphInitParams) (execution.Node, error) {
	return &simpleNode{
		id:  cfg.ID,
		typ: workflow.NodeTypeEnd,
		runFn: func(ctx context.Context, pool *execution.VariablePool) *execution.RunResult {
			return succeeded(resolveOutputs(cfg, pool))
		},
	}, nil
}

// NewAnswer builds an Answer node: it renders Data["text"], a template
// with "{{node_id.field}}" placeholders, against the variable pool into
// an "answer" output.
func NewAnswer(cfg workflow.NodeConfig, init execution.GraphInitParams) (execution.Node, error) {
	return &simpleNode{
		id:  cfg.ID,
		typ: workflow.NodeTypeAnswer,
		runFn: func(ctx context.Context, pool *execution.VariablePool) *execution.RunResult {
			tmpl, _ := cfg.Data["text"].(string)
			return succeeded(map[string]interface{}{"answer": strings.TrimSpace(renderTemplate(tmpl, pool))})
		},
	}, nil
}

func resolveOutputs(cfg workflow.NodeConfig, pool *execution.VariablePool) map[string]interface{} {
	raw, ok := cfg.Data["outputs"].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if tmpl, ok := v.(string); ok {
			out[k] = renderTemplate(tmpl, pool)
			continue
		}
		out[k] = v
	}
	return out
}
