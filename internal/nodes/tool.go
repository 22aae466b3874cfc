package nodes

import (
	"context"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
	"github.com/graphflow/engine/internal/infrastructure/tools"
)

// NewToolConstructor returns a NodeConstructor that executes a
// registered tool by name. Data["tool"] names the tool; Data["args"]
// maps argument names to "{{node_id.field}}" templates rendered
// against the variable pool before the call.
func NewToolConstructor(registry *tools.Registry) execution.NodeConstructor {
	return func(cfg workflow.NodeConfig, _ execution.GraphInitParams) (execution.Node, error) {
		toolName, _ := cfg.Data["tool"].(string)
		argTemplates, _ := cfg.Data["args"].(map[string]interface{})
		return &simpleNode{
			id:  cfg.ID,
			typ: workflow.NodeTypeTool,
			runFn: func(ctx context.Context, pool *execution.VariablePool) *execution.RunResult {
				args := make(map[string]interface{}, len(argTemplates))
				for k, v := range argTemplates {
					if tmpl, ok := v.(string); ok {
						args[k] = renderTemplate(tmpl, pool)
						continue
					}
					args[k] = v
				}
				out, err := registry.Execute(ctx, toolName, args)
				if err != nil {
					return failed(err)
				}
				return succeeded(out)
			},
		}, nil
	}
}
