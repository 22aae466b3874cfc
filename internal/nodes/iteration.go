package nodes

import (
	"context"
	"strings"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
)

// NewIteration builds an Iteration node. Data["over"] names a
// variable-pool path holding a []interface{}; the node's only output is
// that slice's length under "count" plus the slice itself under
// "items", for a downstream node to range over by re-entering the
// graph per item is out of scope here — this node exposes the
// collection to templates, it does not itself loop the graph.
func NewIteration(cfg workflow.NodeConfig, _ execution.GraphInitParams) (execution.Node, error) {
	return &simpleNode{
		id:  cfg.ID,
		typ: workflow.NodeTypeIteration,
		runFn: func(ctx context.Context, pool *execution.VariablePool) *execution.RunResult {
			path, _ := cfg.Data["over"].(string)
			v, ok := pool.Get(strings.Split(path, "."))
			items, _ := v.([]interface{})
			if !ok {
				items = nil
			}
			return succeeded(map[string]interface{}{
				"items": items,
				"count": len(items),
			})
		},
	}, nil
}
