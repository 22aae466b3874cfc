package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
)

// NewCondition builds a Condition node. Data["cases"] is an ordered
// list of {"branch": string, "variable": string (dot path), "equals":
// any} maps; the first case whose variable-pool value equals the
// configured value is selected. Data["default_branch"] is used if no
// case matches. The selected branch is written to the node's RunResult
// metadata under "selected_branch", where the branch condition
// evaluator reads it.
func NewCondition(cfg workflow.NodeConfig, _ execution.GraphInitParams) (execution.Node, error) {
	return &simpleNode{
		id:  cfg.ID,
		typ: workflow.NodeTypeCondition,
		runFn: func(ctx context.Context, pool *execution.VariablePool) *execution.RunResult {
			branch, err := selectBranch(cfg, pool)
			if err != nil {
				return failed(err)
			}
			return &execution.RunResult{
				Status:   execution.RunStatusSucceeded,
				Outputs:  map[string]interface{}{"selected_branch": branch},
				Metadata: map[string]interface{}{"selected_branch": branch},
			}
		},
	}, nil
}

func selectBranch(cfg workflow.NodeConfig, pool *execution.VariablePool) (string, error) {
	cases, _ := cfg.Data["cases"].([]interface{})
	for _, raw := range cases {
		c, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		variable, _ := c["variable"].(string)
		want := c["equals"]
		branch, _ := c["branch"].(string)

		v, ok := pool.Get(strings.Split(variable, "."))
		if ok && v == want {
			return branch, nil
		}
	}
	if def, ok := cfg.Data["default_branch"].(string); ok {
		return def, nil
	}
	return "", fmt.Errorf("condition node %s: no case matched and no default_branch configured", cfg.ID)
}
