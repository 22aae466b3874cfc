// Package nodes holds the concrete Node implementations registered
// against a workflow.Graph: Start, End, Answer, Condition, an LLM node
// wired to internal/infrastructure/llm, and a Tool node wired to
// internal/infrastructure/tools. Each is the reference for the
// external-collaborator contract a caller's own node types follow.
package nodes

import (
	"context"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
)

// simpleNode adapts a synchronous run function (no intermediate
// NodeEvents, just a terminal RunResult) to the execution.Node
// contract. Most node types are simple in this sense; only the LLM
// node actually streams.
type simpleNode struct {
	id    string
	typ   workflow.NodeType
	runFn func(ctx context.Context, pool *execution.VariablePool) *execution.RunResult
}

func (n *simpleNode) ID() string              { return n.id }
func (n *simpleNode) Type() workflow.NodeType { return n.typ }

func (n *simpleNode) Run(ctx context.Context, pool *execution.VariablePool) (<-chan execution.NodeEvent, func() *execution.RunResult) {
	events := make(chan execution.NodeEvent)
	var result *execution.RunResult
	done := make(chan struct{})
	go func() {
		defer close(events)
		defer close(done)
		result = n.runFn(ctx, pool)
	}()
	return events, func() *execution.RunResult {
		<-done
		return result
	}
}

func succeeded(outputs map[string]interface{}) *execution.RunResult {
	return &execution.RunResult{Status: execution.RunStatusSucceeded, Outputs: outputs}
}

func failed(err error) *execution.RunResult {
	return &execution.RunResult{Status: execution.RunStatusFailed, Error: err.Error()}
}
