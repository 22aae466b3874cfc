package nodes

import (
	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
	"github.com/graphflow/engine/internal/infrastructure/llm"
	"github.com/graphflow/engine/internal/infrastructure/tools"
)

// Register builds a Registry carrying every node type this module
// ships with. llmClients and toolRegistry may be nil; a graph that
// never references an llm or tool node works fine without them, and
// one that does will fail at Build time with a clear error instead of
// a nil dereference.
func Register(llmClients map[string]llm.Client, toolRegistry *tools.Registry) *execution.Registry {
	reg := execution.NewRegistry()
	reg.Register(workflow.NodeTypeStart, NewStart)
	reg.Register(workflow.NodeTypeEnd, NewEnd)
	reg.Register(workflow.NodeTypeAnswer, NewAnswer)
	reg.Register(workflow.NodeTypeCondition, NewCondition)
	reg.Register(workflow.NodeTypeIteration, NewIteration)
	reg.Register(workflow.NodeTypeLLM, NewLLMConstructor(llmClients))
	if toolRegistry != nil {
		reg.Register(workflow.NodeTypeTool, NewToolConstructor(toolRegistry))
	}
	return reg
}
