package nodes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
	"github.com/graphflow/engine/internal/infrastructure/tools"
	"github.com/graphflow/engine/internal/nodes"
)

// runNode drives a Node to completion and returns its RunResult,
// ignoring any intermediate NodeEvents.
func runNode(t *testing.T, n execution.Node, pool *execution.VariablePool) *execution.RunResult {
	t.Helper()
	events, wait := n.Run(context.Background(), pool)
	for range events {
	}
	result := wait()
	require.NotNil(t, result)
	return result
}

func TestStartNode_SucceedsWithNoOutputs(t *testing.T) {
	n, err := nodes.NewStart(workflow.NodeConfig{ID: "start"}, execution.GraphInitParams{})
	require.NoError(t, err)

	result := runNode(t, n, execution.NewVariablePool())
	assert.Equal(t, execution.RunStatusSucceeded, result.Status)
}

func TestEndNode_RendersOutputsFromPool(t *testing.T) {
	cfg := workflow.NodeConfig{
		ID:   "end",
		Data: map[string]interface{}{"outputs": map[string]interface{}{"text": "{{respond.text}}", "fixed": 42}},
	}
	n, err := nodes.NewEnd(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	pool := execution.NewVariablePool()
	pool.Add([]string{"respond", "text"}, "hello")

	result := runNode(t, n, pool)
	assert.Equal(t, execution.RunStatusSucceeded, result.Status)
	assert.Equal(t, "hello", result.Outputs["text"])
	assert.Equal(t, 42, result.Outputs["fixed"])
}

func TestAnswerNode_RendersAndTrimsTemplate(t *testing.T) {
	cfg := workflow.NodeConfig{ID: "answer", Data: map[string]interface{}{"text": "  {{respond.text}}  "}}
	n, err := nodes.NewAnswer(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	pool := execution.NewVariablePool()
	pool.Add([]string{"respond", "text"}, "world")

	result := runNode(t, n, pool)
	assert.Equal(t, "world", result.Outputs["answer"])
}

func TestAnswerNode_UnresolvedReferenceRendersEmpty(t *testing.T) {
	cfg := workflow.NodeConfig{ID: "answer", Data: map[string]interface{}{"text": "{{missing.field}}"}}
	n, err := nodes.NewAnswer(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	result := runNode(t, n, execution.NewVariablePool())
	assert.Equal(t, "", result.Outputs["answer"])
}

func TestConditionNode_SelectsFirstMatchingCase(t *testing.T) {
	cfg := workflow.NodeConfig{
		ID: "cond",
		Data: map[string]interface{}{
			"cases": []interface{}{
				map[string]interface{}{"branch": "a", "variable": "flag", "equals": "x"},
				map[string]interface{}{"branch": "b", "variable": "flag", "equals": "y"},
			},
			"default_branch": "c",
		},
	}
	n, err := nodes.NewCondition(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	pool := execution.NewVariablePool()
	pool.Add([]string{"flag"}, "y")

	result := runNode(t, n, pool)
	assert.Equal(t, execution.RunStatusSucceeded, result.Status)
	assert.Equal(t, "b", result.Outputs["selected_branch"])
	assert.Equal(t, "b", result.Metadata["selected_branch"])
}

func TestConditionNode_FallsBackToDefaultBranch(t *testing.T) {
	cfg := workflow.NodeConfig{
		ID: "cond",
		Data: map[string]interface{}{
			"cases":          []interface{}{map[string]interface{}{"branch": "a", "variable": "flag", "equals": "x"}},
			"default_branch": "fallback",
		},
	}
	n, err := nodes.NewCondition(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	result := runNode(t, n, execution.NewVariablePool())
	assert.Equal(t, "fallback", result.Outputs["selected_branch"])
}

func TestConditionNode_NoMatchNoDefaultFails(t *testing.T) {
	cfg := workflow.NodeConfig{
		ID:   "cond",
		Data: map[string]interface{}{"cases": []interface{}{}},
	}
	n, err := nodes.NewCondition(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	result := runNode(t, n, execution.NewVariablePool())
	assert.Equal(t, execution.RunStatusFailed, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestIterationNode_ReportsCountAndItems(t *testing.T) {
	cfg := workflow.NodeConfig{ID: "iter", Data: map[string]interface{}{"over": "list.items"}}
	n, err := nodes.NewIteration(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	pool := execution.NewVariablePool()
	items := []interface{}{"a", "b", "c"}
	pool.Add([]string{"list", "items"}, items)

	result := runNode(t, n, pool)
	assert.Equal(t, 3, result.Outputs["count"])
	assert.Equal(t, items, result.Outputs["items"])
}

func TestIterationNode_MissingPathReportsZero(t *testing.T) {
	cfg := workflow.NodeConfig{ID: "iter", Data: map[string]interface{}{"over": "nowhere.items"}}
	n, err := nodes.NewIteration(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	result := runNode(t, n, execution.NewVariablePool())
	assert.Equal(t, 0, result.Outputs["count"])
	assert.Nil(t, result.Outputs["items"])
}

func TestToolNode_RendersArgsAndExecutesRegisteredTool(t *testing.T) {
	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterBuiltinTools(registry))

	cfg := workflow.NodeConfig{
		ID:   "tool",
		Data: map[string]interface{}{"tool": "string_processor", "args": map[string]interface{}{"text": "{{respond.text}}", "operation": "uppercase"}},
	}
	constructor := nodes.NewToolConstructor(registry)
	n, err := constructor(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	pool := execution.NewVariablePool()
	pool.Add([]string{"respond", "text"}, "hello")

	result := runNode(t, n, pool)
	assert.Equal(t, execution.RunStatusSucceeded, result.Status)
	assert.Equal(t, "HELLO", result.Outputs["result"])
}

func TestToolNode_UnknownToolFails(t *testing.T) {
	registry := tools.NewRegistry()
	cfg := workflow.NodeConfig{ID: "tool", Data: map[string]interface{}{"tool": "does_not_exist"}}
	constructor := nodes.NewToolConstructor(registry)
	n, err := constructor(cfg, execution.GraphInitParams{})
	require.NoError(t, err)

	result := runNode(t, n, execution.NewVariablePool())
	assert.Equal(t, execution.RunStatusFailed, result.Status)
}
