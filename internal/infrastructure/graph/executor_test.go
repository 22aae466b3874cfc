package graph_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
	igraph "github.com/graphflow/engine/internal/infrastructure/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubNode is a minimal execution.Node used only by these tests: it
// returns a fixed RunResult (or fails, or blocks until ctx is done) with
// no intermediate NodeEvents.
type stubNode struct {
	id      string
	typ     workflow.NodeType
	outputs map[string]interface{}
	failErr string
	block   bool
}

func (n *stubNode) ID() string              { return n.id }
func (n *stubNode) Type() workflow.NodeType { return n.typ }

func (n *stubNode) Run(ctx context.Context, _ *execution.VariablePool) (<-chan execution.NodeEvent, func() *execution.RunResult) {
	events := make(chan execution.NodeEvent)
	done := make(chan struct{})
	var result *execution.RunResult
	go func() {
		defer close(events)
		defer close(done)
		if n.block {
			<-ctx.Done()
			return
		}
		if n.failErr != "" {
			result = &execution.RunResult{Status: execution.RunStatusFailed, Error: n.failErr}
			return
		}
		result = &execution.RunResult{Status: execution.RunStatusSucceeded, Outputs: n.outputs}
	}()
	return events, func() *execution.RunResult {
		<-done
		return result
	}
}

func registryOf(nodeDefs map[string]*stubNode) *execution.Registry {
	reg := execution.NewRegistry()
	builder := func(cfg workflow.NodeConfig, _ execution.GraphInitParams) (execution.Node, error) {
		n, ok := nodeDefs[cfg.ID]
		if !ok {
			return nil, fmt.Errorf("no stub for node %s", cfg.ID)
		}
		n.typ = cfg.Type
		return n, nil
	}
	for _, t := range []workflow.NodeType{
		workflow.NodeTypeStart, workflow.NodeTypeEnd, workflow.NodeTypeAnswer,
		workflow.NodeTypeLLM, workflow.NodeTypeTool, workflow.NodeTypeCondition, workflow.NodeTypeIteration,
	} {
		reg.Register(t, builder)
	}
	return reg
}

func drain(ch <-chan execution.GraphEvent) []execution.GraphEvent {
	var out []execution.GraphEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

// S1 — linear happy path.
func TestEngine_LinearHappyPath(t *testing.T) {
	nodes := []workflow.NodeConfig{
		{ID: "start", Type: workflow.NodeTypeStart},
		{ID: "llm", Type: workflow.NodeTypeLLM},
		{ID: "end", Type: workflow.NodeTypeEnd},
	}
	edges := []workflow.Edge{
		{SourceNodeID: "start", TargetNodeID: "llm"},
		{SourceNodeID: "llm", TargetNodeID: "end"},
	}
	g, err := workflow.NewGraph("start", nodes, edges, nil)
	require.NoError(t, err)

	reg := registryOf(map[string]*stubNode{
		"start": {id: "start"},
		"llm":   {id: "llm", outputs: map[string]interface{}{"text": "hi"}},
		"end":   {id: "end", outputs: map[string]interface{}{"text": "hi"}},
	})

	engine := igraph.NewEngine(igraph.Config{Graph: g, Registry: reg, Mode: igraph.ModeWorkflow})
	events := drain(engine.Run(context.Background(), execution.GraphInitParams{RunID: "r1"}, nil))

	require.NotEmpty(t, events)
	assert.IsType(t, execution.GraphRunStartedEvent{}, events[0])
	last := events[len(events)-1]
	succ, ok := last.(execution.GraphRunSucceededEvent)
	require.True(t, ok, "last event should be GraphRunSucceeded, got %T", last)
	assert.Equal(t, "hi", succ.Outputs["text"])

	var order []string
	for _, ev := range events {
		switch e := ev.(type) {
		case execution.NodeRunStartedEvent:
			order = append(order, "started:"+e.NodeID)
		case execution.NodeRunSucceededEvent:
			order = append(order, "succeeded:"+e.NodeID)
		}
	}
	assert.Equal(t, []string{
		"started:start", "succeeded:start",
		"started:llm", "succeeded:llm",
		"started:end", "succeeded:end",
	}, order)
}

// S2 — answer accumulation.
func TestEngine_AnswerAccumulation(t *testing.T) {
	nodes := []workflow.NodeConfig{
		{ID: "start", Type: workflow.NodeTypeStart},
		{ID: "a1", Type: workflow.NodeTypeAnswer},
		{ID: "a2", Type: workflow.NodeTypeAnswer},
		{ID: "end", Type: workflow.NodeTypeEnd},
	}
	edges := []workflow.Edge{
		{SourceNodeID: "start", TargetNodeID: "a1"},
		{SourceNodeID: "a1", TargetNodeID: "a2"},
		{SourceNodeID: "a2", TargetNodeID: "end"},
	}
	g, err := workflow.NewGraph("start", nodes, edges, nil)
	require.NoError(t, err)

	reg := registryOf(map[string]*stubNode{
		"start": {id: "start"},
		"a1":    {id: "a1", outputs: map[string]interface{}{"answer": "foo"}},
		"a2":    {id: "a2", outputs: map[string]interface{}{"answer": "bar"}},
		"end":   {id: "end"},
	})

	engine := igraph.NewEngine(igraph.Config{Graph: g, Registry: reg, Mode: igraph.ModeChat})
	events := drain(engine.Run(context.Background(), execution.GraphInitParams{RunID: "r2"}, nil))

	last := events[len(events)-1]
	succ, ok := last.(execution.GraphRunSucceededEvent)
	require.True(t, ok)
	assert.Equal(t, "foo\nbar", succ.Outputs["answer"])
}

// S2b — an End node's outputs replace the run's accumulated outputs
// wholesale, discarding whatever an earlier Answer node contributed.
func TestEngine_EndOutputsReplaceAnswerAccumulation(t *testing.T) {
	nodes := []workflow.NodeConfig{
		{ID: "start", Type: workflow.NodeTypeStart},
		{ID: "answer", Type: workflow.NodeTypeAnswer},
		{ID: "end", Type: workflow.NodeTypeEnd},
	}
	edges := []workflow.Edge{
		{SourceNodeID: "start", TargetNodeID: "answer"},
		{SourceNodeID: "answer", TargetNodeID: "end"},
	}
	g, err := workflow.NewGraph("start", nodes, edges, nil)
	require.NoError(t, err)

	reg := registryOf(map[string]*stubNode{
		"start":  {id: "start"},
		"answer": {id: "answer", outputs: map[string]interface{}{"answer": "foo"}},
		"end":    {id: "end", outputs: map[string]interface{}{"text": "done"}},
	})

	engine := igraph.NewEngine(igraph.Config{Graph: g, Registry: reg, Mode: igraph.ModeChat})
	events := drain(engine.Run(context.Background(), execution.GraphInitParams{RunID: "r2b"}, nil))

	last := events[len(events)-1]
	succ, ok := last.(execution.GraphRunSucceededEvent)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"text": "done"}, succ.Outputs)
}

// S3 — conditional branch: only the matching edge's target runs.
func TestEngine_ConditionalBranch(t *testing.T) {
	nodes := []workflow.NodeConfig{
		{ID: "start", Type: workflow.NodeTypeStart},
		{ID: "n1", Type: workflow.NodeTypeEnd},
		{ID: "n2", Type: workflow.NodeTypeEnd},
	}
	edges := []workflow.Edge{
		{SourceNodeID: "start", TargetNodeID: "n1", RunCondition: &workflow.RunCondition{
			Variant: execution.ConditionVariantExpression,
			Value:   execution.Expression{VariablePath: []string{"flag"}, Equals: "a"},
		}},
		{SourceNodeID: "start", TargetNodeID: "n2", RunCondition: &workflow.RunCondition{
			Variant: execution.ConditionVariantExpression,
			Value:   execution.Expression{VariablePath: []string{"flag"}, Equals: "b"},
		}},
	}
	g, err := workflow.NewGraph("start", nodes, edges, nil)
	require.NoError(t, err)

	reg := registryOf(map[string]*stubNode{
		"start": {id: "start"},
		"n1":    {id: "n1"},
		"n2":    {id: "n2"},
	})

	pool := execution.NewVariablePool()
	pool.Add([]string{"flag"}, "a")

	engine := igraph.NewEngine(igraph.Config{Graph: g, Registry: reg, Mode: igraph.ModeWorkflow})
	events := drain(engine.Run(context.Background(), execution.GraphInitParams{RunID: "r3"}, pool))

	seen := map[string]bool{}
	for _, ev := range events {
		if s, ok := ev.(execution.NodeRunStartedEvent); ok {
			seen[s.NodeID] = true
		}
	}
	assert.True(t, seen["n1"])
	assert.False(t, seen["n2"])
}

// S4 — parallel fan-out/fan-in.
func TestEngine_ParallelFanOutFanIn(t *testing.T) {
	nodes := []workflow.NodeConfig{
		{ID: "start", Type: workflow.NodeTypeStart},
		{ID: "a", Type: workflow.NodeTypeLLM},
		{ID: "b", Type: workflow.NodeTypeLLM},
		{ID: "join", Type: workflow.NodeTypeEnd},
	}
	edges := []workflow.Edge{
		{SourceNodeID: "start", TargetNodeID: "a"},
		{SourceNodeID: "start", TargetNodeID: "b"},
	}
	groups := []workflow.ParallelGroup{
		{ID: "p1", MemberStartNodeIDs: []string{"a", "b"}, JoinNodeID: "join"},
	}
	g, err := workflow.NewGraph("start", nodes, edges, groups)
	require.NoError(t, err)

	reg := registryOf(map[string]*stubNode{
		"start": {id: "start"},
		"a":     {id: "a"},
		"b":     {id: "b"},
		"join":  {id: "join"},
	})

	engine := igraph.NewEngine(igraph.Config{Graph: g, Registry: reg, Mode: igraph.ModeWorkflow})
	events := drain(engine.Run(context.Background(), execution.GraphInitParams{RunID: "r4"}, nil))

	var started, succeeded int
	var joinIndex = -1
	for i, ev := range events {
		switch e := ev.(type) {
		case execution.ParallelBranchRunStartedEvent:
			started++
		case execution.ParallelBranchRunSucceededEvent:
			succeeded++
		case execution.NodeRunStartedEvent:
			if e.NodeID == "join" {
				joinIndex = i
			}
		}
	}
	assert.Equal(t, 2, started)
	assert.Equal(t, 2, succeeded)
	require.NotEqual(t, -1, joinIndex)

	last := events[len(events)-1]
	assert.IsType(t, execution.GraphRunSucceededEvent{}, last)
}

// S5 — step limit.
func TestEngine_StepLimit(t *testing.T) {
	nodes := []workflow.NodeConfig{
		{ID: "n1", Type: workflow.NodeTypeLLM},
		{ID: "n2", Type: workflow.NodeTypeLLM},
		{ID: "n3", Type: workflow.NodeTypeLLM},
		{ID: "n4", Type: workflow.NodeTypeLLM},
		{ID: "n5", Type: workflow.NodeTypeEnd},
	}
	edges := []workflow.Edge{
		{SourceNodeID: "n1", TargetNodeID: "n2"},
		{SourceNodeID: "n2", TargetNodeID: "n3"},
		{SourceNodeID: "n3", TargetNodeID: "n4"},
		{SourceNodeID: "n4", TargetNodeID: "n5"},
	}
	g, err := workflow.NewGraph("n1", nodes, edges, nil)
	require.NoError(t, err)

	reg := registryOf(map[string]*stubNode{
		"n1": {id: "n1"}, "n2": {id: "n2"}, "n3": {id: "n3"}, "n4": {id: "n4"}, "n5": {id: "n5"},
	})

	engine := igraph.NewEngine(igraph.Config{
		Graph: g, Registry: reg, Mode: igraph.ModeWorkflow,
		Limits: igraph.Limits{MaxSteps: 2},
	})
	events := drain(engine.Run(context.Background(), execution.GraphInitParams{RunID: "r5"}, nil))

	last := events[len(events)-1]
	fail, ok := last.(execution.GraphRunFailedEvent)
	require.True(t, ok, "expected GraphRunFailed, got %T", last)
	assert.Equal(t, "Max steps 2 reached.", fail.Error)
}

// S6 — branch failure aborts the run.
func TestEngine_BranchFailureAbortsRun(t *testing.T) {
	nodes := []workflow.NodeConfig{
		{ID: "start", Type: workflow.NodeTypeStart},
		{ID: "a", Type: workflow.NodeTypeLLM},
		{ID: "b", Type: workflow.NodeTypeLLM},
		{ID: "join", Type: workflow.NodeTypeEnd},
	}
	edges := []workflow.Edge{
		{SourceNodeID: "start", TargetNodeID: "a"},
		{SourceNodeID: "start", TargetNodeID: "b"},
	}
	groups := []workflow.ParallelGroup{
		{ID: "p1", MemberStartNodeIDs: []string{"a", "b"}, JoinNodeID: "join"},
	}
	g, err := workflow.NewGraph("start", nodes, edges, groups)
	require.NoError(t, err)

	reg := registryOf(map[string]*stubNode{
		"start": {id: "start"},
		"a":     {id: "a"},
		"b":     {id: "b", failErr: "boom"},
		"join":  {id: "join"},
	})

	engine := igraph.NewEngine(igraph.Config{Graph: g, Registry: reg, Mode: igraph.ModeWorkflow})
	events := drain(engine.Run(context.Background(), execution.GraphInitParams{RunID: "r6"}, nil))

	var sawBranchFailed bool
	for _, ev := range events {
		if pf, ok := ev.(execution.ParallelBranchRunFailedEvent); ok {
			sawBranchFailed = true
			assert.Equal(t, "boom", pf.Error)
		}
	}
	assert.True(t, sawBranchFailed)

	last := events[len(events)-1]
	fail, ok := last.(execution.GraphRunFailedEvent)
	require.True(t, ok, "expected GraphRunFailed, got %T", last)
	assert.Equal(t, "boom", fail.Error)
}

func TestEngine_ContextCancellationStopsRun(t *testing.T) {
	nodes := []workflow.NodeConfig{
		{ID: "start", Type: workflow.NodeTypeStart},
		{ID: "blocker", Type: workflow.NodeTypeLLM},
	}
	edges := []workflow.Edge{{SourceNodeID: "start", TargetNodeID: "blocker"}}
	g, err := workflow.NewGraph("start", nodes, edges, nil)
	require.NoError(t, err)

	reg := registryOf(map[string]*stubNode{
		"start":   {id: "start"},
		"blocker": {id: "blocker", block: true},
	})

	engine := igraph.NewEngine(igraph.Config{Graph: g, Registry: reg, Mode: igraph.ModeWorkflow})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	events := drain(engine.Run(ctx, execution.GraphInitParams{RunID: "r7"}, nil))
	last := events[len(events)-1]
	fail, ok := last.(execution.GraphRunFailedEvent)
	require.True(t, ok, "expected GraphRunFailed, got %T", last)
	assert.Equal(t, execution.StoppedError, fail.Error)
}
