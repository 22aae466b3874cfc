package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/infrastructure/graph"
	"github.com/graphflow/engine/internal/infrastructure/graph/loader"
	"github.com/graphflow/engine/internal/infrastructure/llm"
	"github.com/graphflow/engine/internal/infrastructure/tools"
	"github.com/graphflow/engine/internal/nodes"
)

type runFlags struct {
	inputs   []string
	mode     string
	maxSteps int64
	timeout  time.Duration
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <graph.json>",
		Short: "Run a graph definition file to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(args[0], flags)
		},
	}

	cmd.Flags().StringArrayVar(&flags.inputs, "input", nil, "input variable as key=value, repeatable")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "override the graph's declared mode (chat|workflow)")
	cmd.Flags().Int64Var(&flags.maxSteps, "max-steps", 500, "maximum node invocations across the run")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 2*time.Minute, "maximum wall-clock run duration")

	return cmd
}

func runGraph(path string, flags *runFlags) error {
	def, err := loader.FromFile(path)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	mode := def.Mode
	if flags.mode != "" {
		mode = flags.mode
	}
	engineMode := graph.ModeWorkflow
	if mode == "chat" {
		engineMode = graph.ModeChat
	}

	llmClients := map[string]llm.Client{}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		llmClients["openai"] = llm.NewOpenAIClient(key)
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		llmClients["anthropic"] = llm.NewAnthropicClient(key)
	}

	toolRegistry := tools.NewRegistry()
	if err := tools.RegisterBuiltinTools(toolRegistry); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	registry := nodes.Register(llmClients, toolRegistry)

	engine := graph.NewEngine(graph.Config{
		Graph:    def.Graph,
		Registry: registry,
		Mode:     engineMode,
		Limits:   graph.Limits{MaxSteps: flags.maxSteps},
		Timeout:  flags.timeout,
	})

	pool := execution.NewVariablePool()
	for _, kv := range flags.inputs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --input %q, want key=value", kv)
		}
		pool.Add([]string{"__input__", k}, v)
	}

	runID := execution.NewRunID()
	init := execution.GraphInitParams{RunID: runID, GraphID: strings.TrimSuffix(path, ".json")}

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)

	failed := false
	for ev := range engine.Run(ctx, init, pool) {
		line := map[string]interface{}{"type": eventType(ev), "event": ev}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		if _, ok := ev.(execution.GraphRunFailedEvent); ok {
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("run %s failed", runID)
	}
	return nil
}

func eventType(ev execution.GraphEvent) string {
	switch ev.(type) {
	case execution.GraphRunStartedEvent:
		return "graph_run_started"
	case execution.GraphRunSucceededEvent:
		return "graph_run_succeeded"
	case execution.GraphRunFailedEvent:
		return "graph_run_failed"
	case execution.NodeRunStartedEvent:
		return "node_run_started"
	case execution.NodeRunStreamChunkEvent:
		return "node_run_stream_chunk"
	case execution.NodeRunRetrieverResourceEvent:
		return "node_run_retriever_resource"
	case execution.NodeRunSucceededEvent:
		return "node_run_succeeded"
	case execution.NodeRunFailedEvent:
		return "node_run_failed"
	case execution.ParallelBranchRunStartedEvent:
		return "parallel_branch_run_started"
	case execution.ParallelBranchRunSucceededEvent:
		return "parallel_branch_run_succeeded"
	case execution.ParallelBranchRunFailedEvent:
		return "parallel_branch_run_failed"
	default:
		return "event"
	}
}
