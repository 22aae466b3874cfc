package graph

import (
	"context"
	"strings"
	"time"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
	"github.com/graphflow/engine/internal/infrastructure/graph/streamproc"
)

// WorkflowMode selects which stream post-processor a run uses.
type WorkflowMode string

const (
	// ModeChat selects the answer stream processor: only chunks feeding
	// an Answer node reach the caller incrementally.
	ModeChat WorkflowMode = "chat"
	// ModeWorkflow selects the end stream processor: chunks from nodes
	// with no path to an End node are dropped.
	ModeWorkflow WorkflowMode = "workflow"
)

// Config bundles everything Engine needs to run a graph.
type Config struct {
	Graph     *workflow.Graph
	Registry  *execution.Registry
	Mode      WorkflowMode
	Limits    Limits
	Timeout   time.Duration
}

// Engine is the public façade over the Graph Executor: it owns run
// framing (GraphRunStarted/Succeeded/Failed), selects and applies the
// stream post-processor, and accumulates the outputs a caller receives
// alongside GraphRunSucceeded.
type Engine struct {
	cfg       Config
	evaluator *execution.Evaluator
}

// NewEngine builds an Engine over cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, evaluator: execution.NewEvaluator()}
}

// Run executes the graph once and returns a channel of GraphEvents,
// closed when the run reaches a terminal GraphRunSucceeded or
// GraphRunFailed. pool lets a caller seed the run with input variables
// before anything executes (e.g. under the synthetic "__input__" key);
// a nil pool starts empty.
func (e *Engine) Run(ctx context.Context, init execution.GraphInitParams, pool *execution.VariablePool) <-chan execution.GraphEvent {
	out := make(chan execution.GraphEvent)

	runtime := execution.NewGraphRuntimeState()
	if pool != nil {
		runtime.Pool = pool
	}

	var proc streamproc.Processor
	if e.cfg.Mode == ModeChat {
		proc = streamproc.NewAnswerProcessor(e.cfg.Graph)
	} else {
		proc = streamproc.NewEndProcessor(e.cfg.Graph)
	}

	runID := init.RunID
	if runID == "" {
		runID = execution.NewRunID()
	}

	go func() {
		defer close(out)

		out <- execution.GraphRunStartedEvent{RunID: runID}

		runCtx := ctx
		var cancel context.CancelFunc
		if e.cfg.Timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
			defer cancel()
		}

		executor := NewExecutor(e.cfg.Graph, e.cfg.Registry, e.evaluator, e.cfg.Limits)
		raw := make(chan execution.GraphEvent, 64)
		done := make(chan error, 1)

		go func() {
			done <- executor.Run(runCtx, raw, runID, runtime, init)
			close(raw)
		}()

		var failure string
		for ev := range raw {
			for _, forwarded := range proc.Process(ev) {
				out <- forwarded
			}
			accumulateOutputs(runtime, ev)
			if fe, ok := ev.(execution.NodeRunFailedEvent); ok && !fe.Stopped {
				failure = fe.Error
			}
		}

		runErr := <-done
		switch {
		case failure != "":
			out <- execution.GraphRunFailedEvent{RunID: runID, Error: failure}
		case runErr != nil:
			out <- execution.GraphRunFailedEvent{RunID: runID, Error: runErr.Error()}
		default:
			out <- execution.GraphRunSucceededEvent{
				RunID:   runID,
				Outputs: runtime.Outputs(),
				Elapsed: runtime.Elapsed(),
			}
		}
	}()

	return out
}

// accumulateOutputs mirrors a successful End or Answer node's result
// into the run's accumulated outputs: an End node's outputs, when it has
// any, replace the run's outputs wholesale (an End node with no outputs
// leaves them unchanged), while an Answer node's "answer" output
// appends, newline-joined, to any answer accumulated so far.
func accumulateOutputs(runtime *execution.GraphRuntimeState, ev execution.GraphEvent) {
	succ, ok := ev.(execution.NodeRunSucceededEvent)
	if !ok {
		return
	}
	switch workflow.NodeType(succ.NodeType) {
	case workflow.NodeTypeEnd:
		if len(succ.Outputs) > 0 {
			runtime.ReplaceOutputs(succ.Outputs)
		}
	case workflow.NodeTypeAnswer:
		chunk, _ := succ.Outputs["answer"].(string)
		existing, _ := runtime.Outputs()["answer"].(string)
		joined := strings.TrimSpace(strings.TrimSpace(existing) + "\n" + chunk)
		runtime.AppendOutputs(map[string]interface{}{"answer": joined})
	}
}
