// Package graph contains the Graph Executor and Engine Facade: the
// traversal and fan-out/fan-in logic that drives a workflow.Graph to
// completion, and the façade that wraps it with run framing and stream
// post-processing.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
	"golang.org/x/sync/errgroup"
)

// Limits bounds a single run's resource consumption.
type Limits struct {
	// MaxSteps caps the number of node invocations across the whole run,
	// including every parallel branch. Zero means unlimited.
	MaxSteps int64
	// MaxExecutionTime caps the run's wall-clock duration. Zero means
	// unlimited. Checked independently of ctx's own deadline, so the
	// error text a breach produces is exact and attributable to this
	// limit rather than to a generic cancellation.
	MaxExecutionTime time.Duration
}

// Executor walks a Graph from its root node, running each node via the
// registry, selecting the next node(s) by condition or unconditional
// fan-out, and recursing until every path reaches a node with no
// outgoing edges.
type Executor struct {
	graph      *workflow.Graph
	registry   *execution.Registry
	evaluator  *execution.Evaluator
	limits     Limits
}

// NewExecutor builds an Executor over graph using registry to construct
// nodes and evaluator to resolve conditional edges.
func NewExecutor(g *workflow.Graph, registry *execution.Registry, evaluator *execution.Evaluator, limits Limits) *Executor {
	return &Executor{graph: g, registry: registry, evaluator: evaluator, limits: limits}
}

// Run drives the graph to completion, sending every GraphEvent it
// produces (NodeRunStarted/..., ParallelBranchRun...) to ch. The caller
// owns ch and must keep draining it until Run returns; Run does not
// close it, so the caller (the Engine Facade) can append its own
// framing events around the executor's output.
//
// Run returns when either every live path has reached a terminus, or
// an unrecoverable error (a node failure, a missing graph reference, a
// step-limit breach, or ctx cancellation) stops the run.
func (e *Executor) Run(ctx context.Context, ch chan<- execution.GraphEvent, runID string, runtime *execution.GraphRuntimeState, init execution.GraphInitParams) error {
	return e.runFrom(ctx, ch, runID, runtime, init, e.graph.RootNodeID, execution.ParallelTag{})
}

func (e *Executor) runFrom(
	ctx context.Context,
	ch chan<- execution.GraphEvent,
	runID string,
	runtime *execution.GraphRuntimeState,
	init execution.GraphInitParams,
	nodeID string,
	tag execution.ParallelTag,
) error {
	var prev *execution.RouteNodeState
	for {
		if err := ctx.Err(); err != nil {
			return execution.ErrStoppedRun
		}
		if e.limits.MaxSteps > 0 && runtime.Steps() >= e.limits.MaxSteps {
			return fmt.Errorf("Max steps %d reached.", e.limits.MaxSteps)
		}
		if e.limits.MaxExecutionTime > 0 && runtime.Elapsed() > e.limits.MaxExecutionTime {
			return fmt.Errorf("Max execution time %ds reached.", int(e.limits.MaxExecutionTime.Seconds()))
		}

		cfg, ok := e.graph.NodeConfig(nodeID)
		if !ok {
			return fmt.Errorf("graph: node not found: %s", nodeID)
		}
		node, err := e.registry.Build(cfg, init)
		if err != nil {
			return fmt.Errorf("graph: building node %s: %w", nodeID, err)
		}

		route, err := execution.RunNode(ctx, ch, runID, node, runtime, tag)
		if err != nil {
			if execution.IsStopped(err) {
				return execution.ErrStoppedRun
			}
			return err
		}
		if prev != nil {
			runtime.Routes.AddRoute(prev.ID, route.ID)
		}
		prev = route

		if cfg.Type == workflow.NodeTypeEnd {
			return nil
		}

		next, shouldContinue, err := e.advance(ctx, ch, runID, runtime, init, nodeID, tag, route)
		if err != nil {
			return err
		}
		if !shouldContinue {
			return nil
		}

		if tag.ParallelID != "" {
			if pg, ok := e.graph.ParallelGroupOf(next); !ok || pg != tag.ParallelID {
				return nil
			}
		}

		nodeID = next
	}
}

// advance computes what runs after nodeID. For a single or first-match
// conditional edge it returns the one target to continue to in the
// caller's own loop. For an unconditional multi-edge (a fan-out) it
// runs every branch to completion itself — spawning one goroutine per
// branch, each recursing into runFrom with the branch's parallel tag —
// and, once every branch is abandoned or complete, returns the group's
// join node (if any) as the next target.
func (e *Executor) advance(
	ctx context.Context,
	ch chan<- execution.GraphEvent,
	runID string,
	runtime *execution.GraphRuntimeState,
	init execution.GraphInitParams,
	nodeID string,
	tag execution.ParallelTag,
	route *execution.RouteNodeState,
) (next string, shouldContinue bool, err error) {
	edges := e.graph.EdgesFrom(nodeID)
	if len(edges) == 0 {
		return "", false, nil
	}

	hasCondition := false
	for _, edge := range edges {
		if edge.RunCondition != nil {
			hasCondition = true
			break
		}
	}

	if hasCondition {
		for _, edge := range edges {
			ok, err := e.evaluator.Check(edge, route, runtime.Pool)
			if err != nil {
				return "", false, fmt.Errorf("graph: evaluating condition on edge %s: %w", edge.ID, err)
			}
			if ok {
				return edge.TargetNodeID, true, nil
			}
		}
		return "", false, nil
	}

	if len(edges) == 1 {
		return edges[0].TargetNodeID, true, nil
	}

	parallelID, ok := e.graph.ParallelGroupOf(edges[0].TargetNodeID)
	if !ok {
		return "", false, fmt.Errorf("graph: node %s related parallel group not found", edges[0].TargetNodeID)
	}
	group, ok := e.graph.ParallelGroup(parallelID)
	if !ok {
		return "", false, fmt.Errorf("graph: parallel group %s not found", parallelID)
	}

	eg, gctx := errgroup.WithContext(ctx)
	for _, edge := range edges {
		edge := edge
		ch <- execution.ParallelBranchRunStartedEvent{
			RunID: runID, ParallelID: parallelID, ParallelStartNodeID: edge.TargetNodeID,
		}
		eg.Go(func() error {
			branchTag := execution.ParallelTag{ParallelID: parallelID, ParallelStartNodeID: edge.TargetNodeID}
			err := e.runFrom(gctx, ch, runID, runtime, init, edge.TargetNodeID, branchTag)
			if err != nil {
				ch <- execution.ParallelBranchRunFailedEvent{
					RunID: runID, ParallelID: parallelID, ParallelStartNodeID: edge.TargetNodeID, Error: err.Error(),
				}
				return err
			}
			ch <- execution.ParallelBranchRunSucceededEvent{
				RunID: runID, ParallelID: parallelID, ParallelStartNodeID: edge.TargetNodeID,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", false, err
	}

	if group.JoinNodeID == "" {
		return "", false, nil
	}
	return group.JoinNodeID, true, nil
}
