package execution

import (
	"context"
	"errors"

	"github.com/graphflow/engine/internal/pkg/uuid"
)

// ParallelTag identifies the fan-out branch a node run belongs to, if
// any. A zero-value ParallelTag means the node ran outside any parallel
// group.
type ParallelTag struct {
	ParallelID          string
	ParallelStartNodeID string
}

// RunNode drives one node invocation end to end: it assigns a route
// state, emits NodeRunStarted, forwards the node's lazy event sequence
// onto ch as each item is produced (stamping the parallel tag onto
// every one), accumulates token usage and variable-pool writes, and
// emits the terminal NodeRunSucceeded or NodeRunFailed event — all
// without buffering, so a caller draining ch observes a streaming
// node's chunks as they happen rather than in one burst once the node
// finishes.
//
// A context cancellation observed while the node is mid-flight is
// reported as NodeRunFailed{Stopped: true} with the StoppedError
// sentinel message rather than surfaced as the node's own error — the
// run was stopped cooperatively, the node did not fail on its own
// terms.
func RunNode(
	ctx context.Context,
	ch chan<- GraphEvent,
	runID string,
	node Node,
	runtime *GraphRuntimeState,
	tag ParallelTag,
) (*RouteNodeState, error) {
	index := int(runtime.IncrementSteps())
	route := runtime.Routes.NewNodeState(node.ID())
	route.Index = index
	runtime.Routes.Record(route)
	route.MarkRunning()

	ch <- NodeRunStartedEvent{
		RunID:               runID,
		RouteNodeStateID:    route.ID,
		NodeID:              node.ID(),
		NodeType:            string(node.Type()),
		Index:               index,
		ParallelID:          tag.ParallelID,
		ParallelStartNodeID: tag.ParallelStartNodeID,
	}

	events, result := node.Run(ctx, runtime.Pool)

	for {
		select {
		case <-ctx.Done():
			route.MarkFailed(StoppedError)
			ch <- NodeRunFailedEvent{
				RunID:               runID,
				RouteNodeStateID:    route.ID,
				NodeID:              node.ID(),
				NodeType:            string(node.Type()),
				Error:               StoppedError,
				Stopped:             true,
				ParallelID:          tag.ParallelID,
				ParallelStartNodeID: tag.ParallelStartNodeID,
			}
			return route, errStopped

		case ev, ok := <-events:
			if !ok {
				return finishNode(ch, runID, node, route, runtime, result(), tag)
			}
			switch e := ev.(type) {
			case StreamChunk:
				ch <- NodeRunStreamChunkEvent{
					RunID:               runID,
					RouteNodeStateID:    route.ID,
					NodeID:              node.ID(),
					ChunkText:           e.Text,
					IsFinal:             e.IsFinal,
					ParallelID:          tag.ParallelID,
					ParallelStartNodeID: tag.ParallelStartNodeID,
				}
			case RetrieverResource:
				ch <- NodeRunRetrieverResourceEvent{
					RunID:               runID,
					RouteNodeStateID:    route.ID,
					NodeID:              node.ID(),
					Resources:           e.Resources,
					ParallelID:          tag.ParallelID,
					ParallelStartNodeID: tag.ParallelStartNodeID,
				}
			}
		}
	}
}

// errStopped is returned by RunNode when ctx was cancelled mid-flight;
// the executor turns it into ErrStoppedRun and unwinds, and the run then
// ends in GraphRunFailed carrying the StoppedError message.
var errStopped = errors.New("execution: node run stopped")

// IsStopped reports whether err is the cooperative-stop sentinel
// produced when a node's context is cancelled mid-run.
func IsStopped(err error) bool {
	return errors.Is(err, errStopped)
}

// ErrStoppedRun is returned up through the executor when a run unwinds
// because of cooperative cancellation (the run timeout, a failed sibling
// parallel branch, or the caller's own ctx cancellation) rather than a
// node failure. The step and execution-time limits produce their own
// errors instead.
var ErrStoppedRun = errors.New(StoppedError)

func finishNode(
	ch chan<- GraphEvent,
	runID string,
	node Node,
	route *RouteNodeState,
	runtime *GraphRuntimeState,
	result *RunResult,
	tag ParallelTag,
) (*RouteNodeState, error) {
	route.SetFinished(result)

	if result == nil {
		result = &RunResult{Status: RunStatusFailed, Error: "node returned no result"}
	}

	if result.Status == RunStatusFailed {
		ch <- NodeRunFailedEvent{
			RunID:               runID,
			RouteNodeStateID:    route.ID,
			NodeID:              node.ID(),
			NodeType:            string(node.Type()),
			Error:               result.Error,
			ParallelID:          tag.ParallelID,
			ParallelStartNodeID: tag.ParallelStartNodeID,
		}
		return route, errors.New(result.Error)
	}

	runtime.AddUsage(result.LLMUsage)
	if len(result.Outputs) > 0 {
		runtime.Pool.Add([]string{node.ID()}, map[string]interface{}(result.Outputs))
	}

	ch <- NodeRunSucceededEvent{
		RunID:               runID,
		RouteNodeStateID:    route.ID,
		NodeID:              node.ID(),
		NodeType:            string(node.Type()),
		Outputs:             result.Outputs,
		Metadata:            result.Metadata,
		Elapsed:             route.FinishedAt.Sub(route.StartedAt),
		ParallelID:          tag.ParallelID,
		ParallelStartNodeID: tag.ParallelStartNodeID,
	}
	return route, nil
}

// NewRunID generates a fresh run identifier.
func NewRunID() string {
	return uuid.New()
}
