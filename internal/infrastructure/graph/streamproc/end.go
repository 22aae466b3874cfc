package streamproc

import (
	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
)

// EndProcessor passes every event through unchanged except stream
// chunks from nodes with no forward path to an End node, which it
// suppresses. It is used for single-shot (non-chat) graphs: the
// executor's own event sequence is otherwise already the caller-facing
// one, but a node whose output only feeds a routing condition or a
// branch that never reaches a terminus shouldn't have its tokens
// surfaced as if they were part of the run's result.
type EndProcessor struct {
	reachesEnd map[string]bool
}

// NewEndProcessor builds a processor over g, precomputing which nodes
// have a path to an End node.
func NewEndProcessor(g *workflow.Graph) *EndProcessor {
	reverse := make(map[string][]string)
	var ends []string
	for nodeID := range allNodeIDs(g) {
		for _, e := range g.EdgesFrom(nodeID) {
			reverse[e.TargetNodeID] = append(reverse[e.TargetNodeID], nodeID)
		}
		if cfg, ok := g.NodeConfig(nodeID); ok && cfg.Type == workflow.NodeTypeEnd {
			ends = append(ends, nodeID)
		}
	}

	reaches := make(map[string]bool, len(ends))
	frontier := make([]string, len(ends))
	copy(frontier, ends)
	for _, id := range ends {
		reaches[id] = true
	}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		for _, pred := range reverse[id] {
			if !reaches[pred] {
				reaches[pred] = true
				frontier = append(frontier, pred)
			}
		}
	}
	return &EndProcessor{reachesEnd: reaches}
}

// Process implements Processor.
func (p *EndProcessor) Process(ev execution.GraphEvent) []execution.GraphEvent {
	if chunk, ok := ev.(execution.NodeRunStreamChunkEvent); ok {
		if !p.reachesEnd[chunk.NodeID] {
			return nil
		}
	}
	return []execution.GraphEvent{ev}
}
