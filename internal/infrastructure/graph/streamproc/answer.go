package streamproc

import (
	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
)

// AnswerProcessor suppresses stream chunks from nodes that do not feed
// directly into an Answer node, while still forwarding every framing,
// start/succeeded/failed, and parallel-branch event unchanged. It is
// used for chat-style graphs, where a caller displaying incremental
// text wants only the chunks that are actually part of the answer —
// not, say, the token stream of an LLM node whose output merely feeds a
// routing condition.
type AnswerProcessor struct {
	streamable map[string]bool
}

// NewAnswerProcessor builds a processor over g, precomputing which
// nodes have a direct edge into an Answer node.
func NewAnswerProcessor(g *workflow.Graph) *AnswerProcessor {
	streamable := make(map[string]bool)
	for nodeID := range allNodeIDs(g) {
		for _, e := range g.EdgesFrom(nodeID) {
			if target, ok := g.NodeConfig(e.TargetNodeID); ok && target.Type == workflow.NodeTypeAnswer {
				streamable[nodeID] = true
			}
		}
		if cfg, ok := g.NodeConfig(nodeID); ok && cfg.Type == workflow.NodeTypeAnswer {
			streamable[nodeID] = true
		}
	}
	return &AnswerProcessor{streamable: streamable}
}

// allNodeIDs is a small helper: workflow.Graph does not expose a node
// iterator directly, so we derive the id set from the edges we can
// already see plus the root — sufficient since every reachable node
// appears as either an edge source, an edge target, or the root.
func allNodeIDs(g *workflow.Graph) map[string]bool {
	seen := map[string]bool{g.RootNodeID: true}
	frontier := []string{g.RootNodeID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		for _, e := range g.EdgesFrom(id) {
			if !seen[e.TargetNodeID] {
				seen[e.TargetNodeID] = true
				frontier = append(frontier, e.TargetNodeID)
			}
		}
	}
	return seen
}

// Process implements Processor.
func (p *AnswerProcessor) Process(ev execution.GraphEvent) []execution.GraphEvent {
	if chunk, ok := ev.(execution.NodeRunStreamChunkEvent); ok {
		if !p.streamable[chunk.NodeID] {
			return nil
		}
	}
	return []execution.GraphEvent{ev}
}
