// Package workflow holds the immutable graph model the engine traverses:
// nodes, edges, and parallel-group descriptors. Values here are built once
// by an external configuration loader and never mutated for the lifetime
// of a run.
package workflow

import (
	"github.com/graphflow/engine/internal/pkg/errors"
)

// NodeType identifies the kind of a node's behavior. The engine treats it
// as an opaque tag used only to look up a NodeConstructor in the registry;
// the handful of well-known values below get special handling in the
// executor (End terminates a path, Answer accumulates into outputs).
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeAnswer    NodeType = "answer"
	NodeTypeLLM       NodeType = "llm"
	NodeTypeTool      NodeType = "tool"
	NodeTypeCondition NodeType = "condition"
	NodeTypeIteration NodeType = "iteration"
)

// NodeConfig is the opaque configuration blob for one node, owned by the
// Graph and immutable for the run. Concrete node constructors decide how
// to interpret Data.
type NodeConfig struct {
	ID    string
	Type  NodeType
	Title string
	Data  map[string]interface{}
}

// RunCondition gates an edge. Variant is dispatched by the condition
// evaluator (internal/domain/execution); Value carries whatever the
// variant needs (a branch key, a serialized boolean expression, ...).
type RunCondition struct {
	Variant string
	Value   interface{}
}

// Edge is a directed transition from Source to Target, optionally gated
// by a RunCondition.
type Edge struct {
	ID           string
	SourceNodeID string
	TargetNodeID string
	RunCondition *RunCondition
}

// ParallelGroup describes a fan-out: the set of nodes that run
// concurrently after a shared source, and the node where they converge.
// JoinNodeID is empty when the group's branches simply run to completion
// with no re-convergence point.
type ParallelGroup struct {
	ID                 string
	MemberStartNodeIDs []string
	JoinNodeID         string
}

// Graph is the immutable, pre-validated description of a workflow. It is
// shared read-only across every goroutine spawned for a run.
type Graph struct {
	RootNodeID string

	nodes         map[string]NodeConfig
	edgesBySource map[string][]Edge
	parallelOf    map[string]string
	parallelGroup map[string]ParallelGroup
}

// NewGraph validates and constructs a Graph. It is the single entry point
// external callers (a config loader, a test) use to build a Graph value;
// once constructed it never changes.
func NewGraph(rootNodeID string, nodes []NodeConfig, edges []Edge, groups []ParallelGroup) (*Graph, error) {
	if rootNodeID == "" {
		return nil, errors.InvalidInput("root_node_id", "root node id is required")
	}

	nodeMap := make(map[string]NodeConfig, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return nil, errors.InvalidInput("node.id", "node id is required")
		}
		if _, dup := nodeMap[n.ID]; dup {
			return nil, errors.InvalidInput("node.id", "duplicate node id: "+n.ID)
		}
		nodeMap[n.ID] = n
	}

	if _, ok := nodeMap[rootNodeID]; !ok {
		return nil, errors.InvalidInput("root_node_id", "root node not found: "+rootNodeID)
	}

	edgesBySource := make(map[string][]Edge)
	seenTarget := make(map[string]map[string]bool)
	for _, e := range edges {
		if e.SourceNodeID == "" || e.TargetNodeID == "" {
			return nil, errors.InvalidInput("edge", "edge source and target are required")
		}
		if _, ok := nodeMap[e.SourceNodeID]; !ok {
			return nil, errors.InvalidInput("edge.source_node_id", "source node not found: "+e.SourceNodeID)
		}
		if _, ok := nodeMap[e.TargetNodeID]; !ok {
			return nil, errors.InvalidInput("edge.target_node_id", "target node not found: "+e.TargetNodeID)
		}
		if seenTarget[e.SourceNodeID] == nil {
			seenTarget[e.SourceNodeID] = make(map[string]bool)
		}
		if seenTarget[e.SourceNodeID][e.TargetNodeID] {
			return nil, errors.InvalidInput("edge", "duplicate edge "+e.SourceNodeID+" -> "+e.TargetNodeID)
		}
		seenTarget[e.SourceNodeID][e.TargetNodeID] = true
		edgesBySource[e.SourceNodeID] = append(edgesBySource[e.SourceNodeID], e)
	}

	parallelOf := make(map[string]string)
	groupMap := make(map[string]ParallelGroup, len(groups))
	for _, g := range groups {
		if g.ID == "" {
			return nil, errors.InvalidInput("parallel_group.id", "parallel group id is required")
		}
		if len(g.MemberStartNodeIDs) < 2 {
			return nil, errors.InvalidInput("parallel_group.members", "parallel group "+g.ID+" needs at least 2 members")
		}
		groupMap[g.ID] = g
		for _, m := range g.MemberStartNodeIDs {
			if _, ok := nodeMap[m]; !ok {
				return nil, errors.InvalidInput("parallel_group.member", "member node not found: "+m)
			}
			parallelOf[m] = g.ID
		}
	}

	return &Graph{
		RootNodeID:    rootNodeID,
		nodes:         nodeMap,
		edgesBySource: edgesBySource,
		parallelOf:    parallelOf,
		parallelGroup: groupMap,
	}, nil
}

// NodeConfig returns the configuration for a node id, or false if absent.
func (g *Graph) NodeConfig(nodeID string) (NodeConfig, bool) {
	n, ok := g.nodes[nodeID]
	return n, ok
}

// EdgesFrom returns the outgoing edges of a node in deterministic
// (authoring) order. The executor relies on this order to pick the first
// matching conditional branch.
func (g *Graph) EdgesFrom(nodeID string) []Edge {
	return g.edgesBySource[nodeID]
}

// ParallelGroupOf returns the id of the parallel group a node belongs to
// as a fan-out member, if any.
func (g *Graph) ParallelGroupOf(nodeID string) (string, bool) {
	id, ok := g.parallelOf[nodeID]
	return id, ok
}

// ParallelGroup returns the descriptor for a parallel group id.
func (g *Graph) ParallelGroup(id string) (ParallelGroup, bool) {
	p, ok := g.parallelGroup[id]
	return p, ok
}
