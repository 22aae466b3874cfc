package execution

import (
	"context"

	"github.com/graphflow/engine/internal/domain/workflow"
)

// NodeEvent is the sealed family a Node's Run sequence yields before its
// terminal RunResult. A node that never streams simply yields none of
// these before returning its result.
type NodeEvent interface {
	nodeEvent()
}

// StreamChunk is one incremental piece of partial output.
type StreamChunk struct {
	Text    string
	IsFinal bool
}

func (StreamChunk) nodeEvent() {}

// RetrieverResource is retrieval context surfaced ahead of the final
// result (e.g. RAG citations attached to an LLM answer).
type RetrieverResource struct {
	Resources []map[string]interface{}
}

func (RetrieverResource) nodeEvent() {}

// GraphInitParams is the read-only context handed to every node
// constructor: identifiers for the surrounding run plus anything a
// concrete node needs to reach external collaborators (LLM clients,
// tool registries, ...) by being closed over at registration time
// instead of threaded through this struct.
type GraphInitParams struct {
	RunID      string
	GraphID    string
	UserID     string
}

// Node is the contract every node type implements. Run returns a lazy
// sequence: callers pull NodeEvents from the channel until it closes,
// then read Result for the terminal outcome. pool is the run's
// variable pool as of the moment the node starts; a node reads its
// inputs from it (by the paths its Data configuration names) and never
// writes to it directly — RunNode writes the node's own RunResult
// outputs back into the pool once Run completes. Implementations must
// respect ctx cancellation promptly — the engine's run timeout is
// enforced cooperatively by cancelling ctx, never by force (the step and
// execution-time limits are checked between node runs).
type Node interface {
	ID() string
	Type() workflow.NodeType
	Run(ctx context.Context, pool *VariablePool) (events <-chan NodeEvent, result func() *RunResult)
}

// NodeConstructor builds a Node from its static configuration and the
// run's init params. Registered once per NodeType at process start.
type NodeConstructor func(cfg workflow.NodeConfig, init GraphInitParams) (Node, error)

// Registry maps a NodeType to the constructor that builds it. It is
// built once at startup and read concurrently thereafter, so no lock
// is needed after construction completes.
type Registry struct {
	constructors map[workflow.NodeType]NodeConstructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[workflow.NodeType]NodeConstructor)}
}

// Register associates a NodeType with the constructor used to build
// instances of it. A later call for the same type replaces the earlier
// one, so callers can override defaults in tests.
func (r *Registry) Register(t workflow.NodeType, ctor NodeConstructor) {
	r.constructors[t] = ctor
}

// Build looks up the constructor for cfg.Type and invokes it.
func (r *Registry) Build(cfg workflow.NodeConfig, init GraphInitParams) (Node, error) {
	ctor, ok := r.constructors[cfg.Type]
	if !ok {
		return nil, errUnknownNodeType(cfg.Type)
	}
	return ctor(cfg, init)
}

func errUnknownNodeType(t workflow.NodeType) error {
	return &unknownNodeTypeError{t: t}
}

type unknownNodeTypeError struct{ t workflow.NodeType }

func (e *unknownNodeTypeError) Error() string {
	return "execution: no node constructor registered for type " + string(e.t)
}
