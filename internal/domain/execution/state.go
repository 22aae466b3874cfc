package execution

import (
	"sync"
	"sync/atomic"
	"time"
)

// GraphRuntimeState is the mutable state shared across every goroutine
// participating in a single graph run: the variable pool, the route
// state store, accounting totals, and the accumulated outputs of any
// End/Answer nodes reached. All fields are safe for concurrent use.
type GraphRuntimeState struct {
	StartAt time.Time

	Pool   *VariablePool
	Routes *RouteStateStore

	steps int64 // atomic

	mu          sync.Mutex
	totalUsage  *LLMUsage
	outputs     map[string]interface{}
}

// NewGraphRuntimeState creates a fresh runtime state for a new run.
func NewGraphRuntimeState() *GraphRuntimeState {
	return &GraphRuntimeState{
		StartAt: time.Now(),
		Pool:    NewVariablePool(),
		Routes:  NewRouteStateStore(),
		outputs: make(map[string]interface{}),
	}
}

// IncrementSteps atomically advances the run's node-invocation counter
// and returns the new total, the value the executor compares against
// the configured step limit.
func (s *GraphRuntimeState) IncrementSteps() int64 {
	return atomic.AddInt64(&s.steps, 1)
}

// Steps returns the current node-invocation count.
func (s *GraphRuntimeState) Steps() int64 {
	return atomic.LoadInt64(&s.steps)
}

// Elapsed returns the time since the run started.
func (s *GraphRuntimeState) Elapsed() time.Duration {
	return time.Since(s.StartAt)
}

// AddUsage accumulates a node's reported token usage into the run total.
func (s *GraphRuntimeState) AddUsage(u *LLMUsage) {
	if u == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalUsage = s.totalUsage.Add(u)
}

// TotalUsage returns the run's accumulated token usage.
func (s *GraphRuntimeState) TotalUsage() *LLMUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalUsage
}

// AppendOutputs merges an Answer node's outputs into the run's
// accumulated outputs, the value returned to the caller alongside
// GraphRunSucceeded.
func (s *GraphRuntimeState) AppendOutputs(outputs map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range outputs {
		s.outputs[k] = v
	}
}

// ReplaceOutputs replaces the run's accumulated outputs wholesale with
// an End node's outputs, discarding anything accumulated before it
// (e.g. from an Answer node earlier on the same path).
func (s *GraphRuntimeState) ReplaceOutputs(outputs map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := make(map[string]interface{}, len(outputs))
	for k, v := range outputs {
		replaced[k] = v
	}
	s.outputs = replaced
}

// Outputs returns a copy of the run's accumulated outputs.
func (s *GraphRuntimeState) Outputs() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]interface{}, len(s.outputs))
	for k, v := range s.outputs {
		out[k] = v
	}
	return out
}
