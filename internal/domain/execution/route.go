package execution

import (
	"sync"
	"time"

	"github.com/graphflow/engine/internal/pkg/uuid"
)

// RouteNodeStateStatus is the lifecycle status of one node invocation.
type RouteNodeStateStatus string

const (
	RouteStatusPending   RouteNodeStateStatus = "pending"
	RouteStatusRunning   RouteNodeStateStatus = "running"
	RouteStatusSucceeded RouteNodeStateStatus = "succeeded"
	RouteStatusFailed    RouteNodeStateStatus = "failed"
)

// RouteNodeState is the per-invocation record of one node's run within
// the current graph execution. It is created immediately before the
// node is invoked and mutated only by the NodeRunner that owns it for
// the remainder of its life.
type RouteNodeState struct {
	mu sync.Mutex

	ID            string
	NodeID        string
	Status        RouteNodeStateStatus
	Index         int
	StartedAt     time.Time
	FinishedAt    time.Time
	FailedReason  string
	NodeRunResult *RunResult
}

// MarkRunning transitions the state to running and records the start time.
func (s *RouteNodeState) MarkRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = RouteStatusRunning
	s.StartedAt = time.Now()
}

// SetFinished records a RunResult and derives the terminal status and
// failure reason from it.
func (s *RouteNodeState) SetFinished(result *RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NodeRunResult = result
	s.FinishedAt = time.Now()
	if result != nil && result.Status == RunStatusFailed {
		s.Status = RouteStatusFailed
		s.FailedReason = result.Error
	} else {
		s.Status = RouteStatusSucceeded
	}
}

// MarkFailed transitions the state directly to failed, e.g. on a
// cancellation or an uncaught node panic that never produced a RunResult.
func (s *RouteNodeState) MarkFailed(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = RouteStatusFailed
	s.FailedReason = reason
	s.FinishedAt = time.Now()
}

// Snapshot returns a copy safe to read without holding the state's lock.
func (s *RouteNodeState) Snapshot() RouteNodeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s
	cp.mu = sync.Mutex{}
	return cp
}

// RouteEdge records that dst was reached immediately after src along the
// path actually taken during this run; it is the forward edge trace used
// for observability.
type RouteEdge struct {
	SourceStateID string
	TargetStateID string
}

// RouteStateStore tracks every RouteNodeState instantiated during a run
// and the forward edges actually taken between them. It is written by
// many goroutines (one per parallel branch), so all access is guarded by
// a mutex.
type RouteStateStore struct {
	mu     sync.Mutex
	byID   map[string]*RouteNodeState
	routes []RouteEdge
}

// NewRouteStateStore creates an empty store.
func NewRouteStateStore() *RouteStateStore {
	return &RouteStateStore{byID: make(map[string]*RouteNodeState)}
}

// NewNodeState allocates a fresh RouteNodeState for nodeID. The index
// field is left at zero; RunNode assigns it before emitting the node's
// Start event (see §4.7 step 3 of the design).
func (s *RouteStateStore) NewNodeState(nodeID string) *RouteNodeState {
	return &RouteNodeState{
		ID:     uuid.New(),
		NodeID: nodeID,
		Status: RouteStatusPending,
	}
}

// Record stores (or overwrites) the state under its own id.
func (s *RouteStateStore) Record(state *RouteNodeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[state.ID] = state
}

// Get retrieves a recorded state by id.
func (s *RouteStateStore) Get(id string) (*RouteNodeState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byID[id]
	return st, ok
}

// AddRoute records that the run traversed from the node instance
// srcStateID directly to dstStateID.
func (s *RouteStateStore) AddRoute(srcStateID, dstStateID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, RouteEdge{SourceStateID: srcStateID, TargetStateID: dstStateID})
}

// Routes returns a copy of the recorded forward-edge trace.
func (s *RouteStateStore) Routes() []RouteEdge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RouteEdge, len(s.routes))
	copy(out, s.routes)
	return out
}
