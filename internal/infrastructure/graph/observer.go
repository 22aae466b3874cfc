package graph

import (
	"context"
	"log"
	"time"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/infrastructure/cache"
	"github.com/graphflow/engine/internal/infrastructure/messaging/nats"
	"github.com/graphflow/engine/internal/infrastructure/monitoring"
	"github.com/graphflow/engine/internal/infrastructure/persistence/postgres"
)

// RunObserver fans a run's event stream out to the observability
// sinks this module ships (route-state history, a variable pool
// mirror, a NATS publisher, and Prometheus metrics) without
// participating in the run itself — every sink call here is
// best-effort and asynchronous, so a slow or unreachable sink can
// never slow down or fail a run. Pass nil for any sink to skip it.
type RunObserver struct {
	RouteSink  *postgres.RouteStateSink
	PoolMirror *cache.PoolMirror
	Publisher  *nats.Publisher
	Metrics    *monitoring.Metrics
}

// Observe is called once per event a run produces, in order. graphID
// identifies the run's graph definition and is used as the low
// cardinality Prometheus label; runID is the high-cardinality per-run
// identifier used only for keyed storage (route state rows, the pool
// mirror hash, the publish-failure log line), never as a metric
// label. Observe never blocks on network I/O: Postgres writes are
// queued internally by RouteStateSink, and the Redis/NATS calls here
// are dispatched onto their own goroutines.
func (o *RunObserver) Observe(runID, graphID string, ev execution.GraphEvent) {
	if o == nil {
		return
	}

	if o.Publisher != nil {
		go func() {
			subject := "graphflow.events." + eventSubject(ev)
			if err := o.Publisher.Publish(context.Background(), subject, ev); err != nil {
				log.Printf("run observer: publish failed for run %s: %v", runID, err)
			}
		}()
	}

	switch e := ev.(type) {
	case execution.GraphRunStartedEvent:
		if o.Metrics != nil {
			o.Metrics.RecordRunCreated(graphID)
		}

	case execution.NodeRunStartedEvent:
		if o.RouteSink != nil {
			o.RouteSink.Record(postgres.RouteStateRecord{
				RunID: runID, RouteStateID: e.RouteNodeStateID, NodeID: e.NodeID,
				Status: "running", Index: e.Index, StartedAt: time.Now(),
			})
		}

	case execution.NodeRunSucceededEvent:
		if o.RouteSink != nil {
			o.RouteSink.Record(postgres.RouteStateRecord{
				RunID: runID, RouteStateID: e.RouteNodeStateID, NodeID: e.NodeID,
				Status: "succeeded", FinishedAt: time.Now(),
			})
		}
		if o.PoolMirror != nil {
			go func() {
				if err := o.PoolMirror.SetNodeOutputs(context.Background(), runID, e.NodeID, e.Outputs); err != nil {
					log.Printf("run observer: pool mirror failed for run %s node %s: %v", runID, e.NodeID, err)
				}
			}()
		}
		if o.Metrics != nil {
			o.Metrics.RecordNodeExecution(e.NodeType, "succeeded", e.Elapsed)
		}

	case execution.NodeRunFailedEvent:
		if o.RouteSink != nil {
			o.RouteSink.Record(postgres.RouteStateRecord{
				RunID: runID, RouteStateID: e.RouteNodeStateID, NodeID: e.NodeID,
				Status: "failed", FailedReason: e.Error, FinishedAt: time.Now(),
			})
		}
		if o.Metrics != nil {
			o.Metrics.RecordNodeExecution(e.NodeType, "failed", 0)
		}

	case execution.ParallelBranchRunSucceededEvent:
		if o.Metrics != nil {
			o.Metrics.RecordParallelBranch("succeeded")
		}

	case execution.ParallelBranchRunFailedEvent:
		if o.Metrics != nil {
			o.Metrics.RecordParallelBranch("failed")
		}

	case execution.GraphRunSucceededEvent:
		if o.Metrics != nil {
			o.Metrics.RecordRunCompleted(graphID, "succeeded", e.Elapsed)
		}

	case execution.GraphRunFailedEvent:
		if o.Metrics != nil {
			o.Metrics.RecordRunCompleted(graphID, "failed", 0)
		}
	}
}

func eventSubject(ev execution.GraphEvent) string {
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
		return "unknown"
	}
}
