package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/domain/workflow"
	igraph "github.com/graphflow/engine/internal/infrastructure/graph"
	"github.com/graphflow/engine/internal/infrastructure/scheduler"
	"github.com/graphflow/engine/internal/nodes"
)

func trivialEngine(t *testing.T) *igraph.Engine {
	t.Helper()
	g, err := workflow.NewGraph("start", []workflow.NodeConfig{
		{ID: "start", Type: workflow.NodeTypeStart},
		{ID: "end", Type: workflow.NodeTypeEnd},
	}, []workflow.Edge{{SourceNodeID: "start", TargetNodeID: "end"}}, nil)
	require.NoError(t, err)

	registry := execution.NewRegistry()
	registry.Register(workflow.NodeTypeStart, nodes.NewStart)
	registry.Register(workflow.NodeTypeEnd, nodes.NewEnd)

	return igraph.NewEngine(igraph.Config{Graph: g, Registry: registry, Mode: igraph.ModeWorkflow})
}

// The scheduler fires at least once within a bounded wait when given a
// sub-minute cron expression, each firing on its own fresh pool.
func TestScheduler_FiresWithinBoundedWait(t *testing.T) {
	var fireCount int32
	inputs := func() *execution.VariablePool {
		atomic.AddInt32(&fireCount, 1)
		return execution.NewVariablePool()
	}

	sched, err := scheduler.New("* * * * * *", "trivial", trivialEngine(t), inputs, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sched.Start(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fireCount) >= 1
	}, 2*time.Second, 50*time.Millisecond, "expected at least one firing")

	<-ctx.Done()
}

func TestScheduler_RejectsInvalidCronExpression(t *testing.T) {
	_, err := scheduler.New("not a cron expression", "trivial", trivialEngine(t), func() *execution.VariablePool {
		return execution.NewVariablePool()
	}, nil)
	assert.Error(t, err)
}
