//go:build integration

package postgres_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/graphflow/engine/internal/infrastructure/persistence/postgres"
)

var testPool *pgxpool.Pool

// TestMain spins up a Postgres container, applies the route-state
// migration, and shares one pool across every test in this package.
func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("graphflow_test"),
		tcpostgres.WithUsername("graphflow"),
		tcpostgres.WithPassword("graphflow"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("route state test: failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("route state test: failed to get connection string: %v", err)
	}

	if err := postgres.Migrate(connStr, "file://../../../../migrations"); err != nil {
		log.Fatalf("route state test: failed to apply migrations: %v", err)
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("route state test: failed to create pool: %v", err)
	}

	code := m.Run()

	testPool.Close()
	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Printf("route state test: failed to terminate container: %v", err)
	}
	os.Exit(code)
}

func TestRouteStateSink_RecordAndUpsert(t *testing.T) {
	ctx := context.Background()
	sink := postgres.NewRouteStateSink(testPool, 16)

	runID := "run-" + t.Name()
	sink.Record(postgres.RouteStateRecord{
		RunID: runID, RouteStateID: "rs-1", NodeID: "start", Status: "running",
		Index: 1, StartedAt: time.Now(),
	})
	sink.Record(postgres.RouteStateRecord{
		RunID: runID, RouteStateID: "rs-1", NodeID: "start", Status: "succeeded",
		Index: 1, StartedAt: time.Now(), FinishedAt: time.Now(),
	})
	sink.Close()

	var status string
	var count int
	row := testPool.QueryRow(ctx, `SELECT status, (SELECT count(*) FROM route_node_states WHERE run_id = $1) FROM route_node_states WHERE run_id = $1 AND route_state_id = 'rs-1'`, runID)
	require.NoError(t, row.Scan(&status, &count))
	assert.Equal(t, "succeeded", status)
	assert.Equal(t, 1, count)
}
