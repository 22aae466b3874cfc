package postgres

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RouteStateRecord is one observed transition of a node's route state,
// as written to the route_node_states table.
type RouteStateRecord struct {
	RunID         string
	RouteStateID  string
	NodeID        string
	Status        string
	Index         int
	FailedReason  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// RouteStateSink persists RouteStateRecords asynchronously: writes are
// queued and flushed by a background goroutine, so a slow or
// unreachable database never blocks the run that produced them. A full
// queue drops the record and logs it rather than applying backpressure
// to the run.
type RouteStateSink struct {
	pool    *pgxpool.Pool
	records chan RouteStateRecord
	done    chan struct{}
}

// NewRouteStateSink starts the background writer. Call Close to drain
// and stop it.
func NewRouteStateSink(pool *pgxpool.Pool, queueSize int) *RouteStateSink {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &RouteStateSink{
		pool:    pool,
		records: make(chan RouteStateRecord, queueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues rec for persistence. Non-blocking: if the queue is
// full the record is dropped and logged.
func (s *RouteStateSink) Record(rec RouteStateRecord) {
	select {
	case s.records <- rec:
	default:
		log.Printf("route state sink: queue full, dropping record for run %s node %s", rec.RunID, rec.NodeID)
	}
}

// Close stops accepting new records and waits for the writer to drain
// whatever is already queued.
func (s *RouteStateSink) Close() {
	close(s.records)
	<-s.done
}

func (s *RouteStateSink) run() {
	defer close(s.done)
	ctx := context.Background()
	for rec := range s.records {
		if err := s.write(ctx, rec); err != nil {
			log.Printf("route state sink: write failed for run %s node %s: %v", rec.RunID, rec.NodeID, err)
		}
	}
}

func (s *RouteStateSink) write(ctx context.Context, rec RouteStateRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO route_node_states
			(run_id, route_state_id, node_id, status, index, failed_reason, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, route_state_id) DO UPDATE SET
			status = EXCLUDED.status,
			failed_reason = EXCLUDED.failed_reason,
			finished_at = EXCLUDED.finished_at
	`, rec.RunID, rec.RouteStateID, rec.NodeID, rec.Status, rec.Index, nullableString(rec.FailedReason), nullableTime(rec.StartedAt), nullableTime(rec.FinishedAt))
	return err
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
