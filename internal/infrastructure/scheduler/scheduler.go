// Package scheduler triggers recurring graph runs on a cron schedule,
// independent of any interactive trigger (the HTTP façade or the CLI).
package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/infrastructure/graph"
)

// InputsFunc builds a fresh VariablePool for one firing. It is called
// once per firing so each run starts from independent state even if
// two firings overlap.
type InputsFunc func() *execution.VariablePool

// Scheduler fires independent Engine.Run calls on a cron expression.
// Overlapping firings are not serialized against each other: each owns
// its own GraphRuntimeState and runs concurrently with any still-running
// prior firing.
type Scheduler struct {
	cron     *cron.Cron
	engine   *graph.Engine
	graphID  string
	inputs   InputsFunc
	observer *graph.RunObserver
}

// New builds a Scheduler that fires engine.Run on cronExpr (a
// seconds-first six-field expression, e.g. "*/30 * * * * *" for every
// 30 seconds), seeding each run from inputs(). observer may be nil to
// skip observability sinks.
func New(cronExpr string, graphID string, engine *graph.Engine, inputs InputsFunc, observer *graph.RunObserver) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		engine:   engine,
		graphID:  graphID,
		inputs:   inputs,
		observer: observer,
	}
	if _, err := s.cron.AddFunc(cronExpr, s.fire); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

func (s *Scheduler) fire() {
	runID := execution.NewRunID()
	pool := s.inputs()
	init := execution.GraphInitParams{RunID: runID, GraphID: s.graphID}

	ch := s.engine.Run(context.Background(), init, pool)
	for ev := range ch {
		if s.observer != nil {
			s.observer.Observe(runID, s.graphID, ev)
		}
		switch ev.(type) {
		case execution.GraphRunFailedEvent:
			log.Printf("scheduler: run %s of graph %s failed: %+v", runID, s.graphID, ev)
		}
	}
}
