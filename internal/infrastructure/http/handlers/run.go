// Package handlers implements the HTTP façade over the graph engine:
// triggering a run and streaming its event sequence back as
// Server-Sent Events.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/graphflow/engine/internal/domain/execution"
	"github.com/graphflow/engine/internal/infrastructure/graph"
	"github.com/graphflow/engine/internal/pkg/errors"
)

// RunHandler exposes one endpoint per loaded graph definition,
// triggering Engine.Run and streaming its events as SSE.
type RunHandler struct {
	engines  map[string]*graph.Engine
	observer *graph.RunObserver
}

// NewRunHandler builds a RunHandler over a fixed set of graph engines
// keyed by graph id. observer may be nil.
func NewRunHandler(engines map[string]*graph.Engine, observer *graph.RunObserver) *RunHandler {
	return &RunHandler{engines: engines, observer: observer}
}

type createRunRequest struct {
	Inputs map[string]interface{} `json:"inputs"`
}

// CreateRun triggers a run of the graph named by the "graph_id" path
// param and streams its events as SSE until a terminal event closes
// the connection.
func (h *RunHandler) CreateRun(c echo.Context) error {
	graphID := c.Param("graph_id")
	engine, ok := h.engines[graphID]
	if !ok {
		return errors.NotFound("graph", graphID)
	}

	var req createRunRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return errors.InvalidInput("body", err.Error())
		}
	}

	pool := execution.NewVariablePool()
	for k, v := range req.Inputs {
		pool.Add([]string{"__input__", k}, v)
	}

	runID := execution.NewRunID()
	init := execution.GraphInitParams{RunID: runID, GraphID: graphID}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	ch := engine.Run(c.Request().Context(), init, pool)
	for ev := range ch {
		if h.observer != nil {
			h.observer.Observe(runID, graphID, ev)
		}
		if err := writeSSE(c, ev); err != nil {
			return nil
		}
	}
	return nil
}

func writeSSE(c echo.Context, ev execution.GraphEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", eventName(ev), data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

func eventName(ev execution.GraphEvent) string {
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
		return "event"
	}
}
