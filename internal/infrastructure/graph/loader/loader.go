// Package loader decodes a graph definition file (JSON) into a
// workflow.Graph. It is an external collaborator to the core engine
// packages, not part of them: the engine only ever consumes an
// already-built *workflow.Graph.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/graphflow/engine/internal/domain/workflow"
)

// envelope is the on-disk JSON shape for a graph definition.
type envelope struct {
	RootNodeID string `json:"root_node_id"`
	Mode       string `json:"mode"`
	Nodes      []struct {
		ID    string                 `json:"id"`
		Type  string                 `json:"type"`
		Title string                 `json:"title"`
		Data  map[string]interface{} `json:"data"`
	} `json:"nodes"`
	Edges []struct {
		ID           string `json:"id"`
		SourceNodeID string `json:"source_node_id"`
		TargetNodeID string `json:"target_node_id"`
		RunCondition *struct {
			Variant string      `json:"variant"`
			Value   interface{} `json:"value"`
		} `json:"run_condition"`
	} `json:"edges"`
	ParallelGroups []struct {
		ID                 string   `json:"id"`
		MemberStartNodeIDs []string `json:"member_start_node_ids"`
		JoinNodeID         string   `json:"join_node_id"`
	} `json:"parallel_groups"`
}

// Definition bundles a loaded graph with the authoring metadata the
// graph itself doesn't carry (which stream mode to run it in).
type Definition struct {
	Graph *workflow.Graph
	Mode  string // "chat" or "workflow"; defaults to "workflow" if empty, other values are kept as given.
}

// FromFile reads a graph definition file and builds a validated
// Definition.
func FromFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// FromJSON builds a validated Definition from a graph definition's raw
// JSON bytes.
func FromJSON(data []byte) (Definition, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Definition{}, fmt.Errorf("loader: decode: %w", err)
	}

	nodes := make([]workflow.NodeConfig, 0, len(env.Nodes))
	for _, n := range env.Nodes {
		nodes = append(nodes, workflow.NodeConfig{
			ID: n.ID, Type: workflow.NodeType(n.Type), Title: n.Title, Data: n.Data,
		})
	}

	edges := make([]workflow.Edge, 0, len(env.Edges))
	for _, e := range env.Edges {
		edge := workflow.Edge{ID: e.ID, SourceNodeID: e.SourceNodeID, TargetNodeID: e.TargetNodeID}
		if e.RunCondition != nil {
			edge.RunCondition = &workflow.RunCondition{Variant: e.RunCondition.Variant, Value: e.RunCondition.Value}
		}
		edges = append(edges, edge)
	}

	groups := make([]workflow.ParallelGroup, 0, len(env.ParallelGroups))
	for _, g := range env.ParallelGroups {
		groups = append(groups, workflow.ParallelGroup{
			ID: g.ID, MemberStartNodeIDs: g.MemberStartNodeIDs, JoinNodeID: g.JoinNodeID,
		})
	}

	g, err := workflow.NewGraph(env.RootNodeID, nodes, edges, groups)
	if err != nil {
		return Definition{}, err
	}

	mode := env.Mode
	if mode == "" {
		mode = "workflow"
	}
	return Definition{Graph: g, Mode: mode}, nil
}

// FromDir loads every *.json file directly under dir into a map keyed
// by the file's base name with its extension stripped (e.g.
// "support_triage.json" becomes graph id "support_triage"). A missing
// directory yields an empty map, not an error, so a deployment that
// only ever runs graphs submitted at request time doesn't need one.
func FromDir(dir string) (map[string]Definition, error) {
	out := make(map[string]Definition)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loader: read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		def, err := FromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loader: %s: %w", entry.Name(), err)
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		out[id] = def
	}
	return out, nil
}
