package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphflow/engine/internal/infrastructure/graph/loader"
)

const minimalGraphJSON = `{
  "root_node_id": "start",
  "mode": "chat",
  "nodes": [
    { "id": "start", "type": "start" },
    { "id": "end", "type": "end", "data": { "outputs": { "ok": "true" } } }
  ],
  "edges": [
    { "id": "e1", "source_node_id": "start", "target_node_id": "end" }
  ]
}`

func TestFromJSON_BuildsGraphAndKeepsMode(t *testing.T) {
	def, err := loader.FromJSON([]byte(minimalGraphJSON))
	require.NoError(t, err)
	assert.Equal(t, "chat", def.Mode)
	require.NotNil(t, def.Graph)
}

func TestFromJSON_DefaultsModeWhenAbsent(t *testing.T) {
	def, err := loader.FromJSON([]byte(`{
		"root_node_id": "start",
		"nodes": [
			{ "id": "start", "type": "start" },
			{ "id": "end", "type": "end" }
		],
		"edges": [
			{ "id": "e1", "source_node_id": "start", "target_node_id": "end" }
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "workflow", def.Mode)
}

func TestFromJSON_RejectsMalformedJSON(t *testing.T) {
	_, err := loader.FromJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestFromJSON_RejectsInvalidGraphShape(t *testing.T) {
	_, err := loader.FromJSON([]byte(`{
		"root_node_id": "missing",
		"nodes": [{ "id": "start", "type": "start" }],
		"edges": []
	}`))
	assert.Error(t, err)
}

func TestFromDir_MissingDirectoryYieldsEmptyMap(t *testing.T) {
	defs, err := loader.FromDir(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestFromDir_LoadsJSONFilesKeyedByBaseName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "support_triage.json"), []byte(minimalGraphJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	defs, err := loader.FromDir(dir)
	require.NoError(t, err)
	require.Contains(t, defs, "support_triage")
	assert.NotContains(t, defs, "notes")
	assert.Equal(t, "chat", defs["support_triage"].Mode)
}

func TestFromDir_PropagatesParseErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{not json`), 0o644))

	_, err := loader.FromDir(dir)
	assert.Error(t, err)
}
