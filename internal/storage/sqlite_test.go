package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadGraph(t *testing.T) {
	store := newTestStorage(t)

	nodes := []Node{
		{NodeID: 0, CanonicalKey: "a.com", DisplayURL: "https://a.com", Depth: 0},
		{NodeID: 1, CanonicalKey: "a.com/b", DisplayURL: "https://a.com/b", Depth: 1},
		{NodeID: 2, CanonicalKey: "a.com/c", DisplayURL: "https://www.a.com/c/", Depth: 1},
	}
	edges := []Edge{
		{FromNodeID: 0, ToNodeID: 1},
		{FromNodeID: 0, ToNodeID: 2},
		{FromNodeID: 1, ToNodeID: 0},
	}

	started := time.Now().Add(-time.Minute)
	runID, err := store.SaveGraph(NewRun("https://a.com", started, "drained"), nodes, edges)
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	gotNodes, gotEdges, err := store.LoadGraph(runID)
	require.NoError(t, err)
	assert.Equal(t, nodes, gotNodes)
	assert.Equal(t, edges, gotEdges)

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "https://a.com", run.SeedURL)
	assert.Equal(t, "drained", run.TerminationReason)
	assert.Equal(t, 3, run.NodeCount)
	assert.Equal(t, 3, run.EdgeCount)
}

func TestSaveGraphDuplicateEdgesIgnored(t *testing.T) {
	store := newTestStorage(t)

	nodes := []Node{
		{NodeID: 0, CanonicalKey: "a.com", DisplayURL: "https://a.com"},
		{NodeID: 1, CanonicalKey: "a.com/b", DisplayURL: "https://a.com/b", Depth: 1},
	}
	edges := []Edge{{FromNodeID: 0, ToNodeID: 1}, {FromNodeID: 0, ToNodeID: 1}}

	runID, err := store.SaveGraph(NewRun("https://a.com", time.Now(), "drained"), nodes, edges)
	require.NoError(t, err)

	_, gotEdges, err := store.LoadGraph(runID)
	require.NoError(t, err)
	assert.Len(t, gotEdges, 1)
}

func TestRunsAreIsolated(t *testing.T) {
	store := newTestStorage(t)

	first, err := store.SaveGraph(NewRun("https://a.com", time.Now(), "drained"),
		[]Node{{NodeID: 0, CanonicalKey: "a.com", DisplayURL: "https://a.com"}}, nil)
	require.NoError(t, err)

	second, err := store.SaveGraph(NewRun("https://b.com", time.Now(), "capacity"),
		[]Node{
			{NodeID: 0, CanonicalKey: "b.com", DisplayURL: "https://b.com"},
			{NodeID: 1, CanonicalKey: "b.com/x", DisplayURL: "https://b.com/x", Depth: 1},
		}, []Edge{{FromNodeID: 0, ToNodeID: 1}})
	require.NoError(t, err)

	latest, err := store.LatestRunID()
	require.NoError(t, err)
	assert.Equal(t, second, latest)

	nodes, edges, err := store.LoadGraph(first)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Empty(t, edges)
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStorage(t)

	run, err := store.GetRun(42)
	require.NoError(t, err)
	assert.Nil(t, run)

	latest, err := store.LatestRunID()
	require.NoError(t, err)
	assert.Equal(t, int64(0), latest)
}
