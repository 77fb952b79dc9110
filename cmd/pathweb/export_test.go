package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvmarrod/pathweb/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphJSONFormat(t *testing.T) {
	doc := newGraphDocument("https://a.com",
		[]storage.Node{
			{NodeID: 0, CanonicalKey: "a.com", DisplayURL: "https://a.com", Depth: 0},
			{NodeID: 1, CanonicalKey: "a.com/b", DisplayURL: "https://a.com/b/", Depth: 1},
		},
		[]storage.Edge{{FromNodeID: 0, ToNodeID: 1}},
	)

	var buf bytes.Buffer
	require.NoError(t, writeGraphJSON(&buf, doc))

	assert.JSONEq(t, `{
		"seed": "https://a.com",
		"nodes": [
			{"index": 0, "key": "a.com", "url": "https://a.com", "depth": 0},
			{"index": 1, "key": "a.com/b", "url": "https://a.com/b/", "depth": 1}
		],
		"edges": [{"from": 0, "to": 1}]
	}`, buf.String())
}

func TestGraphJSONEmptyLists(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeGraphJSON(&buf, newGraphDocument("https://a.com", nil, nil)))
	assert.JSONEq(t, `{"seed": "https://a.com", "nodes": [], "edges": []}`, buf.String())
}

func TestShowRun(t *testing.T) {
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	assert.Error(t, showRun(&out, store, 0, false), "empty database")

	nodes := []storage.Node{
		{NodeID: 0, CanonicalKey: "a.com", DisplayURL: "https://a.com", Depth: 0},
		{NodeID: 1, CanonicalKey: "a.com/b", DisplayURL: "https://a.com/b", Depth: 1},
	}
	edges := []storage.Edge{{FromNodeID: 0, ToNodeID: 1}}
	runID, err := store.SaveGraph(storage.NewRun("https://a.com", time.Now(), "drained"), nodes, edges)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, showRun(&out, store, 0, false))
	assert.Contains(t, out.String(), "https://a.com (drained)")
	assert.Contains(t, out.String(), "Nodes: 2 | Edges: 1")
	assert.Contains(t, out.String(), "0 -> 1")

	out.Reset()
	require.NoError(t, showRun(&out, store, runID, true))
	var doc graphDocument
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, nodes, doc.Nodes)
	assert.Equal(t, edges, doc.Edges)

	assert.Error(t, showRun(&out, store, runID+1, false))
}

func TestCrawlCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte(`<a href="/one">1</a> <a href="/two">2</a>`))
		case "/one":
			w.Write([]byte(`<a href="/two">2</a>`))
		case "/two":
			w.Write([]byte(`nothing here`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	graphPath := filepath.Join(dir, "graph.json")
	dbPath := filepath.Join(dir, "graph.db")
	metricsPath := filepath.Join(dir, "metrics.json")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"--url", server.URL,
		"--depth", "2",
		"--concurrency", "2",
		"--verbose", "0",
		"--graph", graphPath,
		"--db", dbPath,
		"--metrics", metricsPath,
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Crawl drained: 3 nodes, 3 edges")

	data, err := os.ReadFile(graphPath)
	require.NoError(t, err)
	var doc graphDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, server.URL, doc.Seed)
	assert.Len(t, doc.Nodes, 3)
	assert.Len(t, doc.Edges, 3)

	store, err := storage.NewStorage(dbPath)
	require.NoError(t, err)
	defer store.Close()
	nodes, edges, err := store.LoadGraph(1)
	require.NoError(t, err)
	assert.Equal(t, doc.Nodes, nodes)
	assert.Equal(t, doc.Edges, edges)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `"drained"`)
}
