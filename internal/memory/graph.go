package memory

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alvmarrod/pathweb/internal/storage"
	"github.com/sirupsen/logrus"
)

// ErrCapacityReached is returned by AddNode when the graph already holds its
// maximum number of nodes. It is a termination signal, not a failure.
var ErrCapacityReached = errors.New("link graph capacity reached")

// LinkGraph holds the deduplicated link graph of one crawl run
type LinkGraph struct {
	nodes    []*storage.Node       // index -> node, in creation order
	index    map[string]int        // canonical key -> index
	outgoing [][]int               // index -> child indices, in insertion order
	edgeSet  map[storage.Edge]bool // dedup for outgoing
	maxNodes int
	mu       sync.RWMutex
}

// NewLinkGraph creates an empty graph that will never hold more than maxNodes nodes
func NewLinkGraph(maxNodes int) *LinkGraph {
	return &LinkGraph{
		nodes:    make([]*storage.Node, 0),
		index:    make(map[string]int),
		outgoing: make([][]int, 0),
		edgeSet:  make(map[storage.Edge]bool),
		maxNodes: maxNodes,
	}
}

// AddNode inserts a node for key unless it already exists
// Returns the node index and whether this call created it
func (g *LinkGraph) AddNode(key, displayURL string, depth int) (int, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// First writer wins
	if idx, exists := g.index[key]; exists {
		return idx, false, nil
	}

	if len(g.nodes) >= g.maxNodes {
		return -1, false, ErrCapacityReached
	}

	idx := len(g.nodes)
	g.nodes = append(g.nodes, &storage.Node{
		NodeID:       idx,
		CanonicalKey: key,
		DisplayURL:   displayURL,
		Depth:        depth,
	})
	g.outgoing = append(g.outgoing, nil)
	g.index[key] = idx

	return idx, true, nil
}

// AddEdge records parent -> child. Unknown parents, unknown children and
// duplicate edges are ignored. Returns true if a new edge was added.
func (g *LinkGraph) AddEdge(parentKey string, child int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	parent, exists := g.index[parentKey]
	if !exists || child < 0 || child >= len(g.nodes) {
		return false
	}

	edge := storage.Edge{FromNodeID: parent, ToNodeID: child}
	if g.edgeSet[edge] {
		return false
	}

	g.edgeSet[edge] = true
	g.outgoing[parent] = append(g.outgoing[parent], child)
	return true
}

// Relax lowers the recorded depth of a node if depth is shorter
// Returns true if the depth changed
func (g *LinkGraph) Relax(idx, depth int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if idx < 0 || idx >= len(g.nodes) {
		return false
	}
	if depth >= g.nodes[idx].Depth {
		return false
	}
	g.nodes[idx].Depth = depth
	return true
}

// Size returns the current node count
func (g *LinkGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Seen reports whether key is already a node
func (g *LinkGraph) Seen(key string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, exists := g.index[key]
	return exists
}

// Lookup returns the index of key
func (g *LinkGraph) Lookup(key string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, exists := g.index[key]
	return idx, exists
}

// OutDegree returns the number of outgoing edges of key, 0 if unknown
func (g *LinkGraph) OutDegree(key string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, exists := g.index[key]
	if !exists {
		return 0
	}
	return len(g.outgoing[idx])
}

// GetStats returns current graph statistics
func (g *LinkGraph) GetStats() (nodeCount, edgeCount int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes), len(g.edgeSet)
}

// Nodes returns a copy of all nodes ordered by index
func (g *LinkGraph) Nodes() []storage.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]storage.Node, len(g.nodes))
	for i, node := range g.nodes {
		nodes[i] = *node
	}
	return nodes
}

// Edges returns all edges ordered by parent index, then insertion order
func (g *LinkGraph) Edges() []storage.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]storage.Edge, 0, len(g.edgeSet))
	for from, children := range g.outgoing {
		for _, to := range children {
			edges = append(edges, storage.Edge{FromNodeID: from, ToNodeID: to})
		}
	}
	return edges
}

// Flush writes the whole graph to SQLite storage as a new run
func (g *LinkGraph) Flush(store *storage.Storage, run storage.Run) (int64, error) {
	startTime := time.Now()
	logrus.Info("Starting flush to database...")

	nodes := g.Nodes()
	edges := g.Edges()

	runID, err := store.SaveGraph(run, nodes, edges)
	if err != nil {
		return 0, fmt.Errorf("failed to flush graph: %w", err)
	}

	logrus.Infof("Flush complete: run %d, %d nodes, %d edges written in %v",
		runID, len(nodes), len(edges), time.Since(startTime))

	return runID, nil
}
