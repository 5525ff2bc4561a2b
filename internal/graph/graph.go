package graph

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNodeNotFound is returned when an operation references a URL that is not in the graph
var ErrNodeNotFound = errors.New("node not found")

// Graph holds the provenance graph in memory.
// Nodes and edges keep their insertion order; nothing is ever removed.
type Graph struct {
	nodes      map[string]*Node  // normalized url -> node
	order      []string          // node insertion order
	edges      map[Edge]struct{} // (source, target) set
	edgeOrder  []Edge
	depthCount map[int]int // scan_depth -> node count
	mu         sync.RWMutex
}

// New creates an empty provenance graph
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]*Node),
		edges:      make(map[Edge]struct{}),
		depthCount: make(map[int]int),
	}
}

// AddNode inserts an unparsed node if url is not already present.
// The first discovery wins: an existing node keeps its depth and position.
// Returns true if the node was created.
func (g *Graph) AddNode(url string, scanDepth int, domain string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[url]; exists {
		return false
	}

	g.insertLocked(&Node{
		URL:       url,
		ScanDepth: scanDepth,
		Domain:    domain,
		Position: Position{
			Depth:   scanDepth,
			Ordinal: g.depthCount[scanDepth],
		},
	})
	return true
}

// InsertNode inserts a fully populated node record if its URL is not present.
// Used when restoring an exported graph; the stored position is kept as is.
func (g *Graph) InsertNode(node Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[node.URL]; exists {
		return false
	}

	nodeCopy := node
	g.insertLocked(&nodeCopy)
	return true
}

func (g *Graph) insertLocked(node *Node) {
	g.nodes[node.URL] = node
	g.order = append(g.order, node.URL)
	g.depthCount[node.ScanDepth]++
}

// AddEdge inserts the directed edge source -> target. Adding an existing edge is a no-op.
// Both endpoints must already be nodes. Returns true if the edge was created.
func (g *Graph) AddEdge(source, target string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[source]; !exists {
		return false, fmt.Errorf("source %s: %w", source, ErrNodeNotFound)
	}
	if _, exists := g.nodes[target]; !exists {
		return false, fmt.Errorf("target %s: %w", target, ErrNodeNotFound)
	}

	edge := Edge{Source: source, Target: target}
	if _, exists := g.edges[edge]; exists {
		return false, nil
	}

	g.edges[edge] = struct{}{}
	g.edgeOrder = append(g.edgeOrder, edge)
	return true, nil
}

// MarkParsed flags an existing node as expanded. The flag never reverts.
func (g *Graph) MarkParsed(url string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, exists := g.nodes[url]
	if !exists {
		return fmt.Errorf("mark parsed %s: %w", url, ErrNodeNotFound)
	}

	node.Parsed = true
	return nil
}

// Node returns a copy of the node stored under url
func (g *Graph) Node(url string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, exists := g.nodes[url]
	if !exists {
		return Node{}, false
	}
	return *node, true
}

// Has reports whether url is a node
func (g *Graph) Has(url string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.nodes[url]
	return exists
}

// HasEdge reports whether the edge source -> target exists
func (g *Graph) HasEdge(source, target string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.edges[Edge{Source: source, Target: target}]
	return exists
}

// UnparsedNodes returns copies of all unparsed nodes in insertion order
func (g *Graph) UnparsedNodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var unparsed []Node
	for _, url := range g.order {
		if node := g.nodes[url]; !node.Parsed {
			unparsed = append(unparsed, *node)
		}
	}
	return unparsed
}

// DepthsOfUnparsed returns the scan depth of every unparsed node, in insertion order
func (g *Graph) DepthsOfUnparsed() []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var depths []int
	for _, url := range g.order {
		if node := g.nodes[url]; !node.Parsed {
			depths = append(depths, node.ScanDepth)
		}
	}
	return depths
}

// CountAtDepth returns the number of nodes, parsed or not, at the given scan depth
func (g *Graph) CountAtDepth(depth int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.depthCount[depth]
}

// Nodes returns copies of all nodes in insertion order
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]Node, 0, len(g.order))
	for _, url := range g.order {
		nodes = append(nodes, *g.nodes[url])
	}
	return nodes
}

// Edges returns all edges in insertion order
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]Edge, len(g.edgeOrder))
	copy(edges, g.edgeOrder)
	return edges
}

// MaxDepth returns the deepest scan depth present, or -1 for an empty graph
func (g *Graph) MaxDepth() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	maxDepth := -1
	for depth := range g.depthCount {
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth
}

// GetStats returns current graph statistics
func (g *Graph) GetStats() (nodeCount, edgeCount int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes), len(g.edges)
}
