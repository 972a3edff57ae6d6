// Package graph holds the unit dependency graph and its cycle analysis.
package graph

import (
	"sort"
)

// Edge is a directed unit dependency: From's source imports To.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"` // import occurrences backing the edge
}

// Graph is a directed graph keyed by unit name. Edges may only connect
// registered nodes and self-edges are never stored.
type Graph struct {
	nodes   []string
	nodeIdx map[string]int

	// outEdges[i] maps target index -> occurrence count
	outEdges []map[int]int
	inEdges  []map[int]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make([]string, 0),
		nodeIdx:  make(map[string]int),
		outEdges: make([]map[int]int, 0),
		inEdges:  make([]map[int]int, 0),
	}
}

// AddNode adds a node if it doesn't exist, returns its index.
func (g *Graph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.outEdges = append(g.outEdges, make(map[int]int))
	g.inEdges = append(g.inEdges, make(map[int]int))
	return idx
}

// AddEdge records one import occurrence from src to dst.
// It returns false when the edge is a self-edge or an endpoint is unknown.
func (g *Graph) AddEdge(src, dst string) bool {
	if src == dst {
		return false
	}
	srcIdx, ok := g.nodeIdx[src]
	if !ok {
		return false
	}
	dstIdx, ok := g.nodeIdx[dst]
	if !ok {
		return false
	}
	g.outEdges[srcIdx][dstIdx]++
	g.inEdges[dstIdx][srcIdx]++
	return true
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of distinct directed edges.
func (g *Graph) NumEdges() int {
	total := 0
	for _, edges := range g.outEdges {
		total += len(edges)
	}
	return total
}

// Nodes returns every node name, sorted.
func (g *Graph) Nodes() []string {
	out := append([]string(nil), g.nodes...)
	sort.Strings(out)
	return out
}

// HasNode checks if a node exists in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// HasEdge reports whether from imports to.
func (g *Graph) HasEdge(from, to string) bool {
	fi, ok := g.nodeIdx[from]
	if !ok {
		return false
	}
	ti, ok := g.nodeIdx[to]
	if !ok {
		return false
	}
	_, ok = g.outEdges[fi][ti]
	return ok
}

// Successors returns the units id imports, sorted.
func (g *Graph) Successors(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	return g.names(g.outEdges[idx])
}

// Predecessors returns the units importing id, sorted.
func (g *Graph) Predecessors(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	return g.names(g.inEdges[idx])
}

// Edges returns every edge sorted by (From, To).
func (g *Graph) Edges() []Edge {
	var out []Edge
	for from, targets := range g.outEdges {
		for to, count := range targets {
			out = append(out, Edge{From: g.nodes[from], To: g.nodes[to], Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func (g *Graph) names(set map[int]int) []string {
	out := make([]string, 0, len(set))
	for idx := range set {
		out = append(out, g.nodes[idx])
	}
	sort.Strings(out)
	return out
}
