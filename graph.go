package main

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Edge is an undirected weighted edge of a ProblemGraph. U == V marks a self-loop.
type Edge struct {
	U      int64
	V      int64
	Weight float64
}

// ProblemGraph is the weighted Ising graph whose cost the circuit estimates.
// Nodes keep their insertion order, which is the stable order used for qubit mapping
// and term enumeration. A built graph is read-only and safe to share between goroutines;
// AddNode and AddEdge must not race with readers.
type ProblemGraph struct {
	nodes      []int64
	nodeWeight map[int64]float64
	edges      []Edge
	edgeIndex  map[[2]int64]int

	// interaction holds the non-loop topology for neighbourhood queries.
	interaction *simple.UndirectedGraph
}

// NewProblemGraph returns an empty graph.
func NewProblemGraph() *ProblemGraph {
	return &ProblemGraph{
		nodeWeight:  make(map[int64]float64),
		edgeIndex:   make(map[[2]int64]int),
		interaction: simple.NewUndirectedGraph(),
	}
}

func edgeKey(u, v int64) [2]int64 {
	if u > v {
		u, v = v, u
	}
	return [2]int64{u, v}
}

func finite(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, 0)
}

// AddNode inserts a node with its linear (Z) weight.
func (g *ProblemGraph) AddNode(id int64, weight float64) error {
	if !finite(weight) {
		return fmt.Errorf("%w: node %d has non-finite weight %v", ErrInvalidGraph, id, weight)
	}
	if _, ok := g.nodeWeight[id]; ok {
		return fmt.Errorf("%w: duplicate node %d", ErrInvalidGraph, id)
	}
	g.nodes = append(g.nodes, id)
	g.nodeWeight[id] = weight
	g.interaction.AddNode(simple.Node(id))
	return nil
}

// AddEdge inserts an undirected edge with its quadratic (ZZ) weight.
// Both endpoints must already exist. Self-loops are stored but carry no interaction.
func (g *ProblemGraph) AddEdge(u, v int64, weight float64) error {
	if !finite(weight) {
		return fmt.Errorf("%w: edge (%d,%d) has non-finite weight %v", ErrInvalidGraph, u, v, weight)
	}
	for _, id := range []int64{u, v} {
		if _, ok := g.nodeWeight[id]; !ok {
			return fmt.Errorf("%w: edge (%d,%d) references unknown node %d", ErrInvalidGraph, u, v, id)
		}
	}
	key := edgeKey(u, v)
	if _, ok := g.edgeIndex[key]; ok {
		return fmt.Errorf("%w: duplicate edge (%d,%d)", ErrInvalidGraph, u, v)
	}
	g.edgeIndex[key] = len(g.edges)
	g.edges = append(g.edges, Edge{U: u, V: v, Weight: weight})
	if u != v {
		g.interaction.SetEdge(g.interaction.NewEdge(simple.Node(u), simple.Node(v)))
	}
	return nil
}

// NodeCount returns the number of nodes.
func (g *ProblemGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges, self-loops included.
func (g *ProblemGraph) EdgeCount() int { return len(g.edges) }

// Nodes returns the node IDs in insertion order.
func (g *ProblemGraph) Nodes() []int64 {
	out := make([]int64, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in insertion order.
func (g *ProblemGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// HasNode reports whether id is a node of g.
func (g *ProblemGraph) HasNode(id int64) bool {
	_, ok := g.nodeWeight[id]
	return ok
}

// Degree returns the number of distinct neighbours of id, ignoring self-loops.
func (g *ProblemGraph) Degree(id int64) int {
	if !g.HasNode(id) {
		return 0
	}
	return g.interaction.From(id).Len()
}

// Neighbourhood returns every node within radius hops of any seed, in graph node order.
// Unknown seeds are ignored.
func (g *ProblemGraph) Neighbourhood(seeds []int64, radius int) []int64 {
	within := make(map[int64]struct{})
	for _, s := range seeds {
		if !g.HasNode(s) {
			continue
		}
		var bf traverse.BreadthFirst
		bf.Walk(g.interaction, simple.Node(s), func(n graph.Node, d int) bool {
			if d > radius {
				return true
			}
			within[n.ID()] = struct{}{}
			return false
		})
	}

	out := make([]int64, 0, len(within))
	for _, id := range g.nodes {
		if _, ok := within[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Subgraph returns the graph induced by nodes, keeping g's node and edge order.
func (g *ProblemGraph) Subgraph(nodes []int64) (*ProblemGraph, error) {
	keep := make(map[int64]struct{}, len(nodes))
	for _, id := range nodes {
		if !g.HasNode(id) {
			return nil, fmt.Errorf("%w: subgraph references unknown node %d", ErrInvalidGraph, id)
		}
		keep[id] = struct{}{}
	}

	sub := NewProblemGraph()
	for _, id := range g.nodes {
		if _, ok := keep[id]; ok {
			if err := sub.AddNode(id, g.nodeWeight[id]); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range g.edges {
		_, okU := keep[e.U]
		_, okV := keep[e.V]
		if okU && okV {
			if err := sub.AddEdge(e.U, e.V, e.Weight); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}

// NodeIndexMap maps graph node IDs onto dense qubit indices 0..N-1 in graph node order.
type NodeIndexMap struct {
	toQubit map[int64]int
	toNode  []int64
}

// NewNodeIndexMap builds the qubit mapping for g.
func NewNodeIndexMap(g *ProblemGraph) *NodeIndexMap {
	m := &NodeIndexMap{
		toQubit: make(map[int64]int, len(g.nodes)),
		toNode:  make([]int64, len(g.nodes)),
	}
	for i, id := range g.nodes {
		m.toQubit[id] = i
		m.toNode[i] = id
	}
	return m
}

// Qubit returns the qubit index of node id.
func (m *NodeIndexMap) Qubit(id int64) (int, bool) {
	q, ok := m.toQubit[id]
	return q, ok
}

// Node returns the node ID on qubit q.
func (m *NodeIndexMap) Node(q int) int64 { return m.toNode[q] }

// Len returns the number of mapped qubits.
func (m *NodeIndexMap) Len() int { return len(m.toNode) }
