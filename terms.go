package main

import "fmt"

// TermKind tags a CostTerm as a node (Z) or edge (ZZ) term.
type TermKind int

const (
	NodeTerm TermKind = iota
	EdgeTerm
)

func (k TermKind) String() string {
	switch k {
	case NodeTerm:
		return "node"
	case EdgeTerm:
		return "edge"
	default:
		return fmt.Sprintf("TermKind(%d)", int(k))
	}
}

// CostTerm is one weighted summand of the Ising cost. V is only meaningful for edge terms.
type CostTerm struct {
	Kind   TermKind
	U      int64
	V      int64
	Weight float64
}

// NodeCostTerm returns the Z term of a node.
func NodeCostTerm(id int64, weight float64) CostTerm {
	return CostTerm{Kind: NodeTerm, U: id, V: id, Weight: weight}
}

// EdgeCostTerm returns the ZZ term of an edge.
func EdgeCostTerm(u, v int64, weight float64) CostTerm {
	return CostTerm{Kind: EdgeTerm, U: u, V: v, Weight: weight}
}

// Nodes returns the graph nodes the term observes.
func (t CostTerm) Nodes() []int64 {
	if t.Kind == EdgeTerm && t.U != t.V {
		return []int64{t.U, t.V}
	}
	return []int64{t.U}
}

func (t CostTerm) String() string {
	if t.Kind == EdgeTerm {
		return fmt.Sprintf("edge(%d,%d)*%g", t.U, t.V, t.Weight)
	}
	return fmt.Sprintf("node(%d)*%g", t.U, t.Weight)
}

// Terms decomposes the cost of g: every node term in node order, then every edge term in edge order.
func Terms(g *ProblemGraph) []CostTerm {
	terms := make([]CostTerm, 0, g.NodeCount()+g.EdgeCount())
	for _, id := range g.nodes {
		terms = append(terms, NodeCostTerm(id, g.nodeWeight[id]))
	}
	for _, e := range g.edges {
		terms = append(terms, EdgeCostTerm(e.U, e.V, e.Weight))
	}
	return terms
}
