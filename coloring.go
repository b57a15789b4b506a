package main

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
)

// maxPairingAttempts bounds the rejection loop of the pairing model.
const maxPairingAttempts = 10000

// ColoringConfig describes a random graph-coloring instance.
type ColoringConfig struct {
	Nodes   int     // vertices of the base graph
	Degree  int     // every vertex has exactly this many neighbours
	Colors  int     // colors available per vertex
	Penalty float64 // weight of both constraint families; 0 means 1
	Seed    uint64
}

// IsingInstance is a coloring problem rewritten as an Ising cost on Nodes*Colors spins.
// The spin of vertex v and color c has node ID v*Colors+c. Energy = Offset + <H>.
type IsingInstance struct {
	Graph  *ProblemGraph
	Edges  [][2]int64 // base graph edges, u < v, in generation order
	Offset float64
	Config ColoringConfig
}

// RandomRegularGraph draws a uniform-ish d-regular simple graph on n vertices with the
// pairing model, rejecting pairings with loops or parallel edges.
func RandomRegularGraph(n, d int, rng *rand.Rand) (*simple.UndirectedGraph, [][2]int64, error) {
	if n < 1 || d < 0 || d >= n || (n*d)%2 != 0 {
		return nil, nil, fmt.Errorf("%w: no %d-regular graph on %d vertices", ErrInvalidParameter, d, n)
	}

	stubs := make([]int64, 0, n*d)
	for v := range n {
		for range d {
			stubs = append(stubs, int64(v))
		}
	}

	for range maxPairingAttempts {
		rng.Shuffle(len(stubs), func(i, j int) { stubs[i], stubs[j] = stubs[j], stubs[i] })

		g := simple.NewUndirectedGraph()
		for v := range n {
			g.AddNode(simple.Node(int64(v)))
		}
		edges := make([][2]int64, 0, len(stubs)/2)
		ok := true
		for i := 0; i < len(stubs); i += 2 {
			u, v := stubs[i], stubs[i+1]
			if u == v || g.HasEdgeBetween(u, v) {
				ok = false
				break
			}
			g.SetEdge(g.NewEdge(simple.Node(u), simple.Node(v)))
			edges = append(edges, [2]int64{min(u, v), max(u, v)})
		}
		if ok {
			return g, edges, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: pairing model found no %d-regular graph on %d vertices", ErrInvalidParameter, d, n)
}

// qubo is a quadratic binary cost sum(linear[i] x_i) + sum(quad[i,j] x_i x_j) + offset.
type qubo struct {
	linear []float64
	quad   map[[2]int]float64
	offset float64
}

func (q *qubo) addQuad(i, j int, w float64) {
	if i > j {
		i, j = j, i
	}
	q.quad[[2]int{i, j}] += w
}

// toIsing substitutes x = (1 - z)/2 and returns the spin graph and constant offset.
func (q *qubo) toIsing() (*ProblemGraph, float64, error) {
	h := make([]float64, len(q.linear))
	offset := q.offset
	for i, w := range q.linear {
		h[i] -= w / 2
		offset += w / 2
	}

	keys := make([][2]int, 0, len(q.quad))
	for k := range q.quad {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b [2]int) int {
		if a[0] != b[0] {
			return a[0] - b[0]
		}
		return a[1] - b[1]
	})
	for _, k := range keys {
		w := q.quad[k]
		h[k[0]] -= w / 4
		h[k[1]] -= w / 4
		offset += w / 4
	}

	g := NewProblemGraph()
	for i, w := range h {
		if err := g.AddNode(int64(i), w); err != nil {
			return nil, 0, err
		}
	}
	for _, k := range keys {
		if err := g.AddEdge(int64(k[0]), int64(k[1]), q.quad[k]/4); err != nil {
			return nil, 0, err
		}
	}
	return g, offset, nil
}

// GraphColoring builds the Ising form of a random coloring instance. Each vertex pays
// Penalty*(1 - sum_c x_vc)^2 for not having exactly one color and every edge pays
// Penalty*x_uc*x_vc for a shared color.
func GraphColoring(cfg ColoringConfig) (*IsingInstance, error) {
	if cfg.Colors < 1 {
		return nil, fmt.Errorf("%w: color count %d", ErrInvalidParameter, cfg.Colors)
	}
	if cfg.Penalty == 0 {
		cfg.Penalty = 1
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	_, edges, err := RandomRegularGraph(cfg.Nodes, cfg.Degree, rng)
	if err != nil {
		return nil, err
	}

	spin := func(v int64, c int) int { return int(v)*cfg.Colors + c }
	a := cfg.Penalty
	q := &qubo{
		linear: make([]float64, cfg.Nodes*cfg.Colors),
		quad:   make(map[[2]int]float64),
	}

	// (1 - sum x)^2 = 1 - sum x + 2 sum_{c<c'} x_c x_c' for binary x.
	for v := range int64(cfg.Nodes) {
		q.offset += a
		for c := range cfg.Colors {
			q.linear[spin(v, c)] -= a
			for c2 := c + 1; c2 < cfg.Colors; c2++ {
				q.addQuad(spin(v, c), spin(v, c2), 2*a)
			}
		}
	}
	for _, e := range edges {
		for c := range cfg.Colors {
			q.addQuad(spin(e[0], c), spin(e[1], c), a)
		}
	}

	g, offset, err := q.toIsing()
	if err != nil {
		return nil, err
	}
	return &IsingInstance{Graph: g, Edges: edges, Offset: offset, Config: cfg}, nil
}
