package main

import "fmt"

// DAGNode represents a gate in the circuit as a node in a DAG.
type DAGNode struct {
	ID   int // position of the gate in circuit order
	Gate Gate
}

// CircuitDAG is the dependency view of a Circuit used to cut it down to the gates
// that can influence a set of observed qubits.
type CircuitDAG struct {
	Nodes     []*DAGNode
	NumQubits int
	last      []int // last gate ID per qubit, -1 if the qubit is idle
}

// FromCircuit builds the DAG of circuit.
func FromCircuit(circuit *Circuit) *CircuitDAG {
	dag := &CircuitDAG{
		Nodes:     make([]*DAGNode, 0, len(circuit.Gates)),
		NumQubits: circuit.NumQubits,
		last:      make([]int, circuit.NumQubits),
	}
	for q := range dag.last {
		dag.last[q] = -1
	}

	for id, gate := range circuit.Gates {
		for _, q := range gate.Qubits() {
			dag.last[q] = id
		}
		dag.Nodes = append(dag.Nodes, &DAGNode{ID: id, Gate: gate})
	}
	return dag
}

// LastOnQubit returns the ID of the last gate on qubit, or -1.
func (dag *CircuitDAG) LastOnQubit(qubit int) int {
	if qubit < 0 || qubit >= len(dag.last) {
		return -1
	}
	return dag.last[qubit]
}

// diagonal reports whether g is diagonal in the computational basis.
func diagonal(g Gate) bool {
	return g.Type == GateRZ || g.Type == GateRZZ
}

// LightCone returns, in circuit order, the IDs of every gate that can change the reduced
// state of the given qubits. Gates outside the cone cancel in <psi|O|psi>.
//
// The walk runs backwards from the last gate on any observed qubit, growing the observed support.
// A run of consecutive diagonal gates commutes, so within a run only gates that touch
// the support at the end of the run are kept.
func (dag *CircuitDAG) LightCone(qubits ...int) []int {
	support := make([]bool, dag.NumQubits)
	end := -1
	for _, q := range qubits {
		if q >= 0 && q < dag.NumQubits {
			support[q] = true
			end = max(end, dag.LastOnQubit(q))
		}
	}
	touches := func(g Gate) bool {
		for _, q := range g.Qubits() {
			if support[q] {
				return true
			}
		}
		return false
	}

	in := make([]bool, len(dag.Nodes))
	for id := end; id >= 0; {
		g := dag.Nodes[id].Gate
		if !diagonal(g) {
			if touches(g) {
				in[id] = true
				for _, q := range g.Qubits() {
					support[q] = true
				}
			}
			id--
			continue
		}

		start := id
		for start > 0 && diagonal(dag.Nodes[start-1].Gate) {
			start--
		}
		var grown []int
		for j := start; j <= id; j++ {
			if gj := dag.Nodes[j].Gate; touches(gj) {
				in[j] = true
				grown = append(grown, gj.Qubits()...)
			}
		}
		for _, q := range grown {
			support[q] = true
		}
		id = start - 1
	}

	var cone []int
	for id, ok := range in {
		if ok {
			cone = append(cone, id)
		}
	}
	return cone
}

// Restrict returns the light-cone sub-circuit of the observed qubits, relabelled onto
// dense qubit indices, together with the new index of each observed qubit.
func (dag *CircuitDAG) Restrict(observed ...int) (*Circuit, []int, error) {
	for _, q := range observed {
		if q < 0 || q >= dag.NumQubits {
			return nil, nil, fmt.Errorf("%w: observed qubit %d outside %d qubits", ErrContraction, q, dag.NumQubits)
		}
	}
	cone := dag.LightCone(observed...)

	used := make([]bool, dag.NumQubits)
	for _, q := range observed {
		used[q] = true
	}
	for _, id := range cone {
		for _, q := range dag.Nodes[id].Gate.Qubits() {
			used[q] = true
		}
	}
	relabel := make([]int, dag.NumQubits)
	n := 0
	for q, ok := range used {
		if ok {
			relabel[q] = n
			n++
		} else {
			relabel[q] = -1
		}
	}

	sub := NewCircuit(n)
	for _, id := range cone {
		g := dag.Nodes[id].Gate
		switch {
		case g.Control >= 0:
			sub.AddParameterizedGate(g.Type, relabel[g.Target], g.Params, relabel[g.Control])
		case len(g.Params) > 0:
			sub.AddParameterizedGate(g.Type, relabel[g.Target], g.Params)
		default:
			sub.AddGate(g.Type, relabel[g.Target])
		}
	}

	where := make([]int, len(observed))
	for i, q := range observed {
		where[i] = relabel[q]
	}
	return sub, where, nil
}
