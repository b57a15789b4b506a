package main

import (
	"fmt"
	"strings"
)

// Gate types emitted by the QAOA ansatz.
const (
	GateH   = "H"
	GateRZ  = "RZ"
	GateRZZ = "RZZ"
	GateRX  = "RX"
)

// Gate is one operation of the ansatz.
type Gate struct {
	Type    string
	Target  int
	Control int       // second qubit of a two-qubit gate, -1 otherwise
	Step    int       // ASAP layer in the circuit timeline
	Params  []float64 // rotation angles
}

// Qubits returns the qubits the gate acts on.
func (g Gate) Qubits() []int {
	if g.Control >= 0 {
		return []int{g.Control, g.Target}
	}
	return []int{g.Target}
}

// Circuit is an ordered gate sequence over NumQubits qubits.
type Circuit struct {
	NumQubits int
	Gates     []Gate
	MaxSteps  int

	front []int // next free step per qubit while building
}

// NewCircuit returns an empty circuit on n qubits.
func NewCircuit(n int) *Circuit {
	return &Circuit{NumQubits: n, front: make([]int, n)}
}

// schedule returns the earliest step at which all qubits are free and reserves it.
func (c *Circuit) schedule(qubits ...int) int {
	if len(c.front) < c.NumQubits {
		c.front = append(c.front, make([]int, c.NumQubits-len(c.front))...)
	}
	step := 0
	for _, q := range qubits {
		step = max(step, c.front[q])
	}
	for _, q := range qubits {
		c.front[q] = step + 1
	}
	if step >= c.MaxSteps {
		c.MaxSteps = step + 1
	}
	return step
}

// AddGate appends a parameterless single-qubit gate.
func (c *Circuit) AddGate(gateType string, target int) {
	c.Gates = append(c.Gates, Gate{
		Type:    gateType,
		Target:  target,
		Control: -1,
		Step:    c.schedule(target),
	})
}

// AddParameterizedGate appends a rotation. A control qubit turns it into a two-qubit gate.
func (c *Circuit) AddParameterizedGate(gateType string, target int, params []float64, control ...int) {
	ctrl := -1
	qubits := []int{target}
	if len(control) > 0 {
		ctrl = control[0]
		qubits = append(qubits, ctrl)
	}
	c.Gates = append(c.Gates, Gate{
		Type:    gateType,
		Target:  target,
		Control: ctrl,
		Step:    c.schedule(qubits...),
		Params:  params,
	})
}

// CountGates returns the number of gates of the given type.
func (c *Circuit) CountGates(gateType string) int {
	n := 0
	for _, g := range c.Gates {
		if g.Type == gateType {
			n++
		}
	}
	return n
}

// ToQASM generates QASM 2.0 output from the circuit.
func (c *Circuit) ToQASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n\n", max(c.NumQubits, 1))

	for _, gate := range c.Gates {
		gateType := strings.ToLower(gate.Type)
		switch {
		case gate.Control >= 0 && len(gate.Params) > 0:
			fmt.Fprintf(&sb, "%s(%s) q[%d], q[%d];\n", gateType, formatAngle(gate.Params[0]), gate.Control, gate.Target)
		case len(gate.Params) > 0:
			fmt.Fprintf(&sb, "%s(%s) q[%d];\n", gateType, formatAngle(gate.Params[0]), gate.Target)
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", gateType, gate.Target)
		}
	}

	return sb.String()
}

// Angles is the flat variational parameter vector: p gammas followed by p betas.
type Angles []float64

// NewAngles concatenates gamma and beta into the flat layout.
func NewAngles(gamma, beta []float64) Angles {
	a := make(Angles, 0, len(gamma)+len(beta))
	a = append(a, gamma...)
	return append(a, beta...)
}

// Split returns the phase-separation and mixing angles for depth p.
func (a Angles) Split(p int) (gamma, beta []float64, err error) {
	if p < 1 {
		return nil, nil, fmt.Errorf("%w: depth p=%d, need p >= 1", ErrInvalidParameter, p)
	}
	if len(a) != 2*p {
		return nil, nil, fmt.Errorf("%w: got %d angles for p=%d, need %d", ErrInvalidParameter, len(a), p, 2*p)
	}
	return a[:p], a[p:], nil
}

// BuildCircuit builds the depth-p QAOA ansatz for g from the flat angle vector.
func BuildCircuit(g *ProblemGraph, idx *NodeIndexMap, p int, angles Angles) (*Circuit, error) {
	gamma, beta, err := angles.Split(p)
	if err != nil {
		return nil, err
	}
	return BuildCircuitSplit(g, idx, p, gamma, beta)
}

// BuildCircuitSplit builds the ansatz from separate gamma and beta sequences.
//
// Layer k applies RZ(2*gamma[k]*h) on every node, RZZ(-gamma[k]*J) on every edge whose
// endpoints map to different qubits, then RX(2*beta[k]) on every node. The Hadamard
// preparation is applied once, ahead of the first layer.
func BuildCircuitSplit(g *ProblemGraph, idx *NodeIndexMap, p int, gamma, beta []float64) (*Circuit, error) {
	if p < 1 {
		return nil, fmt.Errorf("%w: depth p=%d, need p >= 1", ErrInvalidParameter, p)
	}
	if len(gamma) != p || len(beta) != p {
		return nil, fmt.Errorf("%w: len(gamma)=%d len(beta)=%d, need %d each", ErrInvalidParameter, len(gamma), len(beta), p)
	}
	if g.NodeCount() == 0 {
		return nil, fmt.Errorf("%w: graph has no nodes", ErrInvalidParameter)
	}
	if idx == nil {
		idx = NewNodeIndexMap(g)
	}

	qubitOf := func(id int64) (int, error) {
		q, ok := idx.Qubit(id)
		if !ok {
			return 0, fmt.Errorf("%w: node %d has no qubit", ErrInvalidParameter, id)
		}
		return q, nil
	}

	circ := NewCircuit(idx.Len())
	for k := range p {
		if k == 0 {
			for _, nd := range g.nodes {
				u, err := qubitOf(nd)
				if err != nil {
					return nil, err
				}
				circ.AddGate(GateH, u)
			}
		}

		for _, nd := range g.nodes {
			u, err := qubitOf(nd)
			if err != nil {
				return nil, err
			}
			circ.AddParameterizedGate(GateRZ, u, []float64{2 * gamma[k] * g.nodeWeight[nd]})
		}

		for _, e := range g.edges {
			u, err := qubitOf(e.U)
			if err != nil {
				return nil, err
			}
			v, err := qubitOf(e.V)
			if err != nil {
				return nil, err
			}
			if u == v {
				continue
			}
			circ.AddParameterizedGate(GateRZZ, v, []float64{-gamma[k] * e.Weight}, u)
		}

		for _, nd := range g.nodes {
			u, err := qubitOf(nd)
			if err != nil {
				return nil, err
			}
			circ.AddParameterizedGate(GateRX, u, []float64{2 * beta[k]})
		}
	}

	return circ, nil
}
