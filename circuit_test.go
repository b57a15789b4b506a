package main

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildCircuitGateCounts(t *testing.T) {
	g := chainGraph(t, 3, 1, 1)
	for _, p := range []int{1, 2, 3} {
		angles := make(Angles, 2*p)
		c, err := BuildCircuit(g, nil, p, angles)
		require.NoError(t, err)
		require.Equal(t, 3, c.NumQubits)
		require.Equal(t, 3, c.CountGates(GateH), "Hadamards only ahead of the first layer")
		require.Equal(t, 3*p, c.CountGates(GateRZ))
		require.Equal(t, 2*p, c.CountGates(GateRZZ))
		require.Equal(t, 3*p, c.CountGates(GateRX))
	}
}

func TestBuildCircuitAngles(t *testing.T) {
	g := NewProblemGraph()
	require.NoError(t, g.AddNode(10, 0.5))
	require.NoError(t, g.AddNode(20, -2))
	require.NoError(t, g.AddEdge(10, 20, 1.5))

	c, err := BuildCircuit(g, nil, 2, NewAngles([]float64{0.1, 0.2}, []float64{0.3, 0.4}))
	require.NoError(t, err)

	q1 := gatesOn(c, 1)
	var types []string
	for _, gate := range q1 {
		types = append(types, gate.Type)
	}
	require.Equal(t, []string{GateH, GateRZ, GateRZZ, GateRX, GateRZ, GateRZZ, GateRX}, types)

	require.InDelta(t, 2*0.1*-2, q1[1].Params[0], 1e-15)
	require.InDelta(t, -0.1*1.5, q1[2].Params[0], 1e-15)
	require.Equal(t, 0, q1[2].Control)
	require.Equal(t, 1, q1[2].Target)
	require.InDelta(t, 2*0.3, q1[3].Params[0], 1e-15)
	require.InDelta(t, 2*0.2*-2, q1[4].Params[0], 1e-15)
	require.InDelta(t, 2*0.4, q1[6].Params[0], 1e-15)
}

func TestBuildCircuitSkipsSelfLoops(t *testing.T) {
	g := chainGraph(t, 2, 0, 1)
	require.NoError(t, g.AddEdge(1, 1, 5))

	c, err := BuildCircuit(g, nil, 1, Angles{0.2, 0.7})
	require.NoError(t, err)
	require.Equal(t, 1, c.CountGates(GateRZZ))
}

func TestBuildCircuitWithoutEdges(t *testing.T) {
	g := NewProblemGraph()
	require.NoError(t, g.AddNode(0, 1))

	c, err := BuildCircuit(g, nil, 1, Angles{0.2, 0.7})
	require.NoError(t, err)
	require.Equal(t, 1, c.NumQubits)
	require.Len(t, c.Gates, 3)
	require.Equal(t, 3, c.MaxSteps)
}

func TestBuildCircuitValidation(t *testing.T) {
	g := chainGraph(t, 2, 1, 1)

	_, err := BuildCircuit(g, nil, 0, Angles{})
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildCircuit(g, nil, 2, Angles{0.1, 0.2, 0.3})
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildCircuitSplit(g, nil, 1, []float64{0.1}, []float64{0.2, 0.3})
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = BuildCircuit(NewProblemGraph(), nil, 1, Angles{0.1, 0.2})
	require.ErrorIs(t, err, ErrInvalidParameter)

	other := chainGraph(t, 1, 0, 0)
	_, err = BuildCircuit(g, NewNodeIndexMap(other), 1, Angles{0.1, 0.2})
	require.ErrorIs(t, err, ErrInvalidParameter, "node 1 has no qubit in the foreign map")
}

func TestAnglesSplit(t *testing.T) {
	a := NewAngles([]float64{1, 2}, []float64{3, 4})
	require.Equal(t, Angles{1, 2, 3, 4}, a)

	gamma, beta, err := a.Split(2)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, gamma)
	require.Equal(t, []float64{3, 4}, beta)

	_, _, err = a.Split(1)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestCircuitSchedule(t *testing.T) {
	c := NewCircuit(3)
	c.AddGate(GateH, 0)
	c.AddGate(GateH, 1)
	c.AddParameterizedGate(GateRZZ, 1, []float64{0.5}, 0)
	c.AddGate(GateH, 2)
	c.AddParameterizedGate(GateRX, 2, []float64{0.1})

	steps := []int{0, 0, 1, 0, 1}
	for i, g := range c.Gates {
		require.Equal(t, steps[i], g.Step, "gate %d", i)
	}
	require.Equal(t, 2, c.MaxSteps)
	require.Len(t, gatesOn(c, 0), 2)
}

func gatesOn(c *Circuit, qubit int) []Gate {
	var out []Gate
	for _, g := range c.Gates {
		if slices.Contains(g.Qubits(), qubit) {
			out = append(out, g)
		}
	}
	return out
}
