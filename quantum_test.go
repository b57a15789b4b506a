package main

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleQubitExpectation(t *testing.T) {
	// <Z> after H, RZ(theta), RX(phi) is sin(theta)*sin(phi).
	for _, tc := range []struct{ theta, phi float64 }{
		{0.6, 1.2},
		{-1.1, 0.4},
		{math.Pi / 2, math.Pi / 2},
	} {
		c := NewCircuit(1)
		c.AddGate(GateH, 0)
		c.AddParameterizedGate(GateRZ, 0, []float64{tc.theta})
		c.AddParameterizedGate(GateRX, 0, []float64{tc.phi})

		s, err := SimulateCircuit(context.Background(), c, 1)
		require.NoError(t, err)
		z := s.ExpectationZ(0)
		require.InDelta(t, math.Sin(tc.theta)*math.Sin(tc.phi), real(z), 1e-12)
		require.InDelta(t, 0, imag(z), 1e-12)
		require.InDelta(t, 1, real(s.ExpectationZ(0, 0)), 1e-12, "norm is preserved")
	}
}

func TestRZZExpectation(t *testing.T) {
	// <ZZ> after H⊗H, RZZ(theta), RX(2b)⊗RX(2b) is sin(4b)*sin(theta).
	theta, b := 0.7, 0.35
	c := NewCircuit(2)
	c.AddGate(GateH, 0)
	c.AddGate(GateH, 1)
	c.AddParameterizedGate(GateRZZ, 1, []float64{theta}, 0)
	c.AddParameterizedGate(GateRX, 0, []float64{2 * b})
	c.AddParameterizedGate(GateRX, 1, []float64{2 * b})

	s, err := SimulateCircuit(context.Background(), c, 1)
	require.NoError(t, err)
	require.InDelta(t, math.Sin(4*b)*math.Sin(theta), real(s.ExpectationZ(0, 1)), 1e-12)
	require.InDelta(t, 1, real(s.ExpectationZ(1, 1)), 1e-12, "repeated qubits cancel")
}

func TestApplyGateErrors(t *testing.T) {
	s := NewStateVector(2, 1)
	require.ErrorIs(t, s.ApplyGate(Gate{Type: GateH, Target: 2, Control: -1}), ErrContraction)
	require.ErrorIs(t, s.ApplyGate(Gate{Type: "CX", Target: 0, Control: 1}), ErrContraction)
	require.ErrorIs(t, s.ApplyGate(Gate{Type: GateRZZ, Target: 1, Control: 1, Params: []float64{1}}), ErrContraction)
	require.ErrorIs(t, s.ApplyGate(Gate{Type: GateRZZ, Target: 1, Control: -1, Params: []float64{1}}), ErrContraction)
}

func TestThreadedGatesMatchInline(t *testing.T) {
	// 15 qubits put every gate loop above parallelThreshold.
	g := chainGraph(t, 15, 0.3, -0.8)
	c, err := BuildCircuit(g, nil, 1, Angles{0.4, 0.9})
	require.NoError(t, err)

	inline, err := SimulateCircuit(context.Background(), c, 1)
	require.NoError(t, err)
	threaded, err := SimulateCircuit(context.Background(), c, 4)
	require.NoError(t, err)
	require.Equal(t, inline.Amplitudes, threaded.Amplitudes)
}
